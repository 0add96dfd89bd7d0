package csvfmt

import (
	"strings"
	"testing"
	"time"

	"github.com/chainpipe/chainpipe/internal/query"
)

func TestEncodeRoundTripsShapeAndCells(t *testing.T) {
	day := time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC)
	result := query.Result{
		Columns:     []string{"DAY", "ADDRESS", "TX_COUNT", "SHARE", "NOTE"},
		ColumnTypes: []string{"DATE", "TEXT", "FIXED", "REAL", "TEXT"},
		Rows: [][]any{
			{day, "0xabc", int64(12), 0.125, `contains "quotes", commas`},
			{day.AddDate(0, 0, -1), "0xdef", int64(0), nil, "multi\nline"},
			{day.AddDate(0, 0, -2), nil, "1200", 1e-7, ""},
		},
	}

	payload, err := Encode(result)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	header, rows, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if strings.Join(header, "|") != strings.Join(result.Columns, "|") {
		t.Fatalf("header = %v", header)
	}
	if len(rows) != len(result.Rows) {
		t.Fatalf("rows = %d, want %d", len(rows), len(result.Rows))
	}
	for i, row := range rows {
		if len(row) != len(result.Columns) {
			t.Fatalf("row %d has %d cells", i, len(row))
		}
		for j, cell := range row {
			want := FormatValue(result.Rows[i][j], result.ColumnTypes[j])
			if cell != want {
				t.Fatalf("cell[%d][%d] = %q, want %q", i, j, cell, want)
			}
		}
	}
	if rows[0][0] != "2024-10-01" {
		t.Fatalf("date cell = %q", rows[0][0])
	}
	if rows[1][3] != "" {
		t.Fatalf("null cell = %q", rows[1][3])
	}
}

func TestEncodeRoundTripEdgeShapes(t *testing.T) {
	tests := []struct {
		name   string
		result query.Result
		want   [][]string
	}{
		{
			name: "single column with nil and empty cells",
			result: query.Result{
				Columns: []string{"ADDRESS"},
				Rows:    [][]any{{"0xa"}, {nil}, {""}, {"0xb"}},
			},
			want: [][]string{{"0xa"}, {""}, {""}, {"0xb"}},
		},
		{
			name: "single column of only nils",
			result: query.Result{
				Columns: []string{"GROWTH"},
				Rows:    [][]any{{nil}, {nil}},
			},
			want: [][]string{{""}, {""}},
		},
		{
			name: "all empty cells across columns",
			result: query.Result{
				Columns: []string{"A", "B"},
				Rows:    [][]any{{nil, ""}, {"", nil}},
			},
			want: [][]string{{"", ""}, {"", ""}},
		},
		{
			name: "quotes commas and newlines",
			result: query.Result{
				Columns: []string{"LABEL"},
				Rows:    [][]any{{`say "gm"`}, {"a,b"}, {"line1\nline2"}, {"  padded  "}},
			},
			want: [][]string{{`say "gm"`}, {"a,b"}, {"line1\nline2"}, {"  padded  "}},
		},
		{
			name: "carriage return line feed inside cell",
			result: query.Result{
				Columns: []string{"NOTE", "N"},
				Rows:    [][]any{{"x\r\ny", int64(1)}},
			},
			want: [][]string{{"x\ny", "1"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := Encode(tt.result)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			header, rows, err := Decode(payload)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if strings.Join(header, "|") != strings.Join(tt.result.Columns, "|") {
				t.Fatalf("header = %v", header)
			}
			if len(rows) != len(tt.want) {
				t.Fatalf("rows = %d, want %d (payload %q)", len(rows), len(tt.want), payload)
			}
			for i := range tt.want {
				if strings.Join(rows[i], "|") != strings.Join(tt.want[i], "|") || len(rows[i]) != len(tt.want[i]) {
					t.Fatalf("row %d = %q, want %q", i, rows[i], tt.want[i])
				}
			}
		})
	}
}

func TestEncodeQuotesLoneEmptyCell(t *testing.T) {
	payload, err := Encode(query.Result{Columns: []string{"ADDRESS"}, Rows: [][]any{{"0xa"}, {nil}, {"0xb"}}})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(payload) != "ADDRESS\n0xa\n\"\"\n0xb\n" {
		t.Fatalf("payload = %q", payload)
	}
}

func TestEncodeEmptyResultWritesHeaderOnly(t *testing.T) {
	payload, err := Encode(query.Result{Columns: []string{"RANKING", "ADDRESS"}, Rows: [][]any{}})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if string(payload) != "RANKING,ADDRESS\n" {
		t.Fatalf("payload = %q", payload)
	}
}

func TestEncodeRejectsRaggedRows(t *testing.T) {
	_, err := Encode(query.Result{Columns: []string{"A", "B"}, Rows: [][]any{{int64(1)}}})
	if err == nil {
		t.Fatal("expected error for ragged row")
	}
}

func TestEncodeRequiresColumns(t *testing.T) {
	if _, err := Encode(query.Result{}); err == nil {
		t.Fatal("expected error for result without columns")
	}
}

func TestFormatValue(t *testing.T) {
	ts := time.Date(2024, time.October, 1, 13, 4, 5, 500000000, time.UTC)
	tests := []struct {
		name  string
		value any
		typ   string
		want  string
	}{
		{name: "nil", value: nil, want: ""},
		{name: "int", value: int64(-3), want: "-3"},
		{name: "float", value: 2.5, want: "2.5"},
		{name: "large float", value: 1234567.0, want: "1234567"},
		{name: "bool", value: true, want: "True"},
		{name: "date", value: ts, typ: "date", want: "2024-10-01"},
		{name: "timestamp", value: ts, typ: "TIMESTAMP_NTZ", want: "2024-10-01 13:04:05.5"},
		{name: "midnight timestamp", value: ts.Truncate(24 * time.Hour), typ: "TIMESTAMP_NTZ", want: "2024-10-01 00:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatValue(tt.value, tt.typ); got != tt.want {
				t.Fatalf("FormatValue() = %q, want %q", got, tt.want)
			}
		})
	}
}
