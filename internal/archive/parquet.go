package archive

import (
	"bytes"
	"fmt"

	"github.com/parquet-go/parquet-go"

	"github.com/chainpipe/chainpipe/internal/csvfmt"
	"github.com/chainpipe/chainpipe/internal/query"
)

// EncodeParquet stores every column as an optional string holding the same
// text the CSV payload carries, so archived snapshots match what was uploaded.
func EncodeParquet(result query.Result) ([]byte, error) {
	if len(result.Columns) == 0 {
		return nil, fmt.Errorf("result has no columns")
	}

	group := parquet.Group{}
	for _, column := range result.Columns {
		if _, exists := group[column]; exists {
			return nil, fmt.Errorf("duplicate column %q", column)
		}
		group[column] = parquet.Optional(parquet.String())
	}
	schema := parquet.NewSchema("snapshot", group)

	columnIndex := make(map[string]int, len(result.Columns))
	for i, columnPath := range schema.Columns() {
		columnIndex[columnPath[0]] = i
	}

	rows := make([]parquet.Row, 0, len(result.Rows))
	for rowIndex, values := range result.Rows {
		if len(values) != len(result.Columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", rowIndex, len(values), len(result.Columns))
		}
		row := make(parquet.Row, len(result.Columns))
		for i, column := range result.Columns {
			index := columnIndex[column]
			if values[i] == nil {
				row[index] = parquet.NullValue().Level(0, 0, index)
				continue
			}
			text := csvfmt.FormatValue(values[i], columnType(result.ColumnTypes, i))
			row[index] = parquet.ByteArrayValue([]byte(text)).Level(0, 1, index)
		}
		rows = append(rows, row)
	}

	buf := bytes.NewBuffer(nil)
	writer := parquet.NewWriter(buf, schema)
	if _, err := writer.WriteRows(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}
	return buf.Bytes(), nil
}

func columnType(types []string, index int) string {
	if index < len(types) {
		return types[index]
	}
	return ""
}
