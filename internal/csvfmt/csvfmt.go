package csvfmt

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chainpipe/chainpipe/internal/query"
)

const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05.999999999"
)

func Encode(result query.Result) ([]byte, error) {
	if len(result.Columns) == 0 {
		return nil, fmt.Errorf("result has no columns")
	}

	buf := bytes.NewBuffer(nil)
	writer := csv.NewWriter(buf)
	if err := writer.Write(result.Columns); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}

	record := make([]string, len(result.Columns))
	for rowIndex, row := range result.Rows {
		if len(row) != len(result.Columns) {
			return nil, fmt.Errorf("row %d has %d values, want %d", rowIndex, len(row), len(result.Columns))
		}
		for i, value := range row {
			record[i] = FormatValue(value, columnType(result.ColumnTypes, i))
		}
		if len(record) == 1 && record[0] == "" {
			// encoding/csv writes a lone empty field as a blank line, which readers skip.
			writer.Flush()
			if err := writer.Error(); err != nil {
				return nil, fmt.Errorf("write csv row %d: %w", rowIndex, err)
			}
			buf.WriteString("\"\"\n")
			continue
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row %d: %w", rowIndex, err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a payload produced by Encode back into its header and cells.
// encoding/csv folds a quoted "\r\n" into "\n", so cells holding CRLF come
// back with bare line feeds; the payload itself keeps the original bytes.
func Decode(data []byte) ([]string, [][]string, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("csv payload has no header")
	}
	return records[0], records[1:], nil
}

func FormatValue(value any, databaseType string) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		if typed {
			return "True"
		}
		return "False"
	case time.Time:
		if isDateType(databaseType) {
			return typed.Format(dateLayout)
		}
		return typed.Format(timestampLayout)
	default:
		return fmt.Sprint(typed)
	}
}

func columnType(types []string, index int) string {
	if index < len(types) {
		return types[index]
	}
	return ""
}

func isDateType(databaseType string) bool {
	return strings.EqualFold(strings.TrimSpace(databaseType), "DATE")
}
