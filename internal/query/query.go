package query

import (
	"context"
	"time"
)

type Request struct {
	Title string
	SQL   string
}

// Result is a fully materialised result set. Rows hold values in projection
// order: string, int64, float64, bool, time.Time or nil.
type Result struct {
	Columns     []string
	ColumnTypes []string
	Rows        [][]any
	Duration    time.Duration
}

type Engine interface {
	Execute(ctx context.Context, request Request) (Result, error)
}
