package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/chainpipe/chainpipe/internal/csvfmt"
	"github.com/chainpipe/chainpipe/internal/dataset"
	"github.com/chainpipe/chainpipe/internal/query"
)

// Export runs one dataset query and writes the CSV payload to w without
// touching the remote host.
func Export(ctx context.Context, engine query.Engine, descriptor dataset.Descriptor, w io.Writer) (query.Result, error) {
	if engine == nil {
		return query.Result{}, fmt.Errorf("query engine is required")
	}
	result, err := engine.Execute(ctx, query.Request{Title: descriptor.Title, SQL: descriptor.SQL})
	if err != nil {
		return query.Result{}, fmt.Errorf("query dataset %s: %w", descriptor.Name, err)
	}
	payload, err := csvfmt.Encode(result)
	if err != nil {
		return query.Result{}, fmt.Errorf("encode dataset %s: %w", descriptor.Name, err)
	}
	if _, err := w.Write(payload); err != nil {
		return query.Result{}, fmt.Errorf("write dataset %s: %w", descriptor.Name, err)
	}
	return result, nil
}
