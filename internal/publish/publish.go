package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chainpipe/chainpipe/internal/dune"
	"github.com/chainpipe/chainpipe/internal/observability"
)

const deletedTablePrefix = "dataset_"

type DeleteStatus string

const (
	DeleteStatusDeleted DeleteStatus = "deleted"
	DeleteStatusFailed  DeleteStatus = "failed"
)

type DeleteResult struct {
	Table  string
	Status DeleteStatus
	Reason string
}

func (r DeleteResult) Deleted() bool {
	return r.Status == DeleteStatusDeleted
}

type Client interface {
	DeleteTable(ctx context.Context, namespace, tableName string) error
	UploadCSV(ctx context.Context, req dune.UploadCSVRequest) (bool, error)
}

type Publisher struct {
	Client    Client
	Namespace string
	Logger    *slog.Logger
}

func New(client Client, namespace string, logger *slog.Logger) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("client is required")
	}
	if strings.TrimSpace(namespace) == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{Client: client, Namespace: namespace, Logger: logger}, nil
}

// Delete removes the hosted copy of tableName. Failures are reported in the
// result and never stop the caller.
func (p *Publisher) Delete(ctx context.Context, tableName string) DeleteResult {
	target := deletedTablePrefix + tableName
	result := DeleteResult{Table: target, Status: DeleteStatusDeleted}

	err := p.Client.DeleteTable(ctx, p.Namespace, target)
	if err == nil {
		observability.IncrementPublishOperation(tableName, "delete", "deleted")
		p.logger().Debug("table deleted", "namespace", p.Namespace, "table", target)
		return result
	}

	result.Status = DeleteStatusFailed
	result.Reason = err.Error()
	outcome := "failed"
	if errors.Is(err, dune.ErrTableNotFound) {
		outcome = "not_found"
	}
	observability.IncrementPublishOperation(tableName, "delete", outcome)
	p.logger().WarnContext(ctx, "delete table failed", "namespace", p.Namespace, "table", target, "error", err)
	return result
}

func (p *Publisher) Upload(ctx context.Context, tableName string, payload []byte, isPrivate bool) (bool, error) {
	ok, err := p.Client.UploadCSV(ctx, dune.UploadCSVRequest{
		TableName: tableName,
		Data:      string(payload),
		IsPrivate: isPrivate,
	})
	if err != nil {
		observability.IncrementPublishOperation(tableName, "upload", "error")
		return false, fmt.Errorf("upload %s: %w", tableName, err)
	}
	outcome := "succeeded"
	if !ok {
		outcome = "rejected"
	}
	observability.IncrementPublishOperation(tableName, "upload", outcome)
	return ok, nil
}

func (p *Publisher) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
