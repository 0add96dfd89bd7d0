package archive

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/chainpipe/chainpipe/internal/query"
	"github.com/chainpipe/chainpipe/internal/storage"
)

const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

type Archiver struct {
	Store     storage.ObjectStore
	Namespace string
	Format    string
	Clock     func() time.Time
}

func New(store storage.ObjectStore, namespace, format string) (*Archiver, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	switch format {
	case FormatCSV, FormatParquet:
	default:
		return nil, fmt.Errorf("unsupported archive format %q", format)
	}
	return &Archiver{Store: store, Namespace: namespace, Format: format, Clock: time.Now}, nil
}

// Archive stores one snapshot of a published table. csvPayload is reused
// as-is for the CSV format.
func (a *Archiver) Archive(ctx context.Context, tableName string, result query.Result, csvPayload []byte) (storage.ObjectInfo, error) {
	clock := a.Clock
	if clock == nil {
		clock = time.Now
	}

	data := csvPayload
	contentType := "text/csv"
	if a.Format == FormatParquet {
		encoded, err := EncodeParquet(result)
		if err != nil {
			return storage.ObjectInfo{}, fmt.Errorf("encode parquet snapshot: %w", err)
		}
		data = encoded
		contentType = "application/vnd.apache.parquet"
	}

	key, err := storage.BuildArchivePath(a.Namespace, tableName, clock(), a.Format)
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("build archive path: %w", err)
	}
	info, err := a.Store.Put(ctx, key, bytes.NewReader(data), int64(len(data)), storage.PutOptions{ContentType: contentType})
	if err != nil {
		return storage.ObjectInfo{}, fmt.Errorf("archive %s: %w", tableName, err)
	}
	return info, nil
}
