package chainpipe

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chainpipe/chainpipe/internal/archive"
	"github.com/chainpipe/chainpipe/internal/config"
	"github.com/chainpipe/chainpipe/internal/dune"
	"github.com/chainpipe/chainpipe/internal/observability"
	"github.com/chainpipe/chainpipe/internal/pipeline"
	"github.com/chainpipe/chainpipe/internal/publish"
	"github.com/chainpipe/chainpipe/internal/query"
	"github.com/chainpipe/chainpipe/internal/storage"
	"github.com/chainpipe/chainpipe/internal/storage/local"
	"github.com/chainpipe/chainpipe/internal/storage/s3"
	"github.com/chainpipe/chainpipe/internal/warehouse"
)

type Dependencies struct {
	Engine    query.Engine
	Publisher pipeline.Publisher
	Archiver  pipeline.Archiver
	Close     func() error
}

type BuildFunc func(ctx context.Context, cfg config.Config, logger *slog.Logger, publishing bool) (Dependencies, error)

// BuildDependencies opens the warehouse and, when publishing, the Dune client
// and the optional snapshot archive.
func BuildDependencies(ctx context.Context, cfg config.Config, logger *slog.Logger, publishing bool) (Dependencies, error) {
	if err := cfg.Warehouse.Validate(); err != nil {
		return Dependencies{}, fmt.Errorf("warehouse config: %w", err)
	}
	client, err := warehouse.Open(ctx, warehouse.Config{
		Driver:       cfg.Warehouse.Driver,
		DSN:          cfg.Warehouse.DSN,
		Account:      cfg.Warehouse.Account,
		User:         cfg.Warehouse.User,
		Password:     cfg.Warehouse.Password,
		Warehouse:    cfg.Warehouse.Warehouse,
		Database:     cfg.Warehouse.Database,
		Schema:       cfg.Warehouse.Schema,
		Role:         cfg.Warehouse.Role,
		Application:  cfg.Service.Name,
		LoginTimeout: cfg.Warehouse.LoginTimeout,
	})
	if err != nil {
		return Dependencies{}, fmt.Errorf("open warehouse: %w", err)
	}
	deps := Dependencies{Engine: client, Close: client.Close}
	if !publishing {
		return deps, nil
	}

	if strings.TrimSpace(cfg.Dune.APIKey) == "" {
		_ = client.Close()
		return Dependencies{}, fmt.Errorf("DUNE_API_KEY is required")
	}
	duneClient, err := dune.NewClient(dune.Config{
		BaseURL:   cfg.Dune.BaseURL,
		APIKey:    cfg.Dune.APIKey,
		Timeout:   cfg.Dune.Timeout,
		Transport: observability.NewTransport(http.DefaultTransport, logger),
	})
	if err != nil {
		_ = client.Close()
		return Dependencies{}, fmt.Errorf("create dune client: %w", err)
	}
	publisher, err := publish.New(duneClient, cfg.Dune.Namespace, logger)
	if err != nil {
		_ = client.Close()
		return Dependencies{}, fmt.Errorf("create publisher: %w", err)
	}
	deps.Publisher = publisher

	if cfg.Archive.Enabled {
		store, err := newArchiveStore(ctx, cfg.Archive)
		if err != nil {
			_ = client.Close()
			return Dependencies{}, fmt.Errorf("create archive store: %w", err)
		}
		archiver, err := archive.New(store, cfg.Dune.Namespace, cfg.Archive.Format)
		if err != nil {
			_ = client.Close()
			return Dependencies{}, fmt.Errorf("create archiver: %w", err)
		}
		deps.Archiver = archiver
	}
	return deps, nil
}

func newArchiveStore(ctx context.Context, cfg config.ArchiveConfig) (storage.ObjectStore, error) {
	switch cfg.Target {
	case config.ArchiveTargetDir:
		store, err := local.New(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.ArchiveTargetS3:
		store, err := s3.New(ctx, s3.Config{
			Endpoint:         cfg.ObjectStore.Endpoint,
			Region:           cfg.ObjectStore.Region,
			Bucket:           cfg.ObjectStore.Bucket,
			AccessKeyID:      cfg.ObjectStore.AccessKeyID,
			SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
			UseSSL:           cfg.ObjectStore.UseSSL,
			Prefix:           cfg.ObjectStore.Prefix,
			AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported archive target %q", cfg.Target)
	}
}
