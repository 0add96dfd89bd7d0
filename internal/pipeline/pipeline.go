package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/chainpipe/chainpipe/internal/csvfmt"
	"github.com/chainpipe/chainpipe/internal/dataset"
	"github.com/chainpipe/chainpipe/internal/observability"
	"github.com/chainpipe/chainpipe/internal/publish"
	"github.com/chainpipe/chainpipe/internal/query"
	"github.com/chainpipe/chainpipe/internal/storage"
)

const (
	runStatusSucceeded = "succeeded"
	runStatusFailed    = "failed"
)

type Publisher interface {
	Delete(ctx context.Context, tableName string) publish.DeleteResult
	Upload(ctx context.Context, tableName string, payload []byte, isPrivate bool) (bool, error)
}

type Archiver interface {
	Archive(ctx context.Context, tableName string, result query.Result, csvPayload []byte) (storage.ObjectInfo, error)
}

type Service struct {
	Engine    query.Engine
	Publisher Publisher
	Archiver  Archiver
	Datasets  []dataset.Descriptor
	Private   bool
	DryRun    bool
	Stdout    io.Writer
	Logger    *slog.Logger
	Clock     func() time.Time
	// Started is when the run began, before the warehouse login. Run uses
	// its own start time when zero.
	Started   time.Time
}

type DatasetReport struct {
	Name          string               `json:"name"`
	TableName     string               `json:"table_name"`
	Rows          int                  `json:"rows"`
	Columns       int                  `json:"columns"`
	PayloadBytes  int                  `json:"payload_bytes"`
	QueryDuration time.Duration        `json:"query_duration"`
	Delete        publish.DeleteResult `json:"delete"`
	Uploaded      bool                 `json:"uploaded"`
	ArchiveKey    string               `json:"archive_key,omitempty"`
}

type Report struct {
	DryRun   bool            `json:"dry_run"`
	Datasets []DatasetReport `json:"datasets"`
	Elapsed  time.Duration   `json:"elapsed"`
}

type queried struct {
	descriptor dataset.Descriptor
	result     query.Result
	payload    []byte
}

// Run executes every dataset query first and only then publishes, so a
// failing query leaves the remote host untouched. Within the publish pass
// each dataset is deleted then uploaded before the next one starts.
func (s *Service) Run(ctx context.Context) (Report, error) {
	s.ensureDefaults()
	if s.Engine == nil {
		return Report{}, fmt.Errorf("query engine is required")
	}
	if s.Publisher == nil && !s.DryRun {
		return Report{}, fmt.Errorf("publisher is required")
	}
	if len(s.Datasets) == 0 {
		return Report{}, fmt.Errorf("at least one dataset is required")
	}

	started := s.Started
	if started.IsZero() {
		started = s.Clock()
	}
	report := Report{DryRun: s.DryRun, Datasets: make([]DatasetReport, 0, len(s.Datasets))}

	results, err := s.queryAll(ctx)
	if err != nil {
		s.finish(ctx, &report, started, runStatusFailed)
		return report, err
	}

	for _, item := range results {
		entry := DatasetReport{
			Name:          item.descriptor.Name,
			TableName:     item.descriptor.TableName,
			Rows:          len(item.result.Rows),
			Columns:       len(item.result.Columns),
			PayloadBytes:  len(item.payload),
			QueryDuration: item.result.Duration,
		}
		if s.DryRun {
			s.printf("Dry run %s: %d rows, %d bytes for %s\n", item.descriptor.Title, entry.Rows, entry.PayloadBytes, entry.TableName)
			report.Datasets = append(report.Datasets, entry)
			continue
		}

		entry.Delete = s.Publisher.Delete(ctx, item.descriptor.TableName)
		if entry.Delete.Deleted() {
			s.printf("Successfully deleted the table: %s\n", entry.Delete.Table)
		} else {
			s.printf("Failed to delete the table: %s. Error: %s\n", entry.Delete.Table, entry.Delete.Reason)
		}

		uploaded, err := s.Publisher.Upload(ctx, item.descriptor.TableName, item.payload, s.Private)
		if err != nil {
			report.Datasets = append(report.Datasets, entry)
			s.finish(ctx, &report, started, runStatusFailed)
			return report, fmt.Errorf("publish dataset %s: %w", item.descriptor.Name, err)
		}
		entry.Uploaded = uploaded
		s.printf("Uploaded %s successfully: %t\n", item.descriptor.Title, uploaded)

		if s.Archiver != nil {
			info, err := s.Archiver.Archive(ctx, item.descriptor.TableName, item.result, item.payload)
			if err != nil {
				s.Logger.WarnContext(ctx, "archive snapshot failed", "dataset", item.descriptor.Name, "error", err)
			} else {
				entry.ArchiveKey = info.Key
			}
		}
		report.Datasets = append(report.Datasets, entry)
	}

	s.finish(ctx, &report, started, runStatusSucceeded)
	minutes, seconds := splitElapsed(report.Elapsed)
	s.printf("Process completed in %d minutes and %d seconds.\n", minutes, seconds)
	return report, nil
}

func (s *Service) queryAll(ctx context.Context) ([]queried, error) {
	results := make([]queried, 0, len(s.Datasets))
	for _, descriptor := range s.Datasets {
		s.printf("Executing query: %s ...\n", descriptor.Title)
		result, err := s.Engine.Execute(ctx, query.Request{Title: descriptor.Title, SQL: descriptor.SQL})
		if err != nil {
			return nil, fmt.Errorf("query dataset %s: %w", descriptor.Name, err)
		}
		observability.ObserveQuery(descriptor.Name, len(result.Rows), result.Duration)

		payload, err := csvfmt.Encode(result)
		if err != nil {
			return nil, fmt.Errorf("encode dataset %s: %w", descriptor.Name, err)
		}
		observability.ObservePayload(descriptor.Name, len(payload))
		s.Logger.InfoContext(ctx, "dataset queried",
			"dataset", descriptor.Name,
			"rows", len(result.Rows),
			"columns", len(result.Columns),
			"bytes", len(payload),
			"duration_ms", result.Duration.Milliseconds(),
		)
		results = append(results, queried{descriptor: descriptor, result: result, payload: payload})
	}
	return results, nil
}

func (s *Service) finish(ctx context.Context, report *Report, started time.Time, status string) {
	finished := s.Clock()
	report.Elapsed = finished.Sub(started)
	if report.Elapsed < 0 {
		report.Elapsed = 0
	}
	if !s.DryRun {
		observability.ObserveRun(status, report.Elapsed, finished)
	}
	s.Logger.InfoContext(ctx, "run finished",
		"status", status,
		"dry_run", s.DryRun,
		"datasets", len(report.Datasets),
		"elapsed_ms", report.Elapsed.Milliseconds(),
	)
}

func (s *Service) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(s.Stdout, format, args...)
}

func (s *Service) ensureDefaults() {
	if s.Stdout == nil {
		s.Stdout = os.Stdout
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.Clock == nil {
		s.Clock = time.Now
	}
}

func splitElapsed(elapsed time.Duration) (int, int) {
	total := int(elapsed / time.Second)
	return total / 60, total % 60
}
