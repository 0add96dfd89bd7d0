package warehouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/snowflakedb/gosnowflake"

	"github.com/chainpipe/chainpipe/internal/query"
)

const (
	DriverSnowflake = "snowflake"
	DriverDuckDB    = "duckdb"
	DriverPostgres  = "postgres"
)

type Config struct {
	Driver       string
	DSN          string
	Account      string
	User         string
	Password     string
	Warehouse    string
	Database     string
	Schema       string
	Role         string
	Application  string
	LoginTimeout time.Duration
}

// Client runs statements over a single warehouse connection. It is not safe
// for concurrent use.
type Client struct {
	db     *sql.DB
	driver string
}

func Open(ctx context.Context, cfg Config) (*Client, error) {
	driverName, dsn, err := dataSource(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s warehouse: %w", cfg.Driver, err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	timeout := cfg.LoginTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect %s warehouse: %w", cfg.Driver, err)
	}

	return &Client{db: db, driver: cfg.Driver}, nil
}

func NewWithDB(db *sql.DB, driver string) (*Client, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	db.SetMaxOpenConns(1)
	return &Client{db: db, driver: driver}, nil
}

func (c *Client) Driver() string {
	return c.driver
}

func (c *Client) Execute(ctx context.Context, request query.Request) (query.Result, error) {
	sqlText := strings.TrimSpace(request.SQL)
	if sqlText == "" {
		return query.Result{}, fmt.Errorf("sql is required")
	}
	if c.db == nil {
		return query.Result{}, fmt.Errorf("warehouse connection is closed")
	}

	start := time.Now()
	rows, err := c.db.QueryContext(ctx, sqlText)
	if err != nil {
		return query.Result{}, fmt.Errorf("execute query %q: %w", request.Title, err)
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return query.Result{}, fmt.Errorf("query columns: %w", err)
	}
	columnTypes := make([]string, len(columns))
	if types, err := rows.ColumnTypes(); err == nil {
		for i, columnType := range types {
			if i < len(columnTypes) {
				columnTypes[i] = strings.ToUpper(columnType.DatabaseTypeName())
			}
		}
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return query.Result{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return query.Result{}, fmt.Errorf("iterate rows: %w", err)
	}

	return query.Result{
		Columns:     columns,
		ColumnTypes: columnTypes,
		Rows:        resultRows,
		Duration:    time.Since(start),
	}, nil
}

func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	if err != nil {
		return fmt.Errorf("close warehouse: %w", err)
	}
	return nil
}

func dataSource(cfg Config) (string, string, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case DriverSnowflake:
		application := cfg.Application
		if application == "" {
			application = "chainpipe"
		}
		dsn, err := gosnowflake.DSN(&gosnowflake.Config{
			Account:      cfg.Account,
			User:         cfg.User,
			Password:     cfg.Password,
			Warehouse:    cfg.Warehouse,
			Database:     cfg.Database,
			Schema:       cfg.Schema,
			Role:         cfg.Role,
			Application:  application,
			LoginTimeout: cfg.LoginTimeout,
		})
		if err != nil {
			return "", "", fmt.Errorf("build snowflake dsn: %w", err)
		}
		return "snowflake", dsn, nil
	case DriverDuckDB:
		return "duckdb", cfg.DSN, nil
	case DriverPostgres:
		if strings.TrimSpace(cfg.DSN) == "" {
			return "", "", fmt.Errorf("postgres dsn is required")
		}
		return "pgx", cfg.DSN, nil
	default:
		return "", "", fmt.Errorf("unsupported warehouse driver %q", cfg.Driver)
	}
}
