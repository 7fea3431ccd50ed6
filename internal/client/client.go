// Package client talks to QuestDB over its Postgres wire endpoint.
//
// All SQL passes through dialect.RemovePublicSchema before it reaches the
// server, since QuestDB rejects schema-qualified names.
package client

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/roach88/qdbconnect/internal/dialect"
	"github.com/roach88/qdbconnect/internal/qdbtype"
	"github.com/roach88/qdbconnect/internal/queryir"
	"github.com/roach88/qdbconnect/internal/querysql"
)

// Connection defaults for a stock QuestDB install.
const (
	DefaultHost     = "127.0.0.1"
	DefaultPort     = 8812
	DefaultUser     = "admin"
	DefaultPassword = "quest"
	DefaultDatabase = "main"
	DefaultSSLMode  = "disable"
)

// Config holds connection settings.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// DefaultConfig returns the stock connection settings.
func DefaultConfig() Config {
	return Config{
		Host:     DefaultHost,
		Port:     DefaultPort,
		User:     DefaultUser,
		Password: DefaultPassword,
		Database: DefaultDatabase,
		SSLMode:  DefaultSSLMode,
	}
}

// ConnString builds a postgres:// URL. Empty fields take their defaults.
func (c Config) ConnString() string {
	d := DefaultConfig()
	host := firstNonEmpty(c.Host, d.Host)
	port := c.Port
	if port == 0 {
		port = d.Port
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(firstNonEmpty(c.User, d.User), firstNonEmpty(c.Password, d.Password)),
		Host:     net.JoinHostPort(host, strconv.Itoa(port)),
		Path:     "/" + firstNonEmpty(c.Database, d.Database),
		RawQuery: url.Values{"sslmode": []string{firstNonEmpty(c.SSLMode, d.SSLMode)}}.Encode(),
	}
	return u.String()
}

func firstNonEmpty(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// Querier is the subset of *pgxpool.Pool the client uses.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Client runs queries and reflects table metadata.
type Client struct {
	q        Querier
	pool     *pgxpool.Pool
	catalog  *qdbtype.Catalog
	compiler *querysql.SQLCompiler
	logger   *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithCatalog sets the type catalog used to resolve column types.
func WithCatalog(cat *qdbtype.Catalog) Option {
	return func(c *Client) {
		c.catalog = cat
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New wraps an existing Querier.
func New(q Querier, opts ...Option) *Client {
	c := &Client{
		q:        q,
		compiler: querysql.NewSQLCompiler(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.catalog == nil {
		c.catalog = qdbtype.NewCatalog()
	}
	return c
}

// Connect opens a connection pool and pings the server.
func Connect(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	pool, err := pgxpool.New(ctx, cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	c := New(pool, opts...)
	c.pool = pool
	c.logger.Debug("connected",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
	)
	return c, nil
}

// Close releases the pool when the client owns one.
func (c *Client) Close() {
	if c.pool != nil {
		c.pool.Close()
	}
}

// Catalog returns the client's type catalog.
func (c *Client) Catalog() *qdbtype.Catalog {
	return c.catalog
}

// Query runs sql after stripping public schema qualifiers.
func (c *Client) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	sql = dialect.RemovePublicSchema(sql)
	start := time.Now()
	rows, err := c.q.Query(ctx, sql, args...)
	c.logQuery(sql, len(args), start, err)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return rows, nil
}

// Exec runs a statement that returns no rows.
func (c *Client) Exec(ctx context.Context, sql string, args ...any) error {
	sql = dialect.RemovePublicSchema(sql)
	start := time.Now()
	_, err := c.q.Exec(ctx, sql, args...)
	c.logQuery(sql, len(args), start, err)
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

// Select compiles q and runs it.
func (c *Client) Select(ctx context.Context, q queryir.Select) (pgx.Rows, error) {
	sql, params, err := c.compiler.Compile(q)
	if err != nil {
		return nil, err
	}
	return c.Query(ctx, sql, params...)
}

func (c *Client) logQuery(sql string, nargs int, start time.Time, err error) {
	fields := []zap.Field{
		zap.String("sql", sql),
		zap.Int("args", nargs),
		zap.Duration("elapsed", time.Since(start)),
	}
	if err != nil {
		c.logger.Warn("query failed", append(fields, zap.Error(err))...)
		return
	}
	c.logger.Debug("query", fields...)
}
