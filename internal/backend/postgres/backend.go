// Package postgres provides a Postgres-backed search backend using pgx.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/federated-rag/retrieval-gateway/internal/retrieval"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config controls the Postgres connection pool and target table.
type Config struct {
	DSN      string
	Table    string
	MaxConns int32
	MinConns int32
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Backend searches and mutates a documents table. The table holds one row
// per URL with site, name, payload and content columns.
type Backend struct {
	pool  querier
	table string
}

// New creates a Postgres Backend from the given config.
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "documents"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	return &Backend{pool: pool, table: table}, nil
}

// NewWithPool creates a Backend over an existing pool, used by tests.
func NewWithPool(pool querier, table string) *Backend {
	if table == "" {
		table = "documents"
	}
	return &Backend{pool: pool, table: table}
}

// Factory adapts New to the adapter cache contract. The endpoint's API
// endpoint field carries the DSN; the index field overrides the table name.
func Factory(ep retrieval.Endpoint) (retrieval.Backend, error) {
	return New(context.Background(), Config{DSN: ep.APIEndpoint, Table: ep.Index})
}

// Close releases the connection pool.
func (b *Backend) Close() {
	b.pool.Close()
}

// Search returns documents matching the query restricted to sites.
func (b *Backend) Search(ctx context.Context, query string, sites []string, limit int) ([]retrieval.Result, error) {
	sql := fmt.Sprintf(
		`SELECT url, payload, name, site FROM %s
		 WHERE site = ANY($1) AND (name ILIKE $2 OR content ILIKE $2)
		 ORDER BY url LIMIT $3`,
		b.table,
	)
	return b.queryResults(ctx, sql, sites, "%"+query+"%", normalizeLimit(limit))
}

// SearchAllSites returns documents matching the query from every site.
func (b *Backend) SearchAllSites(ctx context.Context, query string, limit int) ([]retrieval.Result, error) {
	sql := fmt.Sprintf(
		`SELECT url, payload, name, site FROM %s
		 WHERE name ILIKE $1 OR content ILIKE $1
		 ORDER BY url LIMIT $2`,
		b.table,
	)
	return b.queryResults(ctx, sql, "%"+query+"%", normalizeLimit(limit))
}

// SearchByURL looks up a document by exact URL.
func (b *Backend) SearchByURL(ctx context.Context, url string) (retrieval.Result, error) {
	sql := fmt.Sprintf(`SELECT url, payload, name, site FROM %s WHERE url = $1`, b.table)
	var res retrieval.Result
	err := b.pool.QueryRow(ctx, sql, url).Scan(&res.URL, &res.Payload, &res.Name, &res.Site)
	if errors.Is(err, pgx.ErrNoRows) {
		return retrieval.Result{}, retrieval.ErrNotFound
	}
	if err != nil {
		return retrieval.Result{}, fmt.Errorf("query document by url: %w", err)
	}
	return res, nil
}

// UploadDocuments upserts documents keyed by URL.
func (b *Backend) UploadDocuments(ctx context.Context, docs []retrieval.Document) (int, error) {
	sql := fmt.Sprintf(
		`INSERT INTO %s (url, site, name, payload, content)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (url) DO UPDATE SET
		   site = EXCLUDED.site,
		   name = EXCLUDED.name,
		   payload = EXCLUDED.payload,
		   content = EXCLUDED.content`,
		b.table,
	)
	count := 0
	for _, doc := range docs {
		if doc.URL == "" {
			continue
		}
		if _, err := b.pool.Exec(ctx, sql, doc.URL, doc.Site, doc.Name, doc.Payload, doc.Content); err != nil {
			return count, fmt.Errorf("upsert document %s: %w", doc.URL, err)
		}
		count++
	}
	return count, nil
}

// DeleteBySite removes every document for the site.
func (b *Backend) DeleteBySite(ctx context.Context, site string) (int, error) {
	sql := fmt.Sprintf(`DELETE FROM %s WHERE site = $1`, b.table)
	tag, err := b.pool.Exec(ctx, sql, site)
	if err != nil {
		return 0, fmt.Errorf("delete documents for site %s: %w", site, err)
	}
	return int(tag.RowsAffected()), nil
}

// GetSites enumerates the distinct sites in the table.
func (b *Backend) GetSites(ctx context.Context) ([]string, error) {
	sql := fmt.Sprintf(`SELECT DISTINCT site FROM %s ORDER BY site`, b.table)
	rows, err := b.pool.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("query sites: %w", err)
	}
	defer rows.Close()
	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("scan site: %w", err)
		}
		sites = append(sites, site)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sites: %w", err)
	}
	return sites, nil
}

func (b *Backend) queryResults(ctx context.Context, sql string, args ...any) ([]retrieval.Result, error) {
	rows, err := b.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()
	var results []retrieval.Result
	for rows.Next() {
		var res retrieval.Result
		if err := rows.Scan(&res.URL, &res.Payload, &res.Name, &res.Site); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return results, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	return limit
}
