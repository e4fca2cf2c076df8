package metadata

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	applog "github.com/corpussearch/engine/pkg/logger"
	apppostgres "github.com/corpussearch/engine/pkg/postgres"
	"github.com/corpussearch/engine/pkg/resilience"
)

// Postgres is a Source backed by a documents table, for corpora whose
// metadata lives in a relational store rather than inline in the cleaned
// stream. Lookups are wrapped in the shared timeout helper: a slow or
// down database degrades metadata to "unavailable", it never blocks
// indexing.
type Postgres struct {
	client  *apppostgres.Client
	query   string
	timeout time.Duration
	log     *slog.Logger
}

// NewPostgres builds a Postgres metadata source. query must be a single
// placeholder SELECT returning (title, authors, pub_date), e.g.
// "SELECT title, authors, pub_date FROM documents WHERE doc_key = $1".
func NewPostgres(client *apppostgres.Client, query string, timeout time.Duration) *Postgres {
	return &Postgres{
		client:  client,
		query:   query,
		timeout: timeout,
		log:     applog.WithComponent("metadata.postgres"),
	}
}

func (p *Postgres) Lookup(docKey string) (Record, bool) {
	var rec Record
	err := resilience.WithTimeout(context.Background(), p.timeout, "metadata.postgres.lookup", func(ctx context.Context) error {
		row := p.client.DB.QueryRowContext(ctx, p.query, docKey)
		var title, authors, pubDate sql.NullString
		if err := row.Scan(&title, &authors, &pubDate); err != nil {
			return err
		}
		rec = Record{Title: title.String, Authors: authors.String, PubDate: pubDate.String}
		return nil
	})
	if err != nil {
		if err != sql.ErrNoRows {
			p.log.Warn("metadata lookup failed", "doc_key", docKey, "error", fmt.Errorf("%w", err))
		}
		return Record{}, false
	}
	return rec, true
}
