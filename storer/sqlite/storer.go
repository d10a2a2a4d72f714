package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/w-h-a/cervello/storer"
	"go.nhat.io/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.20.0"
	_ "modernc.org/sqlite"
)

var DRIVER string

func init() {
	driver, err := otelsql.Register(
		"sqlite",
		otelsql.TraceQueryWithoutArgs(),
		otelsql.TraceRowsClose(),
		otelsql.TraceRowsAffected(),
		otelsql.WithSystem(semconv.DBSystemSqlite),
	)
	if err != nil {
		detail := "failed to register sqlite storer with otel"
		slog.ErrorContext(context.Background(), detail, "error", err)
		panic(detail)
	}

	DRIVER = driver
}

// sqliteStorer keeps vectors as little-endian float32 blobs and scores them
// in process.
type sqliteStorer struct {
	options storer.Options
	conn    *sql.DB
	table   string
}

func (s *sqliteStorer) Search(ctx context.Context, vector []float32, limit int) ([]storer.Record, error) {
	if limit < 1 {
		return nil, nil
	}

	if err := storer.CheckDimension(s.options.VectorSize, vector); err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`SELECT id, content, metadata, embedding, created_at, updated_at FROM %s`, s.table)

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []storer.Record

	for rows.Next() {
		var rec storer.Record
		var metaBytes, blob []byte
		var createdAt, updatedAt int64

		if err := rows.Scan(&rec.Id, &rec.Content, &metaBytes, &blob, &createdAt, &updatedAt); err != nil {
			return nil, err
		}

		embedding, err := storer.DecodeVector(blob)
		if err != nil {
			return nil, err
		}

		if len(embedding) != len(vector) {
			continue
		}

		if err := json.Unmarshal(metaBytes, &rec.Metadata); err != nil {
			rec.Metadata = make(map[string]any)
		}

		rec.Score = float32(storer.CosineSimilarity(vector, embedding))
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		rec.UpdatedAt = time.Unix(0, updatedAt).UTC()

		candidates = append(candidates, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return storer.TopK(candidates, limit), nil
}

func (s *sqliteStorer) Upsert(ctx context.Context, records ...storer.Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			metadata = excluded.metadata,
			embedding = excluded.embedding,
			updated_at = excluded.updated_at
	`, s.table)

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().UnixNano()

	for _, rec := range records {
		if err := storer.CheckDimension(s.options.VectorSize, rec.Embedding); err != nil {
			return err
		}

		id := rec.Id
		if len(id) == 0 {
			id = uuid.New().String()
		}

		metadata := rec.Metadata
		if metadata == nil {
			metadata = map[string]any{}
		}

		metaJSON, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}

		if _, err := stmt.ExecContext(ctx, id, rec.Content, metaJSON, storer.EncodeVector(rec.Embedding), now, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *sqliteStorer) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE id IN (%s)`, s.table, placeholders)

	_, err := s.conn.ExecContext(ctx, query, args...)

	return err
}

func (s *sqliteStorer) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)

	var n int
	if err := s.conn.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, err
	}

	return n, nil
}

func (s *sqliteStorer) configure(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			metadata TEXT NOT NULL DEFAULT '{}',
			embedding BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)
	`, s.table)

	_, err := s.conn.ExecContext(ctx, query)

	return err
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func NewStorer(opts ...storer.Option) storer.Storer {
	options := storer.NewOptions(opts...)

	location := options.Location
	if len(location) == 0 {
		location = ":memory:"
	}

	s := &sqliteStorer{
		options: options,
		table:   quoteIdentifier(options.Collection),
	}

	conn, err := sql.Open(DRIVER, location)
	if err != nil {
		detail := "failed to open sqlite storer"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	// one connection so an in-memory database is shared by every query
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(options.Context); err != nil {
		detail := "failed to ping sqlite storer"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	s.conn = conn

	if err := s.configure(options.Context); err != nil {
		detail := "failed to create sqlite storer schema"
		slog.ErrorContext(options.Context, detail, "error", err)
		panic(detail)
	}

	return s
}
