package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"herosearch/internal/model"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PostgresRepository serves the search_documents table:
//
//	source_table text, record_id text, title text, name text, libelle text,
//	slug text, images text, cover_url text, price numeric, city text,
//	search_vector tsvector, embedding vector, updated_at timestamptz
//
// One row per searchable Property, Product, BlogArticle, Service or Metier.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(2 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepositoryFromDB wraps an existing connection
func NewPostgresRepositoryFromDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// documentRow is one search_documents row as scanned by sqlx
type documentRow struct {
	SourceTable string          `db:"source_table"`
	RecordID    model.RecordID  `db:"record_id"`
	Title       sql.NullString  `db:"title"`
	Name        sql.NullString  `db:"name"`
	Libelle     sql.NullString  `db:"libelle"`
	Slug        sql.NullString  `db:"slug"`
	Images      sql.NullString  `db:"images"`
	CoverURL    sql.NullString  `db:"cover_url"`
	Price       model.FlexFloat `db:"price"`
	City        sql.NullString  `db:"city"`
	Similarity  model.FlexFloat `db:"similarity"`
}

const documentColumns = `
	source_table, record_id, title, name, libelle, slug, images, cover_url, price, city`

// SearchDocuments looks up documents matching prompt. With an embedding the
// ranking is cosine similarity, otherwise french full-text rank with an ILIKE
// fallback on the display names.
func (r *PostgresRepository) SearchDocuments(
	ctx context.Context,
	prompt string,
	embedding []float32,
	limit int,
) ([]model.RawRecord, error) {
	var (
		query string
		args  []interface{}
	)

	if len(embedding) > 0 {
		query = fmt.Sprintf(`
			SELECT %s,
				1 - (embedding <=> $1) AS similarity
			FROM search_documents
			WHERE embedding IS NOT NULL
			ORDER BY embedding <=> $1
			LIMIT $2
		`, documentColumns)
		args = []interface{}{pgvector.NewVector(embedding), limit}
	} else {
		query = fmt.Sprintf(`
			SELECT %s,
				ts_rank(search_vector, plainto_tsquery('french', $1)) AS similarity
			FROM search_documents
			WHERE search_vector @@ plainto_tsquery('french', $1)
				OR COALESCE(title, name, libelle, '') ILIKE $2
			ORDER BY similarity DESC, updated_at DESC NULLS LAST
			LIMIT $3
		`, documentColumns)
		args = []interface{}{prompt, "%" + escapeLike(prompt) + "%", limit}
	}

	var rows []documentRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	records := make([]model.RawRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toRecord())
	}
	return records, nil
}

func (row documentRow) toRecord() model.RawRecord {
	return model.RawRecord{
		SourceTable: model.FlexString(row.SourceTable),
		ID:          row.RecordID,
		Title:       nullable(row.Title),
		Name:        nullable(row.Name),
		Libelle:     nullable(row.Libelle),
		Images:      imagesJSON(row.Images),
		CoverURL:    nullable(row.CoverURL),
		Price:       row.Price,
		City:        nullable(row.City),
		Slug:        nullable(row.Slug),
		Similarity:  row.Similarity,
	}
}

// imagesJSON forwards JSON image columns as-is and wraps anything else
// (comma lists, postgres array literals) as a JSON string.
func imagesJSON(s sql.NullString) json.RawMessage {
	if !s.Valid || strings.TrimSpace(s.String) == "" {
		return nil
	}
	trimmed := strings.TrimSpace(s.String)
	if strings.HasPrefix(trimmed, "[") && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	encoded, err := json.Marshal(s.String)
	if err != nil {
		return nil
	}
	return encoded
}

func nullable(s sql.NullString) model.FlexString {
	if !s.Valid {
		return ""
	}
	return model.FlexString(s.String)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// BatchUpdateEmbeddings updates the vectors of several documents in one transaction
func (r *PostgresRepository) BatchUpdateEmbeddings(ctx context.Context, items []model.EmbeddingItem) (int, []string) {
	success := 0
	var errors []string

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		errors = append(errors, fmt.Sprintf("failed to start transaction: %v", err))
		return success, errors
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		UPDATE search_documents
		SET embedding = $1, updated_at = NOW()
		WHERE source_table = $2 AND record_id = $3
	`)
	if err != nil {
		errors = append(errors, fmt.Sprintf("failed to prepare statement: %v", err))
		return success, errors
	}
	defer stmt.Close()

	for _, item := range items {
		res, err := stmt.ExecContext(ctx, pgvector.NewVector(item.Embedding), item.SourceTable, item.RecordID)
		if err != nil {
			errors = append(errors, fmt.Sprintf("%s/%s: %v", item.SourceTable, item.RecordID, err))
			continue
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			errors = append(errors, fmt.Sprintf("%s/%s: document not found", item.SourceTable, item.RecordID))
			continue
		}
		success++
	}

	if err := tx.Commit(); err != nil {
		errors = append(errors, fmt.Sprintf("failed to commit transaction: %v", err))
		return 0, errors
	}

	return success, errors
}
