package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/cwygoda/feedhandler/internal/domain"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS resources (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    api_id     INTEGER NOT NULL UNIQUE,
    location   TEXT NOT NULL DEFAULT '',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS docs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    type        TEXT NOT NULL,
    api_id      INTEGER NOT NULL,
    source      TEXT NOT NULL DEFAULT '',
    status      TEXT NOT NULL DEFAULT 'pending',
    resource_id INTEGER REFERENCES resources(id),
    error       TEXT,
    created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_docs_status ON docs(status);
`

const docColumns = `d.id, d.type, d.api_id, d.source, d.status, COALESCE(d.error, ''),
       d.created_at, d.updated_at, r.id, r.api_id, r.location, r.created_at
  FROM docs d LEFT JOIN resources r ON r.id = d.resource_id`

// Repository implements domain.DocRepository and domain.ResourceStore using SQLite.
type Repository struct {
	db *sql.DB
}

// New creates a new SQLite repository, initializing the schema if needed.
func New(dbPath string) (*Repository, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// The worker and the HTTP server share one writer.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Create inserts a new pending doc.
func (r *Repository) Create(ctx context.Context, doc domain.Doc) (*domain.Doc, error) {
	now := time.Now()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO docs (type, api_id, source, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		doc.Type, doc.APIID, doc.Source, domain.StatusPending, now, now,
	)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &domain.Doc{
		ID:        id,
		Type:      doc.Type,
		APIID:     doc.APIID,
		Source:    doc.Source,
		Status:    domain.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Get retrieves a doc by ID.
func (r *Repository) Get(ctx context.Context, id int64) (*domain.Doc, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+docColumns+` WHERE d.id = ?`, id)
	doc, err := scanDoc(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrDocNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// FindPending returns pending docs up to limit, oldest first.
func (r *Repository) FindPending(ctx context.Context, limit int) ([]domain.Doc, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+docColumns+` WHERE d.status = ? ORDER BY d.created_at ASC, d.id ASC LIMIT ?`,
		domain.StatusPending, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []domain.Doc
	for rows.Next() {
		doc, err := scanDoc(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// Claim atomically claims a pending doc for processing.
func (r *Repository) Claim(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE docs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		domain.StatusProcessing, time.Now(), id, domain.StatusPending,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrDocNotFound
	}
	return nil
}

// Complete marks a doc as processed. A zero resourceID stores no resource link.
func (r *Repository) Complete(ctx context.Context, id int64, resourceID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE docs SET status = ?, resource_id = NULLIF(?, 0), error = NULL, updated_at = ? WHERE id = ?`,
		domain.StatusProcessed, resourceID, time.Now(), id,
	)
	return err
}

// Fail marks a doc as failed.
func (r *Repository) Fail(ctx context.Context, id int64, reason string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE docs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		domain.StatusFailed, reason, time.Now(), id,
	)
	return err
}

// Skip marks a doc the feed handler filtered out.
func (r *Repository) Skip(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE docs SET status = ?, updated_at = ? WHERE id = ?`,
		domain.StatusSkipped, time.Now(), id,
	)
	return err
}

// RecoverStale resets all processing docs back to pending (for crash recovery).
func (r *Repository) RecoverStale(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE docs SET status = ?, error = 'recovered after crash', updated_at = ?
		 WHERE status = ?`,
		domain.StatusPending, time.Now(), domain.StatusProcessing,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CreateResource records the resource for apiID.
func (r *Repository) CreateResource(ctx context.Context, apiID int64, location string) (domain.Resource, error) {
	now := time.Now()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO resources (api_id, location, created_at) VALUES (?, ?, ?)`,
		apiID, location, now,
	)
	if isUniqueViolation(err) {
		return domain.Resource{}, domain.DuplicateResource(apiID, err)
	}
	if err != nil {
		return domain.Resource{}, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return domain.Resource{}, err
	}
	return domain.Resource{ID: id, APIID: apiID, Location: location, CreatedAt: now}, nil
}

// FindByID returns the resource previously created for apiID.
func (r *Repository) FindByID(ctx context.Context, apiID int64) (domain.Resource, error) {
	var res domain.Resource
	err := r.db.QueryRowContext(ctx,
		`SELECT id, api_id, location, created_at FROM resources WHERE api_id = ?`, apiID,
	).Scan(&res.ID, &res.APIID, &res.Location, &res.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.Resource{}, domain.ErrResourceNotFound
	}
	if err != nil {
		return domain.Resource{}, err
	}
	return res, nil
}

func isUniqueViolation(err error) bool {
	var se *sqlitedrv.Error
	if !errors.As(err, &se) {
		return false
	}
	// api_id is the only constraint an insert into resources can violate.
	code := se.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDoc(row scanner) (*domain.Doc, error) {
	var (
		doc        domain.Doc
		status     string
		reason     string
		resID      sql.NullInt64
		resAPIID   sql.NullInt64
		resLoc     sql.NullString
		resCreated sql.NullTime
	)
	err := row.Scan(&doc.ID, &doc.Type, &doc.APIID, &doc.Source, &status, &reason,
		&doc.CreatedAt, &doc.UpdatedAt, &resID, &resAPIID, &resLoc, &resCreated)
	if err != nil {
		return nil, err
	}
	doc.Status = domain.DocStatus(status)
	if reason != "" {
		doc.Err = errors.New(reason)
	}
	if resID.Valid {
		doc.Resource = &domain.Resource{
			ID:        resID.Int64,
			APIID:     resAPIID.Int64,
			Location:  resLoc.String,
			CreatedAt: resCreated.Time,
		}
	}
	return &doc, nil
}
