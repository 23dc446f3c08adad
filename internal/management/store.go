package management

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/orgdesk/orgdesk/internal/logging"
	"github.com/orgdesk/orgdesk/internal/metrics"
)

// Store is a PostgreSQL-backed record store.
type Store struct {
	db *sql.DB
}

// NewStore opens the database and verifies connectivity.
func NewStore(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection for use by other packages.
func (s *Store) DB() *sql.DB {
	return s.db
}

// UpdateConnectionMetrics updates the database connection metrics.
func (s *Store) UpdateConnectionMetrics() {
	stats := s.db.Stats()
	metrics.SetDBConnectionsOpen(stats.OpenConnections)
}

// Migrate runs SQL migration files.
func (s *Store) Migrate(migrationsDir string) error {
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	if err != nil {
		return fmt.Errorf("glob migrations: %w", err)
	}

	for _, f := range files {
		logging.Info("running migration", zap.String("file", filepath.Base(f)))
		content, err := os.ReadFile(f)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", f, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("exec migration %s: %w", f, err)
		}
	}
	return nil
}

const recordColumns = `id, name, position, email, phone, photo, bio, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (*Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.Name, &r.Position, &r.Email, &r.Phone, &r.Photo,
		&r.Bio, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Get returns the record with the given ID.
func (s *Store) Get(ctx context.Context, id int) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM management_records WHERE id = $1`, id)
	r, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record %d: %w", id, err)
	}
	return r, nil
}

// List returns all records ordered by name.
func (s *Store) List(ctx context.Context) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM management_records ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, *r)
	}
	return records, rows.Err()
}

// Create inserts a new record and returns it with ID and timestamps set.
func (s *Store) Create(ctx context.Context, r *Record) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO management_records (name, position, email, phone, photo, bio)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+recordColumns,
		r.Name, r.Position, r.Email, r.Phone, r.Photo, r.Bio)
	created, err := scanRecord(row)
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	return created, nil
}

// Update replaces the record with the given ID with the full body r.
func (s *Store) Update(ctx context.Context, id int, r *Record) (*Record, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE management_records
		 SET name = $2, position = $3, email = $4, phone = $5, photo = $6,
		     bio = $7, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+recordColumns,
		id, r.Name, r.Position, r.Email, r.Phone, r.Photo, r.Bio)
	updated, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update record %d: %w", id, err)
	}
	return updated, nil
}

// Delete removes the record with the given ID.
func (s *Store) Delete(ctx context.Context, id int) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM management_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete record %d: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
