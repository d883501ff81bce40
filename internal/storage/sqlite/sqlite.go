// Package sqlite provides a SQLite-backed document storage for local runs and tests.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/madcarpet/dreamweaver/internal/logger"
	"github.com/madcarpet/dreamweaver/internal/models"
	"github.com/madcarpet/dreamweaver/internal/storage"
	"github.com/madcarpet/dreamweaver/internal/storage/sqlite/migrations"
	"github.com/madcarpet/dreamweaver/internal/utils"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const MemoryPath = ":memory:"

var ErrBadFilter = errors.New("bad filter field name")

func dbMigrate(db *sql.DB) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	driver, err := sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migration instance: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up: %w", err)
	}
	return nil
}

// Store persists documents in a single SQLite table
type Store struct {
	path  string
	sqlDB *sql.DB
}

// NewStore accepts a file path, a sqlite:// URI or ":memory:"
func NewStore(uri string) *Store {
	return &Store{path: strings.TrimPrefix(uri, "sqlite://")}
}

func (s *Store) InitStorage(ctx context.Context) error {
	if strings.TrimSpace(s.path) == "" {
		return fmt.Errorf("storage path is required")
	}
	dsn := s.path
	if dsn != MemoryPath {
		dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open sqlite db: %w", err)
	}
	// every connection to :memory: is a separate database
	if s.path == MemoryPath {
		sqlDB.SetMaxOpenConns(1)
	}
	pingCtx, cancel := context.WithTimeout(ctx, storage.QueryTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := dbMigrate(sqlDB); err != nil {
		_ = sqlDB.Close()
		return fmt.Errorf("run migrations: %w", err)
	}
	s.sqlDB = sqlDB
	logger.Log.Info("sqlite storage is ready", zap.String("path", s.path))
	return nil
}

func (s *Store) Find(ctx context.Context, collection string, filter models.Filter, page models.Page) ([]models.Document, error) {
	query := strings.Builder{}
	query.WriteString("SELECT id, body FROM documents WHERE collection = ?")
	args := []any{collection}

	keys := make([]string, 0, len(filter))
	for k := range filter {
		if !utils.CheckFieldName(k) {
			return nil, fmt.Errorf("%w: %q", ErrBadFilter, k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		query.WriteString(" AND json_type(body, ?) = 'text' AND json_extract(body, ?) = ?")
		path := "$." + k
		args = append(args, path, path, filter[k])
	}
	query.WriteString(" ORDER BY seq")
	// OFFSET needs a LIMIT in SQLite, -1 means unbounded
	limit := int64(-1)
	if page.Limit > 0 {
		limit = page.Limit
	}
	query.WriteString(" LIMIT ? OFFSET ?")
	args = append(args, limit, page.Skip)

	ctx, cancel := context.WithTimeout(ctx, storage.QueryTimeout)
	defer cancel()
	rows, err := s.sqlDB.QueryContext(ctx, query.String(), args...)
	if err != nil {
		logger.Log.Error("find documents error - query error", zap.String("collection", collection), zap.Error(err))
		return nil, err
	}
	defer rows.Close()
	docs := []models.Document{}
	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		doc, err := storage.DecodeBody(id, []byte(body))
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (s *Store) FindByID(ctx context.Context, collection string, id string) (models.Document, error) {
	var body string
	ctx, cancel := context.WithTimeout(ctx, storage.QueryTimeout)
	defer cancel()
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE collection = ? AND id = ?", collection, id).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find document %s: %w", id, err)
	}
	return storage.DecodeBody(id, []byte(body))
}

func (s *Store) Insert(ctx context.Context, collection string, doc models.Document) (*models.InsertResult, error) {
	body, err := storage.EncodeBody(doc)
	if err != nil {
		return nil, err
	}
	id := uuid.New().String()
	ctx, cancel := context.WithTimeout(ctx, storage.QueryTimeout)
	defer cancel()
	if _, err := s.sqlDB.ExecContext(ctx,
		"INSERT INTO documents (id, collection, body) VALUES (?, ?, ?)",
		id, collection, string(body)); err != nil {
		return nil, fmt.Errorf("insert document: %w", err)
	}
	return &models.InsertResult{Acknowledged: true, InsertedID: id}, nil
}

func (s *Store) DeleteByID(ctx context.Context, collection string, id string) (*models.DeleteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, storage.QueryTimeout)
	defer cancel()
	res, err := s.sqlDB.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?", collection, id)
	if err != nil {
		return nil, fmt.Errorf("delete document %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("delete document %s: %w", id, err)
	}
	return &models.DeleteResult{Acknowledged: true, DeletedCount: n}, nil
}

func (s *Store) Count(ctx context.Context, collection string) (int64, error) {
	var count int64
	ctx, cancel := context.WithTimeout(ctx, storage.QueryTimeout)
	defer cancel()
	if err := s.sqlDB.QueryRowContext(ctx,
		"SELECT count(*) FROM documents WHERE collection = ?", collection).Scan(&count); err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

// DBClose closes the SQLite handle
func (s *Store) DBClose() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}
