package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/madcarpet/dreamweaver/internal/logger"
	"github.com/madcarpet/dreamweaver/internal/models"
	"github.com/madcarpet/dreamweaver/internal/storage"
	"github.com/madcarpet/dreamweaver/internal/storage/postgresql/migrations"
	"go.uber.org/zap"
)

var ErrDirtyDatabase = errors.New("database is in dirty migration state")

func dbMigrate(db *sql.DB) error {
	src, err := iofs.New(migrations.FS, ".")
	if err != nil {
		logger.Log.Error("migration source error", zap.Error(err))
		return err
	}
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		logger.Log.Error("db driver error on migration", zap.Error(err))
		return err
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		logger.Log.Error("migration instance creation error on migration", zap.Error(err))
		return err
	}
	_, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		logger.Log.Error("checking database dirty on migration error", zap.Error(err))
		return err
	}
	if errors.Is(err, migrate.ErrNilVersion) {
		logger.Log.Info("no migration was applied yet - first migration")
	}
	if dirty {
		logger.Log.Error("migration - database is in dirty state")
		return ErrDirtyDatabase
	}
	err = m.Up()
	switch {
	case errors.Is(err, migrate.ErrNoChange):
		logger.Log.Info("migration - db version is up to date")
		return nil
	case err != nil:
		logger.Log.Error("db migration error", zap.Error(err))
		return err
	}
	return nil
}

type PsqlStorage struct {
	dbAddresses string
	connection  *sql.DB
}

func NewPsqlStorage(dba string) *PsqlStorage {
	return &PsqlStorage{dbAddresses: dba}
}

func (s *PsqlStorage) InitStorage(ctx context.Context) error {
	db, err := sql.Open("pgx", s.dbAddresses)
	if err != nil {
		logger.Log.Error("openning db connection error", zap.Error(err))
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, storage.QueryTimeout)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		logger.Log.Error("db ping err", zap.Error(err))
		db.Close()
		return err
	}
	if err = dbMigrate(db); err != nil {
		db.Close()
		return err
	}
	s.connection = db
	logger.Log.Info("db connection is ready")
	return nil
}

func (s *PsqlStorage) Find(ctx context.Context, collection string, filter models.Filter, page models.Page) ([]models.Document, error) {
	docs := []models.Document{}
	if filter == nil {
		filter = models.Filter{}
	}
	// containment on a flat object of strings is an exact match on each field
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, storage.QueryTimeout)
	defer cancel()
	query := `SELECT id, body FROM documents
		WHERE collection = $1 AND body @> $2::jsonb
		ORDER BY seq OFFSET $3`
	args := []any{collection, string(filterJSON), page.Skip}
	if page.Limit > 0 {
		query += " LIMIT $4"
		args = append(args, page.Limit)
	}
	rows, err := s.connection.QueryContext(ctx, query, args...)
	if err != nil {
		logger.Log.Error("find documents error - query error", zap.String("collection", collection), zap.Error(err))
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		var body []byte
		if err := rows.Scan(&id, &body); err != nil {
			logger.Log.Error("find documents error - scan error", zap.String("collection", collection), zap.Error(err))
			return nil, err
		}
		doc, err := storage.DecodeBody(id, body)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		logger.Log.Error("find documents error - rows iteration error", zap.String("collection", collection), zap.Error(err))
		return nil, err
	}
	return docs, nil
}

func (s *PsqlStorage) FindByID(ctx context.Context, collection string, id string) (models.Document, error) {
	var body []byte
	ctx, cancel := context.WithTimeout(ctx, storage.QueryTimeout)
	defer cancel()
	row := s.connection.QueryRowContext(ctx,
		"SELECT body FROM documents WHERE collection = $1 AND id = $2", collection, id)
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		logger.Log.Error("find document by id error - db row scan error", zap.String("collection", collection), zap.Error(err))
		return nil, err
	}
	return storage.DecodeBody(id, body)
}

func (s *PsqlStorage) Insert(ctx context.Context, collection string, doc models.Document) (*models.InsertResult, error) {
	body, err := storage.EncodeBody(doc)
	if err != nil {
		return nil, err
	}
	id := uuid.New().String()
	ctx, cancel := context.WithTimeout(ctx, storage.QueryTimeout)
	defer cancel()
	tx, err := s.connection.BeginTx(ctx, nil)
	if err != nil {
		logger.Log.Error("insert document error - transaction open failed", zap.Error(err))
		return nil, err
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO documents (id, collection, body) VALUES($1, $2, $3::jsonb)",
		id, collection, string(body))
	if err != nil {
		tx.Rollback()
		logger.Log.Error("insert document error - db inserting failed", zap.String("collection", collection), zap.Error(err))
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &models.InsertResult{Acknowledged: true, InsertedID: id}, nil
}

func (s *PsqlStorage) DeleteByID(ctx context.Context, collection string, id string) (*models.DeleteResult, error) {
	ctx, cancel := context.WithTimeout(ctx, storage.QueryTimeout)
	defer cancel()
	res, err := s.connection.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = $1 AND id = $2", collection, id)
	if err != nil {
		logger.Log.Error("delete document error - delete error", zap.String("collection", collection), zap.Error(err))
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	return &models.DeleteResult{Acknowledged: true, DeletedCount: n}, nil
}

func (s *PsqlStorage) Count(ctx context.Context, collection string) (int64, error) {
	var count int64
	ctx, cancel := context.WithTimeout(ctx, storage.QueryTimeout)
	defer cancel()
	row := s.connection.QueryRowContext(ctx,
		"SELECT count(*) FROM documents WHERE collection = $1", collection)
	if err := row.Scan(&count); err != nil {
		logger.Log.Error("count documents error - db row scan error", zap.String("collection", collection), zap.Error(err))
		return 0, err
	}
	return count, nil
}

func (s *PsqlStorage) DBClose() error {
	if s.connection == nil {
		return nil
	}
	return s.connection.Close()
}
