package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/madcarpet/dreamweaver/internal/models"
)

// Timeout applied to every single storage call
const QueryTimeout = 3 * time.Second

type Storage interface {
	InitStorage(ctx context.Context) error
	DBClose() error

	Find(ctx context.Context, collection string, filter models.Filter, page models.Page) ([]models.Document, error)
	FindByID(ctx context.Context, collection string, id string) (models.Document, error)
	Insert(ctx context.Context, collection string, doc models.Document) (*models.InsertResult, error)
	DeleteByID(ctx context.Context, collection string, id string) (*models.DeleteResult, error)
	Count(ctx context.Context, collection string) (int64, error)
}

// EncodeBody serialises a document for storage, the id is kept in its own column
func EncodeBody(doc models.Document) ([]byte, error) {
	body := make(models.Document, len(doc))
	for k, v := range doc {
		if k == models.DocumentIDKey {
			continue
		}
		body[k] = v
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return raw, nil
}

// DecodeBody restores a stored document and puts its id back
func DecodeBody(id string, raw []byte) (models.Document, error) {
	doc := models.Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode document %s: %w", id, err)
	}
	doc[models.DocumentIDKey] = id
	return doc, nil
}
