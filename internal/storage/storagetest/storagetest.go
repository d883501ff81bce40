// Package storagetest holds the behaviour every storage.Storage implementation must share.
package storagetest

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/madcarpet/dreamweaver/internal/models"
	"github.com/madcarpet/dreamweaver/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collection returns a name no earlier run on a shared database has used
func collection(name string) string {
	return name + "_" + uuid.NewString()[:8]
}

// RunContract runs the shared store checks, open must return an initialised store
func RunContract(t *testing.T, open func(t *testing.T) storage.Storage) {
	t.Run("InsertAndFindByID", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		packages, orders := collection("packages"), collection("orders")

		res, err := store.Insert(ctx, packages, models.Document{"name": "Bali", "price": float64(1200), "_id": "ignored"})
		require.NoError(t, err)
		assert.True(t, res.Acknowledged)
		_, err = uuid.Parse(res.InsertedID)
		require.NoError(t, err)

		doc, err := store.FindByID(ctx, packages, res.InsertedID)
		require.NoError(t, err)
		assert.Equal(t, models.Document{"_id": res.InsertedID, "name": "Bali", "price": float64(1200)}, doc)

		// ids are scoped to their collection
		doc, err = store.FindByID(ctx, orders, res.InsertedID)
		require.NoError(t, err)
		assert.Nil(t, doc)

		doc, err = store.FindByID(ctx, packages, uuid.New().String())
		require.NoError(t, err)
		assert.Nil(t, doc)
	})

	t.Run("FilterExactStringMatchInInsertionOrder", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		orders := collection("orders")

		for _, o := range []models.Document{
			{"email": "alice@example.com", "package": "Bali"},
			{"email": "bob@example.com", "package": "Rome"},
			{"email": "alice@example.com", "package": "Oslo"},
			{"email": 42, "package": "Nowhere"},
			{"email": []any{"alice@example.com"}, "package": "Listed"},
			{"email": "Alice@example.com", "package": "Upper"},
		} {
			_, err := store.Insert(ctx, orders, o)
			require.NoError(t, err)
		}

		docs, err := store.Find(ctx, orders, models.Filter{"email": "alice@example.com"}, models.Page{})
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "Bali", docs[0]["package"])
		assert.Equal(t, "Oslo", docs[1]["package"])

		docs, err = store.Find(ctx, orders, models.Filter{"email": "alice@example.com", "package": "Oslo"}, models.Page{})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "Oslo", docs[0]["package"])

		// a number is not the string of its digits
		docs, err = store.Find(ctx, orders, models.Filter{"email": "42"}, models.Page{})
		require.NoError(t, err)
		assert.Empty(t, docs)

		docs, err = store.Find(ctx, orders, models.Filter{"email": "carol@example.com"}, models.Page{})
		require.NoError(t, err)
		assert.NotNil(t, docs)
		assert.Empty(t, docs)

		docs, err = store.Find(ctx, orders, nil, models.Page{})
		require.NoError(t, err)
		require.Len(t, docs, 6)
		assert.Equal(t, "Bali", docs[0]["package"])
		assert.Equal(t, "Upper", docs[5]["package"])
	})

	t.Run("PagingAndCount", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		packages, reviews := collection("packages"), collection("reviews")

		for _, name := range []string{"p0", "p1", "p2", "p3", "p4"} {
			_, err := store.Insert(ctx, packages, models.Document{"name": name})
			require.NoError(t, err)
		}
		_, err := store.Insert(ctx, reviews, models.Document{"text": "lovely"})
		require.NoError(t, err)

		count, err := store.Count(ctx, packages)
		require.NoError(t, err)
		assert.Equal(t, int64(5), count)

		docs, err := store.Find(ctx, packages, nil, models.Page{Skip: 2, Limit: 2})
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "p2", docs[0]["name"])
		assert.Equal(t, "p3", docs[1]["name"])

		docs, err = store.Find(ctx, packages, nil, models.Page{Limit: 3})
		require.NoError(t, err)
		require.Len(t, docs, 3)
		assert.Equal(t, "p0", docs[0]["name"])

		docs, err = store.Find(ctx, packages, nil, models.Page{Skip: 4})
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, "p4", docs[0]["name"])

		docs, err = store.Find(ctx, packages, nil, models.Page{Skip: 10, Limit: 2})
		require.NoError(t, err)
		assert.Empty(t, docs)

		count, err = store.Count(ctx, collection("empty"))
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("DeleteByID", func(t *testing.T) {
		ctx := context.Background()
		store := open(t)
		packages := collection("packages")

		res, err := store.Insert(ctx, packages, models.Document{"name": "Bali"})
		require.NoError(t, err)

		// wrong collection deletes nothing
		del, err := store.DeleteByID(ctx, collection("orders"), res.InsertedID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), del.DeletedCount)

		del, err = store.DeleteByID(ctx, packages, res.InsertedID)
		require.NoError(t, err)
		assert.Equal(t, &models.DeleteResult{Acknowledged: true, DeletedCount: 1}, del)

		del, err = store.DeleteByID(ctx, packages, res.InsertedID)
		require.NoError(t, err)
		assert.Equal(t, int64(0), del.DeletedCount)

		count, err := store.Count(ctx, packages)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
