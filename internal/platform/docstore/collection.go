// Package docstore keeps typed JSON documents in PostgreSQL JSONB tables.
// Each collection is a table of (id, doc, created_at, updated_at); documents
// are validated with struct tags when read back so a corrupted row surfaces
// as an error instead of a half-populated value.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/odyssey-erp/shopdesk/internal/platform/db"
	"github.com/odyssey-erp/shopdesk/internal/shared"
)

var (
	// ErrNotFound is returned when no document has the requested id.
	ErrNotFound = fmt.Errorf("docstore: document %w", shared.ErrNotFound)
	// ErrDuplicate is returned when an insert collides with a unique key.
	ErrDuplicate = fmt.Errorf("docstore: duplicate document: %w", shared.ErrConflict)
	// ErrInvalidDocument is returned when a stored document fails validation.
	ErrInvalidDocument = errors.New("docstore: invalid document")
)

// Collection gives typed access to one JSONB table.
type Collection[T any] struct {
	name string
}

// NewCollection binds a collection to a table name. It panics on names that
// are not plain identifiers since they are interpolated into SQL.
func NewCollection[T any](name string) Collection[T] {
	if !fieldPattern.MatchString(name) {
		panic(fmt.Sprintf("docstore: invalid collection name %q", name))
	}
	return Collection[T]{name: name}
}

// Name returns the backing table name.
func (c Collection[T]) Name() string {
	return c.name
}

// Get loads one document.
func (c Collection[T]) Get(ctx context.Context, q db.DBTX, id string) (T, error) {
	return c.get(ctx, q, id, "")
}

// GetForUpdate loads one document and locks its row until the transaction ends.
func (c Collection[T]) GetForUpdate(ctx context.Context, q db.DBTX, id string) (T, error) {
	return c.get(ctx, q, id, " FOR UPDATE")
}

func (c Collection[T]) get(ctx context.Context, q db.DBTX, id, suffix string) (T, error) {
	var (
		zero T
		raw  []byte
	)
	err := q.QueryRow(ctx, "SELECT doc FROM "+c.name+" WHERE id = $1"+suffix, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, fmt.Errorf("docstore: get %s/%s: %w", c.name, id, err)
	}
	return c.decode(id, raw)
}

// GetManyForUpdate locks and loads the documents with the given ids. Rows are
// locked in id order. Missing ids are absent from the result.
func (c Collection[T]) GetManyForUpdate(ctx context.Context, q db.DBTX, ids []string) (map[string]T, error) {
	out := make(map[string]T, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := q.Query(ctx, "SELECT id, doc FROM "+c.name+" WHERE id = ANY($1) ORDER BY id FOR UPDATE", ids)
	if err != nil {
		return nil, fmt.Errorf("docstore: lock %s: %w", c.name, err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("docstore: scan %s: %w", c.name, err)
		}
		doc, err := c.decode(id, raw)
		if err != nil {
			return nil, err
		}
		out[id] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: lock %s: %w", c.name, err)
	}
	return out, nil
}

// Insert stores a new document.
func (c Collection[T]) Insert(ctx context.Context, q db.DBTX, id string, doc T) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docstore: encode %s/%s: %w", c.name, id, err)
	}
	_, err = q.Exec(ctx, "INSERT INTO "+c.name+" (id, doc, created_at, updated_at) VALUES ($1, $2, NOW(), NOW())", id, raw)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicate
		}
		return fmt.Errorf("docstore: insert %s/%s: %w", c.name, id, err)
	}
	return nil
}

// Replace overwrites an existing document.
func (c Collection[T]) Replace(ctx context.Context, q db.DBTX, id string, doc T) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docstore: encode %s/%s: %w", c.name, id, err)
	}
	tag, err := q.Exec(ctx, "UPDATE "+c.name+" SET doc = $2, updated_at = NOW() WHERE id = $1", id, raw)
	if err != nil {
		return fmt.Errorf("docstore: replace %s/%s: %w", c.name, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert inserts or overwrites a document.
func (c Collection[T]) Upsert(ctx context.Context, q db.DBTX, id string, doc T) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("docstore: encode %s/%s: %w", c.name, id, err)
	}
	_, err = q.Exec(ctx, "INSERT INTO "+c.name+" (id, doc, created_at, updated_at) VALUES ($1, $2, NOW(), NOW()) ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()", id, raw)
	if err != nil {
		return fmt.Errorf("docstore: upsert %s/%s: %w", c.name, id, err)
	}
	return nil
}

// Delete removes a document.
func (c Collection[T]) Delete(ctx context.Context, q db.DBTX, id string) error {
	tag, err := q.Exec(ctx, "DELETE FROM "+c.name+" WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("docstore: delete %s/%s: %w", c.name, id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Find returns one page of matching documents and the total match count.
func (c Collection[T]) Find(ctx context.Context, q db.DBTX, query Query) ([]T, int, error) {
	sql, args, err := query.build(c.name)
	if err != nil {
		return nil, 0, err
	}
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("docstore: find %s: %w", c.name, err)
	}
	defer rows.Close()

	var (
		out   []T
		total int64
	)
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw, &total); err != nil {
			return nil, 0, fmt.Errorf("docstore: scan %s: %w", c.name, err)
		}
		doc, err := c.decode(id, raw)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("docstore: find %s: %w", c.name, err)
	}
	return out, int(total), nil
}

// FindAll returns every matching document, ignoring Limit and Offset.
func (c Collection[T]) FindAll(ctx context.Context, q db.DBTX, query Query) ([]T, error) {
	query.Limit, query.Offset = 0, 0
	docs, _, err := c.Find(ctx, q, query)
	return docs, err
}

func (c Collection[T]) decode(id string, raw []byte) (T, error) {
	var doc T
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("%w: %s/%s: %v", ErrInvalidDocument, c.name, id, err)
	}
	if isStruct(doc) {
		if err := shared.Validator().Struct(doc); err != nil {
			return doc, fmt.Errorf("%w: %s/%s: %v", ErrInvalidDocument, c.name, id, err)
		}
	}
	return doc, nil
}

func isStruct(v any) bool {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t != nil && t.Kind() == reflect.Struct
}
