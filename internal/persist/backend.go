package persist

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotExist = errors.New("document does not exist")

// Document names double as file base names.
type Document string

const (
	DocOrders  Document = "orders"
	DocCarts   Document = "carts"
	DocCatalog Document = "catalog"
)

var AllDocuments = []Document{DocCatalog, DocCarts, DocOrders}

// Backend stores whole JSON documents by name.
type Backend interface {
	Read(ctx context.Context, doc Document) ([]byte, error)
	Write(ctx context.Context, doc Document, data []byte) error
}

// FileBackend keeps each document as <dir>/<name>.json and replaces it
// atomically on write.
type FileBackend struct {
	Dir string
}

func (b FileBackend) path(doc Document) string {
	return filepath.Join(b.Dir, string(doc)+".json")
}

func (b FileBackend) Read(_ context.Context, doc Document) ([]byte, error) {
	data, err := os.ReadFile(b.path(doc))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotExist
	}
	return data, err
}

func (b FileBackend) Write(_ context.Context, doc Document, data []byte) error {
	if err := os.MkdirAll(b.Dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(b.Dir, "."+string(doc)+"-*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), b.path(doc))
}

// PostgresBackend keeps documents in storefront_documents. The body column
// is json, not jsonb, so key order survives the round trip.
type PostgresBackend struct {
	DB *pgxpool.Pool
}

func (b PostgresBackend) Read(ctx context.Context, doc Document) ([]byte, error) {
	var body string
	err := b.DB.QueryRow(ctx, `SELECT body::text FROM storefront_documents WHERE name=$1`, string(doc)).Scan(&body)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", doc, err)
	}
	return []byte(body), nil
}

func (b PostgresBackend) Write(ctx context.Context, doc Document, data []byte) error {
	_, err := b.DB.Exec(ctx, `
		INSERT INTO storefront_documents(name, body, updated_at)
		VALUES ($1, $2::json, now())
		ON CONFLICT (name) DO UPDATE SET body = EXCLUDED.body, updated_at = EXCLUDED.updated_at
	`, string(doc), string(data))
	if err != nil {
		return fmt.Errorf("write %s: %w", doc, err)
	}
	return nil
}
