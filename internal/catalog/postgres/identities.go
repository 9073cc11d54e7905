package postgres

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/Abhigyan126/Make-FaceDB/internal/catalog"
)

// IdentityStore persists catalog records in an identities table. Insertion
// order is preserved by the bigserial id so load returns records in the same
// order they were saved.
type IdentityStore struct {
	pool *Pool
}

// NewIdentityStore creates a Postgres-backed catalog store.
func NewIdentityStore(pool *Pool) *IdentityStore {
	return &IdentityStore{pool: pool}
}

// Load reads all identity records in insertion order. An empty table yields
// (nil, nil).
func (s *IdentityStore) Load(ctx context.Context) ([]catalog.Record, error) {
	rows, err := s.pool.db.QueryContext(ctx,
		"SELECT label, embedding FROM identities ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var records []catalog.Record
	for rows.Next() {
		var rec catalog.Record
		var vec pgvector.Vector
		if err := rows.Scan(&rec.Label, &vec); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		rec.Embedding = vec.Slice()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return records, nil
}

// Save overwrites the identities table wholesale with the given records,
// preserving their order. The whole overwrite runs in one transaction so a
// failed save leaves the previous catalog intact.
func (s *IdentityStore) Save(ctx context.Context, records []catalog.Record) error {
	tx, err := s.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM identities"); err != nil {
		return fmt.Errorf("clear identities: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO identities (label, embedding) VALUES ($1, $2)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.Label, pgvector.NewVector(rec.Embedding)); err != nil {
			return fmt.Errorf("insert identity %s: %w", rec.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
