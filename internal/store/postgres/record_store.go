package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/opennotify/autonotifier/internal/announce"
)

// RecordStore persists announcement records with identity uniqueness
// enforced by the identity_digest unique index.
type RecordStore struct {
	pool   Pool
	hasher announce.Hasher
}

// NewRecordStore builds a RecordStore over an existing pool.
func NewRecordStore(pool Pool, hasher announce.Hasher) (*RecordStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if hasher == nil {
		return nil, fmt.Errorf("hasher is required")
	}
	return &RecordStore{pool: pool, hasher: hasher}, nil
}

// Exists reports whether a record with the given identity triple is already
// persisted.
func (s *RecordStore) Exists(ctx context.Context, id announce.Identity) (bool, error) {
	digest, err := s.digest(id)
	if err != nil {
		return false, err
	}
	var one int
	err = s.pool.QueryRow(ctx,
		`SELECT 1 FROM announcements WHERE identity_digest = $1 LIMIT 1`, digest,
	).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, &announce.PersistenceError{Op: "exists", Err: err}
	}
	return true, nil
}

// Insert persists the record, reporting false when a record with the same
// identity triple already exists (including one inserted by a racing run).
func (s *RecordStore) Insert(ctx context.Context, rec announce.Record) (bool, error) {
	digest, err := s.digest(rec.Identity())
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx, `
INSERT INTO announcements (title, description, time_label, source, scraped_at, identity_digest)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (identity_digest) DO NOTHING`,
		rec.Title, rec.Description, rec.Time, rec.Source, rec.ScrapedAt, digest,
	)
	if err != nil {
		return false, &announce.PersistenceError{Op: "insert", Err: err}
	}
	return tag.RowsAffected() == 1, nil
}

// digest produces the uniqueness key for an identity triple. Fields are
// length-prefixed before hashing so adjacent fields cannot collide by
// shifting a boundary.
func (s *RecordStore) digest(id announce.Identity) (string, error) {
	var b strings.Builder
	for _, part := range []string{id.Title, id.Description, id.Time} {
		fmt.Fprintf(&b, "%d:%s|", len(part), part)
	}
	digest, err := s.hasher.Hash([]byte(b.String()))
	if err != nil {
		return "", &announce.PersistenceError{Op: "digest", Err: err}
	}
	return digest, nil
}
