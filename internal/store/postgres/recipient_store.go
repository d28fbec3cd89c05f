package postgres

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/opennotify/autonotifier/internal/announce"
)

// RecipientStore manages the subscriber list. Addresses are normalized on
// the way in and unique by primary key.
type RecipientStore struct {
	pool Pool
}

// NewRecipientStore builds a RecipientStore over an existing pool.
func NewRecipientStore(pool Pool) (*RecipientStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &RecipientStore{pool: pool}, nil
}

// Add subscribes an address, reporting false when it is already present.
func (s *RecipientStore) Add(ctx context.Context, email string) (bool, error) {
	normalized, err := normalizeAddress(email)
	if err != nil {
		return false, err
	}
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO recipients (email) VALUES ($1) ON CONFLICT (email) DO NOTHING`,
		normalized,
	)
	if err != nil {
		return false, &announce.PersistenceError{Op: "add recipient", Err: err}
	}
	return tag.RowsAffected() == 1, nil
}

// Remove unsubscribes an address, reporting false when it was not present.
func (s *RecipientStore) Remove(ctx context.Context, email string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM recipients WHERE email = $1`,
		announce.NormalizeEmail(email),
	)
	if err != nil {
		return false, &announce.PersistenceError{Op: "remove recipient", Err: err}
	}
	return tag.RowsAffected() == 1, nil
}

// ListAll returns all subscriber addresses in subscription order.
func (s *RecipientStore) ListAll(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT email FROM recipients ORDER BY created_at, email`,
	)
	if err != nil {
		return nil, &announce.PersistenceError{Op: "list recipients", Err: err}
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, &announce.PersistenceError{Op: "scan recipient", Err: err}
		}
		emails = append(emails, email)
	}
	if err := rows.Err(); err != nil {
		return nil, &announce.PersistenceError{Op: "iterate recipients", Err: err}
	}
	return emails, nil
}

func normalizeAddress(email string) (string, error) {
	normalized := announce.NormalizeEmail(email)
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", fmt.Errorf("invalid email address %q: %w", email, err)
	}
	return normalized, nil
}
