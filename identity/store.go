package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is a Directory backed by the profiles schema.
type Store struct {
	pg     *pgxpool.Pool
	schema string
}

func NewStore(pg *pgxpool.Pool, schema string) *Store {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "profiles"
	}
	return &Store{pg: pg, schema: s}
}

func (s *Store) usersTable() string { return s.schema + ".users" }

// Lookup returns the user with id userID. Ids that are not UUIDs cannot
// exist in the directory and yield ErrNotFound without a query.
func (s *Store) Lookup(ctx context.Context, userID string) (User, error) {
	id, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil || id == uuid.Nil {
		return User{}, ErrNotFound
	}
	if s.pg == nil {
		return User{}, ErrUnavailable
	}
	var (
		u   User
		uid uuid.UUID
	)
	err = s.pg.QueryRow(ctx,
		`SELECT id, email, username, is_admin FROM `+s.usersTable()+` WHERE id=$1 AND deleted_at IS NULL LIMIT 1`,
		id,
	).Scan(&uid, &u.Email, &u.Username, &u.IsAdmin)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	u.ID = uid.String()
	return u, nil
}
