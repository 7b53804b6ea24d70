package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/IvanYanishevskyi/pandora-backend/internal/auth"
	"github.com/IvanYanishevskyi/pandora-backend/internal/tenancy"
)

var (
	_ auth.UserStore  = (*Store)(nil)
	_ auth.TokenStore = (*Store)(nil)
)

const adminTokenColumns = `id, token, name, description, active, created_by, created_at`

func scanAdminToken(row rowScanner) (auth.AdminToken, error) {
	var (
		t    auth.AdminToken
		desc sql.NullString
	)
	if err := row.Scan(&t.ID, &t.Token, &t.Name, &desc, &t.Active, &t.CreatedBy, &t.CreatedAt); err != nil {
		return auth.AdminToken{}, err
	}
	t.Description = desc.String
	return t, nil
}

func (s *Store) GetActiveAdminTokenByUser(ctx context.Context, userID int64) (auth.AdminToken, error) {
	row := s.db.QueryRowContext(ctx, `
		select `+adminTokenColumns+` from admin_tokens
		where active and created_by = $1
		order by created_at desc limit 1
	`, userID)
	t, err := scanAdminToken(row)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.AdminToken{}, tenancy.ErrNotFound
	}
	return t, err
}

func (s *Store) CreateAdminToken(ctx context.Context, t auth.AdminToken) (auth.AdminToken, error) {
	row := s.db.QueryRowContext(ctx, `
		insert into admin_tokens (token, name, description, active, created_by)
		values ($1, $2, $3, $4, $5)
		returning `+adminTokenColumns+`
	`, t.Token, t.Name, nullIfEmpty(t.Description), t.Active, t.CreatedBy)
	out, err := scanAdminToken(row)
	if err != nil {
		return auth.AdminToken{}, mapConstraintErr(err)
	}
	return out, nil
}
