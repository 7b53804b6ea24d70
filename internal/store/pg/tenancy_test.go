package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/IvanYanishevskyi/pandora-backend/internal/tenancy"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestGetClientByNameIsCaseInsensitive(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "name", "contact_email", "organization_id", "users", "databases", "created_at", "updated_at"}).
		AddRow(5, "Acme", "ops@acme.example", 1, 3, 2, now, now)
	mock.ExpectQuery("from clients c where c.name ilike").WithArgs("acme").WillReturnRows(rows)

	c, err := store.GetClientByName(context.Background(), "acme")
	if err != nil {
		t.Fatalf("GetClientByName: %v", err)
	}
	if c.ID != 5 || c.Name != "Acme" || c.UsersCount != 3 {
		t.Fatalf("unexpected client: %+v", c)
	}

	mock.ExpectQuery("from clients c where c.name ilike").WithArgs("ghost").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	if _, err := store.GetClientByName(context.Background(), "ghost"); !errors.Is(err, tenancy.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateGrantDuplicateMapsToConflict(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("insert into user_database_access").
		WithArgs(int64(7), int64(10), true, false, nil).
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation, ConstraintName: "user_database_access_user_id_database_id_key"})

	_, err := store.CreateGrant(context.Background(), tenancy.Grant{UserID: 7, DatabaseID: 10, CanRead: true})
	if !errors.Is(err, tenancy.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateGrantMissingUserMapsToNotFound(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectQuery("insert into user_database_access").
		WithArgs(int64(99), int64(10), true, false, nil).
		WillReturnError(&pgconn.PgError{Code: pgErrForeignKeyViolation, ConstraintName: "user_database_access_user_id_fkey"})

	_, err := store.CreateGrant(context.Background(), tenancy.Grant{UserID: 99, DatabaseID: 10, CanRead: true})
	if !errors.Is(err, tenancy.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteUserCascades(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("delete from messages where chat_id in").WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec("delete from chats where user_id").WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("delete from user_database_access where user_id").WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("delete from users where id").WithArgs(int64(7)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := store.DeleteUser(context.Background(), 7); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteUserMissingRollsBack(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectExec("delete from messages where chat_id in").WithArgs(int64(99)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("delete from chats where user_id").WithArgs(int64(99)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("delete from user_database_access where user_id").WithArgs(int64(99)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("delete from users where id").WithArgs(int64(99)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	if err := store.DeleteUser(context.Background(), 99); !errors.Is(err, tenancy.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateUserBuildsPartialSet(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now()

	role := tenancy.RoleAdmin
	active := true
	mock.ExpectExec("update users set role = .+, is_active = .+, updated_at = now").
		WithArgs("admin", true, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	rows := sqlmock.NewRows([]string{"id", "username", "email", "full_name", "password_hash",
		"role", "is_active", "last_login", "client_id", "organization_id", "created_at", "updated_at"}).
		AddRow(7, "jdoe", nil, nil, "hash", "admin", true, nil, 5, 1, now, now)
	mock.ExpectQuery("from users u where u.id").WithArgs(int64(7)).WillReturnRows(rows)

	u, err := store.UpdateUser(context.Background(), 7, tenancy.UserUpdate{Role: &role, IsActive: &active})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if u.Role != tenancy.RoleAdmin || u.ClientID == nil || *u.ClientID != 5 {
		t.Fatalf("unexpected user: %+v", u)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateUserNoFieldsJustReloads(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "username", "email", "full_name", "password_hash",
		"role", "is_active", "last_login", "client_id", "organization_id", "created_at", "updated_at"}).
		AddRow(7, "jdoe", nil, nil, "hash", "user", true, nil, nil, 1, now, now)
	mock.ExpectQuery("from users u where u.id").WithArgs(int64(7)).WillReturnRows(rows)

	u, err := store.UpdateUser(context.Background(), 7, tenancy.UserUpdate{})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if u.ClientID != nil {
		t.Fatalf("expected nil client id for super admin row")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeactivateStaleUsers(t *testing.T) {
	store, mock := newMock(t)
	cutoff := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	mock.ExpectExec("update users set is_active = false").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := store.DeactivateStaleUsers(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeactivateStaleUsers: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 deactivated, got %d", n)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestDeleteOrganizationMissing(t *testing.T) {
	store, mock := newMock(t)

	mock.ExpectExec("delete from organizations where id").WithArgs(int64(42)).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.DeleteOrganization(context.Background(), 42); !errors.Is(err, tenancy.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListUsersScoped(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "username", "email", "full_name", "password_hash",
		"role", "is_active", "last_login", "client_id", "organization_id", "created_at", "updated_at"}).
		AddRow(7, "jdoe", "jdoe@acme.example", "Jane Doe", "hash", "user", true, now, 5, 1, now, now).
		AddRow(8, "rroe", nil, nil, "hash", "admin", true, nil, 5, 1, now, now)
	mock.ExpectQuery("from users u where u.client_id").WithArgs(int64(5)).WillReturnRows(rows)

	out, err := store.ListUsers(context.Background(), tenancy.Scope{ClientID: 5})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(out) != 2 || out[0].Email != "jdoe@acme.example" || out[1].LastLogin != nil {
		t.Fatalf("unexpected users: %+v", out)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetActiveRegistryByClient(t *testing.T) {
	store, mock := newMock(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "client_id", "name", "core_url", "health_check_url", "is_active", "created_at", "updated_at"}).
		AddRow(1, 5, "Acme", "http://core.acme:9000", "http://core.acme:9000/health", true, now, now)
	mock.ExpectQuery("where r.client_id = .+ and r.is_active").WithArgs(int64(5)).WillReturnRows(rows)

	e, err := store.GetActiveRegistryByClient(context.Background(), 5)
	if err != nil {
		t.Fatalf("GetActiveRegistryByClient: %v", err)
	}
	if e.CoreURL != "http://core.acme:9000" || e.ClientName != "Acme" {
		t.Fatalf("unexpected entry: %+v", e)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
