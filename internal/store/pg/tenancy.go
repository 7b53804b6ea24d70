package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IvanYanishevskyi/pandora-backend/internal/tenancy"
)

var _ tenancy.Store = (*Store)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func mapConstraintErr(err error) error {
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return fmt.Errorf("%w: %s", tenancy.ErrConflict, pgErr.ConstraintName)
		case pgErrForeignKeyViolation:
			return fmt.Errorf("%w: %s", tenancy.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

// ---------------------------------------------------------------------------
// Organizations
// ---------------------------------------------------------------------------

const orgColumns = `o.id, o.name, o.description, o.is_root,
	(select count(*) from clients c where c.organization_id = o.id),
	o.created_at`

func scanOrganization(row rowScanner) (tenancy.Organization, error) {
	var (
		o    tenancy.Organization
		desc sql.NullString
	)
	if err := row.Scan(&o.ID, &o.Name, &desc, &o.IsRoot, &o.ClientsCount, &o.CreatedAt); err != nil {
		return tenancy.Organization{}, err
	}
	o.Description = desc.String
	return o, nil
}

func (s *Store) CreateOrganization(ctx context.Context, name, description string, isRoot bool) (tenancy.Organization, error) {
	row := s.db.QueryRowContext(ctx, `
		insert into organizations (name, description, is_root)
		values ($1, $2, $3)
		returning id, name, description, is_root, 0, created_at
	`, name, nullIfEmpty(description), isRoot)
	o, err := scanOrganization(row)
	if err != nil {
		return tenancy.Organization{}, mapConstraintErr(err)
	}
	return o, nil
}

func (s *Store) GetOrganization(ctx context.Context, id int64) (tenancy.Organization, error) {
	row := s.db.QueryRowContext(ctx, `select `+orgColumns+` from organizations o where o.id = $1`, id)
	o, err := scanOrganization(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tenancy.Organization{}, tenancy.ErrNotFound
	}
	return o, err
}

func (s *Store) ListOrganizations(ctx context.Context) ([]tenancy.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `select `+orgColumns+` from organizations o order by o.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tenancy.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *Store) DeleteOrganization(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from organizations where id = $1`, id)
	if err != nil {
		return mapConstraintErr(err)
	}
	return requireAffected(res)
}

func (s *Store) HasRootOrganization(ctx context.Context) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `select exists(select 1 from organizations where is_root)`).Scan(&exists)
	return exists, err
}

func (s *Store) CountClientsByOrganization(ctx context.Context, organizationID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from clients where organization_id = $1`, organizationID).Scan(&n)
	return n, err
}

// ---------------------------------------------------------------------------
// Clients
// ---------------------------------------------------------------------------

const clientColumns = `c.id, c.name, c.contact_email, c.organization_id,
	(select count(*) from users u where u.client_id = c.id),
	(select count(*) from client_databases d where d.client_id = c.id),
	c.created_at, c.updated_at`

func scanClient(row rowScanner) (tenancy.Client, error) {
	var c tenancy.Client
	err := row.Scan(&c.ID, &c.Name, &c.ContactEmail, &c.OrganizationID,
		&c.UsersCount, &c.DatabasesCount, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) CreateClient(ctx context.Context, name, contactEmail string, organizationID int64) (tenancy.Client, error) {
	row := s.db.QueryRowContext(ctx, `
		insert into clients (name, contact_email, organization_id)
		values ($1, $2, $3)
		returning id, name, contact_email, organization_id, 0, 0, created_at, updated_at
	`, name, contactEmail, organizationID)
	c, err := scanClient(row)
	if err != nil {
		return tenancy.Client{}, mapConstraintErr(err)
	}
	return c, nil
}

func (s *Store) GetClient(ctx context.Context, id int64) (tenancy.Client, error) {
	row := s.db.QueryRowContext(ctx, `select `+clientColumns+` from clients c where c.id = $1`, id)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tenancy.Client{}, tenancy.ErrNotFound
	}
	return c, err
}

func (s *Store) GetClientByName(ctx context.Context, name string) (tenancy.Client, error) {
	row := s.db.QueryRowContext(ctx, `select `+clientColumns+` from clients c where c.name ilike $1`, name)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tenancy.Client{}, tenancy.ErrNotFound
	}
	return c, err
}

func (s *Store) ListClients(ctx context.Context, scope tenancy.Scope) ([]tenancy.Client, error) {
	query := `select ` + clientColumns + ` from clients c`
	var args []any
	if !scope.All {
		query += ` where c.id = $1`
		args = append(args, scope.ClientID)
	}
	query += ` order by c.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tenancy.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeleteClient(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from clients where id = $1`, id)
	if err != nil {
		return mapConstraintErr(err)
	}
	return requireAffected(res)
}

func (s *Store) CountUsersByClient(ctx context.Context, clientID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from users where client_id = $1`, clientID).Scan(&n)
	return n, err
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

const userColumns = `u.id, u.username, u.email, u.full_name, u.password_hash,
	u.role, u.is_active, u.last_login, u.client_id, u.organization_id,
	u.created_at, u.updated_at`

func scanUser(row rowScanner) (tenancy.User, error) {
	var (
		u         tenancy.User
		email     sql.NullString
		fullName  sql.NullString
		lastLogin sql.NullTime
		clientID  sql.NullInt64
	)
	if err := row.Scan(&u.ID, &u.Username, &email, &fullName, &u.PasswordHash,
		&u.Role, &u.IsActive, &lastLogin, &clientID, &u.OrganizationID,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return tenancy.User{}, err
	}
	u.Email = email.String
	u.FullName = fullName.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	if clientID.Valid {
		v := clientID.Int64
		u.ClientID = &v
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u tenancy.User) (tenancy.User, error) {
	row := s.db.QueryRowContext(ctx, `
		insert into users (username, email, full_name, password_hash, role, is_active, client_id, organization_id)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning `+strings.ReplaceAll(userColumns, "u.", "")+`
	`, u.Username, nullIfEmpty(u.Email), nullIfEmpty(u.FullName), u.PasswordHash,
		string(u.Role), u.IsActive, nullInt(u.ClientID), u.OrganizationID)
	out, err := scanUser(row)
	if err != nil {
		return tenancy.User{}, mapConstraintErr(err)
	}
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (tenancy.User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users u where u.id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tenancy.User{}, tenancy.ErrNotFound
	}
	return u, err
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (tenancy.User, error) {
	row := s.db.QueryRowContext(ctx, `select `+userColumns+` from users u where u.username = $1`, username)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tenancy.User{}, tenancy.ErrNotFound
	}
	return u, err
}

func (s *Store) ListUsers(ctx context.Context, scope tenancy.Scope) ([]tenancy.User, error) {
	query := `select ` + userColumns + ` from users u`
	var args []any
	if !scope.All {
		query += ` where u.client_id = $1`
		args = append(args, scope.ClientID)
	}
	query += ` order by u.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tenancy.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, id int64, upd tenancy.UserUpdate) (tenancy.User, error) {
	var (
		setClauses []string
		args       []any
		idx        = 1
	)
	set := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}
	if upd.Username != nil {
		set("username", *upd.Username)
	}
	if upd.Email != nil {
		set("email", nullIfEmpty(*upd.Email))
	}
	if upd.FullName != nil {
		set("full_name", nullIfEmpty(*upd.FullName))
	}
	if upd.PasswordHash != nil {
		set("password_hash", *upd.PasswordHash)
	}
	if upd.Role != nil {
		set("role", string(*upd.Role))
	}
	if upd.IsActive != nil {
		set("is_active", *upd.IsActive)
	}
	if upd.LastLogin != nil {
		set("last_login", *upd.LastLogin)
	}
	if upd.ClientID != nil {
		set("client_id", *upd.ClientID)
	}
	if upd.OrganizationID != nil {
		set("organization_id", *upd.OrganizationID)
	}

	if len(setClauses) > 0 {
		setClauses = append(setClauses, "updated_at = now()")
		query := fmt.Sprintf(`update users set %s where id = $%d`, strings.Join(setClauses, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return tenancy.User{}, mapConstraintErr(err)
		}
		if err := requireAffected(res); err != nil {
			return tenancy.User{}, err
		}
	}
	return s.GetUser(ctx, id)
}

func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		delete from messages where chat_id in (select id from chats where user_id = $1)
	`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `delete from chats where user_id = $1`, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `delete from user_database_access where user_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `delete from users where id = $1`, id)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) DeactivateStaleUsers(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		update users set is_active = false, updated_at = now()
		where is_active = true and last_login is not null and last_login < $1
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---------------------------------------------------------------------------
// Databases
// ---------------------------------------------------------------------------

const databaseColumns = `d.id, d.client_id, d.name, d.description,
	d.db_host, d.db_port, d.db_user, d.db_password, d.db_name, d.created_at`

func scanDatabase(row rowScanner) (tenancy.Database, error) {
	var (
		d    tenancy.Database
		desc sql.NullString
	)
	if err := row.Scan(&d.ID, &d.ClientID, &d.Name, &desc,
		&d.Host, &d.Port, &d.DBUser, &d.DBPassword, &d.DBName, &d.CreatedAt); err != nil {
		return tenancy.Database{}, err
	}
	d.Description = desc.String
	return d, nil
}

func (s *Store) CreateDatabase(ctx context.Context, d tenancy.Database) (tenancy.Database, error) {
	row := s.db.QueryRowContext(ctx, `
		insert into client_databases (client_id, name, description, db_host, db_port, db_user, db_password, db_name)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning `+strings.ReplaceAll(databaseColumns, "d.", "")+`
	`, d.ClientID, d.Name, nullIfEmpty(d.Description), d.Host, d.Port, d.DBUser, d.DBPassword, d.DBName)
	out, err := scanDatabase(row)
	if err != nil {
		return tenancy.Database{}, mapConstraintErr(err)
	}
	return out, nil
}

func (s *Store) GetDatabase(ctx context.Context, id int64) (tenancy.Database, error) {
	row := s.db.QueryRowContext(ctx, `select `+databaseColumns+` from client_databases d where d.id = $1`, id)
	d, err := scanDatabase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tenancy.Database{}, tenancy.ErrNotFound
	}
	return d, err
}

func (s *Store) GetDatabaseByName(ctx context.Context, name string) (tenancy.Database, error) {
	row := s.db.QueryRowContext(ctx, `select `+databaseColumns+` from client_databases d where d.name = $1`, name)
	d, err := scanDatabase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tenancy.Database{}, tenancy.ErrNotFound
	}
	return d, err
}

func (s *Store) ListDatabases(ctx context.Context, scope tenancy.Scope) ([]tenancy.Database, error) {
	query := `select ` + databaseColumns + ` from client_databases d`
	var args []any
	if !scope.All {
		query += ` where d.client_id = $1`
		args = append(args, scope.ClientID)
	}
	query += ` order by d.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tenancy.Database
	for rows.Next() {
		d, err := scanDatabase(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) DeleteDatabase(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `delete from user_database_access where database_id = $1`, id); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `delete from client_databases where id = $1`, id)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Grants
// ---------------------------------------------------------------------------

const grantColumns = `g.id, g.user_id, g.database_id, d.name,
	g.can_read, g.can_write, g.created_by, g.created_at, g.updated_at`

func scanGrant(row rowScanner) (tenancy.Grant, error) {
	var (
		g         tenancy.Grant
		createdBy sql.NullInt64
	)
	if err := row.Scan(&g.ID, &g.UserID, &g.DatabaseID, &g.DatabaseName,
		&g.CanRead, &g.CanWrite, &createdBy, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return tenancy.Grant{}, err
	}
	if createdBy.Valid {
		v := createdBy.Int64
		g.CreatedBy = &v
	}
	return g, nil
}

const grantSelect = `select ` + grantColumns + `
	from user_database_access g
	join client_databases d on d.id = g.database_id`

func (s *Store) CreateGrant(ctx context.Context, g tenancy.Grant) (tenancy.Grant, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		insert into user_database_access (user_id, database_id, can_read, can_write, created_by)
		values ($1, $2, $3, $4, $5)
		returning id
	`, g.UserID, g.DatabaseID, g.CanRead, g.CanWrite, nullInt(g.CreatedBy)).Scan(&id)
	if err != nil {
		return tenancy.Grant{}, mapConstraintErr(err)
	}
	return s.GetGrant(ctx, id)
}

func (s *Store) GetGrant(ctx context.Context, id int64) (tenancy.Grant, error) {
	row := s.db.QueryRowContext(ctx, grantSelect+` where g.id = $1`, id)
	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tenancy.Grant{}, tenancy.ErrNotFound
	}
	return g, err
}

func (s *Store) GetGrantForUserDatabase(ctx context.Context, userID, databaseID int64) (tenancy.Grant, error) {
	row := s.db.QueryRowContext(ctx, grantSelect+` where g.user_id = $1 and g.database_id = $2`, userID, databaseID)
	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tenancy.Grant{}, tenancy.ErrNotFound
	}
	return g, err
}

func (s *Store) ListGrantsByUser(ctx context.Context, userID int64) ([]tenancy.Grant, error) {
	rows, err := s.db.QueryContext(ctx, grantSelect+` where g.user_id = $1 order by g.id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tenancy.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) UpdateGrant(ctx context.Context, id int64, upd tenancy.GrantUpdate) (tenancy.Grant, error) {
	var (
		setClauses []string
		args       []any
		idx        = 1
	)
	if upd.CanRead != nil {
		setClauses = append(setClauses, fmt.Sprintf("can_read = $%d", idx))
		args = append(args, *upd.CanRead)
		idx++
	}
	if upd.CanWrite != nil {
		setClauses = append(setClauses, fmt.Sprintf("can_write = $%d", idx))
		args = append(args, *upd.CanWrite)
		idx++
	}
	if len(setClauses) > 0 {
		setClauses = append(setClauses, "updated_at = now()")
		query := fmt.Sprintf(`update user_database_access set %s where id = $%d`, strings.Join(setClauses, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return tenancy.Grant{}, err
		}
		if err := requireAffected(res); err != nil {
			return tenancy.Grant{}, err
		}
	}
	return s.GetGrant(ctx, id)
}

func (s *Store) DeleteGrant(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from user_database_access where id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (s *Store) DeleteGrantsByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `delete from user_database_access where user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ---------------------------------------------------------------------------
// Tenant registry
// ---------------------------------------------------------------------------

const registryColumns = `r.id, r.client_id, c.name, r.core_url, r.health_check_url,
	r.is_active, r.created_at, r.updated_at`

const registrySelect = `select ` + registryColumns + `
	from tenant_registry r
	join clients c on c.id = r.client_id`

func scanRegistry(row rowScanner) (tenancy.RegistryEntry, error) {
	var e tenancy.RegistryEntry
	err := row.Scan(&e.ID, &e.ClientID, &e.ClientName, &e.CoreURL, &e.HealthCheckURL,
		&e.IsActive, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (s *Store) CreateRegistryEntry(ctx context.Context, e tenancy.RegistryEntry) (tenancy.RegistryEntry, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		insert into tenant_registry (client_id, core_url, health_check_url, is_active)
		values ($1, $2, $3, $4)
		returning id
	`, e.ClientID, e.CoreURL, e.HealthCheckURL, e.IsActive).Scan(&id)
	if err != nil {
		return tenancy.RegistryEntry{}, mapConstraintErr(err)
	}
	return s.GetRegistryEntry(ctx, id)
}

func (s *Store) GetRegistryEntry(ctx context.Context, id int64) (tenancy.RegistryEntry, error) {
	row := s.db.QueryRowContext(ctx, registrySelect+` where r.id = $1`, id)
	e, err := scanRegistry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tenancy.RegistryEntry{}, tenancy.ErrNotFound
	}
	return e, err
}

func (s *Store) GetActiveRegistryByClient(ctx context.Context, clientID int64) (tenancy.RegistryEntry, error) {
	row := s.db.QueryRowContext(ctx, registrySelect+` where r.client_id = $1 and r.is_active`, clientID)
	e, err := scanRegistry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tenancy.RegistryEntry{}, tenancy.ErrNotFound
	}
	return e, err
}

func (s *Store) ListRegistryEntries(ctx context.Context, scope tenancy.Scope) ([]tenancy.RegistryEntry, error) {
	query := registrySelect
	var args []any
	if !scope.All {
		query += ` where r.client_id = $1`
		args = append(args, scope.ClientID)
	}
	query += ` order by r.id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tenancy.RegistryEntry
	for rows.Next() {
		e, err := scanRegistry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) UpdateRegistryEntry(ctx context.Context, id int64, upd tenancy.RegistryUpdate) (tenancy.RegistryEntry, error) {
	var (
		setClauses []string
		args       []any
		idx        = 1
	)
	set := func(column string, value any) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}
	if upd.CoreURL != nil {
		set("core_url", *upd.CoreURL)
	}
	if upd.HealthCheckURL != nil {
		set("health_check_url", *upd.HealthCheckURL)
	}
	if upd.IsActive != nil {
		set("is_active", *upd.IsActive)
	}
	if len(setClauses) > 0 {
		setClauses = append(setClauses, "updated_at = now()")
		query := fmt.Sprintf(`update tenant_registry set %s where id = $%d`, strings.Join(setClauses, ", "), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, query, args...)
		if err != nil {
			return tenancy.RegistryEntry{}, err
		}
		if err := requireAffected(res); err != nil {
			return tenancy.RegistryEntry{}, err
		}
	}
	return s.GetRegistryEntry(ctx, id)
}

func (s *Store) DeleteRegistryEntry(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from tenant_registry where id = $1`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

func (s *Store) CountOrganizations(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from organizations`).Scan(&n)
	return n, err
}

func (s *Store) CountClients(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `select count(*) from clients`).Scan(&n)
	return n, err
}

func (s *Store) CountDatabases(ctx context.Context, scope tenancy.Scope) (int, error) {
	query := `select count(*) from client_databases`
	var args []any
	if !scope.All {
		query += ` where client_id = $1`
		args = append(args, scope.ClientID)
	}
	var n int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func (s *Store) CountUsers(ctx context.Context, scope tenancy.Scope, role *tenancy.Role, activeOnly bool) (int, error) {
	var (
		conds []string
		args  []any
		idx   = 1
	)
	if !scope.All {
		conds = append(conds, fmt.Sprintf("client_id = $%d", idx))
		args = append(args, scope.ClientID)
		idx++
	}
	if role != nil {
		conds = append(conds, fmt.Sprintf("role = $%d", idx))
		args = append(args, string(*role))
		idx++
	}
	if activeOnly {
		conds = append(conds, "is_active = true")
	}
	query := `select count(*) from users`
	if len(conds) > 0 {
		query += ` where ` + strings.Join(conds, " and ")
	}
	var n int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return tenancy.ErrNotFound
	}
	return nil
}
