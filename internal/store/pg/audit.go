package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/IvanYanishevskyi/pandora-backend/internal/audit"
)

var _ audit.Store = (*Store)(nil)

func (s *Store) InsertEvent(ctx context.Context, e *audit.Event) error {
	detailsJSON := []byte("{}")
	if len(e.Details) > 0 {
		data, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshal details: %w", err)
		}
		detailsJSON = data
	}
	return s.db.QueryRowContext(ctx, `
		insert into audit_logs (user_id, user_role, action, request_type, status,
			tenant_id, database_name, target_type, target_id, duration_ms,
			error_message, details, ip_address, user_agent, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		returning id
	`, nullInt(e.UserID), nullIfEmpty(e.UserRole), e.Action, e.RequestType, e.Status,
		nullIfEmpty(e.TenantID), nullIfEmpty(e.DatabaseName), nullIfEmpty(e.TargetType),
		nullInt(e.TargetID), nullInt(e.DurationMS), nullIfEmpty(e.ErrorMessage),
		detailsJSON, nullIfEmpty(e.IPAddress), nullIfEmpty(e.UserAgent), e.CreatedAt,
	).Scan(&e.ID)
}

func (s *Store) InsertAccessEvent(ctx context.Context, e *audit.AccessEvent) error {
	return s.db.QueryRowContext(ctx, `
		insert into access_audit (actor_user_id, actor_role, admin_token, action,
			target_type, target_id, details, success, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		returning id
	`, nullInt(e.ActorUserID), nullIfEmpty(e.ActorRole), nullIfEmpty(e.AdminToken),
		e.Action, nullIfEmpty(e.TargetType), nullInt(e.TargetID),
		nullIfEmpty(e.Details), e.Success, e.CreatedAt,
	).Scan(&e.ID)
}

const accessColumns = `id, actor_user_id, actor_role, admin_token, action,
	target_type, target_id, details, success, created_at`

func scanAccessEvent(row rowScanner) (audit.AccessEvent, error) {
	var (
		e          audit.AccessEvent
		actorID    sql.NullInt64
		actorRole  sql.NullString
		adminToken sql.NullString
		targetType sql.NullString
		targetID   sql.NullInt64
		details    sql.NullString
	)
	if err := row.Scan(&e.ID, &actorID, &actorRole, &adminToken, &e.Action,
		&targetType, &targetID, &details, &e.Success, &e.CreatedAt); err != nil {
		return audit.AccessEvent{}, err
	}
	if actorID.Valid {
		v := actorID.Int64
		e.ActorUserID = &v
	}
	e.ActorRole = actorRole.String
	e.AdminToken = adminToken.String
	e.TargetType = targetType.String
	if targetID.Valid {
		v := targetID.Int64
		e.TargetID = &v
	}
	e.Details = details.String
	return e, nil
}

func (s *Store) FindRecentAccessEvent(ctx context.Context, e audit.AccessEvent, cutoff time.Time) (*audit.AccessEvent, error) {
	var (
		conds = []string{"action = $1", "created_at >= $2"}
		args  = []any{e.Action, cutoff}
		idx   = 3
	)
	if e.ActorUserID != nil {
		conds = append(conds, fmt.Sprintf("actor_user_id = $%d", idx))
		args = append(args, *e.ActorUserID)
		idx++
	} else {
		conds = append(conds, fmt.Sprintf("admin_token = $%d", idx))
		args = append(args, e.AdminToken)
		idx++
	}
	if e.TargetType != "" {
		conds = append(conds, fmt.Sprintf("target_type = $%d", idx))
		args = append(args, e.TargetType)
		idx++
	}
	if e.TargetID != nil {
		conds = append(conds, fmt.Sprintf("target_id = $%d", idx))
		args = append(args, *e.TargetID)
		idx++
	}

	query := `select ` + accessColumns + ` from access_audit where ` +
		strings.Join(conds, " and ") + ` order by created_at desc limit 1`
	row := s.db.QueryRowContext(ctx, query, args...)
	out, err := scanAccessEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Store) ListEvents(ctx context.Context, f audit.EventFilter) ([]audit.Event, error) {
	var (
		conds []string
		args  []any
		idx   = 1
	)
	add := func(cond string, value any) {
		conds = append(conds, fmt.Sprintf(cond, idx))
		args = append(args, value)
		idx++
	}
	if f.RequestType != "" {
		add("request_type = $%d", f.RequestType)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.TenantID != "" {
		add("tenant_id = $%d", f.TenantID)
	}
	if f.UserID != nil {
		add("user_id = $%d", *f.UserID)
	}

	query := `select id, user_id, user_role, action, request_type, status,
		tenant_id, database_name, target_type, target_id, duration_ms,
		error_message, details, ip_address, user_agent, created_at
		from audit_logs`
	if len(conds) > 0 {
		query += ` where ` + strings.Join(conds, " and ")
	}
	query += ` order by created_at desc`
	limit := f.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += fmt.Sprintf(` limit %d`, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []audit.Event
	for rows.Next() {
		var (
			e            audit.Event
			userID       sql.NullInt64
			userRole     sql.NullString
			tenantID     sql.NullString
			databaseName sql.NullString
			targetType   sql.NullString
			targetID     sql.NullInt64
			durationMS   sql.NullInt64
			errorMessage sql.NullString
			rawDetails   []byte
			ipAddress    sql.NullString
			userAgent    sql.NullString
		)
		if err := rows.Scan(&e.ID, &userID, &userRole, &e.Action, &e.RequestType, &e.Status,
			&tenantID, &databaseName, &targetType, &targetID, &durationMS,
			&errorMessage, &rawDetails, &ipAddress, &userAgent, &e.CreatedAt); err != nil {
			return nil, err
		}
		if userID.Valid {
			v := userID.Int64
			e.UserID = &v
		}
		e.UserRole = userRole.String
		e.TenantID = tenantID.String
		e.DatabaseName = databaseName.String
		e.TargetType = targetType.String
		if targetID.Valid {
			v := targetID.Int64
			e.TargetID = &v
		}
		if durationMS.Valid {
			v := durationMS.Int64
			e.DurationMS = &v
		}
		e.ErrorMessage = errorMessage.String
		if len(rawDetails) > 0 {
			if err := json.Unmarshal(rawDetails, &e.Details); err != nil {
				return nil, fmt.Errorf("decode details: %w", err)
			}
		}
		e.IPAddress = ipAddress.String
		e.UserAgent = userAgent.String
		out = append(out, e)
	}
	return out, rows.Err()
}
