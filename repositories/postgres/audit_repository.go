package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/upb/ip-registry/models"
	"github.com/upb/ip-registry/repositories"
	"go.uber.org/zap"
)

// AuditRepository implements the repositories.AuditRepository interface
type AuditRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *DB, logger *zap.Logger) repositories.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Insert inserts a new audit log entry
func (r *AuditRepository) Insert(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (
			user_id, user_email, session_id, action, entity_type, entity_id,
			ip_address, old_values, new_values, metadata, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11
		)
		RETURNING id
	`

	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query,
		log.UserID,
		log.UserEmail,
		log.SessionID,
		string(log.Action),
		log.EntityType,
		log.EntityID,
		log.IPAddress,
		jsonParam(log.OldValues),
		jsonParam(log.NewValues),
		jsonParam(log.Metadata),
		log.CreatedAt,
	).Scan(&log.ID)

	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	r.logger.Debug("audit log inserted", zap.Int64("id", log.ID), zap.String("action", string(log.Action)))
	return nil
}

// List returns entries matching filter newest first and the total match count
func (r *AuditRepository) List(ctx context.Context, filter repositories.AuditFilter, limit, offset int) ([]*models.AuditLog, int, error) {
	where, args := auditWhere(filter)
	executor := GetExecutor(ctx, r.db)

	var total int
	if err := executor.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_logs`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, user_email, session_id, action, entity_type, entity_id,
		       ip_address, old_values, new_values, metadata, created_at
		FROM audit_logs%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)

	rows, err := executor.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)
	for rows.Next() {
		log := &models.AuditLog{}
		var action string
		var oldValues, newValues, metadata []byte
		if err := rows.Scan(
			&log.ID,
			&log.UserID,
			&log.UserEmail,
			&log.SessionID,
			&action,
			&log.EntityType,
			&log.EntityID,
			&log.IPAddress,
			&oldValues,
			&newValues,
			&metadata,
			&log.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("failed to scan audit log: %w", err)
		}
		log.Action = models.AuditAction(action)
		log.OldValues = json.RawMessage(oldValues)
		log.NewValues = json.RawMessage(newValues)
		log.Metadata = json.RawMessage(metadata)
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, total, nil
}

// auditWhere builds the WHERE clause and positional args for filter
func auditWhere(filter repositories.AuditFilter) (string, []interface{}) {
	var conds []string
	var args []interface{}
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != nil {
		add("user_id = $%d", *filter.UserID)
	}
	if filter.SessionID != nil {
		add("session_id = $%d", *filter.SessionID)
	}
	if filter.Action != nil {
		add("action = $%d", string(*filter.Action))
	}
	if filter.EntityType != nil {
		add("entity_type = $%d", *filter.EntityType)
	}
	if filter.EntityID != nil {
		add("entity_id = $%d", *filter.EntityID)
	}
	if filter.From != nil {
		add("created_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("created_at <= $%d", *filter.To)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// jsonParam passes JSONB values as text; lib/pq would send []byte as bytea
func jsonParam(raw json.RawMessage) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
