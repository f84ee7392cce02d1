package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"donorlink-backend/internal/domain"
	"donorlink-backend/internal/repository"

	"github.com/google/uuid"
)

type activityLogRepository struct {
	db *sql.DB
}

func NewActivityLogRepository(db *sql.DB) repository.ActivityLogRepository {
	return &activityLogRepository{db: db}
}

func (r *activityLogRepository) Create(ctx context.Context, l *domain.ActivityLog) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	l.CreatedAt = time.Now()
	details, err := json.Marshal(l.Details)
	if err != nil {
		return fmt.Errorf("marshal activity details: %w", err)
	}
	query := `INSERT INTO activity_logs (id, admin_id, action, entity_type, entity_id, details, ip_address, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = q(ctx, r.db).ExecContext(ctx, query,
		l.ID, l.AdminID, l.Action, l.EntityType, nullStr(l.EntityID), details, nullStr(l.IPAddress), l.CreatedAt)
	return err
}

func (r *activityLogRepository) List(ctx context.Context, page, pageSize int32) ([]domain.ActivityLog, int32, error) {
	var total int32
	if err := q(ctx, r.db).QueryRowContext(ctx, `SELECT count(*) FROM activity_logs`).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT l.id, l.admin_id, l.action, l.entity_type, l.entity_id, l.details, l.ip_address, l.created_at, a.name
	          FROM activity_logs l LEFT JOIN admins a ON a.id = l.admin_id
	          ORDER BY l.created_at DESC LIMIT $1 OFFSET $2`
	rows, err := q(ctx, r.db).QueryContext(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var logs []domain.ActivityLog
	for rows.Next() {
		var l domain.ActivityLog
		var entityID, ip, adminName sql.NullString
		var details []byte
		if err := rows.Scan(&l.ID, &l.AdminID, &l.Action, &l.EntityType, &entityID, &details, &ip, &l.CreatedAt, &adminName); err != nil {
			return nil, 0, err
		}
		l.EntityID = entityID.String
		l.IPAddress = ip.String
		l.AdminName = adminName.String
		if len(details) > 0 {
			if err := json.Unmarshal(details, &l.Details); err != nil {
				return nil, 0, fmt.Errorf("unmarshal activity details: %w", err)
			}
		}
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}
