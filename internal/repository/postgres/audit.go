package postgres

import (
	"context"
	"fmt"

	"rentfolio-backend/internal/domain"
	"rentfolio-backend/internal/logger"
	"rentfolio-backend/internal/repository"
)

type auditRepository struct {
	db DBTX
}

func NewAuditRepository(db DBTX) repository.AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Record(ctx context.Context, entry *domain.AuditEntry) error {
	logger.DatabaseCall("INSERT", "audit_trail", "action", entry.Action, "targetID", entry.TargetID)

	query := `INSERT INTO audit_trail (actor_id, actor_email, action, target_type, target_id, detail, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, now()) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		entry.ActorID, entry.ActorEmail, entry.Action, entry.TargetType, entry.TargetID, entry.Detail,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("record audit entry: %w", mapError(err))
	}
	return nil
}
