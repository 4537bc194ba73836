package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"rentfolio-backend/internal/domain"
	"rentfolio-backend/internal/logger"
	"rentfolio-backend/internal/repository"
)

type eventRepository struct {
	db DBTX
}

func NewEventRepository(db DBTX) repository.EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `id, actor_id, COALESCE(actor_email, ''), COALESCE(actor_role, ''), action, target_type, target_id, details, created_at`

func (r *eventRepository) Append(ctx context.Context, e *domain.Event) error {
	logger.DatabaseCall("INSERT", "events", "action", e.Action, "targetID", e.TargetID)

	query := `INSERT INTO events (actor_id, actor_email, actor_role, action, target_type, target_id, details, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, now()) RETURNING id, created_at`
	err := r.db.QueryRowContext(ctx, query,
		e.ActorID, e.ActorEmail, e.ActorRole, e.Action, e.TargetType, e.TargetID, e.Details,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append event: %w", mapError(err))
	}
	return nil
}

func (r *eventRepository) ListByTarget(ctx context.Context, targetType domain.TargetType, targetID string) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events
	          WHERE target_type = $1 AND target_id = $2 ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query, targetType, targetID)
	if err != nil {
		return nil, fmt.Errorf("list events by target: %w", mapError(err))
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *eventRepository) ListWithdrawals(ctx context.Context, actorID *int64) ([]domain.Event, error) {
	// A withdrawal stream belongs to the actor who issued its REQUESTED
	// event; later transition events are authored by reviewers, so the
	// scope filter runs over stream ownership, not event authorship.
	var (
		query string
		args  []any
	)
	if actorID != nil {
		query = `SELECT ` + eventColumns + ` FROM events
		         WHERE target_type = $1 AND target_id IN (
		             SELECT target_id FROM events
		             WHERE target_type = $1 AND action = $2 AND actor_id = $3)
		         ORDER BY created_at, id`
		args = []any{domain.TargetTypeWithdrawal, domain.ActionWithdrawalRequested, *actorID}
	} else {
		query = `SELECT ` + eventColumns + ` FROM events
		         WHERE target_type = $1 ORDER BY created_at, id`
		args = []any{domain.TargetTypeWithdrawal}
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list withdrawal events: %w", mapError(err))
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorEmail, &e.ActorRole, &e.Action, &e.TargetType, &e.TargetID, &e.Details, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
