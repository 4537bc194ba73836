package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rentfolio-backend/internal/domain"
	"rentfolio-backend/internal/logger"
	"rentfolio-backend/internal/repository"
)

type paymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

const paymentColumns = `id, amount, method, transaction_id, idempotency_key, status, contract_id, tenant_id, property_id,
	initiated_by_id, initiated_by_role, COALESCE(receipt_number, ''), COALESCE(failure_reason, ''), owner_notified_at, created_at, updated_at`

func (r *paymentRepository) Create(ctx context.Context, p *domain.Payment) error {
	logger.DatabaseCall("INSERT", "payments", "paymentID", p.ID, "transactionID", p.TransactionID)

	query := `INSERT INTO payments (id, amount, method, transaction_id, idempotency_key, status, contract_id, tenant_id,
	              property_id, initiated_by_id, initiated_by_role, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
	          RETURNING created_at, updated_at`
	err := r.db.QueryRowContext(ctx, query,
		p.ID, p.Amount, p.Method, p.TransactionID, p.IdempotencyKey, p.Status, p.ContractID, p.TenantID,
		p.PropertyID, p.InitiatedByID, p.InitiatedByRole,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create payment: %w", mapError(err))
	}
	return nil
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id)
}

func (r *paymentRepository) GetByIdempotencyKey(ctx context.Context, key string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE idempotency_key = $1`, key)
}

func (r *paymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Payment, error) {
	return r.getOne(ctx, `SELECT `+paymentColumns+` FROM payments WHERE transaction_id = $1`, transactionID)
}

func (r *paymentRepository) getOne(ctx context.Context, query string, arg any) (*domain.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get payment: %w", mapError(err))
	}
	return p, nil
}

func (r *paymentRepository) Settle(ctx context.Context, p *domain.Payment) error {
	logger.DatabaseCall("UPDATE", "payments", "paymentID", p.ID, "status", p.Status)

	query := `UPDATE payments
	          SET status = $2, receipt_number = NULLIF($3, ''), failure_reason = NULLIF($4, ''),
	              owner_notified_at = $5, updated_at = now()
	          WHERE id = $1
	          RETURNING updated_at`
	err := r.db.QueryRowContext(ctx, query, p.ID, p.Status, p.ReceiptNumber, p.FailureReason, p.OwnerNotifiedAt).Scan(&p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("settle payment: %w", mapError(err))
	}
	return nil
}

func (r *paymentRepository) SumCompleted(ctx context.Context, ownerID *int64) (float64, error) {
	var (
		total float64
		err   error
	)
	if ownerID != nil {
		query := `SELECT COALESCE(SUM(p.amount), 0) FROM payments p
		          JOIN properties pr ON pr.id = p.property_id
		          WHERE p.status = $1 AND pr.owner_id = $2`
		err = r.db.QueryRowContext(ctx, query, domain.PaymentStatusCompleted, *ownerID).Scan(&total)
	} else {
		query := `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = $1`
		err = r.db.QueryRowContext(ctx, query, domain.PaymentStatusCompleted).Scan(&total)
	}
	if err != nil {
		return 0, fmt.Errorf("sum completed payments: %w", mapError(err))
	}
	return total, nil
}

func (r *paymentRepository) ListStalePending(ctx context.Context, olderThan time.Time) ([]domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments
	          WHERE status = $1 AND created_at < $2 ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, domain.PaymentStatusPending, olderThan)
	if err != nil {
		return nil, fmt.Errorf("list stale pending payments: %w", mapError(err))
	}
	defer rows.Close()

	var payments []domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate payments: %w", err)
	}
	return payments, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(&p.ID, &p.Amount, &p.Method, &p.TransactionID, &p.IdempotencyKey, &p.Status, &p.ContractID,
		&p.TenantID, &p.PropertyID, &p.InitiatedByID, &p.InitiatedByRole, &p.ReceiptNumber, &p.FailureReason,
		&p.OwnerNotifiedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
