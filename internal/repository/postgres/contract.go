package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rentfolio-backend/internal/domain"
	"rentfolio-backend/internal/repository"
)

type contractRepository struct {
	db DBTX
}

func NewContractRepository(db DBTX) repository.ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) GetByID(ctx context.Context, id int64) (*domain.Contract, error) {
	query := `SELECT c.id, c.property_id, c.tenant_id, p.owner_id, c.rent_amount, c.status
	          FROM contracts c JOIN properties p ON p.id = c.property_id
	          WHERE c.id = $1`
	var c domain.Contract
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.PropertyID, &c.TenantID, &c.OwnerID, &c.RentAmount, &c.Status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get contract: %w", mapError(err))
	}
	return &c, nil
}
