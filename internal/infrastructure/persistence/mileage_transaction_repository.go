package persistence

import (
	"context"

	"github.com/commerce/backend/internal/domain/mileage"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMileageTransactionRepository implements mileage.TransactionRepository using GORM
type GormMileageTransactionRepository struct {
	db *gorm.DB
}

// NewGormMileageTransactionRepository creates a new GormMileageTransactionRepository
func NewGormMileageTransactionRepository(db *gorm.DB) *GormMileageTransactionRepository {
	return &GormMileageTransactionRepository{db: db}
}

// Create appends a transaction record
func (r *GormMileageTransactionRepository) Create(ctx context.Context, tx *mileage.Transaction) error {
	model := models.MileageTransactionModelFromDomain(tx)
	return r.db.WithContext(ctx).Create(model).Error
}

// FindByLedgerID lists transactions for a ledger, newest first
func (r *GormMileageTransactionRepository) FindByLedgerID(ctx context.Context, ledgerID uuid.UUID, filter shared.Filter) ([]*mileage.Transaction, int64, error) {
	query := r.db.WithContext(ctx).
		Model(&models.MileageTransactionModel{}).
		Where("ledger_id = ?", ledgerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var txModels []models.MileageTransactionModel
	if err := query.
		Order("occurred_at DESC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&txModels).Error; err != nil {
		return nil, 0, err
	}

	txs := make([]*mileage.Transaction, 0, len(txModels))
	for i := range txModels {
		txs = append(txs, txModels[i].ToDomain())
	}
	return txs, total, nil
}
