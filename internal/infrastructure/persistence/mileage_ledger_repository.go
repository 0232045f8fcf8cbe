package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/commerce/backend/internal/domain/mileage"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormMileageLedgerRepository implements mileage.LedgerRepository using GORM
type GormMileageLedgerRepository struct {
	db *gorm.DB
}

// NewGormMileageLedgerRepository creates a new GormMileageLedgerRepository
func NewGormMileageLedgerRepository(db *gorm.DB) *GormMileageLedgerRepository {
	return &GormMileageLedgerRepository{db: db}
}

// FindByID finds a ledger by ID, including soft-deleted rows
func (r *GormMileageLedgerRepository) FindByID(ctx context.Context, id uuid.UUID) (*mileage.Ledger, error) {
	var model models.MileageLedgerModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByCustomerAndSeller finds the live ledger for a (customer, seller)
// pair. A nil sellerID matches the platform-wide ledger.
func (r *GormMileageLedgerRepository) FindByCustomerAndSeller(ctx context.Context, customerID uuid.UUID, sellerID *uuid.UUID) (*mileage.Ledger, error) {
	query := r.db.WithContext(ctx).
		Where("customer_id = ? AND deleted_at IS NULL", customerID)
	if sellerID == nil {
		query = query.Where("seller_id IS NULL")
	} else {
		query = query.Where("seller_id = ?", *sellerID)
	}

	var model models.MileageLedgerModel
	if err := query.First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Create persists a new ledger.
// A unique index on (customer_id, seller_id) turns racing creates into
// a CONFLICT the caller resolves by reloading.
func (r *GormMileageLedgerRepository) Create(ctx context.Context, ledger *mileage.Ledger) error {
	model := models.MileageLedgerModelFromDomain(ledger)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrConcurrencyConflict
		}
		return err
	}
	return nil
}

// SaveWithLock updates a ledger with an optimistic version check
func (r *GormMileageLedgerRepository) SaveWithLock(ctx context.Context, ledger *mileage.Ledger) error {
	return r.saveWithLock(r.db.WithContext(ctx), ledger)
}

func (r *GormMileageLedgerRepository) saveWithLock(db *gorm.DB, ledger *mileage.Ledger) error {
	model := models.MileageLedgerModelFromDomain(ledger)
	model.Version = ledger.Version + 1

	result := db.
		Model(&models.MileageLedgerModel{}).
		Where("id = ? AND version = ?", ledger.ID, ledger.Version).
		Select("*").
		Omit("id", "created_at").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	ledger.IncrementVersion()
	return nil
}

// SaveWithTransaction atomically updates the ledger under the version
// check and appends the transaction record. Either both land or neither
// does.
func (r *GormMileageLedgerRepository) SaveWithTransaction(ctx context.Context, ledger *mileage.Ledger, tx *mileage.Transaction) error {
	return r.db.WithContext(ctx).Transaction(func(dbTx *gorm.DB) error {
		if err := r.saveWithLock(dbTx, ledger); err != nil {
			return err
		}
		return dbTx.Create(models.MileageTransactionModelFromDomain(tx)).Error
	})
}

// Query lists ledgers matching the filter with a total count.
// ExpiredBefore/ExpiredAfter compare strictly against the expiry
// horizon; ledgers without a horizon never match either bound.
func (r *GormMileageLedgerRepository) Query(ctx context.Context, filter mileage.LedgerFilter) ([]*mileage.Ledger, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.MileageLedgerModel{})

	if !filter.IncludeDeleted {
		query = query.Where("deleted_at IS NULL")
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.SellerID != nil {
		query = query.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.ExpiredBefore != nil {
		query = query.Where("expires_at IS NOT NULL AND expires_at < ?", *filter.ExpiredBefore)
	}
	if filter.ExpiredAfter != nil {
		query = query.Where("expires_at IS NOT NULL AND expires_at > ?", *filter.ExpiredAfter)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var ledgerModels []models.MileageLedgerModel
	if err := query.
		Order("created_at DESC").
		Offset((filter.Page - 1) * filter.PageSize).
		Limit(filter.PageSize).
		Find(&ledgerModels).Error; err != nil {
		return nil, 0, err
	}

	ledgers := make([]*mileage.Ledger, 0, len(ledgerModels))
	for i := range ledgerModels {
		ledgers = append(ledgers, ledgerModels[i].ToDomain())
	}
	return ledgers, total, nil
}

// FindDueForExpiry lists live ledgers whose horizon has passed and
// which still carry usable mileage
func (r *GormMileageLedgerRepository) FindDueForExpiry(ctx context.Context, now time.Time, limit int) ([]*mileage.Ledger, error) {
	var ledgerModels []models.MileageLedgerModel
	if err := r.db.WithContext(ctx).
		Where("deleted_at IS NULL AND expires_at IS NOT NULL AND expires_at <= ? AND usable > 0", now).
		Order("expires_at ASC").
		Limit(limit).
		Find(&ledgerModels).Error; err != nil {
		return nil, err
	}

	ledgers := make([]*mileage.Ledger, 0, len(ledgerModels))
	for i := range ledgerModels {
		ledgers = append(ledgers, ledgerModels[i].ToDomain())
	}
	return ledgers, nil
}
