package persistence

import (
	"context"
	"errors"

	"github.com/commerce/backend/internal/domain/ordering"
	"github.com/commerce/backend/internal/domain/shared"
	"github.com/commerce/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormPaymentRepository implements ordering.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByID finds a payment by its ID
func (r *GormPaymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*ordering.Payment, error) {
	var model models.PaymentModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByOrderID finds all payments for an order, newest first
func (r *GormPaymentRepository) FindByOrderID(ctx context.Context, orderID uuid.UUID) ([]*ordering.Payment, error) {
	var paymentModels []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("requested_at DESC").
		Find(&paymentModels).Error; err != nil {
		return nil, err
	}

	payments := make([]*ordering.Payment, 0, len(paymentModels))
	for i := range paymentModels {
		payments = append(payments, paymentModels[i].ToDomain())
	}
	return payments, nil
}

// Create persists a new payment
func (r *GormPaymentRepository) Create(ctx context.Context, payment *ordering.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	return r.db.WithContext(ctx).Create(model).Error
}

// SaveWithLock updates a payment with an optimistic version check.
// The losing side of a concurrent transition gets a CONFLICT error.
func (r *GormPaymentRepository) SaveWithLock(ctx context.Context, payment *ordering.Payment) error {
	model := models.PaymentModelFromDomain(payment)
	model.Version = payment.Version + 1

	result := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Where("id = ? AND version = ?", payment.ID, payment.Version).
		Select("*").
		Omit("id", "created_at").
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	payment.IncrementVersion()
	return nil
}
