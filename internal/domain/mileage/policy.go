package mileage

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccrualPolicy decides how much mileage an order total earns.
// Implementations may vary the rate per seller; returning zero means the
// order earns nothing and no ledger write happens.
type AccrualPolicy interface {
	AccrualAmount(orderTotal decimal.Decimal, sellerID *uuid.UUID) decimal.Decimal
}

// FixedRatePolicy accrues a flat fraction of the order total, rounded
// down to whole points, with optional per-seller overrides.
type FixedRatePolicy struct {
	Rate        decimal.Decimal
	SellerRates map[uuid.UUID]decimal.Decimal
}

// NewFixedRatePolicy creates a FixedRatePolicy with the given platform rate
func NewFixedRatePolicy(rate decimal.Decimal) *FixedRatePolicy {
	return &FixedRatePolicy{
		Rate:        rate,
		SellerRates: make(map[uuid.UUID]decimal.Decimal),
	}
}

// WithSellerRate sets a per-seller override rate
func (p *FixedRatePolicy) WithSellerRate(sellerID uuid.UUID, rate decimal.Decimal) *FixedRatePolicy {
	p.SellerRates[sellerID] = rate
	return p
}

// AccrualAmount returns floor(orderTotal * rate) in whole points
func (p *FixedRatePolicy) AccrualAmount(orderTotal decimal.Decimal, sellerID *uuid.UUID) decimal.Decimal {
	rate := p.Rate
	if sellerID != nil {
		if override, ok := p.SellerRates[*sellerID]; ok {
			rate = override
		}
	}
	if orderTotal.LessThanOrEqual(decimal.Zero) || rate.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return orderTotal.Mul(rate).Floor()
}
