package db

import (
	"context"
	"database/sql"
	"errors"

	"ms-marketplace/internal/models"
	"ms-marketplace/internal/pricing"

	"github.com/uptrace/bun"
)

type CouponDB struct {
	Bun *bun.DB
}

// GetCoupon → fetch one active coupon by its normalized code
func (d *CouponDB) GetCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	var coupon models.Coupon
	err := d.Bun.NewSelect().
		Model(&coupon).
		Where("code = ?", code).
		Where("active = ?", true).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pricing.ErrNoCoupon
	}
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// UpsertCoupon → insert a coupon or overwrite the existing one with the same code
func (d *CouponDB) UpsertCoupon(ctx context.Context, coupon models.Coupon) error {
	coupon.Code = pricing.NormalizeCode(coupon.Code)
	_, err := d.Bun.NewInsert().
		Model(&coupon).
		On("CONFLICT (code) DO UPDATE").
		Set("type = EXCLUDED.type").
		Set("value = EXCLUDED.value").
		Set("description = EXCLUDED.description").
		Set("active = EXCLUDED.active").
		Exec(ctx)
	return err
}

// ListCoupons → all active coupons ordered by code
func (d *CouponDB) ListCoupons(ctx context.Context) ([]models.Coupon, error) {
	var coupons []models.Coupon
	err := d.Bun.NewSelect().
		Model(&coupons).
		Where("active = ?", true).
		Order("code").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return coupons, nil
}
