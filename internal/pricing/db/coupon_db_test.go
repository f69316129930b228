package db_test

import (
	"context"
	"testing"

	"ms-marketplace/internal/models"
	"ms-marketplace/internal/pricing"
	"ms-marketplace/internal/pricing/db"
	"ms-marketplace/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupCouponDB(t *testing.T) *db.CouponDB {
	bunDB := testutil.NewSQLite(t, (*models.Coupon)(nil))
	couponDB := &db.CouponDB{Bun: bunDB}
	for _, c := range pricing.DefaultCoupons() {
		require.NoError(t, couponDB.UpsertCoupon(context.Background(), c))
	}
	return couponDB
}

func TestGetCoupon(t *testing.T) {
	couponDB := setupCouponDB(t)
	ctx := context.Background()

	coupon, err := couponDB.GetCoupon(ctx, "SAVE20")
	require.NoError(t, err)
	assert.Equal(t, models.CouponPercentage, coupon.Type)
	assert.Equal(t, 20.0, coupon.Value)

	_, err = couponDB.GetCoupon(ctx, "MISSING")
	assert.ErrorIs(t, err, pricing.ErrNoCoupon)
}

func TestUpsertCoupon_OverwritesAndDeactivates(t *testing.T) {
	couponDB := setupCouponDB(t)
	ctx := context.Background()

	err := couponDB.UpsertCoupon(ctx, models.Coupon{Code: "save20", Type: models.CouponPercentage, Value: 20, Active: false})
	require.NoError(t, err)

	_, err = couponDB.GetCoupon(ctx, "SAVE20")
	assert.ErrorIs(t, err, pricing.ErrNoCoupon)

	coupons, err := couponDB.ListCoupons(ctx)
	require.NoError(t, err)
	assert.Len(t, coupons, len(pricing.DefaultCoupons())-1)
}

func TestCouponBook_WithDatabaseStore(t *testing.T) {
	book := pricing.NewCouponBook(setupCouponDB(t))

	coupon, err := book.Apply(context.Background(), "flat100")
	require.NoError(t, err)
	assert.Equal(t, "FLAT100", coupon.Code)

	_, err = book.Apply(context.Background(), "unknown")
	assert.ErrorIs(t, err, pricing.ErrCouponNotFound)
}
