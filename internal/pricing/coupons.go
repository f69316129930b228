package pricing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/models"
)

// ErrCouponNotFound is a validation error: callers show it next to the
// coupon field and carry on.
var ErrCouponNotFound = apperrors.Validation("coupon_not_found", "Invalid coupon code")

// ErrNoCoupon is returned by stores when a code is unknown.
var ErrNoCoupon = errors.New("coupon not found")

type CouponStore interface {
	// GetCoupon looks a code up exactly as normalized by NormalizeCode.
	GetCoupon(ctx context.Context, code string) (*models.Coupon, error)
}

// DefaultCoupons is the fixed coupon table offered at checkout.
func DefaultCoupons() []models.Coupon {
	return []models.Coupon{
		{Code: "SAVE20", Type: models.CouponPercentage, Value: 20, Description: "20% off your order", Active: true},
		{Code: "WELCOME10", Type: models.CouponPercentage, Value: 10, Description: "10% off for new students", Active: true},
		{Code: "FLAT100", Type: models.CouponFixed, Value: 100, Description: "$100 off your order", Active: true},
		{Code: "FLAT25", Type: models.CouponFixed, Value: 25, Description: "$25 off your order", Active: true},
	}
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// MemoryCouponStore keeps coupons in a map owned by the instance.
type MemoryCouponStore struct {
	mu      sync.RWMutex
	coupons map[string]models.Coupon
}

func NewMemoryCouponStore(coupons ...models.Coupon) *MemoryCouponStore {
	s := &MemoryCouponStore{coupons: make(map[string]models.Coupon, len(coupons))}
	for _, c := range coupons {
		s.Put(c)
	}
	return s
}

func (s *MemoryCouponStore) Put(c models.Coupon) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Code = NormalizeCode(c.Code)
	s.coupons[c.Code] = c
}

func (s *MemoryCouponStore) GetCoupon(_ context.Context, code string) (*models.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.coupons[code]
	if !ok || !c.Active {
		return nil, ErrNoCoupon
	}
	return &c, nil
}

// CouponBook resolves user-entered codes against a store.
type CouponBook struct {
	store CouponStore
}

func NewCouponBook(store CouponStore) *CouponBook {
	return &CouponBook{store: store}
}

// Apply looks a code up case-insensitively. An unknown code yields
// ErrCouponNotFound; store failures are returned wrapped.
func (b *CouponBook) Apply(ctx context.Context, code string) (*models.Coupon, error) {
	normalized := NormalizeCode(code)
	if normalized == "" {
		return nil, apperrors.Validation("coupon_required", "Enter a coupon code")
	}

	coupon, err := b.store.GetCoupon(ctx, normalized)
	if errors.Is(err, ErrNoCoupon) {
		return nil, ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup coupon %s: %w", normalized, err)
	}
	return coupon, nil
}
