package pricing

import (
	"context"

	"ms-marketplace/internal/models"
)

// Session is one checkout: a fixed list of items and at most one applied
// coupon. It is not safe for concurrent use and lives for a single request.
type Session struct {
	book   *CouponBook
	items  []models.LineItem
	coupon *models.Coupon
}

func NewSession(book *CouponBook, items []models.LineItem) *Session {
	return &Session{book: book, items: items}
}

// ApplyCoupon replaces the applied coupon. On failure the previous coupon
// stays applied.
func (s *Session) ApplyCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	coupon, err := s.book.Apply(ctx, code)
	if err != nil {
		return nil, err
	}
	s.coupon = coupon
	return coupon, nil
}

func (s *Session) RemoveCoupon() {
	s.coupon = nil
}

func (s *Session) Coupon() *models.Coupon {
	return s.coupon
}

func (s *Session) Summary() models.PriceSummary {
	return Summarize(s.items, s.coupon)
}

// Quote prices items in a fresh session. A blank code prices without a
// coupon; an unknown one fails the quote.
func Quote(ctx context.Context, book *CouponBook, items []models.LineItem, code string) (models.PriceSummary, error) {
	s := NewSession(book, items)
	if NormalizeCode(code) != "" {
		if _, err := s.ApplyCoupon(ctx, code); err != nil {
			return models.PriceSummary{}, err
		}
	}
	return s.Summary(), nil
}
