package models

import (
	"time"

	"github.com/uptrace/bun"
)

type CouponType string

const (
	CouponPercentage CouponType = "percentage"
	CouponFixed      CouponType = "fixed"
)

type Coupon struct {
	bun.BaseModel `bun:"table:coupons"`

	Code        string     `bun:"code,pk" json:"code"`
	Type        CouponType `bun:"type,notnull" json:"type"`
	Value       float64    `bun:"value" json:"value"`
	Description string     `bun:"description" json:"description"`
	Active      bool       `bun:"active" json:"-"`
	CreatedAt   time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp" json:"-"`
}

// PriceSummary is the checkout breakdown shown before payment.
type PriceSummary struct {
	Items      []LineItem `json:"items"`
	ItemCount  int        `json:"item_count"`
	Subtotal   float64    `json:"subtotal"`
	Discount   float64    `json:"discount"`
	Total      float64    `json:"total"`
	Coupon     *Coupon    `json:"coupon,omitempty"`
	CanProceed bool       `json:"can_proceed"`
}

type QuoteRequest struct {
	CourseIDs  []string `json:"course_ids" validate:"dive,required"`
	CouponCode string   `json:"coupon_code" validate:"omitempty,max=64"`
}

type CouponRequest struct {
	Code string `json:"code" validate:"required,max=64"`
}
