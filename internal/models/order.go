package models

import (
	"time"

	"github.com/uptrace/bun"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

type OrderRequest struct {
	CourseIDs  []string `json:"course_ids" validate:"required,min=1,dive,required"`
	CouponCode string   `json:"coupon_code" validate:"omitempty,max=64"`
}

type Order struct {
	bun.BaseModel `bun:"table:orders"`

	OrderID         string      `bun:"order_id,pk" json:"order_id"`
	UserID          string      `bun:"user_id,notnull" json:"user_id"`
	CourseIDs       []string    `bun:"course_ids,type:jsonb" json:"course_ids"`
	Status          OrderStatus `bun:"status,notnull" json:"status"`
	Subtotal        float64     `bun:"subtotal" json:"subtotal"`
	Discount        float64     `bun:"discount" json:"discount"`
	Price           float64     `bun:"price" json:"price"`
	CouponCode      string      `bun:"coupon_code,nullzero" json:"coupon_code,omitempty"`
	PaymentIntentID string      `bun:"payment_intent_id,nullzero" json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time   `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt       time.Time   `bun:"updated_at,nullzero" json:"updated_at,omitempty"`
}

type OrderResponse struct {
	OrderID      string       `json:"order_id"`
	Status       OrderStatus  `json:"status"`
	Summary      PriceSummary `json:"summary"`
	ClientSecret string       `json:"client_secret,omitempty"`
}

// OrderEvent is the payload of the order topics.
type OrderEvent struct {
	Type      string    `json:"type"`
	Order     Order     `json:"order"`
	Timestamp time.Time `json:"timestamp"`
}
