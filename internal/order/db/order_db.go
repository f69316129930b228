package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/models"

	"github.com/uptrace/bun"
)

type OrderDB struct {
	Bun *bun.DB
}

// ---------------- ORDERS ----------------

// GetOrderByID → fetch one order by its ID
func (d *OrderDB) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("order_id = ?", id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("order_not_found", fmt.Sprintf("Order %s not found", id))
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CreateOrder → insert new order
func (d *OrderDB) CreateOrder(ctx context.Context, order models.Order) error {
	if order.CourseIDs == nil {
		order.CourseIDs = []string{}
	}
	_, err := d.Bun.NewInsert().Model(&order).Exec(ctx)
	return err
}

// SetPaymentIntent → attach the gateway payment to an order
func (d *OrderDB) SetPaymentIntent(ctx context.Context, id, intentID string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("payment_intent_id = ?", intentID).
		Set("updated_at = ?", time.Now().UTC()).
		Where("order_id = ?", id).
		Exec(ctx)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return apperrors.NotFound("order_not_found", fmt.Sprintf("Order %s not found", id))
	}
	return nil
}

// TransitionStatus → move an order from one status to another. Reports
// false when the order was not in the expected status.
func (d *OrderDB) TransitionStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("order_id = ?", id).
		Where("status = ?", from).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GetOrdersByUserID → all orders of a user, newest first
func (d *OrderDB) GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	orders := []models.Order{}
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// GetCompletedCourseIDs → courses the user already owns
func (d *OrderDB) GetCompletedCourseIDs(ctx context.Context, userID string) ([]string, error) {
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Column("course_ids").
		Where("user_id = ?", userID).
		Where("status = ?", models.OrderCompleted).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	owned := []string{}
	seen := map[string]bool{}
	for _, o := range orders {
		for _, id := range o.CourseIDs {
			if !seen[id] {
				seen[id] = true
				owned = append(owned, id)
			}
		}
	}
	return owned, nil
}
