package order

import (
	"context"
	"fmt"
	"time"

	"ms-marketplace/internal/apperrors"
	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"
	"ms-marketplace/internal/pricing"
	"ms-marketplace/internal/utils"
)

type DBLayer interface {
	CreateOrder(ctx context.Context, order models.Order) error
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	SetPaymentIntent(ctx context.Context, id, intentID string) error
	TransitionStatus(ctx context.Context, id string, from, to models.OrderStatus) (bool, error)
	GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error)
	GetCompletedCourseIDs(ctx context.Context, userID string) ([]string, error)
}

type CourseCatalog interface {
	GetCoursesByIDs(ctx context.Context, ids []string) ([]models.Course, error)
}

type EnrollmentLock interface {
	LockCourses(ctx context.Context, userID string, courseIDs []string, orderID string) (bool, error)
	UnlockCourses(ctx context.Context, userID string, courseIDs []string, orderID string) error
}

type PaymentGateway interface {
	CreatePayment(req models.PaymentRequest) (*models.PaymentIntent, error)
	CancelPayment(intentID string) error
	ParseWebhook(payload []byte, signature string) (*models.PaymentResult, error)
}

type KafkaPublisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type Topics struct {
	Created   string
	Completed string
	Cancelled string
}

type OrderService struct {
	DB       DBLayer
	Catalog  CourseCatalog
	Coupons  *pricing.CouponBook
	Locks    EnrollmentLock
	Payments PaymentGateway
	Kafka    KafkaPublisher
	Topics   Topics
	Currency string
	Logger   *logger.Logger

	now   func() time.Time
	newID func() string
}

func NewOrderService(db DBLayer, catalog CourseCatalog, coupons *pricing.CouponBook, locks EnrollmentLock,
	payments PaymentGateway, kafka KafkaPublisher, topics Topics, currency string, log *logger.Logger) *OrderService {
	return &OrderService{
		DB:       db,
		Catalog:  catalog,
		Coupons:  coupons,
		Locks:    locks,
		Payments: payments,
		Kafka:    kafka,
		Topics:   topics,
		Currency: currency,
		Logger:   log,
		now:      time.Now,
		newID:    utils.NewOrderID,
	}
}

// ---------------- QUOTES ----------------

// Quote prices a cart without creating anything.
func (s *OrderService) Quote(ctx context.Context, courseIDs []string, couponCode string) (models.PriceSummary, error) {
	courses, err := s.Catalog.GetCoursesByIDs(ctx, courseIDs)
	if err != nil {
		return models.PriceSummary{}, err
	}
	return pricing.Quote(ctx, s.Coupons, lineItems(courses), couponCode)
}

// ValidateCoupon resolves a code against the coupon book.
func (s *OrderService) ValidateCoupon(ctx context.Context, code string) (*models.Coupon, error) {
	return s.Coupons.Apply(ctx, code)
}

// ---------------- ORDERS ----------------

// PlaceOrder prices the cart, reserves every course for the user, stores a
// pending order and opens a payment for it. A free order completes at once.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, req models.OrderRequest) (*models.OrderResponse, error) {
	if len(req.CourseIDs) == 0 {
		return nil, apperrors.Validation("empty_cart", "Your cart is empty")
	}

	// Step 1: Resolve and price
	courses, err := s.Catalog.GetCoursesByIDs(ctx, req.CourseIDs)
	if err != nil {
		return nil, err
	}
	summary, err := pricing.Quote(ctx, s.Coupons, lineItems(courses), req.CouponCode)
	if err != nil {
		return nil, err
	}
	courseIDs := make([]string, len(courses))
	for i, c := range courses {
		courseIDs[i] = c.CourseID
	}

	// Step 2: Reject courses the user already owns
	owned, err := s.DB.GetCompletedCourseIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load enrollments: %w", err)
	}
	if dup := intersect(courseIDs, owned); len(dup) > 0 {
		return nil, apperrors.Conflict("already_enrolled", "You already own one or more of these courses").
			WithDetail("course_ids", dup)
	}

	now := s.now().UTC()
	order := models.Order{
		OrderID:   s.newID(),
		UserID:    userID,
		CourseIDs: courseIDs,
		Status:    models.OrderPending,
		Subtotal:  summary.Subtotal,
		Discount:  summary.Discount,
		Price:     summary.Total,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if summary.Coupon != nil {
		order.CouponCode = summary.Coupon.Code
	}

	// Step 3: Lock enrollments in Redis
	ok, err := s.Locks.LockCourses(ctx, userID, courseIDs, order.OrderID)
	if err != nil {
		return nil, fmt.Errorf("redis lock error: %w", err)
	}
	if !ok {
		return nil, apperrors.Conflict("enrollment_in_progress", "A checkout for one of these courses is already in progress")
	}

	// Step 4: Create pending order in DB
	if err := s.DB.CreateOrder(ctx, order); err != nil {
		s.Logger.LogOrder("CREATE_FAILED", order.OrderID, fmt.Sprintf("Rolling back enrollment locks: %v", err))
		s.unlock(ctx, order)
		return nil, fmt.Errorf("create order: %w", err)
	}
	s.Logger.LogOrder("CREATED", order.OrderID, fmt.Sprintf("user=%s courses=%v total=%.2f", userID, courseIDs, order.Price))

	resp := &models.OrderResponse{OrderID: order.OrderID, Status: order.Status, Summary: summary}

	// Step 5: Free orders skip the payment gateway
	if order.Price <= 0 {
		completed, err := s.complete(ctx, order.OrderID)
		if err != nil {
			return nil, err
		}
		resp.Status = completed.Status
		return resp, nil
	}

	// Step 6: Open the payment
	intent, err := s.Payments.CreatePayment(models.PaymentRequest{
		OrderID:   order.OrderID,
		UserID:    userID,
		CourseIDs: courseIDs,
		Amount:    order.Price,
		Currency:  s.Currency,
	})
	if err != nil {
		if _, terr := s.DB.TransitionStatus(ctx, order.OrderID, models.OrderPending, models.OrderCancelled); terr != nil {
			s.Logger.LogOrder("CANCEL_FAILED", order.OrderID, terr.Error())
		}
		s.unlock(ctx, order)
		return nil, apperrors.Upstream("payment_unavailable", "Payment could not be started, please try again", err)
	}

	order.PaymentIntentID = intent.ID
	if err := s.DB.SetPaymentIntent(ctx, order.OrderID, intent.ID); err != nil {
		return nil, fmt.Errorf("store payment intent: %w", err)
	}
	resp.ClientSecret = intent.ClientSecret

	// Step 7: Publish Kafka event
	s.publish(ctx, s.Topics.Created, "order.created", order)
	return resp, nil
}

// GetOrder returns an order owned by userID.
func (s *OrderService) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		s.Logger.LogSecurity("ORDER_ACCESS_DENIED", fmt.Sprintf("user %s requested order %s", userID, orderID))
		return nil, apperrors.Forbidden("not_order_owner", "You do not have access to this order")
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, userID string) ([]models.Order, error) {
	return s.DB.GetOrdersByUserID(ctx, userID)
}

// CancelOrder cancels a pending order of userID and abandons its payment.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.GetOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderPending {
		return nil, apperrors.Conflict("order_not_pending", fmt.Sprintf("Order is already %s", order.Status))
	}

	if order.PaymentIntentID != "" {
		if err := s.Payments.CancelPayment(order.PaymentIntentID); err != nil {
			// a payment that cannot be cancelled may already have succeeded
			return nil, apperrors.Upstream("payment_cancel_failed", "Payment could not be cancelled, please try again", err)
		}
	}
	return s.cancel(ctx, order.OrderID)
}

// HandlePaymentWebhook verifies a gateway callback and settles the order.
func (s *OrderService) HandlePaymentWebhook(ctx context.Context, payload []byte, signature string) (*models.PaymentResult, error) {
	result, err := s.Payments.ParseWebhook(payload, signature)
	if err != nil {
		return nil, apperrors.Unauthorized("invalid_webhook", "Webhook signature verification failed").Wrap(err)
	}
	if err := s.HandlePaymentResult(ctx, *result); err != nil {
		return nil, err
	}
	return result, nil
}

// HandlePaymentResult applies a verified payment outcome. Outcomes for
// orders that are no longer pending, or unknown, are ignored, so redelivery
// is harmless. A declined attempt leaves the order pending: the intent stays
// open until it succeeds, is cancelled, or the enrollment lock expires.
func (s *OrderService) HandlePaymentResult(ctx context.Context, result models.PaymentResult) error {
	var err error
	switch result.Type {
	case models.PaymentSucceeded:
		_, err = s.complete(ctx, result.OrderID)
	case models.PaymentFailed:
		_, err = s.cancel(ctx, result.OrderID)
	case models.PaymentDeclined:
		s.Logger.LogOrder("PAYMENT_DECLINED", result.OrderID, fmt.Sprintf("Attempt on %s declined, order stays pending", result.IntentID))
		return nil
	default:
		s.Logger.Debug("ORDER", fmt.Sprintf("Ignoring payment event %s", result.EventType))
		return nil
	}
	if apperrors.KindOf(err) == apperrors.KindNotFound {
		s.Logger.Warn("ORDER", fmt.Sprintf("Payment event %s for unknown order %s, ignoring", result.EventType, result.OrderID))
		return nil
	}
	return err
}

// ExpireEnrollment cancels the pending orders holding a lock that expired.
func (s *OrderService) ExpireEnrollment(ctx context.Context, userID, courseID string) {
	orders, err := s.DB.GetOrdersByUserID(ctx, userID)
	if err != nil {
		s.Logger.Error("ORDER", fmt.Sprintf("Failed to load orders of %s after lock expiry: %v", userID, err))
		return
	}
	for _, o := range orders {
		if o.Status != models.OrderPending || !contains(o.CourseIDs, courseID) {
			continue
		}
		if o.PaymentIntentID != "" {
			if err := s.Payments.CancelPayment(o.PaymentIntentID); err != nil {
				s.Logger.LogOrder("EXPIRE_FAILED", o.OrderID, fmt.Sprintf("Payment still open: %v", err))
				continue
			}
		}
		if _, err := s.cancel(ctx, o.OrderID); err != nil {
			s.Logger.LogOrder("EXPIRE_FAILED", o.OrderID, err.Error())
			continue
		}
		s.Logger.LogOrder("EXPIRED", o.OrderID, fmt.Sprintf("Enrollment lock for %s expired", courseID))
	}
}

func (s *OrderService) complete(ctx context.Context, orderID string) (*models.Order, error) {
	return s.settle(ctx, orderID, models.OrderCompleted, s.Topics.Completed, "order.completed")
}

func (s *OrderService) cancel(ctx context.Context, orderID string) (*models.Order, error) {
	return s.settle(ctx, orderID, models.OrderCancelled, s.Topics.Cancelled, "order.cancelled")
}

// settle moves a pending order to its final status, releases its locks and
// publishes the outcome.
func (s *OrderService) settle(ctx context.Context, orderID string, to models.OrderStatus, topic, eventType string) (*models.Order, error) {
	moved, err := s.DB.TransitionStatus(ctx, orderID, models.OrderPending, to)
	if err != nil {
		return nil, fmt.Errorf("update order %s: %w", orderID, err)
	}
	order, err := s.DB.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !moved {
		s.Logger.LogOrder("SKIPPED", orderID, fmt.Sprintf("Order already %s, not moving to %s", order.Status, to))
		return order, nil
	}

	s.unlock(ctx, *order)
	s.Logger.LogOrder(string(to), orderID, "Order settled")
	s.publish(ctx, topic, eventType, *order)
	return order, nil
}

func (s *OrderService) unlock(ctx context.Context, order models.Order) {
	if err := s.Locks.UnlockCourses(ctx, order.UserID, order.CourseIDs, order.OrderID); err != nil {
		s.Logger.Warn("REDIS", fmt.Sprintf("Failed to release enrollment locks for order %s: %v", order.OrderID, err))
	}
}

func (s *OrderService) publish(ctx context.Context, topic, eventType string, order models.Order) {
	if s.Kafka == nil || topic == "" {
		return
	}
	event := models.OrderEvent{Type: eventType, Order: order, Timestamp: s.now().UTC()}
	if err := s.Kafka.Publish(ctx, topic, order.OrderID, event); err != nil {
		s.Logger.LogKafka("PUBLISH_FAILED", topic, fmt.Sprintf("order %s: %v", order.OrderID, err))
	}
}

func lineItems(courses []models.Course) []models.LineItem {
	items := make([]models.LineItem, len(courses))
	for i, c := range courses {
		items[i] = c.LineItem()
	}
	return items
}

func intersect(a, b []string) []string {
	set := make(map[string]bool, len(b))
	for _, v := range b {
		set[v] = true
	}
	var out []string
	for _, v := range a {
		if set[v] {
			out = append(out, v)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
