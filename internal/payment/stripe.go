package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

var (
	ErrStripeAPIError         = errors.New("stripe API error")
	ErrStripeClientInitFailed = errors.New("failed to initialize Stripe client")
	ErrInvalidAmount          = errors.New("invalid payment amount")
	ErrInvalidSignature       = errors.New("invalid webhook signature")
	ErrMalformedEvent         = errors.New("malformed webhook event")
)

// IntentClient is the part of the Stripe payment intent API the gateway uses.
type IntentClient interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
}

// StripeGateway creates and cancels payment intents for orders and
// verifies Stripe webhooks.
type StripeGateway struct {
	intents       IntentClient
	webhookSecret string
	log           *logger.Logger
}

// NewStripeGateway creates a gateway backed by the Stripe API.
func NewStripeGateway(secretKey, webhookSecret string, log *logger.Logger) (*StripeGateway, error) {
	if secretKey == "" {
		log.Error("STRIPE", "STRIPE_SECRET_KEY environment variable not set")
		return nil, ErrStripeClientInitFailed
	}

	sc := client.New(secretKey, nil)
	if sc == nil {
		log.Error("STRIPE", "Failed to initialize Stripe client")
		return nil, ErrStripeClientInitFailed
	}

	log.Info("STRIPE", "Stripe client initialized successfully")
	return NewGateway(sc.PaymentIntents, webhookSecret, log), nil
}

// NewGateway wires a gateway around any intent client.
func NewGateway(intents IntentClient, webhookSecret string, log *logger.Logger) *StripeGateway {
	return &StripeGateway{intents: intents, webhookSecret: webhookSecret, log: log}
}

// ToMinorUnits converts an amount to cents.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreatePayment opens a payment intent for the order total.
func (g *StripeGateway) CreatePayment(req models.PaymentRequest) (*models.PaymentIntent, error) {
	amount := ToMinorUnits(req.Amount)
	if amount <= 0 {
		return nil, fmt.Errorf("%w: %.2f", ErrInvalidAmount, req.Amount)
	}

	currency := req.Currency
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		Metadata: map[string]string{
			"order_id":   req.OrderID,
			"user_id":    req.UserID,
			"course_ids": strings.Join(req.CourseIDs, ","),
		},
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}

	pi, err := g.intents.New(params)
	if err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to create payment intent for order %s: %v", req.OrderID, err))
		return nil, fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}
	g.log.Info("STRIPE", fmt.Sprintf("Payment intent %s created for order %s (%d %s)", pi.ID, req.OrderID, amount, currency))

	return &models.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}, nil
}

// CancelPayment abandons a payment intent.
func (g *StripeGateway) CancelPayment(intentID string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	if _, err := g.intents.Cancel(intentID, params); err != nil {
		g.log.Error("STRIPE", fmt.Sprintf("Failed to cancel payment intent %s: %v", intentID, err))
		return fmt.Errorf("%w: %v", ErrStripeAPIError, err)
	}
	g.log.Info("STRIPE", fmt.Sprintf("Payment intent %s cancelled", intentID))
	return nil
}

// ParseWebhook verifies a Stripe webhook and maps it to a payment result.
// Event types the checkout does not act on, and intents not created for an
// order, come back as PaymentIgnored.
func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*models.PaymentResult, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		g.log.LogSecurity("WEBHOOK_REJECTED", fmt.Sprintf("Stripe signature verification failed: %v", err))
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	result := &models.PaymentResult{Type: models.PaymentIgnored, EventType: string(event.Type)}
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		result.Type = models.PaymentSucceeded
	case stripe.EventTypePaymentIntentPaymentFailed:
		result.Type = models.PaymentDeclined
	case stripe.EventTypePaymentIntentCanceled:
		result.Type = models.PaymentFailed
	default:
		return result, nil
	}

	if event.Data == nil {
		return nil, fmt.Errorf("%w: %s has no data", ErrMalformedEvent, event.Type)
	}
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	result.IntentID = pi.ID
	result.OrderID = pi.Metadata["order_id"]
	if result.OrderID == "" {
		g.log.Warn("STRIPE", fmt.Sprintf("Webhook %s for payment intent %s without order_id, ignoring", event.Type, pi.ID))
		result.Type = models.PaymentIgnored
		return result, nil
	}

	g.log.Info("STRIPE", fmt.Sprintf("Webhook %s for order %s", event.Type, result.OrderID))
	return result, nil
}
