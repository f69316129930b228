package payment

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"ms-marketplace/internal/logger"
	"ms-marketplace/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

type MockIntentClient struct {
	mock.Mock
}

func (m *MockIntentClient) New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	args := m.Called(params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentIntent), args.Error(1)
}

func (m *MockIntentClient) Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error) {
	args := m.Called(id, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentIntent), args.Error(1)
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(23984), ToMinorUnits(239.84))
	assert.Equal(t, int64(29980), ToMinorUnits(299.8))
	assert.Equal(t, int64(1), ToMinorUnits(0.005))
	assert.Equal(t, int64(0), ToMinorUnits(0))
}

func TestCreatePayment(t *testing.T) {
	intents := new(MockIntentClient)
	g := NewGateway(intents, testWebhookSecret, logger.Nop())

	intents.On("New", mock.MatchedBy(func(p *stripe.PaymentIntentParams) bool {
		return *p.Amount == 23984 &&
			*p.Currency == "usd" &&
			p.Metadata["order_id"] == "ord_1" &&
			p.Metadata["course_ids"] == "go-101,k8s-201"
	})).Return(&stripe.PaymentIntent{ID: "pi_1", ClientSecret: "pi_1_secret", Status: stripe.PaymentIntentStatusRequiresPaymentMethod}, nil)

	intent, err := g.CreatePayment(models.PaymentRequest{
		OrderID:   "ord_1",
		UserID:    "user-1",
		CourseIDs: []string{"go-101", "k8s-201"},
		Amount:    239.84,
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, "pi_1_secret", intent.ClientSecret)
	intents.AssertExpectations(t)
}

func TestCreatePayment_RejectsZeroAmount(t *testing.T) {
	intents := new(MockIntentClient)
	g := NewGateway(intents, testWebhookSecret, logger.Nop())

	_, err := g.CreatePayment(models.PaymentRequest{OrderID: "ord_1", Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	intents.AssertNotCalled(t, "New", mock.Anything)
}

func TestCreatePayment_APIError(t *testing.T) {
	intents := new(MockIntentClient)
	g := NewGateway(intents, testWebhookSecret, logger.Nop())
	intents.On("New", mock.Anything).Return(nil, errors.New("card_declined"))

	_, err := g.CreatePayment(models.PaymentRequest{OrderID: "ord_1", Amount: 10})
	assert.ErrorIs(t, err, ErrStripeAPIError)
}

func TestCancelPayment(t *testing.T) {
	intents := new(MockIntentClient)
	g := NewGateway(intents, testWebhookSecret, logger.Nop())
	intents.On("Cancel", "pi_1", mock.Anything).Return(&stripe.PaymentIntent{ID: "pi_1"}, nil).Once()
	intents.On("Cancel", "pi_2", mock.Anything).Return(nil, errors.New("already succeeded")).Once()

	assert.NoError(t, g.CancelPayment("pi_1"))
	assert.ErrorIs(t, g.CancelPayment("pi_2"), ErrStripeAPIError)
}

func signedEvent(t *testing.T, eventType, intentID, orderID string) ([]byte, string) {
	t.Helper()
	payload := []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"api_version": "2020-08-27",
		"type": %q,
		"data": {"object": {"id": %q, "object": "payment_intent", "metadata": {"order_id": %q}}}
	}`, eventType, intentID, orderID))

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func TestParseWebhook(t *testing.T) {
	g := NewGateway(new(MockIntentClient), testWebhookSecret, logger.Nop())

	tests := []struct {
		eventType string
		want      models.PaymentResultType
	}{
		{"payment_intent.succeeded", models.PaymentSucceeded},
		{"payment_intent.payment_failed", models.PaymentDeclined},
		{"payment_intent.canceled", models.PaymentFailed},
		{"charge.refunded", models.PaymentIgnored},
	}
	for _, tt := range tests {
		t.Run(tt.eventType, func(t *testing.T) {
			payload, header := signedEvent(t, tt.eventType, "pi_1", "ord_1")
			result, err := g.ParseWebhook(payload, header)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Type)
			assert.Equal(t, tt.eventType, result.EventType)
			if tt.want != models.PaymentIgnored {
				assert.Equal(t, "ord_1", result.OrderID)
				assert.Equal(t, "pi_1", result.IntentID)
			}
		})
	}
}

func TestParseWebhook_BadSignature(t *testing.T) {
	g := NewGateway(new(MockIntentClient), testWebhookSecret, logger.Nop())
	payload, _ := signedEvent(t, "payment_intent.succeeded", "pi_1", "ord_1")

	_, err := g.ParseWebhook(payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestParseWebhook_IntentWithoutOrderIsIgnored(t *testing.T) {
	g := NewGateway(new(MockIntentClient), testWebhookSecret, logger.Nop())
	payload, header := signedEvent(t, "payment_intent.succeeded", "pi_other", "")

	result, err := g.ParseWebhook(payload, header)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentIgnored, result.Type)
	assert.Equal(t, "pi_other", result.IntentID)
	assert.Empty(t, result.OrderID)
}

func TestParseWebhook_MalformedData(t *testing.T) {
	g := NewGateway(new(MockIntentClient), testWebhookSecret, logger.Nop())
	payload := []byte(`{"id":"evt_2","object":"event","api_version":"2020-08-27","type":"payment_intent.succeeded","data":{"object":{"id":7,"metadata":"x"}}}`)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})

	_, err := g.ParseWebhook(signed.Payload, signed.Header)
	assert.ErrorIs(t, err, ErrMalformedEvent)
}
