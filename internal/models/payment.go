package models

// PaymentRequest is what the checkout hands to the payment gateway.
type PaymentRequest struct {
	OrderID   string
	UserID    string
	CourseIDs []string
	Amount    float64
	Currency  string
}

type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type PaymentResultType string

const (
	PaymentSucceeded PaymentResultType = "succeeded"
	// PaymentDeclined is one failed attempt. The intent stays open and the
	// customer may retry it.
	PaymentDeclined PaymentResultType = "declined"
	// PaymentFailed means the intent is closed and can never succeed.
	PaymentFailed  PaymentResultType = "failed"
	PaymentIgnored PaymentResultType = "ignored"
)

// PaymentResult is a verified gateway callback.
type PaymentResult struct {
	Type      PaymentResultType
	OrderID   string
	IntentID  string
	EventType string
}
