package apperrors

// Structured codes sent by the auth backend. They replace matching on the
// words "blocked" and "google" inside free-form error messages.
const (
	CodeAccountBlocked = "account_blocked"
	CodeOAuthAccount   = "oauth_account"
	CodeInvalidOTP     = "invalid_otp"
	CodeOTPExpired     = "otp_expired"
)

// BackendError is the error body returned by collaborating services.
type BackendError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// FromCode turns a backend error body into a typed error. Unknown codes are
// reported as upstream failures.
func FromCode(body BackendError) *Error {
	message := body.Message
	switch body.Code {
	case CodeAccountBlocked:
		if message == "" {
			message = "This account has been blocked"
		}
		return &Error{Kind: KindBlocked, Code: body.Code, Message: message}
	case CodeOAuthAccount:
		if message == "" {
			message = "This account signs in with an external provider"
		}
		return &Error{Kind: KindBlocked, Code: body.Code, Message: message}
	case CodeInvalidOTP, CodeOTPExpired:
		return Validation(body.Code, message)
	case "":
		return Upstream("upstream_error", "Upstream service error", nil)
	default:
		if message == "" {
			message = "Upstream service error"
		}
		return &Error{Kind: KindUpstream, Code: body.Code, Message: message}
	}
}
