package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses. Every guard
// failure in the lifecycle controller surfaces as one of these; callers
// inspect Code to decide whether a retry can ever succeed.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Account setup (ACC) ----

func ErrAlreadyInitialized() *AppError {
	return New("ACC_001", "Account already initialized", http.StatusConflict)
}

func ErrNotInitialized() *AppError {
	return New("ACC_002", "Account not initialized", http.StatusNotFound)
}

func ErrInvalidExpiry() *AppError {
	return New("ACC_003", "Expiry must be in the future", http.StatusBadRequest)
}

func ErrInvalidDestination(reason string) *AppError {
	return New("ACC_004", fmt.Sprintf("Invalid destination: %s", reason), http.StatusBadRequest)
}

// ---- Payment recording (PAY) ----

func ErrPaymentAlreadyReceived() *AppError {
	return New("PAY_001", "Payment already received", http.StatusConflict)
}

func ErrInvalidAmount() *AppError {
	return New("PAY_002", "Amount must be positive", http.StatusBadRequest)
}

func ErrNoPaymentReceived() *AppError {
	return New("PAY_003", "No payment received", http.StatusConflict)
}

// ---- Sweep / expiry state (SWP) ----

func ErrUnauthorized() *AppError {
	return New("SWP_001", "Authorization proof missing or invalid", http.StatusUnauthorized)
}

func ErrAlreadySwept() *AppError {
	return New("SWP_002", "Account already swept", http.StatusConflict)
}

func ErrAccountExpired() *AppError {
	return New("SWP_003", "Account expired, use the expire path", http.StatusGone)
}

func ErrNotExpired() *AppError {
	return New("SWP_004", "Account has not expired yet", http.StatusConflict)
}

func ErrInvalidStatus() *AppError {
	return New("SWP_005", "Account is in a terminal state", http.StatusConflict)
}

// ---- Request authentication (SEC) ----

func ErrInvalidAccessKey() *AppError {
	return New("SEC_001", "Invalid access key", http.StatusUnauthorized)
}

func ErrInvalidSignature() *AppError {
	return New("SEC_002", "Invalid signature", http.StatusUnauthorized)
}

func ErrTimestampExpired() *AppError {
	return New("SEC_003", "Request timestamp expired", http.StatusForbidden)
}

func ErrNonceUsed() *AppError {
	return New("SEC_004", "Nonce has already been used", http.StatusForbidden)
}

// ---- Client authentication (AUTH) ----

func ErrInvalidCredentials() *AppError {
	return New("AUTH_001", "Invalid credentials", http.StatusUnauthorized)
}

func ErrInvalidToken() *AppError {
	return New("AUTH_002", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrClientSuspended() *AppError {
	return New("AUTH_003", "API client is suspended", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a request validation error.
func Validation(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest)
}
