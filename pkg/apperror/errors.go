package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses. Details carries
// machine-readable context (current high bid, shortfall, ...) so callers can
// build an actionable message without re-querying.
type AppError struct {
	Code       string         `json:"error_code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	HTTPStatus int            `json:"-"`
	Err        error          `json:"-"` // Wrapped internal error (not exposed to client)
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

// WithDetails attaches structured context to the error.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
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

// ---- Auction Business Logic (AUC) ----

func ErrAuctionNotFound() *AppError {
	return New("AUC_001", "Auction not found", http.StatusNotFound)
}

func ErrAuctionEnded() *AppError {
	return New("AUC_002", "Auction has already ended", http.StatusConflict)
}

// ErrBidTooLow reports the current high bid and the minimum acceptable amount.
func ErrBidTooLow(currentHigh, minAcceptable int64) *AppError {
	return New("AUC_003", "Bid below minimum acceptable amount", http.StatusUnprocessableEntity).
		WithDetails(map[string]any{
			"current_high_bid": currentHigh,
			"min_acceptable":   minAcceptable,
		})
}

func ErrSelfBidForbidden() *AppError {
	return New("AUC_004", "Sellers cannot bid on their own auction", http.StatusForbidden)
}

func ErrAlreadyHighBidder() *AppError {
	return New("AUC_005", "Already the current high bidder", http.StatusConflict)
}

func ErrInvalidState(reason string) *AppError {
	return New("AUC_006", reason, http.StatusConflict)
}

func ErrConcurrencyConflict() *AppError {
	return New("AUC_007", "Auction was modified concurrently, please retry", http.StatusConflict)
}

func ErrInvalidPrice(reason string) *AppError {
	return New("AUC_008", reason, http.StatusBadRequest)
}

func ErrNoBuyout() *AppError {
	return New("AUC_009", "Auction has no buyout price", http.StatusUnprocessableEntity)
}

// ---- Wallet Ledger (WAL) ----

// ErrInsufficientFunds reports the balance shortfall.
func ErrInsufficientFunds(balance, required int64) *AppError {
	return New("WAL_001", "Insufficient wallet balance", http.StatusPaymentRequired).
		WithDetails(map[string]any{
			"balance":   balance,
			"required":  required,
			"shortfall": required - balance,
		})
}

func ErrAccountNotFound() *AppError {
	return New("WAL_002", "Wallet account not found", http.StatusNotFound)
}

func ErrInvalidAmount() *AppError {
	return New("WAL_003", "Invalid amount", http.StatusBadRequest)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrForbidden() *AppError {
	return New("AUTH_002", "Not permitted to perform this action", http.StatusForbidden)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Rate limit exceeded", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

// Validation returns a WAL_003-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("WAL_003", message, http.StatusBadRequest)
}
