package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeTransport represents network and HTTP failures
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeNotFound represents a selector that matched nothing
	ErrorTypeNotFound ErrorType = "not_found"
	// ErrorTypeUnparseablePrice represents price text of an unknown shape
	ErrorTypeUnparseablePrice ErrorType = "unparseable_price"
	// ErrorTypeInvalidURL represents a URL that fails the variant pattern
	ErrorTypeInvalidURL ErrorType = "invalid_url"
	// ErrorTypeStorage represents repository failures
	ErrorTypeStorage ErrorType = "storage"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// Sentinels for errors.Is checks against a TrackerError of the same type.
var (
	ErrTransport        = &TrackerError{Type: ErrorTypeTransport}
	ErrSelectorNotFound = &TrackerError{Type: ErrorTypeNotFound}
	ErrUnparseablePrice = &TrackerError{Type: ErrorTypeUnparseablePrice}
	ErrInvalidURL       = &TrackerError{Type: ErrorTypeInvalidURL}
)

// User-facing conditions. These are not system faults.
var (
	ErrAlreadySubscribed = errors.New("already subscribed")
	ErrNotSubscribed     = errors.New("not subscribed")
	ErrWishlistNotFound  = errors.New("wishlist not found")
	ErrProductNotFound   = errors.New("product not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrSubscriptionLimit = errors.New("subscription limit reached")
)

// TrackerError represents a pipeline error for a single tracked item
type TrackerError struct {
	Type    ErrorType
	Item    string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *TrackerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Item, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Item, e.Message)
}

// Unwrap returns the underlying error
func (e *TrackerError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a TrackerError of the same type.
func (e *TrackerError) Is(target error) bool {
	t, ok := target.(*TrackerError)
	if !ok {
		return false
	}
	return t.Type == e.Type
}

// IsRetryable returns true if the error is retryable
func (e *TrackerError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeTransport:
		return true
	default:
		return false
	}
}

// TypeOf returns the ErrorType carried by err, or "" if err is not a TrackerError.
func TypeOf(err error) ErrorType {
	var te *TrackerError
	if errors.As(err, &te) {
		return te.Type
	}
	return ""
}

// New creates a new TrackerError
func New(errType ErrorType, item, message string, err error) *TrackerError {
	return &TrackerError{
		Type:    errType,
		Item:    item,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewTransport creates a new transport error
func NewTransport(item, message string, err error) *TrackerError {
	return New(ErrorTypeTransport, item, message, err)
}

// NewNotFound creates a new selector miss error
func NewNotFound(item, selector string) *TrackerError {
	return New(ErrorTypeNotFound, item, fmt.Sprintf("selector %q matched nothing", selector), nil)
}

// NewUnparseablePrice creates a new unparseable price error
func NewUnparseablePrice(item, raw string) *TrackerError {
	return New(ErrorTypeUnparseablePrice, item, fmt.Sprintf("cannot parse price %q", raw), nil)
}

// NewInvalidURL creates a new invalid URL error
func NewInvalidURL(url string) *TrackerError {
	return New(ErrorTypeInvalidURL, url, "url does not match any known pattern", nil)
}

// NewStorage creates a new storage error
func NewStorage(item, message string, err error) *TrackerError {
	return New(ErrorTypeStorage, item, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(item, message string, err error) *TrackerError {
	return New(ErrorTypePublisher, item, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *TrackerError {
	return New(ErrorTypeConfiguration, "", message, err)
}
