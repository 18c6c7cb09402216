package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks input that failed a presence or shape check.
	ErrValidation = errors.New("validation failed")
	// ErrDuplicate marks a unique business key collision.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrProductNotFound indicates an order referenced an unknown product name.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock indicates a stock change would drop below zero.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// ValidationError describes a rejected field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s is invalid", e.Field)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Validation builds a ValidationError.
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// DuplicateKeyError reports which business key already exists.
type DuplicateKeyError struct {
	Field   string
	Message string
}

func (e *DuplicateKeyError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s already exists", e.Field)
	}
	return e.Message
}

func (e *DuplicateKeyError) Unwrap() error { return ErrDuplicate }

// NotFoundError names the missing entity.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// NotFound builds a NotFoundError.
func NotFound(entity string, key any) error {
	return &NotFoundError{Entity: entity, Key: fmt.Sprint(key)}
}

// ProductNotFoundError is raised when an order line names an unknown product.
type ProductNotFoundError struct {
	ProductName string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %q not found", e.ProductName)
}

func (e *ProductNotFoundError) Unwrap() error { return ErrProductNotFound }

// InsufficientStockError carries the stock seen under lock and the quantity asked for.
type InsufficientStockError struct {
	ProductName string
	Available   int64
	Required    int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: available %d, required %d", e.ProductName, e.Available, e.Required)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// IsUserError reports whether err carries a message meant for the caller.
func IsUserError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrDuplicate) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrInsufficientStock)
}

var duplicateMessages = map[string]DuplicateKeyError{
	"orders_order_id_key":      {Field: "orderId", Message: "order id already exists"},
	"customers_phone_key":      {Field: "phone", Message: "phone already exists"},
	"products_name_key":        {Field: "name", Message: "product name already exists"},
	"channels_name_key":        {Field: "name", Message: "channel already exists"},
	"contact_methods_name_key": {Field: "name", Message: "contact method already exists"},
}

// DuplicateKey translates a unique constraint name into a DuplicateKeyError.
func DuplicateKey(constraint string) *DuplicateKeyError {
	if known, ok := duplicateMessages[constraint]; ok {
		return &known
	}
	return &DuplicateKeyError{Field: constraint, Message: "duplicate entry"}
}
