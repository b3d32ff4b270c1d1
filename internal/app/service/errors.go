package service

import (
	"errors"
	"fmt"
)

// Error kinds. Every service error wraps exactly one of these so callers can
// branch with errors.Is without knowing the specific failure.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrIntegrity  = errors.New("integrity violation")
)

var (
	ErrProductNotFound  = fmt.Errorf("%w: product not found", ErrNotFound)
	ErrVariantNotFound  = fmt.Errorf("%w: variant not found", ErrNotFound)
	ErrCategoryNotFound = fmt.Errorf("%w: category not found", ErrNotFound)
	ErrOrderNotFound    = fmt.Errorf("%w: order not found", ErrNotFound)

	ErrInvalidFilter       = fmt.Errorf("%w: invalid catalog filter", ErrValidation)
	ErrEmptyCart           = fmt.Errorf("%w: cart is empty", ErrValidation)
	ErrInvalidQuantity     = fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	ErrInvalidContact      = fmt.Errorf("%w: invalid contact details", ErrValidation)
	ErrInvalidShipping     = fmt.Errorf("%w: invalid shipping method", ErrValidation)
	ErrInvalidPayment      = fmt.Errorf("%w: invalid payment method", ErrValidation)
	ErrInvalidPrice        = fmt.Errorf("%w: old price must not be below price", ErrValidation)
	ErrInvalidStock        = fmt.Errorf("%w: stock cannot be negative", ErrValidation)
	ErrInvalidValueSet     = fmt.Errorf("%w: variant must carry one value per participating attribute", ErrValidation)
	ErrTooManyCombinations = fmt.Errorf("%w: too many variant combinations", ErrValidation)
	ErrCategoryCycle       = fmt.Errorf("%w: category parent would create a cycle", ErrValidation)
	ErrInvalidStatus       = fmt.Errorf("%w: invalid order status", ErrValidation)
	ErrVariantRequired     = fmt.Errorf("%w: product has variants, a variant must be selected", ErrValidation)

	ErrInsufficientStock   = fmt.Errorf("%w: insufficient stock", ErrConflict)
	ErrDuplicateVariant    = fmt.Errorf("%w: variant with this value set already exists", ErrConflict)
	ErrOrderNotCancellable = fmt.Errorf("%w: order can no longer be cancelled", ErrConflict)
	ErrInvalidTransition   = fmt.Errorf("%w: order status cannot move backwards", ErrConflict)

	ErrCategoryInUse = fmt.Errorf("%w: category still has products", ErrIntegrity)
	ErrNegativeTotal = fmt.Errorf("%w: order total would be negative", ErrIntegrity)
)
