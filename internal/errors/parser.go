package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

type ErrorInfo struct {
	Code    string
	Message string
}

// ParseError converts storage errors into a code and a message safe to show to clients.
// context names the operation, e.g. "create variant" or "delete category".
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "internal server error",
		}
	}

	errStr := err.Error()
	errStrLower := strings.ToLower(errStr)

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// postgres 23505, sqlite "UNIQUE constraint failed"
	if strings.Contains(errStrLower, "duplicate key") || strings.Contains(errStrLower, "unique constraint") {
		return parseDuplicateKeyError(errStrLower)
	}

	// postgres 23503
	if strings.Contains(errStrLower, "foreign key constraint") {
		return parseForeignKeyError(errStrLower, context)
	}

	// postgres 23502, sqlite "NOT NULL constraint failed"
	if strings.Contains(errStrLower, "not-null constraint") || strings.Contains(errStrLower, "not null constraint") {
		return ErrorInfo{
			Code:    ValidationRequired,
			Message: "a required field is missing",
		}
	}

	// postgres 23514, sqlite "CHECK constraint failed"
	if strings.Contains(errStrLower, "check constraint") {
		return parseCheckConstraintError(errStrLower)
	}

	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "an upstream service is unavailable, please retry later",
		}
	}

	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func parseDuplicateKeyError(errLower string) ErrorInfo {
	switch {
	case strings.Contains(errLower, "idx_product_attribute_values_product_value") ||
		strings.Contains(errLower, "product_attribute_values"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "value is already offered for this product"}
	case strings.Contains(errLower, "idx_attribute_values_attribute_slug") ||
		strings.Contains(errLower, "attribute_values"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "attribute value slug already exists"}
	case strings.Contains(errLower, "products"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "product slug already exists"}
	case strings.Contains(errLower, "categories"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "category slug already exists"}
	case strings.Contains(errLower, "brands"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "brand slug already exists"}
	case strings.Contains(errLower, "orders"):
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "order number collision, please retry"}
	}

	return ErrorInfo{
		Code:    ResourceAlreadyExists,
		Message: "resource already exists",
	}
}

func parseForeignKeyError(errLower string, context string) ErrorInfo {
	if strings.Contains(errLower, "still referenced") {
		if strings.Contains(strings.ToLower(context), "category") {
			return ErrorInfo{
				Code:    CategoryInUse,
				Message: "category still has products",
			}
		}
		return ErrorInfo{
			Code:    ResourceConflict,
			Message: "resource is still referenced and cannot be deleted",
		}
	}

	if strings.Contains(errLower, "category_id") {
		return ErrorInfo{Code: CategoryNotFound, Message: "category does not exist"}
	}
	if strings.Contains(errLower, "product_id") {
		return ErrorInfo{Code: ProductNotFound, Message: "product does not exist"}
	}
	if strings.Contains(errLower, "attribute_value_id") || strings.Contains(errLower, "attribute_id") {
		return ErrorInfo{Code: ResourceNotFound, Message: "attribute value does not exist"}
	}

	return ErrorInfo{
		Code:    ResourceNotFound,
		Message: "referenced resource does not exist",
	}
}

func parseCheckConstraintError(errLower string) ErrorInfo {
	if strings.Contains(errLower, "stock") {
		return ErrorInfo{
			Code:    ValidationInvalidRange,
			Message: "stock cannot be negative",
		}
	}

	return ErrorInfo{
		Code:    ValidationInvalidInput,
		Message: "invalid input",
	}
}

func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "variant"):
		return "variant not found"
	case strings.Contains(contextLower, "product"):
		return "product not found"
	case strings.Contains(contextLower, "category"):
		return "category not found"
	case strings.Contains(contextLower, "order"):
		return "order not found"
	case strings.Contains(contextLower, "coupon"):
		return "coupon not found"
	}

	return "requested resource not found"
}

func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "create") || strings.Contains(contextLower, "generate"):
		return "failed to create, please retry later"
	case strings.Contains(contextLower, "update"):
		return "failed to update, please retry later"
	case strings.Contains(contextLower, "delete"):
		return "failed to delete, please retry later"
	case strings.Contains(contextLower, "checkout"):
		return "checkout failed, please retry later"
	}

	return "internal server error, please retry later"
}
