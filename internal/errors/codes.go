package errors

// Error codes returned in the "error" field of every failed response.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map these to localized text.

const (
	// auth
	AuthUnauthorized = "AUTH_UNAUTHORIZED"
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid = "AUTH_TOKEN_INVALID"

	// authorization
	AuthzForbidden = "AUTHZ_FORBIDDEN"
	AuthzAdminOnly = "AUTHZ_ADMIN_ONLY"

	// validation
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID    = "VALIDATION_INVALID_ID"
	ValidationInvalidRange = "VALIDATION_INVALID_RANGE"
	ValidationRequired     = "VALIDATION_REQUIRED"

	// generic resources
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// catalog
	CatalogInvalidFilter   = "CATALOG_INVALID_FILTER"
	CategoryNotFound       = "CATEGORY_NOT_FOUND"
	CategoryInUse          = "CATEGORY_IN_USE"
	ProductNotFound        = "PRODUCT_NOT_FOUND"
	VariantNotFound        = "VARIANT_NOT_FOUND"
	VariantDuplicate       = "VARIANT_DUPLICATE"
	VariantTooMany         = "VARIANT_TOO_MANY_COMBINATIONS"
	VariantInvalidValueSet = "VARIANT_INVALID_VALUE_SET"

	// orders
	OrderNotFound          = "ORDER_NOT_FOUND"
	OrderInsufficientStock = "ORDER_INSUFFICIENT_STOCK"
	OrderVariantRequired   = "ORDER_VARIANT_REQUIRED"
	OrderNotCancellable    = "ORDER_NOT_CANCELLABLE"
	OrderInvalidTransition = "ORDER_INVALID_TRANSITION"
	CouponNotApplicable    = "COUPON_NOT_APPLICABLE"

	// reports
	ReportExportFailed = "REPORT_EXPORT_FAILED"

	// internal
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalIntegrity     = "INTERNAL_INTEGRITY_VIOLATION"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
)
