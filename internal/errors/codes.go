package errors

// Error codes returned in the "error" field of every failure body.
// Format: CATEGORY_SPECIFIC_DETAIL

const (
	// auth
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"

	// validation
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT"

	// resources
	ResourceNotFound = "RESOURCE_NOT_FOUND"

	// cart
	CartProductNotFound = "CART_PRODUCT_NOT_FOUND"

	// internal
	InternalServerError = "INTERNAL_SERVER_ERROR"
)
