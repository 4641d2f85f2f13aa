package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/romkit/rom/internal/errs"
)

// Response is the standard envelope every endpoint replies with.
type Response struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// SuccessResponse sends a success response
func SuccessResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusOK, &Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// CreatedResponse sends a 201 created response
func CreatedResponse(c *gin.Context, message string, data interface{}) {
	c.JSON(http.StatusCreated, &Response{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// ErrorResponse sends an error response
func ErrorResponse(c *gin.Context, code int, message string) {
	c.JSON(code, &Response{
		Success: false,
		Message: message,
	})
}

// BadRequestError sends a 400 error
func BadRequestError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusBadRequest, message)
}

// NotFoundError sends a 404 error
func NotFoundError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusNotFound, message)
}

// ConflictError sends a 409 error, used for unique-constraint violations
// and data-race detections (spec.md §7's recoverable error kinds).
func ConflictError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusConflict, message)
}

// UnauthorizedError sends a 401 error.
func UnauthorizedError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusUnauthorized, message)
}

// TooManyRequestsError sends a 429 error.
func TooManyRequestsError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusTooManyRequests, message)
}

// PayloadTooLargeError sends a 413 error.
func PayloadTooLargeError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusRequestEntityTooLarge, message)
}

// InternalError sends a 500 error
func InternalError(c *gin.Context, message string) {
	ErrorResponse(c, http.StatusInternalServerError, message)
}

// WriteError inspects err for the recoverable error kinds spec.md §7
// names and maps each to the matching HTTP status, falling back to 500
// for everything else (connectivity errors propagate unwrapped, per the
// spec, so they land here too).
func WriteError(c *gin.Context, err error) {
	var unique *errs.UniqueError
	var race *errs.DataRaceError
	var query *errs.QueryError
	var invalidCol *errs.InvalidColumnError
	var missingCol *errs.MissingColumnError
	var restrict *errs.RestrictError
	switch {
	case errors.As(err, &unique):
		ConflictError(c, err.Error())
	case errors.As(err, &race):
		ConflictError(c, err.Error())
	case errors.As(err, &query), errors.As(err, &invalidCol), errors.As(err, &missingCol):
		BadRequestError(c, err.Error())
	case errors.As(err, &restrict):
		ErrorResponse(c, http.StatusUnprocessableEntity, err.Error())
	default:
		InternalError(c, err.Error())
	}
}
