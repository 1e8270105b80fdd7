package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/logging"
	"github.com/nekogravitycat/demo-booking-scheduler/internal/pkg/apperror"
)

// ErrorResponse defines the JSON structure for error responses.
type ErrorResponse struct {
	Success bool                  `json:"success"`
	Error   string                `json:"error"`
	Fields  []apperror.FieldError `json:"fields,omitempty"`
}

// Error sends a JSON error response.
// Validation errors and AppErrors carry their own status code.
// Anything else is logged and reported as 500 Internal Server Error.
func Error(c *gin.Context, err error) {
	var vErr *apperror.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(vErr.Status(), ErrorResponse{Error: "invalid input", Fields: vErr.Fields})
		return
	}

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		c.JSON(appErr.Code, ErrorResponse{Error: appErr.Message})
		return
	}

	logging.FromContextOrDefault(c.Request.Context()).Error("unhandled request error", "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
}

// BadRequest sends a 400 response for requests that could not be bound.
func BadRequest(c *gin.Context, message string, err error) {
	resp := gin.H{"success": false, "error": message}
	if err != nil {
		resp["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, resp)
}
