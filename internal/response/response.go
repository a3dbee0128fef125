package response

import (
	"github.com/gin-gonic/gin"
)

// ErrorResponse is the JSON error body written by the ops endpoints
type ErrorResponse struct {
	Error   *AppError `json:"error"`
	Message string    `json:"message,omitempty"`
}

// SendError writes an error response
func SendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   &AppError{Code: code, Message: message},
		Message: message,
	})
}

// SendSuccess writes data as the JSON body
func SendSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, data)
}
