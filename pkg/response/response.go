package response

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Envelope is the wire format for every boundary response
type Envelope struct {
	Success          bool        `json:"success"`
	Data             interface{} `json:"data,omitempty"`
	Error            string      `json:"error,omitempty"`
	Code             string      `json:"code,omitempty"`
	ErrorID          string      `json:"error_id"`
	Timestamp        string      `json:"timestamp"`
	ProcessingTimeMS int64       `json:"processing_time_ms,omitempty"`
}

func envelope() Envelope {
	return Envelope{
		ErrorID:   uuid.New().String(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// Success writes a 2xx envelope with data
func Success(c *gin.Context, status int, data interface{}, elapsed time.Duration) {
	e := envelope()
	e.Success = true
	e.Data = data
	e.ProcessingTimeMS = elapsed.Milliseconds()
	c.JSON(status, e)
}

// Reject writes a non-2xx envelope carrying a stable code and data payload.
// Used for business rejections where the decision detail still matters.
func Reject(c *gin.Context, status int, code, message string, data interface{}, elapsed time.Duration) {
	e := envelope()
	e.Code = code
	e.Error = message
	e.Data = data
	e.ProcessingTimeMS = elapsed.Milliseconds()
	c.JSON(status, e)
}

// Error writes an error envelope without payload
func Error(c *gin.Context, status int, code, message string) {
	e := envelope()
	e.Code = code
	e.Error = message
	c.JSON(status, e)
}

// AbortError writes an error envelope and aborts the middleware chain
func AbortError(c *gin.Context, status int, code, message string) {
	e := envelope()
	e.Code = code
	e.Error = message
	c.AbortWithStatusJSON(status, e)
}
