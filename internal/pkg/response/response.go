package response

import "github.com/gin-gonic/gin"

// RequestIDKey is the gin context key the request id middleware fills in.
// Error envelopes echo it so a customer report can be matched to a log line.
const RequestIDKey = "request_id"

func Success(c *gin.Context, statusCode int, data any) {
	c.JSON(statusCode, gin.H{
		"success": true,
		"data":    data,
	})
}

func Error(c *gin.Context, statusCode int, code string, message string) {
	ErrorWithDetails(c, statusCode, code, message, nil)
}

func ErrorWithDetails(c *gin.Context, statusCode int, code string, message string, details any) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	env := gin.H{"success": false, "error": body}
	if id := c.GetString(RequestIDKey); id != "" {
		env["request_id"] = id
	}
	c.JSON(statusCode, env)
}
