package validation

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// MaxBodyBytes caps the request body accepted by BindJSON.
const MaxBodyBytes = 64 << 10

// BindJSON decodes the JSON body into out. Field rules are not applied here;
// the intake service owns validation so every violation is reported at once.
// On a malformed body it writes a 400 and returns the error so the handler
// can short-circuit.
func BindJSON(c *gin.Context, out interface{}) error {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxBodyBytes)
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "Request body must be a JSON booking",
		})
		return err
	}
	return nil
}

// ErrorsToMap flattens field errors for logs.
func ErrorsToMap(errs []FieldError) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		out[fe.Field] = string(fe.Reason)
	}
	return out
}
