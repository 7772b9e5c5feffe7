package middleware

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/creatorly/publisher/common"
)

// ErrorHandler turns the last error attached to the context into the JSON
// response. APIErrors keep their status; anything else is a 500 and gets
// logged, since it was never meant to reach a client verbatim.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		var apiErr common.APIError
		if errors.As(err, &apiErr) {
			c.JSON(apiErr.Status, apiErr)
			return
		}

		log.Printf("unhandled error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
		c.JSON(http.StatusInternalServerError, common.APIError{Message: "internal server error"})
	}
}
