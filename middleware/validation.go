package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/creatorly/publisher/common"
)

var validate = newValidator()

// newValidator keys validation errors by the json tag so clients see the
// field names they actually sent.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Bind decodes the JSON body into dest and runs struct validation. On any
// failure it records an APIError on the gin context and returns false; the
// caller just returns.
func Bind[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.Error(common.Errf(http.StatusBadRequest, "invalid json: %v", err.Error()))
		return false
	}

	if err := validate.Struct(dest); err != nil {
		c.Error(common.APIError{
			Status:  http.StatusBadRequest,
			Message: "validation failed",
			Fields:  fieldErrors(err),
		})
		return false
	}

	return true
}

func fieldErrors(err error) map[string]any {
	fields := map[string]any{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["_"] = err.Error()
		return fields
	}
	for _, e := range verrs {
		fields[e.Field()] = "failed " + e.Tag()
	}
	return fields
}
