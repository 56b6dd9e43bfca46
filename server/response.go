package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"unicode"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/logger"
)

// RespondWithError writes err as {"error": "..."}. AppErrors carry their own
// status; binding failures become 400; anything else is a logged 500.
func RespondWithError(c *gin.Context, log *logger.Logger, err error) {
	appErr := Translate(err)
	if appErr.HTTPStatus >= http.StatusInternalServerError {
		log.WithContext(c.Request.Context()).Error("Request failed", logger.Fields(
			logger.FieldMethod, c.Request.Method,
			logger.FieldPath, c.FullPath(),
			logger.FieldError, err.Error(),
		))
	}
	c.AbortWithStatusJSON(appErr.HTTPStatus, appErr.ToResponse())
}

// Translate maps err to the AppError sent to clients.
func Translate(err error) *apperrors.AppError {
	if appErr, ok := apperrors.AsAppError(err); ok {
		return appErr
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation(validationMessage(verrs))
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return apperrors.Validation(fmt.Sprintf("request body exceeds %d bytes", maxBytes.Limit))
	}
	return apperrors.Internal(err)
}

func validationMessage(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := snakeCase(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s%s", field, fe.Param(), unit(fe.Kind())))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s%s", field, fe.Param(), unit(fe.Kind())))
		case "alphanumunicode":
			msgs = append(msgs, field+" must contain only letters and digits")
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", field, fe.Tag()))
		}
	}
	return strings.Join(msgs, "; ")
}

// unit names what min and max count for a field kind; numbers get none.
func unit(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return " items"
	default:
		return ""
	}
}

// snakeCase turns a Go field name such as PerPage into per_page.
func snakeCase(name string) string {
	var b strings.Builder
	rs := []rune(name)
	for i, r := range rs {
		if unicode.IsUpper(r) {
			if i > 0 && (unicode.IsLower(rs[i-1]) || (i+1 < len(rs) && unicode.IsLower(rs[i+1]))) {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
