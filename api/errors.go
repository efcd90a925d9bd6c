package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

// writeError maps domain errors onto status codes. Anything unrecognised is logged and
// answered with a generic 500 so internals never reach the client.
func writeError(c *gin.Context, log logrus.FieldLogger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
		_ = c.Error(err)
		c.AbortWithStatusJSON(status, gin.H{"message": "internal server error"})
		return
	}
	c.AbortWithStatusJSON(status, gin.H{"message": err.Error()})
}

func statusFor(err error) int {
	switch {
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case domain.IsValidation(err), domain.IsConflict(err):
		return http.StatusBadRequest
	case domain.IsForbidden(err):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// bindError turns a gin binding failure into a ValidationError naming the first bad field.
func bindError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.ValidationError{Field: fieldPath(fe), Msg: tagMessage(fe), Err: err}
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return domain.ValidationError{Field: typeErr.Field, Msg: fmt.Sprintf("must be a %s", typeErr.Type), Err: err}
	}
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return domain.ValidationError{Msg: "request body is not valid JSON", Err: err}
	}
	return domain.ValidationError{Msg: err.Error(), Err: err}
}

// fieldPath drops the top-level struct name, and the embedded page query, from the
// validator namespace.
func fieldPath(fe validator.FieldError) string {
	_, path, ok := strings.Cut(fe.Namespace(), ".")
	if !ok {
		return fe.Field()
	}
	return strings.TrimPrefix(path, "pageQuery.")
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must have at least %s item(s)", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "email":
		return "must be a valid email address"
	case "len":
		return fmt.Sprintf("must be %s characters long", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	case "isodate":
		return "must be a date in YYYY-MM-DD format"
	case "bookingstatus":
		return "must be a valid booking status"
	default:
		return fmt.Sprintf("failed the %s check", fe.Tag())
	}
}
