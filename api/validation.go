package api

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const dateLayout = "2006-01-02"

var registerOnce sync.Once

// RegisterValidators installs the custom binding tags on gin's validator and makes
// error field names follow the json/form tags. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(tagName)
		_ = v.RegisterValidation("isodate", isISODate)
		_ = v.RegisterValidation("bookingstatus", isBookingStatus)
	})
}

func tagName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name := strings.SplitN(f.Tag.Get(key), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

func isISODate(fl validator.FieldLevel) bool {
	_, err := time.Parse(dateLayout, fl.Field().String())
	return err == nil
}

func isBookingStatus(fl validator.FieldLevel) bool {
	return domain.BookingStatus(fl.Field().String()).IsValid()
}

// parseDate parses a value already checked by the isodate tag. Empty means unset.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil
	}
	return &t
}
