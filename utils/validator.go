package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		// 跟前端同一條規則，不用 validator 內建 email（太嚴）
		_ = validate.RegisterValidation("emailaddr", func(fl validator.FieldLevel) bool {
			return emailPattern.MatchString(fl.Field().String())
		})
	})
	return validate
}

// ValidEmail reports whether s looks like an address the portal accepts.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// Rule maps a failed tag (optionally "field.tag") to the message shown to the user.
type Rule struct {
	Tag     string
	Message string
}

// Validate checks obj's `validate` tags. Rules are tried in order, so the
// first rule whose tag failed decides the message.
func Validate(obj any, rules ...Rule) error {
	err := validatorInstance().Struct(obj)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Internal("Validation failed", err)
	}
	for _, r := range rules {
		for _, fe := range verrs {
			if r.Tag == fe.Tag() || r.Tag == fe.Field()+"."+fe.Tag() {
				return Validation(r.Message)
			}
		}
	}
	fe := verrs[0]
	return Validation(fmt.Sprintf("Field '%s' failed on the '%s' rule", fe.Field(), fe.Tag()))
}
