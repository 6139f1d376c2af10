package handler

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// RequestValidator plugs validator/v10 into echo's c.Validate.
type RequestValidator struct {
	v *validator.Validate
}

// phonePattern accepts digits and spaces with an optional leading plus,
// e.g. "123 123 123" or "+48 600 100 200".
var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ]{5,30}[0-9]$`)

func validPhone(fl validator.FieldLevel) bool {
	return phonePattern.MatchString(fl.Field().String())
}

var (
	validatorOnce sync.Once
	validatorInst *validator.Validate
)

func NewRequestValidator() *RequestValidator {
	validatorOnce.Do(func() {
		validatorInst = validator.New(validator.WithRequiredStructEnabled())
		if err := validatorInst.RegisterValidation("phone", validPhone); err != nil {
			panic(err)
		}
	})
	return &RequestValidator{v: validatorInst}
}

// Validate reports the first failing field in a readable form.
func (rv *RequestValidator) Validate(i interface{}) error {
	err := rv.v.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "oneof":
		return fmt.Errorf("%s must be one of: %s", field, fe.Param())
	case "email":
		return fmt.Errorf("%s must be a valid email", field)
	case "min", "gte":
		return fmt.Errorf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Errorf("%s must be at most %s", field, fe.Param())
	case "phone":
		return fmt.Errorf("%s must be 7 to 32 digits or spaces, optionally starting with +", field)
	}
	return fmt.Errorf("%s is invalid", field)
}
