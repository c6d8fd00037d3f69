package middleware

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"snapfix-server/catalog"
	"snapfix-server/utils"
)

// RegisterValidators adds the pincode, phone10 and category tags to gin's
// validator so request structs can use them in binding tags.
func RegisterValidators(cat *catalog.Catalog) error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin validator engine is not validator/v10")
	}
	return registerOn(v, cat)
}

func registerOn(v *validator.Validate, cat *catalog.Catalog) error {
	if err := v.RegisterValidation("pincode", func(fl validator.FieldLevel) bool {
		return utils.ValidatePincode(fl.Field().String())
	}); err != nil {
		return err
	}
	if err := v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return utils.ValidatePhoneNumber(fl.Field().String())
	}); err != nil {
		return err
	}
	return v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return cat.IsCategory(fl.Field().String())
	})
}

// ValidationMessage renders a binding error as a single client-facing sentence.
func ValidationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body"
	}
	fe := verrs[0]
	field := lowerFirst(fe.Field())
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "pincode":
		return "Invalid pincode. Must be 6 digits."
	case "phone10":
		return "Please provide a valid 10-digit phone number"
	case "category":
		return fmt.Sprintf("%s is not a known service category", field)
	case "min", "max", "gte", "lte":
		return fmt.Sprintf("%s must satisfy %s=%s", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
