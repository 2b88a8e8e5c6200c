package services

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var priceRe = regexp.MustCompile(`^\d{1,3}(\.\d{1,2})?$`)

// validate ist die gemeinsame Validator-Instanz der Services. Feldnamen in
// Fehlern entsprechen den JSON-Namen.
var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	// price: Dezimalzahl mit höchstens 3 Vor- und 2 Nachkommastellen
	_ = v.RegisterValidation("price", func(fl validator.FieldLevel) bool {
		return priceRe.MatchString(fl.Field().String())
	})
	return v
}()

// formatValidationError übersetzt validator.ValidationErrors in einen
// *ValidationError für das erste fehlerhafte Feld. field ersetzt den
// Feldnamen, wenn einzelne Werte per validate.Var geprüft werden.
func formatValidationError(err error, field string) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) || len(validationErrs) == 0 {
		return err
	}

	e := validationErrs[0]
	if field == "" {
		field = e.Field()
	}
	switch e.Tag() {
	case "required":
		if e.Kind() == reflect.String {
			return invalid(field, "This field may not be blank.")
		}
		return invalid(field, "This field is required.")
	case "email":
		return invalid(field, "Enter a valid email address.")
	case "min":
		return invalid(field, fmt.Sprintf("Ensure this field has at least %s characters.", e.Param()))
	case "max":
		return invalid(field, fmt.Sprintf("Ensure this field has no more than %s characters.", e.Param()))
	case "gte":
		return invalid(field, fmt.Sprintf("Ensure this value is greater than or equal to %s.", e.Param()))
	case "price":
		return invalid(field, "A valid number with at most 3 digits before and 2 after the decimal point is required.")
	}
	return invalid(field, "This field is invalid.")
}
