package request

import (
	"roombook/internal/pkg/dates"
	"roombook/internal/pkg/errs"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// RegisterValidations adds the custom tags used by the request DTOs to gin's
// binding validator. Safe to call more than once.
func RegisterValidations() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errs.New("gin binding engine is not a validator.Validate")
	}
	if err := v.RegisterValidation("stay_date", validateStayDate); err != nil {
		return errs.Wrap(err, "register stay_date")
	}
	if err := v.RegisterValidation("date_after", validateDateAfter); err != nil {
		return errs.Wrap(err, "register date_after")
	}
	return nil
}

// stay_date: a YYYY-MM-DD calendar date.
func validateStayDate(fl validator.FieldLevel) bool {
	_, err := dates.Parse(fl.Field().String())
	return err == nil
}

// date_after=Field: strictly later than the named sibling date. Left to
// stay_date when either side does not parse.
func validateDateAfter(fl validator.FieldLevel) bool {
	other, _, _, ok := fl.GetStructFieldOKAdvanced2(fl.Parent(), fl.Param())
	if !ok {
		return false
	}
	end, err := dates.Parse(fl.Field().String())
	if err != nil {
		return true
	}
	start, err := dates.Parse(other.String())
	if err != nil {
		return true
	}
	return end.After(start)
}
