// Package billing implements the three step billing settings form: field formatting,
// step validation, the payment method list and submission.
package billing

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/monocle-dev/workspace/internal/models"
)

const (
	FieldCompanyName = "companyName"
	FieldEmail       = "email"
	FieldPhone       = "phone"
	FieldCountry     = "country"
	FieldCity        = "city"
	FieldAddress     = "address"
	FieldPostalCode  = "postalCode"
	FieldCardNumber  = "cardNumber"
	FieldCardHolder  = "cardHolder"
	FieldExpiryDate  = "expiryDate"
	FieldCVV         = "cvv"

	// FieldPayment carries errors about the pending payment method as a whole.
	FieldPayment = "payment"
)

const (
	MsgIncompletePayment  = "Please fill in all payment details"
	MsgInvalidExpiryMonth = "Expiry month must be between 01 and 12"
	MsgIncompleteExpiry   = "Expiry date must be in MM/YY format"
)

var messages = map[string]map[string]string{
	FieldCompanyName: {
		"required": "Company name is required",
		"min":      "Company name must be at least 2 characters",
	},
	FieldEmail: {
		"required": "Email is required",
		"email":    "Invalid email address",
	},
	FieldPhone: {
		"required": "Phone is required",
		"phone":    "Invalid phone number",
	},
	FieldCountry: {
		"required": "Country is required",
	},
	FieldCity: {
		"required": "City is required",
		"min":      "City must be at least 2 characters",
	},
	FieldAddress: {
		"required": "Address is required",
		"min":      "Address must be at least 5 characters",
	},
	FieldPostalCode: {
		"required": "Postal code is required",
		"postal":   "Postal code may only contain digits and hyphens",
	},
}

var (
	phonePattern  = regexp.MustCompile(`^[0-9()+\-\s]+$`)
	postalPattern = regexp.MustCompile(`^[0-9-]+$`)
)

// Countries are the selectable billing countries.
var Countries = []string{
	"United States",
	"Indonesia",
	"United Kingdom",
	"Canada",
	"Australia",
	"Germany",
	"Singapore",
}

// FieldErrors maps a field name to its message.
type FieldErrors map[string]string

// Keys returns the failing field names, sorted.
func (fe FieldErrors) Keys() []string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ValidationError wraps FieldErrors as an error.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, k := range e.Fields.Keys() {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid billing data: " + strings.Join(parts, "; ")
}

// Validator checks billing structs against their validate tags.
type Validator struct {
	validate *validator.Validate
}

// NewValidator builds a Validator. With strictPhone the phone must look like a phone
// number; otherwise it only has to be present.
func NewValidator(strictPhone bool) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "phone", func(fl validator.FieldLevel) bool {
		if !strictPhone {
			return true
		}
		return phonePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "postal", func(fl validator.FieldLevel) bool {
		return postalPattern.MatchString(fl.Field().String())
	})

	return &Validator{validate: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("billing: register %q validation: %v", tag, err))
	}
}

func (v *Validator) check(s interface{}) FieldErrors {
	errs := FieldErrors{}

	err := v.validate.Struct(s)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs["form"] = err.Error()
		return errs
	}

	for _, fe := range verrs {
		field := fe.Field()
		msg, ok := messages[field][fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", field)
		}
		errs[field] = msg
	}
	return errs
}

// CompanyProfile validates step 0.
func (v *Validator) CompanyProfile(p models.CompanyProfile) FieldErrors {
	return v.check(p)
}

// BillingAddress validates step 1.
func (v *Validator) BillingAddress(a models.BillingAddress) FieldErrors {
	return v.check(a)
}

// PaymentMethod validates a method about to be added.
func (v *Validator) PaymentMethod(pm models.PaymentMethod) FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(pm.CardNumber) == "" || strings.TrimSpace(pm.CardHolder) == "" {
		errs[FieldPayment] = MsgIncompletePayment
		return errs
	}

	if pm.ExpiryDate != "" {
		if msg := expiryProblem(pm.ExpiryDate); msg != "" {
			errs[FieldExpiryDate] = msg
		}
	}
	return errs
}

// Data validates every step and every saved payment method.
func (v *Validator) Data(data models.BillingData) FieldErrors {
	errs := FieldErrors{}
	for k, msg := range v.CompanyProfile(data.CompanyProfile) {
		errs["companyProfile."+k] = msg
	}
	for k, msg := range v.BillingAddress(data.BillingAddress) {
		errs["billingAddress."+k] = msg
	}

	defaults := 0
	for i, pm := range data.PaymentMethods {
		for k, msg := range v.PaymentMethod(pm) {
			errs[fmt.Sprintf("paymentMethods[%d].%s", i, k)] = msg
		}
		if pm.IsDefault {
			defaults++
		}
	}
	if defaults > 1 {
		errs["paymentMethods"] = "Only one payment method can be the default"
	}
	return errs
}

// expiryProblem returns the message for an unusable expiry date, or "". A single digit
// is a month still being typed, not an out of range one.
func expiryProblem(expiry string) string {
	digits := strings.ReplaceAll(expiry, "/", "")
	if len(digits) < 2 {
		return MsgIncompleteExpiry
	}
	month, err := strconv.Atoi(digits[:2])
	if err != nil || month < 1 || month > 12 {
		return MsgInvalidExpiryMonth
	}
	return ""
}

var defaultValidator = NewValidator(false)

// ValidateData checks a full submission with the default (non-strict) rules.
func ValidateData(data models.BillingData) error {
	if errs := defaultValidator.Data(data); len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
