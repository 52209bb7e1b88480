package billing

import (
	"testing"

	"github.com/monocle-dev/workspace/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validData() models.BillingData {
	return models.BillingData{
		CompanyProfile: models.CompanyProfile{
			CompanyName: "Acme Corp",
			Email:       "billing@acme.test",
			Phone:       "(555) 123-4567",
		},
		BillingAddress: models.BillingAddress{
			Country:    "United States",
			City:       "Springfield",
			Address:    "742 Evergreen Terrace",
			PostalCode: "49007",
		},
		PaymentMethods: []models.PaymentMethod{
			{ID: "1", CardNumber: "4242 4242 4242 4242", CardHolder: "JANE DOE", ExpiryDate: "12/27", IsDefault: true},
		},
	}
}

func TestValidateDataAcceptsCompleteForm(t *testing.T) {
	assert.NoError(t, ValidateData(validData()))

	empty := validData()
	empty.PaymentMethods = nil
	assert.NoError(t, ValidateData(empty), "payment methods are optional")
}

func TestValidateDataPrefixesFields(t *testing.T) {
	data := validData()
	data.CompanyProfile.Email = "nope"
	data.BillingAddress.PostalCode = "AB 12"
	data.PaymentMethods = append(data.PaymentMethods, models.PaymentMethod{
		ID: "2", CardNumber: "5555", CardHolder: "X", ExpiryDate: "14/25", IsDefault: true,
	})

	err := ValidateData(data)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	assert.Equal(t, "Invalid email address", verr.Fields["companyProfile.email"])
	assert.Equal(t, "Postal code may only contain digits and hyphens", verr.Fields["billingAddress.postalCode"])
	assert.Equal(t, MsgInvalidExpiryMonth, verr.Fields["paymentMethods[1].expiryDate"])
	assert.Contains(t, verr.Fields, "paymentMethods")
	assert.Contains(t, err.Error(), "companyProfile.email: Invalid email address")
}

func TestExpiryProblem(t *testing.T) {
	tests := []struct {
		expiry string
		want   string
	}{
		{"01/25", ""},
		{"12", ""},
		{"00/25", MsgInvalidExpiryMonth},
		{"13/25", MsgInvalidExpiryMonth},
		{"ab/cd", MsgInvalidExpiryMonth},
		{"1", MsgIncompleteExpiry},
	}
	for _, tt := range tests {
		t.Run(tt.expiry, func(t *testing.T) {
			assert.Equal(t, tt.want, expiryProblem(tt.expiry))
		})
	}
}

func TestPartialExpiryIsIncomplete(t *testing.T) {
	errs := NewValidator(false).PaymentMethod(models.PaymentMethod{
		CardNumber: "4242 4242 4242 4242", CardHolder: "JANE DOE", ExpiryDate: "1",
	})
	assert.Equal(t, MsgIncompleteExpiry, errs[FieldExpiryDate])
}

func TestPhoneLeniencyByDefault(t *testing.T) {
	lenient := NewValidator(false)
	strict := NewValidator(true)

	p := models.CompanyProfile{CompanyName: "Acme", Email: "a@b.co", Phone: "ext. 42"}
	assert.Empty(t, lenient.CompanyProfile(p))
	assert.Equal(t, FieldErrors{FieldPhone: "Invalid phone number"}, strict.CompanyProfile(p))
}
