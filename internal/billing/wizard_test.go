package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/monocle-dev/workspace/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userError struct{ msg string }

func (e userError) Error() string       { return "api: " + e.msg }
func (e userError) UserMessage() string { return e.msg }

// setRaw stores a value without input formatting.
func (w *Wizard) setRaw(name, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	p := w.fieldPtr(name)
	if p == nil {
		return ErrUnknownField
	}
	*p = value
	return nil
}

func fixedClock() func() time.Time {
	ts := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return ts }
}

func fillCompany(t *testing.T, w *Wizard) {
	t.Helper()
	_, err := w.SetField(FieldCompanyName, "Acme Corp")
	require.NoError(t, err)
	_, err = w.SetField(FieldEmail, "billing@acme.test")
	require.NoError(t, err)
	_, err = w.SetField(FieldPhone, "5551234567")
	require.NoError(t, err)
}

func fillAddress(t *testing.T, w *Wizard) {
	t.Helper()
	_, err := w.SetField(FieldCountry, "United States")
	require.NoError(t, err)
	_, err = w.SetField(FieldCity, "Springfield")
	require.NoError(t, err)
	_, err = w.SetField(FieldAddress, "742 Evergreen Terrace")
	require.NoError(t, err)
	_, err = w.SetField(FieldPostalCode, "49007")
	require.NoError(t, err)
}

func fillCard(t *testing.T, w *Wizard, number string) {
	t.Helper()
	_, err := w.SetField(FieldCardNumber, number)
	require.NoError(t, err)
	_, err = w.SetField(FieldCardHolder, "jane doe")
	require.NoError(t, err)
	_, err = w.SetField(FieldExpiryDate, "1227")
	require.NoError(t, err)
	_, err = w.SetField(FieldCVV, "123")
	require.NoError(t, err)
}

func wizardOnPaymentStep(t *testing.T, opts ...Option) *Wizard {
	t.Helper()
	w := NewWizard(append([]Option{WithClock(fixedClock())}, opts...)...)
	fillCompany(t, w)
	require.True(t, w.Next())
	fillAddress(t, w)
	require.True(t, w.Next())
	require.Equal(t, StepPaymentMethods, w.Step())
	return w
}

func TestNextBlocksOnShortCompanyName(t *testing.T) {
	w := NewWizard()
	_, err := w.SetField(FieldCompanyName, "A")
	require.NoError(t, err)
	_, _ = w.SetField(FieldEmail, "a@b.co")
	_, _ = w.SetField(FieldPhone, "123")

	assert.False(t, w.Next())
	assert.Equal(t, StepCompanyProfile, w.Step())
	assert.Equal(t, "Company name must be at least 2 characters", w.Errors()[FieldCompanyName])
}

func TestNextReportsEveryFailingField(t *testing.T) {
	w := NewWizard()

	assert.False(t, w.Next())
	errs := w.Errors()
	assert.Equal(t, []string{FieldCompanyName, FieldEmail, FieldPhone}, errs.Keys())
	assert.Equal(t, "Phone is required", errs[FieldPhone])

	_, _ = w.SetField(FieldCompanyName, "Acme")
	_, _ = w.SetField(FieldEmail, "not-an-email")
	_, _ = w.SetField(FieldPhone, "555")
	assert.False(t, w.Next())
	assert.Equal(t, FieldErrors{FieldEmail: "Invalid email address"}, w.Errors(), "errors are replaced on each attempt")
}

func TestAddressStepValidation(t *testing.T) {
	w := NewWizard()
	fillCompany(t, w)
	require.True(t, w.Next())
	assert.Empty(t, w.Errors())

	_, _ = w.SetField(FieldCity, "X")
	_, _ = w.SetField(FieldAddress, "1 St")
	assert.False(t, w.Next())

	errs := w.Errors()
	assert.Equal(t, "Country is required", errs[FieldCountry])
	assert.Equal(t, "City must be at least 2 characters", errs[FieldCity])
	assert.Equal(t, "Address must be at least 5 characters", errs[FieldAddress])
	assert.Equal(t, "Postal code is required", errs[FieldPostalCode])
	assert.Equal(t, StepBillingAddress, w.Step())
}

func TestPreviousDoesNotValidate(t *testing.T) {
	w := NewWizard()
	assert.False(t, w.Previous())

	fillCompany(t, w)
	require.True(t, w.Next())
	assert.True(t, w.Previous())
	assert.Equal(t, StepCompanyProfile, w.Step())
	v, err := w.Field(FieldCompanyName)
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", v, "data survives navigation")
}

func TestSetFieldFormats(t *testing.T) {
	w := NewWizard()

	got, err := w.SetField(FieldPhone, "1234567890")
	require.NoError(t, err)
	assert.Equal(t, "(123) 456-7890", got)

	got, _ = w.SetField(FieldCardNumber, "42424242424242429999")
	assert.Equal(t, "4242 4242 4242 4242", got)

	got, _ = w.SetField(FieldExpiryDate, "1325")
	assert.Equal(t, "12/25", got)

	got, _ = w.SetField(FieldCardHolder, "jane doe")
	assert.Equal(t, "JANE DOE", got)

	_, err = w.SetField("nickname", "x")
	assert.ErrorIs(t, err, ErrUnknownField)
}

func TestStrictPhone(t *testing.T) {
	w := NewWizard(WithStrictPhone())
	_, _ = w.SetField(FieldCompanyName, "Acme")
	_, _ = w.SetField(FieldEmail, "a@b.co")
	require.NoError(t, w.setRaw(FieldPhone, "call me"))

	assert.False(t, w.Next())
	assert.Equal(t, "Invalid phone number", w.Errors()[FieldPhone])
}

func TestFirstPaymentMethodIsDefault(t *testing.T) {
	w := wizardOnPaymentStep(t)
	fillCard(t, w, "4242424242424242")
	w.SetDefault(false)

	pm, err := w.AddPaymentMethod()
	require.NoError(t, err)
	assert.True(t, pm.IsDefault)
	assert.Equal(t, "4242 4242 4242 4242", pm.CardNumber)
	assert.Equal(t, "JANE DOE", pm.CardHolder)
	assert.Equal(t, "12/27", pm.ExpiryDate)
	assert.NotEmpty(t, pm.ID)

	assert.Equal(t, PaymentForm{}, w.PaymentForm(), "form clears after add")
}

func TestAddPaymentMethodRequiresNumberAndHolder(t *testing.T) {
	w := wizardOnPaymentStep(t)
	_, _ = w.SetField(FieldCardNumber, "4242")

	_, err := w.AddPaymentMethod()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgIncompletePayment, verr.Fields[FieldPayment])
	assert.Empty(t, w.Data().PaymentMethods)

	_, _ = w.SetField(FieldCardHolder, "x")
	require.NoError(t, w.setRaw(FieldExpiryDate, "13/25"))
	_, err = w.AddPaymentMethod()
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, MsgInvalidExpiryMonth, verr.Fields[FieldExpiryDate])
}

func TestNewDefaultDemotesPrevious(t *testing.T) {
	w := wizardOnPaymentStep(t)
	fillCard(t, w, "4242424242424242")
	first, err := w.AddPaymentMethod()
	require.NoError(t, err)

	fillCard(t, w, "5555555555554444")
	w.SetDefault(true)
	second, err := w.AddPaymentMethod()
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID, "ids are unique within the same millisecond")

	methods := w.Data().PaymentMethods
	require.Len(t, methods, 2)
	assert.False(t, methods[0].IsDefault)
	assert.True(t, methods[1].IsDefault)
}

func TestRemoveDefaultLeavesNoDefault(t *testing.T) {
	w := wizardOnPaymentStep(t)
	fillCard(t, w, "4242424242424242")
	first, _ := w.AddPaymentMethod()
	fillCard(t, w, "5555555555554444")
	_, _ = w.AddPaymentMethod()

	assert.True(t, w.RemovePaymentMethod(first.ID))
	assert.False(t, w.RemovePaymentMethod(first.ID))
	require.Len(t, w.Data().PaymentMethods, 1)
	assert.False(t, w.HasDefault())
}

func TestRemoveDefaultWithReassignment(t *testing.T) {
	w := wizardOnPaymentStep(t, WithDefaultReassignment())
	fillCard(t, w, "4242424242424242")
	first, _ := w.AddPaymentMethod()
	fillCard(t, w, "5555555555554444")
	second, _ := w.AddPaymentMethod()

	require.True(t, w.RemovePaymentMethod(first.ID))
	methods := w.Data().PaymentMethods
	require.Len(t, methods, 1)
	assert.Equal(t, second.ID, methods[0].ID)
	assert.True(t, methods[0].IsDefault)
}

func TestIndicators(t *testing.T) {
	w := NewWizard()
	fillCompany(t, w)
	require.True(t, w.Next())

	ind := w.Indicators()
	require.Len(t, ind, 3)
	assert.True(t, ind[0].Active)
	assert.True(t, ind[1].Active)
	assert.True(t, ind[1].Current)
	assert.False(t, ind[2].Active)
	assert.Equal(t, "Payment Methods", ind[2].Title)
}

func TestSubmitOnlyOnLastStep(t *testing.T) {
	w := NewWizard()
	called := false
	err := w.Submit(context.Background(), SaverFunc(func(context.Context, models.BillingData) error {
		called = true
		return nil
	}))
	assert.ErrorIs(t, err, ErrNotFinalStep)
	assert.False(t, called)
}

func TestSubmitSuccess(t *testing.T) {
	w := wizardOnPaymentStep(t)
	fillCard(t, w, "4242424242424242")
	_, err := w.AddPaymentMethod()
	require.NoError(t, err)
	_, _ = w.SetField(FieldCardNumber, "1111")

	var saved models.BillingData
	err = w.Submit(context.Background(), SaverFunc(func(_ context.Context, d models.BillingData) error {
		saved = d
		return nil
	}))
	require.NoError(t, err)

	assert.True(t, w.Submitted())
	assert.Equal(t, "Acme Corp", saved.CompanyProfile.CompanyName)
	assert.Equal(t, "(555) 123-4567", saved.CompanyProfile.Phone)
	assert.Equal(t, "49007", saved.BillingAddress.PostalCode)
	require.Len(t, saved.PaymentMethods, 1)
	assert.Equal(t, PaymentForm{}, w.PaymentForm())
}

func TestSubmitFailureKeepsData(t *testing.T) {
	w := wizardOnPaymentStep(t)

	err := w.Submit(context.Background(), SaverFunc(func(context.Context, models.BillingData) error {
		return errors.New("connection refused")
	}))
	require.Error(t, err)
	assert.False(t, w.Submitted())
	assert.Equal(t, MsgSaveFailed, w.SubmitMessage())
	assert.Equal(t, "Acme Corp", w.Data().CompanyProfile.CompanyName)
	assert.Equal(t, StepPaymentMethods, w.Step())

	err = w.Submit(context.Background(), SaverFunc(func(context.Context, models.BillingData) error {
		return userError{msg: "Unauthorized"}
	}))
	require.Error(t, err)
	assert.Equal(t, "Unauthorized", w.SubmitMessage())
}

func TestWithDataStartsFromExisting(t *testing.T) {
	data := models.BillingData{
		CompanyProfile: models.CompanyProfile{CompanyName: "Globex"},
		PaymentMethods: []models.PaymentMethod{{ID: "1", CardNumber: "4242", CardHolder: "A", IsDefault: true}},
	}
	w := NewWizard(WithData(data))
	data.PaymentMethods[0].IsDefault = false

	got := w.Data()
	assert.Equal(t, "Globex", got.CompanyProfile.CompanyName)
	assert.True(t, got.PaymentMethods[0].IsDefault, "wizard holds its own copy")
}

func TestIDGeneratorIsMonotonic(t *testing.T) {
	g := NewIDGenerator(fixedClock())
	a, b, c := g.Next(), g.Next(), g.Next()
	assert.Equal(t, "1709294400000", a)
	assert.Equal(t, "1709294400001", b)
	assert.Equal(t, "1709294400002", c)
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "Company Profile", StepCompanyProfile.String())
	assert.Equal(t, "Unknown", Step(7).String())
}
