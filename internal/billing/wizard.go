package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/monocle-dev/workspace/internal/format"
	"github.com/monocle-dev/workspace/internal/models"
)

type Step int

const (
	StepCompanyProfile Step = iota
	StepBillingAddress
	StepPaymentMethods
)

// StepTitles are indexed by Step.
var StepTitles = []string{"Company Profile", "Billing Address", "Payment Methods"}

func (s Step) String() string {
	if s < 0 || int(s) >= len(StepTitles) {
		return "Unknown"
	}
	return StepTitles[s]
}

// StepFields lists the editable fields of each step in tab order.
var StepFields = map[Step][]string{
	StepCompanyProfile: {FieldCompanyName, FieldEmail, FieldPhone},
	StepBillingAddress: {FieldCountry, FieldCity, FieldAddress, FieldPostalCode},
	StepPaymentMethods: {FieldCardNumber, FieldCardHolder, FieldExpiryDate, FieldCVV},
}

const lastStep = StepPaymentMethods

var (
	ErrNotFinalStep     = errors.New("billing: submit is only available on the last step")
	ErrUnknownField     = errors.New("billing: unknown field")
	ErrAlreadySubmitted = errors.New("billing: submission in progress")
)

// MsgSaveFailed is shown when saving fails without a more specific message.
const MsgSaveFailed = "Failed to save billing settings"

// Saver persists a completed form.
type Saver interface {
	SaveBilling(ctx context.Context, data models.BillingData) error
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, data models.BillingData) error

func (f SaverFunc) SaveBilling(ctx context.Context, data models.BillingData) error {
	return f(ctx, data)
}

// userMessager is implemented by errors that carry a message fit for display.
type userMessager interface {
	UserMessage() string
}

// PaymentForm holds the fields of the payment method being entered.
type PaymentForm struct {
	CardNumber string
	CardHolder string
	ExpiryDate string
	CVV        string
	IsDefault  bool
}

// StepIndicator describes one entry of the progress header.
type StepIndicator struct {
	Index   int
	Title   string
	Active  bool
	Current bool
}

// IDGenerator derives payment method ids from the creation time in milliseconds.
// Ids are strictly increasing even when two are requested in the same millisecond.
type IDGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func NewIDGenerator(now func() time.Time) *IDGenerator {
	if now == nil {
		now = time.Now
	}
	return &IDGenerator{now: now}
}

func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	return strconv.FormatInt(ms, 10)
}

type Option func(*Wizard)

// WithStrictPhone requires the phone to look like a phone number.
func WithStrictPhone() Option {
	return func(w *Wizard) {
		w.validator = NewValidator(true)
	}
}

// WithDefaultReassignment promotes the first remaining method when the default one is
// removed. Without it removing the default leaves the list without a default.
func WithDefaultReassignment() Option {
	return func(w *Wizard) {
		w.reassignDefault = true
	}
}

func WithClock(now func() time.Time) Option {
	return func(w *Wizard) {
		w.ids = NewIDGenerator(now)
	}
}

// WithData starts the wizard from existing billing data.
func WithData(data models.BillingData) Option {
	return func(w *Wizard) {
		w.data = cloneData(data)
	}
}

// Wizard is the billing form state machine.
type Wizard struct {
	mu              sync.Mutex
	step            Step
	data            models.BillingData
	form            PaymentForm
	errors          FieldErrors
	validator       *Validator
	ids             *IDGenerator
	reassignDefault bool
	submitting      bool
	submitted       bool
	submitMessage   string
}

func NewWizard(opts ...Option) *Wizard {
	w := &Wizard{
		step:      StepCompanyProfile,
		errors:    FieldErrors{},
		validator: defaultValidator,
		ids:       NewIDGenerator(nil),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Wizard) Step() Step {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

// Indicators marks every step up to and including the current one as active.
func (w *Wizard) Indicators() []StepIndicator {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]StepIndicator, len(StepTitles))
	for i, title := range StepTitles {
		out[i] = StepIndicator{
			Index:   i,
			Title:   title,
			Active:  i <= int(w.step),
			Current: i == int(w.step),
		}
	}
	return out
}

// Errors returns a copy of the current field errors.
func (w *Wizard) Errors() FieldErrors {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make(FieldErrors, len(w.errors))
	for k, v := range w.errors {
		out[k] = v
	}
	return out
}

// Data returns a copy of the form data.
func (w *Wizard) Data() models.BillingData {
	w.mu.Lock()
	defer w.mu.Unlock()
	return cloneData(w.data)
}

func (w *Wizard) PaymentForm() PaymentForm {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.form
}

// Submitted reports whether the last submission succeeded.
func (w *Wizard) Submitted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitted
}

// SubmitMessage is the user facing error of the last failed submission.
func (w *Wizard) SubmitMessage() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.submitMessage
}

// Field returns the stored (formatted) value of a field.
func (w *Wizard) Field(name string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.fieldPtr(name)
	if p == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	return *p, nil
}

// SetField formats raw input for the named field, stores it and returns the stored value.
func (w *Wizard) SetField(name, raw string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	p := w.fieldPtr(name)
	if p == nil {
		return "", fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	*p = formatField(name, raw)
	return *p, nil
}

// SetDefault sets the "make default" checkbox of the pending payment method.
func (w *Wizard) SetDefault(isDefault bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.form.IsDefault = isDefault
}

func formatField(name, raw string) string {
	switch name {
	case FieldPhone:
		return format.Phone(raw)
	case FieldPostalCode:
		return format.PostalCode(raw)
	case FieldCardNumber:
		return format.CardNumberInput(raw)
	case FieldCardHolder:
		return format.CardHolder(raw)
	case FieldExpiryDate:
		return format.ExpiryDate(raw)
	case FieldCVV:
		return format.CVV(raw)
	default:
		return raw
	}
}

func (w *Wizard) fieldPtr(name string) *string {
	switch name {
	case FieldCompanyName:
		return &w.data.CompanyProfile.CompanyName
	case FieldEmail:
		return &w.data.CompanyProfile.Email
	case FieldPhone:
		return &w.data.CompanyProfile.Phone
	case FieldCountry:
		return &w.data.BillingAddress.Country
	case FieldCity:
		return &w.data.BillingAddress.City
	case FieldAddress:
		return &w.data.BillingAddress.Address
	case FieldPostalCode:
		return &w.data.BillingAddress.PostalCode
	case FieldCardNumber:
		return &w.form.CardNumber
	case FieldCardHolder:
		return &w.form.CardHolder
	case FieldExpiryDate:
		return &w.form.ExpiryDate
	case FieldCVV:
		return &w.form.CVV
	}
	return nil
}

// Next validates the current step and advances when it passes.
func (w *Wizard) Next() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs FieldErrors
	switch w.step {
	case StepCompanyProfile:
		errs = w.validator.CompanyProfile(w.data.CompanyProfile)
	case StepBillingAddress:
		errs = w.validator.BillingAddress(w.data.BillingAddress)
	default:
		errs = FieldErrors{}
	}

	w.errors = errs
	if len(errs) > 0 {
		return false
	}
	if w.step < lastStep {
		w.step++
	}
	return true
}

// Previous steps back without validation. It is a no-op on the first step.
func (w *Wizard) Previous() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.step == StepCompanyProfile {
		return false
	}
	w.step--
	return true
}

// AddPaymentMethod appends the pending payment method. The first method ever in the
// list is always the default.
func (w *Wizard) AddPaymentMethod() (models.PaymentMethod, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	method := models.PaymentMethod{
		CardNumber: w.form.CardNumber,
		CardHolder: w.form.CardHolder,
		ExpiryDate: w.form.ExpiryDate,
		CVV:        w.form.CVV,
		IsDefault:  w.form.IsDefault,
	}

	errs := w.validator.PaymentMethod(method)
	w.errors = errs
	if len(errs) > 0 {
		return models.PaymentMethod{}, &ValidationError{Fields: errs}
	}

	method.ID = w.ids.Next()
	if len(w.data.PaymentMethods) == 0 {
		method.IsDefault = true
	} else if method.IsDefault {
		for i := range w.data.PaymentMethods {
			w.data.PaymentMethods[i].IsDefault = false
		}
	}

	w.data.PaymentMethods = append(w.data.PaymentMethods, method)
	w.form = PaymentForm{}
	return method, nil
}

// RemovePaymentMethod deletes the method with the given id.
func (w *Wizard) RemovePaymentMethod(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := -1
	for i, pm := range w.data.PaymentMethods {
		if pm.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	removed := w.data.PaymentMethods[idx]
	w.data.PaymentMethods = append(w.data.PaymentMethods[:idx:idx], w.data.PaymentMethods[idx+1:]...)

	if removed.IsDefault && w.reassignDefault && len(w.data.PaymentMethods) > 0 {
		w.data.PaymentMethods[0].IsDefault = true
	}
	return true
}

// HasDefault reports whether some payment method is marked default.
func (w *Wizard) HasDefault() bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, pm := range w.data.PaymentMethods {
		if pm.IsDefault {
			return true
		}
	}
	return false
}

// Submit hands the full data to saver. Entered data is kept when saving fails.
func (w *Wizard) Submit(ctx context.Context, saver Saver) error {
	w.mu.Lock()
	if w.step != lastStep {
		w.mu.Unlock()
		return ErrNotFinalStep
	}
	if w.submitting {
		w.mu.Unlock()
		return ErrAlreadySubmitted
	}
	w.submitting = true
	w.submitMessage = ""
	data := cloneData(w.data)
	w.mu.Unlock()

	err := saver.SaveBilling(ctx, data)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.submitting = false

	if err != nil {
		w.submitted = false
		w.submitMessage = MsgSaveFailed
		var um userMessager
		if errors.As(err, &um) && um.UserMessage() != "" {
			w.submitMessage = um.UserMessage()
		}
		return fmt.Errorf("save billing: %w", err)
	}

	w.submitted = true
	w.form = PaymentForm{}
	w.errors = FieldErrors{}
	return nil
}

// Reset returns the wizard to an empty first step.
func (w *Wizard) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.step = StepCompanyProfile
	w.data = models.BillingData{}
	w.form = PaymentForm{}
	w.errors = FieldErrors{}
	w.submitted = false
	w.submitMessage = ""
}

func cloneData(d models.BillingData) models.BillingData {
	out := d
	if d.PaymentMethods != nil {
		out.PaymentMethods = make([]models.PaymentMethod, len(d.PaymentMethods))
		copy(out.PaymentMethods, d.PaymentMethods)
	}
	return out
}
