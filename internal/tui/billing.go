package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/monocle-dev/workspace/internal/billing"
	"github.com/monocle-dev/workspace/internal/format"
)

var fieldLabels = map[string]string{
	billing.FieldCompanyName: "Company Name",
	billing.FieldEmail:       "Email",
	billing.FieldPhone:       "Phone",
	billing.FieldCountry:     "Country",
	billing.FieldCity:        "City",
	billing.FieldAddress:     "Address",
	billing.FieldPostalCode:  "Postal Code",
	billing.FieldCardNumber:  "Card Number",
	billing.FieldCardHolder:  "Card Holder",
	billing.FieldExpiryDate:  "Expiry (MM/YY)",
	billing.FieldCVV:         "CVV",
}

var fieldLimits = map[string]int{
	billing.FieldCardNumber: 19,
	billing.FieldExpiryDate: 5,
	billing.FieldCVV:        4,
}

type billingView struct {
	wizard *billing.Wizard
	saver  billing.Saver
	styles Styles

	inputs     map[string]textinput.Model
	focus      int
	card       int
	submitting bool
	notice     string
}

func newBillingView(saver billing.Saver, styles Styles, opts ...billing.Option) billingView {
	inputs := make(map[string]textinput.Model, len(fieldLabels))
	for name, label := range fieldLabels {
		in := textinput.New()
		in.Prompt = fmt.Sprintf("%-16s", label)
		in.CharLimit = 100
		if limit, ok := fieldLimits[name]; ok {
			in.CharLimit = limit
		}
		if name == billing.FieldCountry {
			in.SetSuggestions(billing.Countries)
			in.ShowSuggestions = true
			in.KeyMap.AcceptSuggestion = key.NewBinding(key.WithKeys("ctrl+t"))
			in.Placeholder = "e.g. United States (C-t completes)"
		}
		inputs[name] = in
	}

	v := billingView{
		wizard: billing.NewWizard(opts...),
		saver:  saver,
		styles: styles,
		inputs: inputs,
	}
	v.syncInputs()
	return v.setFocus(0)
}

func (v billingView) Init() tea.Cmd { return textinput.Blink }

func (v billingView) inputMode() bool { return true }

func (v billingView) fields() []string {
	return billing.StepFields[v.wizard.Step()]
}

// syncInputs copies the wizard's stored values into the inputs of the current step.
func (v billingView) syncInputs() {
	for _, name := range v.fields() {
		value, err := v.wizard.Field(name)
		if err != nil {
			continue
		}
		in := v.inputs[name]
		in.SetValue(value)
		in.CursorEnd()
		v.inputs[name] = in
	}
}

func (v billingView) setFocus(i int) billingView {
	fields := v.fields()
	v.focus = (i + len(fields)) % len(fields)
	for j, name := range fields {
		in := v.inputs[name]
		if j == v.focus {
			in.Focus()
		} else {
			in.Blur()
		}
		v.inputs[name] = in
	}
	return v
}

func (v billingView) nextStep() billingView {
	if v.wizard.Next() {
		v.syncInputs()
		return v.setFocus(0)
	}
	// Jump to the first failing field.
	errs := v.wizard.Errors()
	for i, name := range v.fields() {
		if _, ok := errs[name]; ok {
			return v.setFocus(i)
		}
	}
	return v
}

func (v billingView) submit() (billingView, tea.Cmd) {
	if v.submitting {
		return v, nil
	}
	v.submitting = true
	v.notice = ""
	w, saver := v.wizard, v.saver
	return v, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return billingSubmittedMsg{Err: w.Submit(ctx, saver)}
	}
}

func (v billingView) Update(msg tea.Msg, keys KeyMap) (billingView, tea.Cmd) {
	switch msg := msg.(type) {
	case billingSubmittedMsg:
		v.submitting = false
		return v, nil

	case tea.KeyMsg:
		onPayments := v.wizard.Step() == billing.StepPaymentMethods
		fields := v.fields()

		switch {
		case key.Matches(msg, keys.Back):
			return v, navigate("/settings")
		case key.Matches(msg, keys.NextStep):
			return v.nextStep(), nil
		case key.Matches(msg, keys.PrevStep):
			if v.wizard.Previous() {
				v.syncInputs()
				v = v.setFocus(0)
			}
			return v, nil
		case msg.String() == "tab" || msg.String() == "down":
			return v.setFocus(v.focus + 1), nil
		case msg.String() == "shift+tab" || msg.String() == "up":
			return v.setFocus(v.focus - 1), nil
		case key.Matches(msg, keys.Submit):
			if onPayments {
				return v.submit()
			}
			if v.focus < len(fields)-1 {
				return v.setFocus(v.focus + 1), nil
			}
			return v.nextStep(), nil
		case onPayments && key.Matches(msg, keys.AddPayment):
			if _, err := v.wizard.AddPaymentMethod(); err == nil {
				v.syncInputs()
				v = v.setFocus(0)
				v.card = len(v.wizard.Data().PaymentMethods) - 1
				v.notice = "Payment method added"
			}
			return v, nil
		case onPayments && key.Matches(msg, keys.ToggleDef):
			v.wizard.SetDefault(!v.wizard.PaymentForm().IsDefault)
			return v, nil
		case onPayments && key.Matches(msg, keys.NextCard):
			if n := len(v.wizard.Data().PaymentMethods); n > 0 {
				v.card = (v.card + 1) % n
			}
			return v, nil
		case onPayments && key.Matches(msg, keys.RemoveCard):
			methods := v.wizard.Data().PaymentMethods
			if v.card < len(methods) {
				v.wizard.RemovePaymentMethod(methods[v.card].ID)
				if v.card > 0 && v.card >= len(methods)-1 {
					v.card--
				}
			}
			return v, nil
		}

		name := fields[v.focus]
		in := v.inputs[name]
		var cmd tea.Cmd
		in, cmd = in.Update(msg)
		if formatted, err := v.wizard.SetField(name, in.Value()); err == nil && formatted != in.Value() {
			in.SetValue(formatted)
			in.CursorEnd()
		}
		v.inputs[name] = in
		return v, cmd
	}
	return v, nil
}

func (v billingView) View() string {
	st := v.styles
	var b strings.Builder

	b.WriteString(st.Title.Render("Billing Settings"))
	b.WriteString("\n")

	var steps []string
	for _, ind := range v.wizard.Indicators() {
		label := fmt.Sprintf("%d. %s", ind.Index+1, ind.Title)
		switch {
		case ind.Current:
			steps = append(steps, st.StepCurrent.Render(label))
		case ind.Active:
			steps = append(steps, st.StepActive.Render(label))
		default:
			steps = append(steps, st.StepPending.Render(label))
		}
	}
	b.WriteString(strings.Join(steps, st.Muted.Render("  ›  ")))
	b.WriteString("\n\n")

	errs := v.wizard.Errors()
	for _, name := range v.fields() {
		b.WriteString(v.inputs[name].View())
		b.WriteString("\n")
		if msg := errs[name]; msg != "" {
			b.WriteString(st.Error.Render("  " + msg))
			b.WriteString("\n")
		}
	}

	if v.wizard.Step() == billing.StepPaymentMethods {
		b.WriteString(v.renderPayments(errs))
	}

	b.WriteString("\n")
	switch {
	case v.submitting:
		b.WriteString(st.Muted.Render("Saving..."))
	case v.wizard.SubmitMessage() != "":
		b.WriteString(st.Error.Render(v.wizard.SubmitMessage()))
	case v.notice != "":
		b.WriteString(st.Success.Render(v.notice))
	}
	return b.String()
}

func (v billingView) renderPayments(errs billing.FieldErrors) string {
	st := v.styles
	var b strings.Builder

	def := "[ ]"
	if v.wizard.PaymentForm().IsDefault {
		def = "[x]"
	}
	b.WriteString(fmt.Sprintf("%-16s%s\n", "Set as default", def))
	if msg := errs[billing.FieldPayment]; msg != "" {
		b.WriteString(st.Error.Render("  " + msg))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(st.Title.Render("Saved Payment Methods"))
	b.WriteString("\n")

	methods := v.wizard.Data().PaymentMethods
	if len(methods) == 0 {
		b.WriteString(st.Muted.Render("No payment methods added yet"))
		b.WriteString("\n")
	}
	for i, pm := range methods {
		line := fmt.Sprintf("%s  %s  %s", format.MaskCardNumber(pm.CardNumber), pm.CardHolder, pm.ExpiryDate)
		if pm.IsDefault {
			line += st.Success.Render("  Default")
		}
		if i == v.card {
			line = st.Selected.Render("> ") + line
		} else {
			line = "  " + line
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
