package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/monocle-dev/workspace/internal/format"
	"github.com/monocle-dev/workspace/internal/models"
)

// BillingAPI is the part of the client the settings screens use.
type BillingAPI interface {
	GetBilling(ctx context.Context) ([]models.BillingRecord, error)
	RemovePaymentMethod(ctx context.Context, id string) error
}

type settingsView struct {
	api    BillingAPI
	styles Styles

	records []models.BillingRecord
	loading bool
	err     error
	cursor  int
}

func newSettingsView(api BillingAPI, styles Styles) settingsView {
	return settingsView{api: api, styles: styles, loading: true}
}

func (v settingsView) Init() tea.Cmd {
	api := v.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		records, err := api.GetBilling(ctx)
		return billingLoadedMsg{Records: records, Err: err}
	}
}

func (v settingsView) inputMode() bool { return false }

// methods flattens the payment methods of every record in display order.
func (v settingsView) methods() []models.PaymentMethod {
	var out []models.PaymentMethod
	for _, r := range v.records {
		out = append(out, r.PaymentMethods...)
	}
	return out
}

func (v settingsView) Update(msg tea.Msg, keys KeyMap) (settingsView, tea.Cmd) {
	switch msg := msg.(type) {
	case billingLoadedMsg:
		v.loading = false
		v.err = msg.Err
		if msg.Err == nil {
			v.records = msg.Records
		}
		if n := len(v.methods()); v.cursor >= n {
			v.cursor = n - 1
		}
		if v.cursor < 0 {
			v.cursor = 0
		}
		return v, nil

	case paymentRemovedMsg:
		if msg.Err != nil {
			return v, func() tea.Msg { return ErrorMsg{Err: fmt.Errorf("remove payment method: %s", userMessage(msg.Err, msg.Err.Error()))} }
		}
		v.loading = true
		return v, v.Init()

	case tea.KeyMsg:
		methods := v.methods()
		switch {
		case key.Matches(msg, keys.Up):
			if v.cursor > 0 {
				v.cursor--
			}
		case key.Matches(msg, keys.Down):
			if v.cursor < len(methods)-1 {
				v.cursor++
			}
		case key.Matches(msg, keys.Refresh):
			v.loading = true
			return v, v.Init()
		case key.Matches(msg, keys.NewBilling):
			return v, navigate("/settings/billing")
		case key.Matches(msg, keys.Remove):
			if v.cursor < len(methods) {
				id := methods[v.cursor].ID
				api := v.api
				return v, func() tea.Msg {
					ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
					defer cancel()
					return paymentRemovedMsg{ID: id, Err: api.RemovePaymentMethod(ctx, id)}
				}
			}
		}
	}
	return v, nil
}

func (v settingsView) View() string {
	st := v.styles
	var b strings.Builder

	b.WriteString(st.Title.Render("Billing Settings"))
	b.WriteString("\n")
	b.WriteString(st.Subtitle.Render("Company profile, billing address and payment methods"))
	b.WriteString("\n\n")

	switch {
	case v.loading && len(v.records) == 0:
		b.WriteString(st.Muted.Render("Loading billing settings..."))
		return b.String()
	case v.err != nil:
		b.WriteString(st.Error.Render("Failed to fetch billing settings: " + userMessage(v.err, v.err.Error())))
		return b.String()
	case len(v.records) == 0:
		b.WriteString(st.Muted.Render("No billing settings found."))
		b.WriteString("\n\n")
		b.WriteString(st.Muted.Render("n to add billing settings"))
		return b.String()
	}

	idx := 0
	for _, r := range v.records {
		var card strings.Builder
		card.WriteString(st.Label.Render("Company") + r.CompanyProfile.CompanyName + "\n")
		card.WriteString(st.Label.Render("Email") + r.CompanyProfile.Email + "\n")
		card.WriteString(st.Label.Render("Phone") + r.CompanyProfile.Phone + "\n")
		card.WriteString(st.Label.Render("Address") + r.BillingAddress.Address + "\n")
		card.WriteString(st.Label.Render("") + fmt.Sprintf("%s, %s %s", r.BillingAddress.City, r.BillingAddress.Country, r.BillingAddress.PostalCode) + "\n")

		if len(r.PaymentMethods) == 0 {
			card.WriteString(st.Muted.Render("No payment methods"))
		}
		for _, pm := range r.PaymentMethods {
			line := fmt.Sprintf("%s  %s  %s", format.MaskCardNumber(pm.CardNumber), pm.CardHolder, pm.ExpiryDate)
			if pm.IsDefault {
				line += st.Success.Render("  Default")
			}
			if idx == v.cursor {
				line = st.Selected.Render("> ") + line
			} else {
				line = "  " + line
			}
			card.WriteString(line + "\n")
			idx++
		}

		b.WriteString(st.Panel.Render(strings.TrimRight(card.String(), "\n")))
		b.WriteString("\n")
	}

	return b.String()
}
