package models

import "time"

type CompanyProfile struct {
	CompanyName string `json:"companyName" validate:"required,min=2"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"required,phone"`
}

type BillingAddress struct {
	Country    string `json:"country" validate:"required"`
	City       string `json:"city" validate:"required,min=2"`
	Address    string `json:"address" validate:"required,min=5"`
	PostalCode string `json:"postalCode" validate:"required,postal"`
}

type PaymentMethod struct {
	ID         string `json:"id"`
	CardNumber string `json:"cardNumber"`
	CardHolder string `json:"cardHolder"`
	ExpiryDate string `json:"expiryDate"`
	CVV        string `json:"cvv"`
	IsDefault  bool   `json:"isDefault"`
}

type BillingData struct {
	CompanyProfile CompanyProfile  `json:"companyProfile"`
	BillingAddress BillingAddress  `json:"billingAddress"`
	PaymentMethods []PaymentMethod `json:"paymentMethods"`
}

// BillingRecord is one saved submission of the billing form.
type BillingRecord struct {
	ID string `json:"id"`
	BillingData
	CreatedAt time.Time `json:"createdAt"`
}
