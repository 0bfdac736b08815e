// Package shipping holds the data exchanged between the flow controller and
// its external collaborators: the captured shipping information, the methods
// offered by the validator, and the errors it can raise.
package shipping

import (
	"fmt"
	"strings"
)

// Address is a postal address. Validation tags are evaluated by the flow's
// validation gate; fields may be excluded per country or configuration.
type Address struct {
	Line1      string `json:"line1" yaml:"line1" mapstructure:"line1" validate:"required"`
	Line2      string `json:"line2,omitempty" yaml:"line2,omitempty" mapstructure:"line2"`
	City       string `json:"city" yaml:"city" mapstructure:"city" validate:"required"`
	State      string `json:"state" yaml:"state" mapstructure:"state" validate:"required"`
	PostalCode string `json:"postal_code" yaml:"postal_code" mapstructure:"postal_code" validate:"required,postcode"`
	Country    string `json:"country" yaml:"country" mapstructure:"country" validate:"required,iso3166_1_alpha2"`
}

// ShippingInformation is the address plus recipient details captured by the
// address step.
type ShippingInformation struct {
	Address Address `json:"address" yaml:"address" mapstructure:"address"`
	Name    string  `json:"name" yaml:"name" mapstructure:"name" validate:"required"`
	Phone   string  `json:"phone" yaml:"phone" mapstructure:"phone" validate:"required"`
}

// Normalized returns a copy with surrounding whitespace removed from every
// field and the country code upper-cased.
func (s ShippingInformation) Normalized() ShippingInformation {
	trim := strings.TrimSpace
	return ShippingInformation{
		Address: Address{
			Line1:      trim(s.Address.Line1),
			Line2:      trim(s.Address.Line2),
			City:       trim(s.Address.City),
			State:      trim(s.Address.State),
			PostalCode: trim(s.Address.PostalCode),
			Country:    strings.ToUpper(trim(s.Address.Country)),
		},
		Name:  trim(s.Name),
		Phone: trim(s.Phone),
	}
}

// IsZero reports whether nothing has been captured yet.
func (s ShippingInformation) IsZero() bool {
	return s == ShippingInformation{}
}

// ShippingMethod is one option returned by the external validator.
// Amount is in the smallest currency unit.
type ShippingMethod struct {
	ID       string `json:"id" yaml:"id" mapstructure:"id"`
	Label    string `json:"label" yaml:"label" mapstructure:"label"`
	Detail   string `json:"detail,omitempty" yaml:"detail,omitempty" mapstructure:"detail"`
	Amount   int64  `json:"amount" yaml:"amount" mapstructure:"amount"`
	Currency string `json:"currency" yaml:"currency" mapstructure:"currency"`
}

// DisplayAmount formats the amount as major.minor units with the currency code.
func (m ShippingMethod) DisplayAmount() string {
	if m.Amount == 0 {
		return "Free"
	}
	return fmt.Sprintf("%d.%02d %s", m.Amount/100, m.Amount%100, strings.ToUpper(m.Currency))
}

// APIError is a structured failure raised by an external collaborator.
type APIError struct {
	Message    string `json:"message"`
	RequestID  string `json:"request_id"`
	StatusCode int    `json:"status_code"`
}

func (e APIError) Error() string {
	if e.RequestID == "" {
		return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error %d (request %s): %s", e.StatusCode, e.RequestID, e.Message)
}
