package shipping

import (
	"fmt"
	"strings"
)

// Field identifies one input of the address form.
type Field string

const (
	FieldLine1      Field = "line1"
	FieldLine2      Field = "line2"
	FieldCity       Field = "city"
	FieldState      Field = "state"
	FieldPostalCode Field = "postal_code"
	FieldCountry    Field = "country"
	FieldName       Field = "name"
	FieldPhone      Field = "phone"
)

// Fields lists every form field in display order.
var Fields = []Field{
	FieldName,
	FieldLine1,
	FieldLine2,
	FieldCity,
	FieldState,
	FieldPostalCode,
	FieldCountry,
	FieldPhone,
}

var fieldLabels = map[Field]string{
	FieldLine1:      "Address line 1",
	FieldLine2:      "Address line 2",
	FieldCity:       "City",
	FieldState:      "State / Region",
	FieldPostalCode: "Postal code",
	FieldCountry:    "Country",
	FieldName:       "Name",
	FieldPhone:      "Phone",
}

// fieldPaths maps a form field to its struct namespace below ShippingInformation.
var fieldPaths = map[Field]string{
	FieldLine1:      "Address.Line1",
	FieldLine2:      "Address.Line2",
	FieldCity:       "Address.City",
	FieldState:      "Address.State",
	FieldPostalCode: "Address.PostalCode",
	FieldCountry:    "Address.Country",
	FieldName:       "Name",
	FieldPhone:      "Phone",
}

// Label returns the human-readable label for the field.
func (f Field) Label() string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

// Path returns the struct namespace of the field relative to ShippingInformation.
func (f Field) Path() string {
	return fieldPaths[f]
}

// FieldForPath is the inverse of Path.
func FieldForPath(path string) (Field, bool) {
	for f, p := range fieldPaths {
		if p == path {
			return f, true
		}
	}
	return "", false
}

// ParseField parses a field name as used in configuration files.
func ParseField(s string) (Field, error) {
	f := Field(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := fieldPaths[f]; !ok {
		return "", fmt.Errorf("unknown shipping field: %q", s)
	}
	return f, nil
}

// Get reads a field value.
func (s ShippingInformation) Get(f Field) string {
	switch f {
	case FieldLine1:
		return s.Address.Line1
	case FieldLine2:
		return s.Address.Line2
	case FieldCity:
		return s.Address.City
	case FieldState:
		return s.Address.State
	case FieldPostalCode:
		return s.Address.PostalCode
	case FieldCountry:
		return s.Address.Country
	case FieldName:
		return s.Name
	case FieldPhone:
		return s.Phone
	}
	return ""
}

// Set writes a field value.
func (s *ShippingInformation) Set(f Field, value string) {
	switch f {
	case FieldLine1:
		s.Address.Line1 = value
	case FieldLine2:
		s.Address.Line2 = value
	case FieldCity:
		s.Address.City = value
	case FieldState:
		s.Address.State = value
	case FieldPostalCode:
		s.Address.PostalCode = value
	case FieldCountry:
		s.Address.Country = value
	case FieldName:
		s.Name = value
	case FieldPhone:
		s.Phone = value
	}
}
