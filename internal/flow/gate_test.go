package flow

import (
	"testing"

	"github.com/mark3labs/shipflow/internal/shipping"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleInfo() shipping.ShippingInformation {
	return shipping.ShippingInformation{
		Address: shipping.Address{
			City:       "San Francisco",
			Country:    "US",
			Line1:      "123 Market St",
			Line2:      "#345",
			PostalCode: "94107",
			State:      "CA",
		},
		Name:  "Fake Name",
		Phone: "6504604645",
	}
}

func exampleMethods() []shipping.ShippingMethod {
	return []shipping.ShippingMethod{
		{ID: "ups-ground", Label: "UPS Ground", Detail: "Arrives in 3-5 days", Amount: 0, Currency: "USD"},
		{ID: "fedex", Label: "FedEx", Detail: "Arrives tomorrow", Amount: 599, Currency: "USD"},
	}
}

func addressSession(info shipping.ShippingInformation, cfg Configuration) *Session {
	s := newSession(cfg)
	s.ShippingInformation = info
	return s
}

func TestGate_CompleteAddress(t *testing.T) {
	v := NewGate().Check(StepAddress, addressSession(exampleInfo(), DefaultConfiguration()))

	assert.True(t, v.Valid)
	require.NotNil(t, v.Payload)
	assert.Equal(t, exampleInfo(), *v.Payload)
	assert.Empty(t, v.Invalid)
}

func TestGate_MissingFields(t *testing.T) {
	tests := []struct {
		name  string
		edit  func(*shipping.ShippingInformation)
		field shipping.Field
	}{
		{"line1", func(i *shipping.ShippingInformation) { i.Address.Line1 = "" }, shipping.FieldLine1},
		{"city", func(i *shipping.ShippingInformation) { i.Address.City = "  " }, shipping.FieldCity},
		{"state", func(i *shipping.ShippingInformation) { i.Address.State = "" }, shipping.FieldState},
		{"postal code", func(i *shipping.ShippingInformation) { i.Address.PostalCode = "" }, shipping.FieldPostalCode},
		{"country", func(i *shipping.ShippingInformation) { i.Address.Country = "" }, shipping.FieldCountry},
		{"name", func(i *shipping.ShippingInformation) { i.Name = "" }, shipping.FieldName},
		{"phone", func(i *shipping.ShippingInformation) { i.Phone = "" }, shipping.FieldPhone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := exampleInfo()
			tt.edit(&info)

			v := NewGate().Check(StepAddress, addressSession(info, DefaultConfiguration()))
			assert.False(t, v.Valid)
			assert.Nil(t, v.Payload)
			assert.Contains(t, v.Invalid, tt.field)
		})
	}
}

func TestGate_Line2IsNeverRequired(t *testing.T) {
	info := exampleInfo()
	info.Address.Line2 = ""

	v := NewGate().Check(StepAddress, addressSession(info, DefaultConfiguration()))
	assert.True(t, v.Valid)
}

func TestGate_EmptyAddressReportsEveryRequiredField(t *testing.T) {
	v := NewGate().Check(StepAddress, addressSession(shipping.ShippingInformation{}, DefaultConfiguration()))

	assert.False(t, v.Valid)
	assert.ElementsMatch(t, []shipping.Field{
		shipping.FieldLine1,
		shipping.FieldCity,
		shipping.FieldState,
		shipping.FieldPostalCode,
		shipping.FieldCountry,
		shipping.FieldName,
		shipping.FieldPhone,
	}, v.Invalid)
}

func TestGate_OptionalAndHiddenFields(t *testing.T) {
	info := exampleInfo()
	info.Phone = ""
	info.Address.State = ""

	cfg := DefaultConfiguration()
	cfg.OptionalFields = []shipping.Field{shipping.FieldPhone}
	cfg.HiddenFields = []shipping.Field{shipping.FieldState}

	v := NewGate().Check(StepAddress, addressSession(info, cfg))
	assert.True(t, v.Valid)
}

func TestGate_CountryRules(t *testing.T) {
	tests := []struct {
		name    string
		country string
		postal  string
		valid   bool
	}{
		{"us zip", "US", "94107", true},
		{"us zip plus four", "US", "94107-1234", true},
		{"us malformed zip", "US", "9410", false},
		{"canada", "CA", "K1A 0B1", true},
		{"canada lowercase", "CA", "k1a0b1", true},
		{"canada malformed", "CA", "12345", false},
		{"no postal code country", "AE", "", true},
		{"unknown pattern accepts any code", "DE", "10115", true},
		{"lowercase country is normalized", "us", "94107", true},
		{"unknown country", "ZZ", "12345", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := exampleInfo()
			info.Address.Country = tt.country
			info.Address.PostalCode = tt.postal

			v := NewGate().Check(StepAddress, addressSession(info, DefaultConfiguration()))
			assert.Equal(t, tt.valid, v.Valid)
		})
	}
}

func TestGate_PayloadIsNormalized(t *testing.T) {
	info := exampleInfo()
	info.Name = "  Fake Name "
	info.Address.Country = "us"

	v := NewGate().Check(StepAddress, addressSession(info, DefaultConfiguration()))
	require.True(t, v.Valid)
	assert.Equal(t, exampleInfo(), *v.Payload)
}

func TestGate_ShippingMethod(t *testing.T) {
	s := addressSession(exampleInfo(), DefaultConfiguration())
	s.Step = StepShippingMethod
	gate := NewGate()

	assert.False(t, gate.Check(StepShippingMethod, s).Valid, "no methods supplied")

	s.setShippingMethods(exampleMethods(), nil)
	v := gate.Check(StepShippingMethod, s)
	assert.True(t, v.Valid)
	require.NotNil(t, v.Payload)
	assert.Equal(t, exampleInfo(), *v.Payload)

	s.SelectedMethod = &shipping.ShippingMethod{ID: "carrier-pigeon"}
	assert.False(t, gate.Check(StepShippingMethod, s).Valid, "selection outside the supplied list")

	s.SelectedMethod = nil
	assert.False(t, gate.Check(StepShippingMethod, s).Valid)
}

func TestUsesPostalCode(t *testing.T) {
	assert.True(t, UsesPostalCode("US"))
	assert.False(t, UsesPostalCode("ae"))
	assert.False(t, UsesPostalCode("HK"))
}

func TestSession_DefaultShippingMethod(t *testing.T) {
	s := newSession(DefaultConfiguration())

	s.setShippingMethods(exampleMethods(), &shipping.ShippingMethod{ID: "fedex"})
	require.NotNil(t, s.SelectedMethod)
	assert.Equal(t, "fedex", s.SelectedMethod.ID)

	s.setShippingMethods(exampleMethods(), &shipping.ShippingMethod{ID: "missing"})
	require.NotNil(t, s.SelectedMethod)
	assert.Equal(t, "ups-ground", s.SelectedMethod.ID)

	s.setShippingMethods(nil, nil)
	assert.Nil(t, s.SelectedMethod)
}

func TestStepCatalog(t *testing.T) {
	assert.Equal(t, []Step{StepAddress, StepShippingMethod}, Catalog())
	assert.Equal(t, "Add an address", StepAddress.Title())
	assert.Equal(t, "Select shipping method", StepShippingMethod.Title())
	assert.Equal(t, "address-form", StepAddress.Info().ContentKey)
	assert.Equal(t, "shipping-method-form", StepShippingMethod.Info().ContentKey)
	assert.Equal(t, "UNKNOWN", Step(7).String())
	assert.Empty(t, Step(7).Title())
}

func TestProgressNotifiesOnChangeOnly(t *testing.T) {
	var p Progress
	var seen []bool
	p.OnChange(func(active bool) { seen = append(seen, active) })

	p.activate()
	p.activate()
	p.deactivate()
	p.deactivate()

	assert.Equal(t, []bool{true, false}, seen)
	assert.False(t, p.Active())
}
