package shipping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalized(t *testing.T) {
	info := ShippingInformation{
		Address: Address{
			Line1:      "  123 Market St ",
			City:       "San Francisco\t",
			State:      " CA",
			PostalCode: "94107 ",
			Country:    " us ",
		},
		Name:  " Fake Name ",
		Phone: "6504604645\n",
	}

	got := info.Normalized()

	assert.Equal(t, "123 Market St", got.Address.Line1)
	assert.Equal(t, "San Francisco", got.Address.City)
	assert.Equal(t, "CA", got.Address.State)
	assert.Equal(t, "94107", got.Address.PostalCode)
	assert.Equal(t, "US", got.Address.Country)
	assert.Equal(t, "Fake Name", got.Name)
	assert.Equal(t, "6504604645", got.Phone)

	// Original is untouched
	assert.Equal(t, " us ", info.Address.Country)
}

func TestFieldGetSetRoundTrip(t *testing.T) {
	var info ShippingInformation
	for _, f := range Fields {
		info.Set(f, "value-"+string(f))
	}
	for _, f := range Fields {
		assert.Equal(t, "value-"+string(f), info.Get(f), "field %s", f)
	}
	assert.False(t, info.IsZero())
}

func TestParseField(t *testing.T) {
	f, err := ParseField(" Postal_Code ")
	require.NoError(t, err)
	assert.Equal(t, FieldPostalCode, f)

	_, err = ParseField("zip")
	require.Error(t, err)
}

func TestFieldForPath(t *testing.T) {
	for _, f := range Fields {
		got, ok := FieldForPath(f.Path())
		require.True(t, ok, "path for %s", f)
		assert.Equal(t, f, got)
	}

	_, ok := FieldForPath("Address.Planet")
	assert.False(t, ok)
}

func TestDisplayAmount(t *testing.T) {
	tests := []struct {
		method ShippingMethod
		want   string
	}{
		{ShippingMethod{Amount: 0, Currency: "usd"}, "Free"},
		{ShippingMethod{Amount: 599, Currency: "usd"}, "5.99 USD"},
		{ShippingMethod{Amount: 1205, Currency: "cad"}, "12.05 CAD"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.method.DisplayAmount())
	}
}

func TestAPIErrorMessage(t *testing.T) {
	err := APIError{Message: "Something's wrong", RequestID: "ID123", StatusCode: 400}
	assert.Equal(t, "api error 400 (request ID123): Something's wrong", err.Error())

	err.RequestID = ""
	assert.Equal(t, "api error 400: Something's wrong", err.Error())
}
