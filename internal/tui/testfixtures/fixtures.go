package testfixtures

import (
	"github.com/mark3labs/shipflow/internal/bus"
	"github.com/mark3labs/shipflow/internal/flow"
	"github.com/mark3labs/shipflow/internal/shipping"
)

// Fixed test values for consistent output
const (
	FixedRun = "test-run"
)

// ExampleInfo returns a complete US address.
func ExampleInfo() shipping.ShippingInformation {
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

// ExampleMethods returns a free and a paid shipping method.
func ExampleMethods() []shipping.ShippingMethod {
	return []shipping.ShippingMethod{
		{ID: "ups-ground", Label: "UPS Ground", Detail: "Arrives in 3-5 days", Currency: "USD"},
		{ID: "fedex", Label: "FedEx", Detail: "Arrives tomorrow", Amount: 599, Currency: "USD"},
	}
}

// RequiredConfiguration pre-fills the example address and requires a
// shipping method.
func RequiredConfiguration() flow.Configuration {
	info := ExampleInfo()
	return flow.Configuration{ShippingInfoRequired: true, PrepopulatedShippingInfo: &info}
}

// Processed builds a validator reply. Valid replies carry ExampleMethods.
func Processed(requestID string, valid bool) bus.Event {
	p := bus.ShippingInfoProcessed{RequestID: requestID, IsShippingInfoValid: valid}
	if valid {
		p.ShippingMethods = ExampleMethods()
	}
	return mustEvent(bus.TypeShippingInfoProcessed, p)
}

// Exception builds an API exception event.
func Exception(message string, status int) bus.Event {
	return mustEvent(bus.TypeAPIException, bus.APIException{
		Exception: shipping.APIError{Message: message, StatusCode: status},
	})
}

func mustEvent(typ bus.Type, payload any) bus.Event {
	evt, err := bus.NewEvent(FixedRun, typ, payload)
	if err != nil {
		panic(err)
	}
	return evt
}
