package headless

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/mark3labs/shipflow/internal/bus"
	"github.com/mark3labs/shipflow/internal/flow"
	"github.com/mark3labs/shipflow/internal/shipping"
	"github.com/mark3labs/shipflow/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleInfo() *shipping.ShippingInformation {
	return &shipping.ShippingInformation{
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

func methods() []shipping.ShippingMethod {
	return []shipping.ShippingMethod{
		{ID: "ups-ground", Label: "UPS Ground", Detail: "Arrives in 3-5 days", Currency: "USD"},
		{ID: "fedex", Label: "FedEx", Detail: "Arrives tomorrow", Amount: 599, Currency: "USD"},
	}
}

// newChannel returns a run channel with a validator answering on it, or a
// bare channel when cfg is nil.
func newChannel(t *testing.T, cfg *validator.Config) *bus.Channel {
	t.Helper()

	ns, err := bus.StartEmbedded()
	require.NoError(t, err)
	nc, err := bus.ConnectInProcess(ns)
	require.NoError(t, err)
	ch := bus.NewChannel(nc, bus.RunID(t.Name()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	if cfg != nil {
		v := validator.New(ch, *cfg, nil)
		sub, err := v.Listen()
		require.NoError(t, err)
		go func() {
			defer close(done)
			_ = v.Serve(ctx, sub)
		}()
	} else {
		close(done)
	}

	t.Cleanup(func() {
		cancel()
		<-done
		_ = bus.Shutdown(nc, ns)
	})
	return ch
}

func required() flow.Configuration {
	return flow.Configuration{ShippingInfoRequired: true, PrepopulatedShippingInfo: exampleInfo()}
}

func TestRun_PicksPreselectedMethod(t *testing.T) {
	ch := newChannel(t, &validator.Config{ShippingMethods: methods()})
	var out bytes.Buffer

	res, err := Run(context.Background(), ch, Options{Configuration: required(), Timeout: 5 * time.Second, Out: &out})
	require.NoError(t, err)

	assert.Equal(t, *exampleInfo(), res.ShippingInformation)
	require.NotNil(t, res.ShippingMethod)
	assert.Equal(t, "ups-ground", res.ShippingMethod.ID)
	assert.False(t, res.Cancelled)
	assert.Contains(t, out.String(), "Add an address")
	assert.Contains(t, out.String(), "Select shipping method")
	assert.Contains(t, out.String(), "Selected UPS Ground (Free)")
}

func TestRun_PicksRequestedMethod(t *testing.T) {
	ch := newChannel(t, &validator.Config{ShippingMethods: methods()})

	res, err := Run(context.Background(), ch, Options{Configuration: required(), MethodID: "fedex", Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "fedex", res.ShippingMethod.ID)
}

func TestRun_UnknownMethod(t *testing.T) {
	ch := newChannel(t, &validator.Config{ShippingMethods: methods()})

	_, err := Run(context.Background(), ch, Options{Configuration: required(), MethodID: "carrier-pigeon", Timeout: 5 * time.Second})
	assert.ErrorIs(t, err, flow.ErrUnknownMethod)
}

func TestRun_AddressOnly(t *testing.T) {
	ch := newChannel(t, nil)
	cfg := required()
	cfg.ShippingInfoRequired = false

	res, err := Run(context.Background(), ch, Options{Configuration: cfg})
	require.NoError(t, err)
	assert.Equal(t, *exampleInfo(), res.ShippingInformation)
	assert.Nil(t, res.ShippingMethod)
}

func TestRun_IncompleteAddress(t *testing.T) {
	ch := newChannel(t, nil)

	_, err := Run(context.Background(), ch, Options{Configuration: flow.DefaultConfiguration()})
	require.ErrorIs(t, err, ErrNoShippingInfo)
	assert.Contains(t, err.Error(), "Address line 1")
}

func TestRun_Rejected(t *testing.T) {
	ch := newChannel(t, &validator.Config{AllowedCountries: []string{"CA"}})

	_, err := Run(context.Background(), ch, Options{Configuration: required(), Timeout: 5 * time.Second})
	assert.ErrorIs(t, err, ErrRejected)
}

func TestRun_APIException(t *testing.T) {
	ch := newChannel(t, &validator.Config{ShippingMethods: methods(), FailMessage: "Something's wrong", FailStatus: 400})
	var out bytes.Buffer

	_, err := Run(context.Background(), ch, Options{Configuration: required(), Timeout: 5 * time.Second, Out: &out})
	require.Error(t, err)

	var apiErr *shipping.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 400, apiErr.StatusCode)
	assert.Contains(t, out.String(), "! Something's wrong")
}

func TestRun_RetriesAfterAPIException(t *testing.T) {
	ch := newChannel(t, &validator.Config{ShippingMethods: methods(), FailMessage: "Something's wrong", FailStatus: 400})

	res, err := Run(context.Background(), ch, Options{Configuration: required(), Retries: 1, Timeout: 5 * time.Second})
	require.NoError(t, err)
	assert.Equal(t, "ups-ground", res.ShippingMethod.ID)
}

func TestRun_Timeout(t *testing.T) {
	ch := newChannel(t, nil)

	_, err := Run(context.Background(), ch, Options{Configuration: required(), Timeout: 100 * time.Millisecond})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
