package flow

import (
	"github.com/mark3labs/shipflow/internal/shipping"
)

// Configuration is supplied when a wizard run starts and is read-only for
// its lifetime.
type Configuration struct {
	// ShippingInfoRequired adds the shipping method step after the address.
	ShippingInfoRequired bool
	// PrepopulatedShippingInfo pre-fills the address step.
	PrepopulatedShippingInfo *shipping.ShippingInformation
	// OptionalFields are rendered but not required.
	OptionalFields []shipping.Field
	// HiddenFields are neither rendered nor required.
	HiddenFields []shipping.Field
}

// DefaultConfiguration returns a configuration with shipping info required.
func DefaultConfiguration() Configuration {
	return Configuration{ShippingInfoRequired: true}
}

// IsHidden reports whether the field is hidden from the address form.
func (c Configuration) IsHidden(f shipping.Field) bool {
	return containsField(c.HiddenFields, f)
}

// IsOptional reports whether the field may be left empty.
func (c Configuration) IsOptional(f shipping.Field) bool {
	return containsField(c.OptionalFields, f) || containsField(c.HiddenFields, f)
}

func containsField(fields []shipping.Field, f shipping.Field) bool {
	for _, candidate := range fields {
		if candidate == f {
			return true
		}
	}
	return false
}

// Session is the mutable state of one wizard run.
type Session struct {
	Config              Configuration
	Step                Step
	ShippingInformation shipping.ShippingInformation
	Valid               bool // Last known validity of the captured information
	ShippingMethods     []shipping.ShippingMethod
	SelectedMethod      *shipping.ShippingMethod
}

func newSession(cfg Configuration) *Session {
	s := &Session{Config: cfg, Step: StepAddress}
	if cfg.PrepopulatedShippingInfo != nil {
		s.ShippingInformation = *cfg.PrepopulatedShippingInfo
	}
	return s
}

// setShippingMethods stores the methods supplied by the validator and
// preselects the default, or the first method when no default is given.
func (s *Session) setShippingMethods(methods []shipping.ShippingMethod, def *shipping.ShippingMethod) {
	s.ShippingMethods = append([]shipping.ShippingMethod(nil), methods...)
	s.SelectedMethod = nil

	if def != nil {
		if m := s.method(def.ID); m != nil {
			s.SelectedMethod = m
			return
		}
	}
	if len(s.ShippingMethods) > 0 {
		s.SelectedMethod = &s.ShippingMethods[0]
	}
}

func (s *Session) method(id string) *shipping.ShippingMethod {
	for i := range s.ShippingMethods {
		if s.ShippingMethods[i].ID == id {
			return &s.ShippingMethods[i]
		}
	}
	return nil
}
