// Package bus is the event channel connecting a wizard run to its external
// validator and error sources. Events travel over an embedded NATS server on
// subjects scoped to one run.
package bus

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/mark3labs/shipflow/internal/shipping"
)

// Type identifies the kind of an event.
type Type string

const (
	// TypeShippingInfoSubmitted is published by the controller when the
	// address passes local validation.
	TypeShippingInfoSubmitted Type = "shipping_info_submitted"
	// TypeShippingInfoProcessed is the validator's verdict.
	TypeShippingInfoProcessed Type = "shipping_info_processed"
	// TypeAPIException may be published by any collaborator at any time.
	TypeAPIException Type = "api_exception"
)

// Types lists every event type carried by the bus.
var Types = []Type{TypeShippingInfoSubmitted, TypeShippingInfoProcessed, TypeAPIException}

const subjectRoot = "shipflow"

// SubjectForRun returns the wildcard subject for all events of a run.
// Example: "shipflow.checkout-42.>"
func SubjectForRun(run string) string {
	return fmt.Sprintf("%s.%s.>", subjectRoot, run)
}

// SubjectForEvent returns the subject for one event type in a run.
// Example: "shipflow.checkout-42.shipping_info_submitted"
func SubjectForEvent(run string, typ Type) string {
	return fmt.Sprintf("%s.%s.%s", subjectRoot, run, typ)
}

// RunID derives a subject-safe run identifier from a user-supplied name.
// An empty or unusable name yields a random identifier.
func RunID(name string) string {
	if id := slug.Make(name); id != "" {
		return id
	}
	return "run-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// Event is the envelope for everything published on the bus.
type Event struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Run       string          `json:"run"`
	Type      Type            `json:"type"`
	Data      json.RawMessage `json:"data"`
}

// NewEvent wraps a payload in an envelope for the given run.
func NewEvent(run string, typ Type, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshaling %s payload: %w", typ, err)
	}
	return Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Run:       run,
		Type:      typ,
		Data:      data,
	}, nil
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", e.Type, err)
	}
	return nil
}

// ShippingInfoSubmitted carries the captured shipping information to the
// external validator.
type ShippingInfoSubmitted struct {
	RequestID           string                       `json:"request_id"`
	ShippingInformation shipping.ShippingInformation `json:"shipping_information"`
}

// ShippingInfoProcessed is the validator's reply to a submission.
// RequestID is optional; when set it must match the outstanding submission.
type ShippingInfoProcessed struct {
	RequestID             string                    `json:"request_id,omitempty"`
	IsShippingInfoValid   bool                      `json:"is_shipping_info_valid"`
	ShippingMethods       []shipping.ShippingMethod `json:"shipping_methods,omitempty"`
	DefaultShippingMethod *shipping.ShippingMethod  `json:"default_shipping_method,omitempty"`
}

// APIException reports a failure raised by an external collaborator.
type APIException struct {
	Exception shipping.APIError `json:"exception"`
}
