package flow

// Step is one screen of the wizard.
type Step int

const (
	StepAddress Step = iota
	StepShippingMethod
)

// StepInfo is the display metadata of a step.
type StepInfo struct {
	Title      string // Display title
	ContentKey string // Identifies which form renders the step
}

var catalog = [...]StepInfo{
	StepAddress:        {Title: "Add an address", ContentKey: "address-form"},
	StepShippingMethod: {Title: "Select shipping method", ContentKey: "shipping-method-form"},
}

// Catalog returns every step in wizard order.
func Catalog() []Step {
	return []Step{StepAddress, StepShippingMethod}
}

// Info returns the catalog entry for the step.
func (s Step) Info() StepInfo {
	if s < 0 || int(s) >= len(catalog) {
		return StepInfo{}
	}
	return catalog[s]
}

// Title returns the display title of the step.
func (s Step) Title() string {
	return s.Info().Title
}

func (s Step) String() string {
	switch s {
	case StepAddress:
		return "ADDRESS"
	case StepShippingMethod:
		return "SHIPPING_METHOD"
	default:
		return "UNKNOWN"
	}
}

// applicableSteps returns the sequence shown for a configuration.
func applicableSteps(cfg Configuration) []Step {
	if !cfg.ShippingInfoRequired {
		return []Step{StepAddress}
	}
	return Catalog()
}
