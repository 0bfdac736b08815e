package flow

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mark3labs/shipflow/internal/shipping"
)

// Countries whose addresses have no postal code.
var noPostalCodeCountries = map[string]bool{
	"AE": true, "AG": true, "AN": true, "AO": true, "AW": true, "BF": true, "BI": true,
	"BJ": true, "BO": true, "BS": true, "BW": true, "BZ": true, "CD": true, "CF": true,
	"CG": true, "CI": true, "CK": true, "CM": true, "DJ": true, "DM": true, "ER": true,
	"FJ": true, "GD": true, "GH": true, "GM": true, "GN": true, "GQ": true, "GY": true,
	"HK": true, "IE": true, "JM": true, "KE": true, "KI": true, "KM": true, "KN": true,
	"KP": true, "LC": true, "ML": true, "MO": true, "MR": true, "MS": true, "MU": true,
	"MW": true, "NR": true, "NU": true, "PA": true, "QA": true, "RW": true, "SB": true,
	"SC": true, "SL": true, "SO": true, "SR": true, "ST": true, "SY": true, "TF": true,
	"TK": true, "TL": true, "TO": true, "TT": true, "TV": true, "TZ": true, "UG": true,
	"VU": true, "YE": true, "ZA": true, "ZW": true,
}

var postalCodePatterns = map[string]*regexp.Regexp{
	"US": regexp.MustCompile(`^\d{5}(-\d{4})?$`),
	"CA": regexp.MustCompile(`(?i)^[ABCEGHJ-NPRSTVXY]\d[ABCEGHJ-NPRSTV-Z] ?\d[ABCEGHJ-NPRSTV-Z]\d$`),
}

// UsesPostalCode reports whether addresses in the country carry a postal code.
func UsesPostalCode(country string) bool {
	return !noPostalCodeCountries[strings.ToUpper(country)]
}

// Verdict is the outcome of a local check.
type Verdict struct {
	Valid   bool
	Payload *shipping.ShippingInformation // Set when Valid
	Invalid []shipping.Field              // Address fields that are missing or malformed
}

// Gate decides whether a step's input is complete enough to submit.
// It never blocks and never touches the network.
type Gate struct {
	validate *validator.Validate
}

// NewGate creates a gate with the address rules registered.
func NewGate() *Gate {
	v := validator.New()
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("postcode", validPostalCode)
	return &Gate{validate: v}
}

// Check evaluates the session's input for the given step.
func (g *Gate) Check(step Step, s *Session) Verdict {
	switch step {
	case StepAddress:
		return g.checkAddress(s)
	case StepShippingMethod:
		return g.checkShippingMethod(s)
	}
	return Verdict{}
}

func (g *Gate) checkAddress(s *Session) Verdict {
	info := s.ShippingInformation.Normalized()

	var except []string
	for _, f := range shipping.Fields {
		if s.Config.IsOptional(f) {
			except = append(except, f.Path())
		}
	}
	if !UsesPostalCode(info.Address.Country) {
		except = append(except, shipping.FieldPostalCode.Path())
	}

	err := g.validate.StructExcept(info, except...)
	if err == nil {
		return Verdict{Valid: true, Payload: &info}
	}

	verdict := Verdict{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			_, path, _ := strings.Cut(fe.StructNamespace(), ".")
			if f, ok := shipping.FieldForPath(path); ok {
				verdict.Invalid = append(verdict.Invalid, f)
			}
		}
	}
	return verdict
}

func (g *Gate) checkShippingMethod(s *Session) Verdict {
	if s.SelectedMethod == nil || s.method(s.SelectedMethod.ID) == nil {
		return Verdict{}
	}
	info := s.ShippingInformation.Normalized()
	return Verdict{Valid: true, Payload: &info}
}

func validPostalCode(fl validator.FieldLevel) bool {
	country := fl.Parent().FieldByName("Country")
	if !country.IsValid() {
		return true
	}
	re, ok := postalCodePatterns[strings.ToUpper(country.String())]
	if !ok {
		return true
	}
	return re.MatchString(fl.Field().String())
}
