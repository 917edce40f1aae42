package marketplace

import (
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Payload keys accepted by the intake forms.
const (
	fieldCompany  = "company"
	fieldContact  = "contact"
	fieldEmail    = "email"
	fieldPhone    = "phone"
	fieldCity     = "city"
	fieldWhen     = "when"
	fieldMessage  = "message"
	fieldPeople   = "people"
	fieldHours    = "hours_estimate"
	fieldUrgent   = "urgent"
	fieldSource   = "source"
	fieldHoneypot = "website"
)

// Bounds for the quote inputs.
const (
	MinHeadcount = 1
	MaxHeadcount = 20
	MinHours     = 1
	MaxHours     = 24
)

// Per-field rune limits; longer input is cut, not rejected.
var fieldLimits = map[string]int{
	fieldCompany: 200,
	fieldContact: 200,
	fieldEmail:   254,
	fieldPhone:   50,
	fieldCity:    120,
	fieldWhen:    120,
	fieldMessage: 5000,
	fieldSource:  64,
}

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Intake is a validated, normalized intake payload.
type Intake struct {
	Company     string `json:"company" validate:"required"`
	ContactName string `json:"contact" validate:"required"`
	Email       string `json:"email" validate:"required,basic_email"`
	Phone       string `json:"phone"`
	City        string `json:"city"`
	When        string `json:"when"`
	Message     string `json:"message"`
	Headcount   int    `json:"people"`
	Hours       int    `json:"hours_estimate"`
	Urgent      bool   `json:"urgent"`
	Source      string `json:"source"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("basic_email", func(fl validator.FieldLevel) bool {
		return emailShape.MatchString(fl.Field().String())
	})
	return v
}

// ParseIntake validates and normalizes an untyped payload. The honeypot is
// checked before anything else; rejections are never partial.
func ParseIntake(raw map[string]any) (Intake, error) {
	if str(raw, fieldHoneypot) != "" {
		return Intake{}, &ValidationError{Kind: KindSpam}
	}

	in := Intake{
		Company:     str(raw, fieldCompany),
		ContactName: str(raw, fieldContact),
		Email:       str(raw, fieldEmail),
		Phone:       str(raw, fieldPhone),
		City:        str(raw, fieldCity),
		When:        str(raw, fieldWhen),
		Message:     str(raw, fieldMessage),
		Headcount:   Clamp(raw[fieldPeople], MinHeadcount, MaxHeadcount),
		Hours:       Clamp(raw[fieldHours], MinHours, MaxHours),
		Urgent:      truthy(raw[fieldUrgent]),
		Source:      NormalizeSource(str(raw, fieldSource)),
	}

	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return Intake{}, err
		}
		return Intake{}, classify(fieldErrs)
	}
	return in, nil
}

// classify maps validator failures onto the intake error kinds. Missing
// fields win over a malformed email.
func classify(fieldErrs validator.ValidationErrors) *ValidationError {
	var missing, malformed []string
	for _, fe := range fieldErrs {
		if fe.Tag() == "required" {
			missing = append(missing, fe.Field())
			continue
		}
		malformed = append(malformed, fe.Field())
	}
	if len(missing) > 0 {
		return &ValidationError{Kind: KindMissingRequired, Fields: missing}
	}
	return &ValidationError{Kind: KindInvalidEmail, Fields: malformed}
}

// Clamp coerces v to an integer in [lo, hi]. Anything that does not parse as a
// finite number yields lo; fractions are truncated toward zero.
func Clamp(v any, lo, hi int) int {
	f, ok := number(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return lo
	}
	n := math.Trunc(f)
	switch {
	case n < float64(lo):
		return lo
	case n > float64(hi):
		return hi
	}
	return int(n)
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}

// str returns the trimmed, length-capped string form of raw[key].
func str(raw map[string]any, key string) string {
	var s string
	switch v := raw[key].(type) {
	case string:
		s = v
	case json.Number:
		s = v.String()
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(v)
	}
	s = strings.TrimSpace(s)
	if limit, ok := fieldLimits[key]; ok {
		s = truncate(s, limit)
	}
	return s
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return strings.TrimSpace(string(r[:limit]))
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case float64:
		return b != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1", "on", "yes", "ja":
			return true
		}
	}
	return false
}
