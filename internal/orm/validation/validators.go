package validation

import (
	"fmt"
	"net"
	"net/mail"
	"net/url"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/conduit-lang/docmodel/internal/orm/convert"
	"github.com/conduit-lang/docmodel/internal/orm/schema"
)

// Pre-compiled regex patterns for validators
var (
	e164Pattern     = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	passwordPattern = regexp.MustCompile(`^[a-zA-Z0-9@#$%^&+=*!~)(]+$`)
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	dateTimePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}(:\d{2}(\.\d+)?)?(Z|[+-]\d{2}:\d{2})?$`)
	colorPattern    = regexp.MustCompile(`(?i)^(#|0x)([a-f0-9]{3}|[a-f0-9]{4}|[a-f0-9]{6}|[a-f0-9]{8})$|^(rgb|hsl)a?\([^)]*\)$`)
	slugPattern     = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
)

// Validator defines the interface for field validators
type Validator interface {
	Validate(value interface{}) error
}

// MinValidator validates the lower bound of numeric values
type MinValidator struct {
	Min float64
}

// Validate implements the Validator interface
func (v *MinValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	n, ok := schema.NumberAsFloat(value)
	if !ok {
		return fmt.Errorf("expected numeric value")
	}
	if n < v.Min {
		return fmt.Errorf("must be at least %v", v.Min)
	}

	return nil
}

// MaxValidator validates the upper bound of numeric values
type MaxValidator struct {
	Max float64
}

// Validate implements the Validator interface
func (v *MaxValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	n, ok := schema.NumberAsFloat(value)
	if !ok {
		return fmt.Errorf("expected numeric value")
	}
	if n > v.Max {
		return fmt.Errorf("must be at most %v", v.Max)
	}

	return nil
}

// MinLengthValidator validates the minimum character count of strings
type MinLengthValidator struct {
	MinLength int
}

// Validate implements the Validator interface
func (v *MinLengthValidator) Validate(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		return nil
	}

	if utf8.RuneCountInString(strVal) < v.MinLength {
		return fmt.Errorf("must be at least %d characters", v.MinLength)
	}

	return nil
}

// MaxLengthValidator validates the maximum character count of strings
type MaxLengthValidator struct {
	MaxLength int
}

// Validate implements the Validator interface
func (v *MaxLengthValidator) Validate(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		return nil
	}

	if utf8.RuneCountInString(strVal) > v.MaxLength {
		return fmt.Errorf("must be at most %d characters", v.MaxLength)
	}

	return nil
}

// PatternValidator validates string values against a regex pattern
type PatternValidator struct {
	Pattern *regexp.Regexp
	Message string
}

// Validate implements the Validator interface
func (v *PatternValidator) Validate(value interface{}) error {
	if value == nil {
		return nil
	}

	strVal, ok := value.(string)
	if !ok {
		return fmt.Errorf("pattern validation requires string value")
	}

	if !v.Pattern.MatchString(strVal) {
		if v.Message != "" {
			return fmt.Errorf("%s", v.Message)
		}
		return fmt.Errorf("does not match required pattern")
	}

	return nil
}

// EmailValidator validates email addresses
type EmailValidator struct{}

// Validate implements the Validator interface
func (v *EmailValidator) Validate(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		return fmt.Errorf("email validation requires string value")
	}

	// Use net/mail for RFC 5322 compliant email validation
	addr, err := mail.ParseAddress(strVal)
	if err != nil || addr.Address != strVal {
		return fmt.Errorf("must be a valid email address")
	}

	return nil
}

// URLValidator validates URLs
type URLValidator struct{}

// Validate implements the Validator interface
func (v *URLValidator) Validate(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		return fmt.Errorf("URL validation requires string value")
	}

	parsedURL, err := url.Parse(strVal)
	if err != nil {
		return fmt.Errorf("must be a valid URL")
	}

	// Ensure scheme is present
	if parsedURL.Scheme == "" {
		return fmt.Errorf("URL must include a scheme (http, https, etc.)")
	}

	// Ensure host is present
	if parsedURL.Host == "" {
		return fmt.Errorf("URL must include a host")
	}

	return nil
}

// IPValidator validates IP addresses; Version 4 or 6 restricts the family
type IPValidator struct {
	Version int
}

// Validate implements the Validator interface
func (v *IPValidator) Validate(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		return fmt.Errorf("IP validation requires string value")
	}

	ip := net.ParseIP(strVal)
	switch {
	case ip == nil:
		return fmt.Errorf("must be a valid IP address")
	case v.Version == 4 && ip.To4() == nil:
		return fmt.Errorf("must be a valid IPv4 address")
	case v.Version == 6 && (ip.To4() != nil || !strings.Contains(strVal, ":")):
		return fmt.Errorf("must be a valid IPv6 address")
	}

	return nil
}

// PhoneValidator validates phone numbers in E.164 format
type PhoneValidator struct{}

// Validate implements the Validator interface
func (v *PhoneValidator) Validate(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		return fmt.Errorf("phone validation requires string value")
	}

	// E.164 format validation: +[country code][number]
	if !e164Pattern.MatchString(strVal) {
		return fmt.Errorf("must be a valid phone number in E.164 format (+[country code][number])")
	}

	return nil
}

// DateValidator validates ISO dates and date-times
type DateValidator struct {
	WithTime bool
}

// Validate implements the Validator interface
func (v *DateValidator) Validate(value interface{}) error {
	strVal, ok := value.(string)
	if !ok {
		return fmt.Errorf("date validation requires string value")
	}

	if v.WithTime {
		if !dateTimePattern.MatchString(strVal) {
			return fmt.Errorf("must be a date-time in YYYY-MM-DDTHH:MM format")
		}
		if _, err := convert.ParseDateTime(strVal); err != nil {
			return fmt.Errorf("must be a valid date-time")
		}
		return nil
	}

	if !datePattern.MatchString(strVal) {
		return fmt.Errorf("must be a date in YYYY-MM-DD format")
	}
	if _, err := convert.ParseDate(strVal); err != nil {
		return fmt.Errorf("must be a valid date")
	}
	return nil
}

// ChoiceValidator validates select values against the widget options
type ChoiceValidator struct {
	Options []schema.Option
}

// Validate implements the Validator interface
func (v *ChoiceValidator) Validate(value interface{}) error {
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice {
		for i := 0; i < rv.Len(); i++ {
			if err := v.validateOne(rv.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	}
	return v.validateOne(value)
}

func (v *ChoiceValidator) validateOne(value interface{}) error {
	for _, opt := range v.Options {
		if reflect.DeepEqual(opt.Value, value) {
			return nil
		}
	}
	return fmt.Errorf("%v is not one of the available options", value)
}

// builtinValidator returns the semantic validator of a kind, or nil
func builtinValidator(kind schema.Kind) Validator {
	switch kind {
	case schema.KindEmail:
		return &EmailValidator{}
	case schema.KindURL:
		return &URLValidator{}
	case schema.KindIP:
		return &IPValidator{}
	case schema.KindIPv4:
		return &IPValidator{Version: 4}
	case schema.KindIPv6:
		return &IPValidator{Version: 6}
	case schema.KindPhone:
		return &PhoneValidator{}
	case schema.KindColor:
		return &PatternValidator{Pattern: colorPattern, Message: "must be a valid color code"}
	case schema.KindPassword:
		return &PatternValidator{Pattern: passwordPattern, Message: "contains characters that are not allowed"}
	case schema.KindSlug:
		return &PatternValidator{Pattern: slugPattern, Message: "must contain only lowercase letters, digits and hyphens"}
	case schema.KindDate:
		return &DateValidator{}
	case schema.KindDateTime:
		return &DateValidator{WithTime: true}
	default:
		return nil
	}
}
