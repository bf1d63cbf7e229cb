package common

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/medrecords/constants"
)

// FieldError is one failed rule.
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) Error() string {
	return e.Field + " " + e.Message
}

// Rule checks one value and returns "" when it passes, else the reason.
type Rule func(value any) string

// Validator collects rule failures across fields.
type Validator struct {
	failures []FieldError
}

func NewValidator() *Validator {
	return &Validator{}
}

// Field applies rules to value in order and records every failure.
func (v *Validator) Field(name string, value any, rules ...Rule) *Validator {
	for _, rule := range rules {
		if msg := rule(value); msg != "" {
			v.failures = append(v.failures, FieldError{Field: name, Message: msg})
		}
	}
	return v
}

// Failures lists the recorded failures.
func (v *Validator) Failures() []FieldError {
	return v.failures
}

// Err returns an INVALID_INPUT AppError wrapping ErrInvalidInput, or nil when
// every rule passed.
func (v *Validator) Err() error {
	if len(v.failures) == 0 {
		return nil
	}
	parts := make([]string, len(v.failures))
	for i, f := range v.failures {
		parts[i] = f.Error()
	}
	return NewAppError("INVALID_INPUT", strings.Join(parts, "; "), ErrInvalidInput)
}

// Required rejects nil, blank strings and empty byte slices.
func Required(value any) string {
	switch v := value.(type) {
	case nil:
		return "is required"
	case string:
		if strings.TrimSpace(v) == "" {
			return "is required"
		}
	case []byte:
		if len(v) == 0 {
			return "is required"
		}
	}
	return ""
}

// MaxLength rejects strings longer than max runes.
func MaxLength(max int) Rule {
	return func(value any) string {
		if s, ok := value.(string); ok && utf8.RuneCountInString(s) > max {
			return fmt.Sprintf("must be at most %d characters", max)
		}
		return ""
	}
}

func UUID(value any) string {
	s, ok := value.(string)
	if !ok {
		return "must be a string"
	}
	if _, err := uuid.Parse(s); err != nil {
		return "must be a valid UUID"
	}
	return ""
}

// MediaType accepts anything shaped like type/subtype. Whether the type is
// supported is the pipeline's call.
func MediaType(value any) string {
	s, ok := value.(string)
	if !ok {
		return "must be a string"
	}
	mt := constants.NormalizeMediaType(s)
	slash := strings.IndexByte(mt, '/')
	if slash <= 0 || slash == len(mt)-1 {
		return "must look like type/subtype"
	}
	return ""
}
