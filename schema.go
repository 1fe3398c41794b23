package cartconf

import (
	"fmt"
	"regexp"

	"github.com/goccy/go-reflect"
	"github.com/hashicorp/go-multierror"
)

// Validator checks a single dict value.
type Validator interface {
	Validate(value string) error
}

// Schema is a set of per-key validation rules evaluated against an
// emitted variant dict. Unlike the tree-shaped configuration it
// validates the output of, a Schema's rules are flat: every dict key is
// a plain identifier, never a dotted path.
type Schema struct {
	Rules map[string][]Validator
}

// NewSchema builds a Schema with the reserved keys (name, shortname, dep)
// pre-registered as required, matching the invariant that every emitted
// dict carries them.
func NewSchema() *Schema {
	s := &Schema{Rules: make(map[string][]Validator)}
	s.AddRule("name", Required())
	s.AddRule("shortname", Required())
	s.AddRule("dep", Required())
	return s
}

// AddRule registers one or more validators for a dict key.
func (s *Schema) AddRule(key string, validators ...Validator) *Schema {
	s.Rules[key] = append(s.Rules[key], validators...)
	return s
}

// Validate checks dict against every registered rule, reporting a
// *multierror.Error aggregating every violation found (not just the
// first), or nil if dict satisfies the schema.
func (s *Schema) Validate(dict map[string]string) error {
	var result *multierror.Error
	for key, validators := range s.Rules {
		value, present := dict[key]
		for _, v := range validators {
			if _, required := v.(requiredValidator); required && !present {
				result = multierror.Append(result, fmt.Errorf("%s: value is required", key))
				continue
			}
			if !present {
				continue
			}
			if err := v.Validate(value); err != nil {
				result = multierror.Append(result, fmt.Errorf("%s: %w", key, err))
			}
		}
	}
	if result == nil {
		return nil
	}
	return result
}

type requiredValidator struct{}

func (requiredValidator) Validate(string) error { return nil }

// Required reports a key as missing when absent from the dict.
func Required() Validator { return requiredValidator{} }

type patternValidator struct{ re *regexp.Regexp }

func (v patternValidator) Validate(value string) error {
	if !v.re.MatchString(value) {
		return fmt.Errorf("value %q does not match pattern %s", value, v.re.String())
	}
	return nil
}

// Pattern validates a value against a regular expression.
func Pattern(pattern string) (Validator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return patternValidator{re: re}, nil
}

type enumValidator struct{ values []string }

func (v enumValidator) Validate(value string) error {
	for _, candidate := range v.values {
		if candidate == value {
			return nil
		}
	}
	return fmt.Errorf("value %q is not one of %v", value, v.values)
}

// Enum validates that a value is one of a fixed set of strings.
func Enum(values ...string) Validator { return enumValidator{values: values} }

type customValidator struct{ fn func(string) error }

func (v customValidator) Validate(value string) error { return v.fn(value) }

// Custom wraps an arbitrary validation function.
func Custom(fn func(string) error) Validator { return customValidator{fn: fn} }

// ValidateStruct decodes dict onto v itself via Decode and reports any
// mapstructure decode error, then runs reflect-based
// required-field checks for any field tagged `cartconf:"required"` that
// decoded to its zero value. It uses goccy/go-reflect as a drop-in
// reflect replacement, matching the teacher's own reflect-heavy
// validation style.
func ValidateStruct(v interface{}, dict map[string]string) error {
	if err := Decode(dict, v); err != nil {
		return err
	}
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}
	var result *multierror.Error
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		if field.Tag.Get("cartconf") != "required" {
			continue
		}
		if val.Field(i).IsZero() {
			result = multierror.Append(result, fmt.Errorf("field %s is required", field.Name))
		}
	}
	if result == nil {
		return nil
	}
	return result
}
