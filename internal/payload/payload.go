// Package payload decodes and validates ranking requests.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"reflect"
	"slices"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/spigell/community-ranker/internal/community"
	"github.com/spigell/community-ranker/internal/filtering"
	"github.com/spigell/community-ranker/internal/scoring"
)

// Request is a buyer's ranking request.
type Request struct {
	EmailAddress string              `mapstructure:"email_address" json:"email_address" yaml:"email_address" validate:"required,email"`
	Needs        filtering.Needs     `mapstructure:"needs" json:"needs" yaml:"needs" validate:"required"`
	Wants        scoring.Preferences `mapstructure:"wants" json:"wants" yaml:"wants" validate:"required"`
}

// ValidationError lists every problem found in a request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid payload: " + strings.Join(e.Problems, "; ")
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// Parser turns raw payloads into validated requests for one schema.
type Parser struct {
	schema   *community.Schema
	validate *validator.Validate
}

func NewParser(schema *community.Schema) *Parser {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("location", func(fl validator.FieldLevel) bool {
		return slices.Contains(schema.Locations, fl.Field().String())
	})
	_ = v.RegisterValidation("size", func(fl validator.FieldLevel) bool {
		return slices.Contains(schema.SizeLabels[:], fl.Field().String())
	})
	return &Parser{schema: schema, validate: v}
}

// Parse decodes a JSON or YAML document. A JSON string holding the payload,
// as produced by some queue producers, is unwrapped first.
func (p *Parser) Parse(data []byte) (*Request, error) {
	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ValidationError{Problems: []string{fmt.Sprintf("payload is not valid JSON or YAML: %v", err)}}
	}
	if s, ok := raw.(string); ok {
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return nil, &ValidationError{Problems: []string{fmt.Sprintf("payload string is not valid JSON: %v", err)}}
		}
	}

	m, ok := raw.(map[string]any)
	if !ok {
		return nil, &ValidationError{Problems: []string{"payload must be an object"}}
	}
	return p.Decode(m)
}

// ParseFile reads and parses an event file.
func (p *Parser) ParseFile(path string) (*Request, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read payload file: %w", err)
	}
	return p.Parse(data)
}

// Decode converts a generic map into a validated request. Weights may be
// given as strings.
func (p *Parser) Decode(m map[string]any) (*Request, error) {
	var req Request
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &req,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncKind(wholeNumbers),
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(m); err != nil {
		return nil, &ValidationError{Problems: decodeProblems(err)}
	}

	if err := p.Validate(&req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Validate checks the request against the schema.
func (p *Parser) Validate(req *Request) error {
	var problems []string

	if err := p.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, describe(fe))
		}
	}

	lo, hi := p.schema.MinPreference, p.schema.MaxPreference
	for _, key := range p.schema.PreferenceKeys() {
		w, ok := req.Wants[key]
		if !ok {
			problems = append(problems, fmt.Sprintf("wants.%s is required", key))
			continue
		}
		if err := p.validate.Var(w, fmt.Sprintf("min=%d,max=%d", lo, hi)); err != nil {
			problems = append(problems, fmt.Sprintf("wants.%s must be between %d and %d, got %d", key, lo, hi, w))
		}
	}

	known := p.schema.PreferenceKeys()
	var unknown []string
	for key := range req.Wants {
		if !slices.Contains(known, key) {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		problems = append(problems, fmt.Sprintf("wants.%s is not a known amenity", key))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// wholeNumbers keeps weak typing from truncating fractions or turning
// booleans into 1 when decoding integer fields. Numeric strings still pass.
func wholeNumbers(from, to reflect.Kind, data any) (any, error) {
	if to != reflect.Int {
		return data, nil
	}
	switch from {
	case reflect.Bool:
		return nil, fmt.Errorf("expected a whole number, got %v", data)
	case reflect.Float32, reflect.Float64:
		if f := reflect.ValueOf(data).Float(); f != math.Trunc(f) {
			return nil, fmt.Errorf("expected a whole number, got %v", data)
		}
	}
	return data, nil
}

func describe(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "Request.")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be an email address, got %q", field, fe.Value())
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "location":
		return fmt.Sprintf("%s: unknown location %q", field, fe.Value())
	case "size":
		return fmt.Sprintf("%s: unknown community size %q", field, fe.Value())
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func decodeProblems(err error) []string {
	var merr *mapstructure.Error
	if errors.As(err, &merr) {
		return slices.Clone(merr.Errors)
	}
	return []string{err.Error()}
}
