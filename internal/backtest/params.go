package backtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var (
	ErrCodeRequired     = errors.New("stock code is required")
	ErrStrategyRequired = errors.New("strategy is required")
	ErrDatesRequired    = errors.New("start and end date are required")
	ErrDatesReversed    = errors.New("start date is after end date")
	ErrInvalidCapital   = errors.New("initial capital must be positive")
	ErrInvalidRatio     = errors.New("position ratio must be in (0, 1]")
)

// WithDefaults fills initial capital, position ratio and params when unset.
func (r Request) WithDefaults() Request {
	if r.InitialCapital == 0 {
		r.InitialCapital = DefaultInitialCapital
	}
	if r.PositionRatio == 0 {
		r.PositionRatio = DefaultPositionRatio
	}
	if r.StrategyParams == nil {
		r.StrategyParams = map[string]any{}
	}
	return r
}

// Validate checks the fields the run endpoint requires.
func (r Request) Validate() error {
	switch {
	case strings.TrimSpace(r.Code) == "":
		return ErrCodeRequired
	case strings.TrimSpace(r.StrategyID) == "":
		return ErrStrategyRequired
	case r.StartDate == "" || r.EndDate == "":
		return ErrDatesRequired
	case r.StartDate > r.EndDate:
		return ErrDatesReversed
	case r.InitialCapital <= 0:
		return ErrInvalidCapital
	case r.PositionRatio <= 0 || r.PositionRatio > 1:
		return ErrInvalidRatio
	}
	return nil
}

// Schema renders the JSON schema of def's parameters. A param without a
// default is required.
func Schema(def StrategyDefinition) map[string]any {
	props := make(map[string]any, len(def.Params))
	required := make([]string, 0)
	for _, p := range def.Params {
		prop := map[string]any{"type": schemaType(p.Type)}
		if p.Min != nil {
			prop["minimum"] = *p.Min
		}
		if p.Max != nil {
			prop["maximum"] = *p.Max
		}
		if p.Label != "" {
			prop["title"] = p.Label
		}
		props[p.Name] = prop
		if p.Default == nil {
			required = append(required, p.Name)
		}
	}
	schema := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func schemaType(t string) string {
	switch strings.ToLower(strings.TrimSpace(t)) {
	case "", "number", "float", "int", "integer":
		return "number"
	case "bool", "boolean":
		return "boolean"
	default:
		return "string"
	}
}

func compileSchema(data map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(string(raw))); err != nil {
		return nil, err
	}
	return compiler.Compile("schema.json")
}

// FillDefaults copies params and adds the default of every missing param.
func FillDefaults(def StrategyDefinition, params map[string]any) map[string]any {
	out := make(map[string]any, len(def.Params))
	for k, v := range params {
		out[k] = v
	}
	for _, p := range def.Params {
		if _, ok := out[p.Name]; !ok && p.Default != nil {
			out[p.Name] = p.Default
		}
	}
	return out
}

// ValidateParams checks params against def's schema after coercing numeric
// strings ("20" -> 20).
func ValidateParams(def StrategyDefinition, params map[string]any) error {
	schema, err := compileSchema(Schema(def))
	if err != nil {
		return fmt.Errorf("compile schema for %s: %w", def.ID, err)
	}
	if err := schema.Validate(sanitizeParams(params)); err != nil {
		return fmt.Errorf("strategy %s params: %w", def.ID, err)
	}
	return nil
}

// PrepareParams fills defaults, validates, and returns the coerced params.
func PrepareParams(def StrategyDefinition, params map[string]any) (map[string]any, error) {
	filled := FillDefaults(def, params)
	if err := ValidateParams(def, filled); err != nil {
		return nil, err
	}
	out, _ := sanitizeParams(filled).(map[string]any)
	return out, nil
}

func sanitizeParams(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			out[k] = sanitizeParams(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, child := range val {
			out[i] = sanitizeParams(child)
		}
		return out
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return val
		}
		if num, err := strconv.ParseFloat(s, 64); err == nil {
			return num
		}
		return val
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case float32:
		return float64(val)
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val
	default:
		return val
	}
}

// Float reads a numeric param, falling back to def.
func Float(params map[string]any, name string, def float64) float64 {
	switch v := sanitizeParams(params[name]).(type) {
	case float64:
		return v
	default:
		return def
	}
}

// Int reads a numeric param truncated to int.
func Int(params map[string]any, name string, def int) int {
	return int(Float(params, name, float64(def)))
}
