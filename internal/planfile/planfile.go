// Package planfile loads human-written plan documents and compiles them
// into wire-ready plans. Documents are YAML or JSON with readable values:
// numbers for u64 parameters, plain text for strings and key material, and
// "step_N" (or a bare ordinal) for step references.
package planfile

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/simharness/simharness/pkg/plan"
)

// Document is the on-disk form of a plan.
type Document struct {
	CallerKey string    `yaml:"caller_key" json:"caller_key"`
	Steps     []StepDoc `yaml:"steps" json:"steps"`
}

// StepDoc is one step of a plan document.
type StepDoc struct {
	Endpoint string     `yaml:"endpoint" json:"endpoint"`
	Method   string     `yaml:"method" json:"method"`
	MaxUnits uint64     `yaml:"max_units" json:"max_units"`
	Params   []ParamDoc `yaml:"params" json:"params"`
}

// ParamDoc is one parameter in document form: a type tag plus a readable
// value, converted to canonical bytes at compile time.
type ParamDoc struct {
	Type  string `yaml:"type" json:"type"`
	Value any    `yaml:"value" json:"value"`
}

// Parse decodes a document from data. Format is "yaml" or "json".
func Parse(data []byte, format string) (*Document, error) {
	var doc Document
	switch strings.ToLower(format) {
	case "json":
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse json plan: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml plan: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported plan format %q", format)
	}
	return &doc, nil
}

// Load reads and parses the document at path. The format is taken from the
// file extension; anything that is not .json parses as YAML.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	format := "yaml"
	if strings.EqualFold(filepath.Ext(path), ".json") {
		format = "json"
	}
	return Parse(data, format)
}

// Compile converts the document into a wire-ready plan. Step references
// are resolved against the handles minted while building, so a reference
// to a not-yet-compiled step fails here.
func (d *Document) Compile() (*plan.Plan, error) {
	p := plan.New(d.CallerKey)
	ids := make([]plan.ID, 0, len(d.Steps))

	for i, sd := range d.Steps {
		params := make([]plan.Param, 0, len(sd.Params))
		for j, pd := range sd.Params {
			param, err := compileParam(pd, ids)
			if err != nil {
				return nil, fmt.Errorf("step %d param %d: %w", i, j, err)
			}
			params = append(params, param)
		}
		ids = append(ids, p.AddStep(plan.Step{
			Endpoint: plan.Endpoint(sd.Endpoint),
			Method:   sd.Method,
			MaxUnits: sd.MaxUnits,
			Params:   params,
		}))
	}
	return p, nil
}

func compileParam(pd ParamDoc, minted []plan.ID) (plan.Param, error) {
	switch pd.Type {
	case "u64":
		n, err := asUint64(pd.Value)
		if err != nil {
			return plan.Param{}, err
		}
		return plan.U64(n), nil
	case "string":
		s, ok := pd.Value.(string)
		if !ok {
			return plan.Param{}, fmt.Errorf("string parameter needs a text value, got %T", pd.Value)
		}
		return plan.Text(s), nil
	case "id":
		ord, err := asStepOrdinal(pd.Value)
		if err != nil {
			return plan.Param{}, err
		}
		if ord >= len(minted) {
			return plan.Param{}, fmt.Errorf("reference to step %d before it exists", ord)
		}
		return plan.StepRef(minted[ord]), nil
	case "ed25519":
		s, ok := pd.Value.(string)
		if !ok {
			return plan.Param{}, fmt.Errorf("ed25519 parameter needs a text value, got %T", pd.Value)
		}
		return plan.KeyRef(plan.Ed25519(s)), nil
	case "secp256r1":
		s, ok := pd.Value.(string)
		if !ok {
			return plan.Param{}, fmt.Errorf("secp256r1 parameter needs a text value, got %T", pd.Value)
		}
		return plan.KeyRef(plan.Secp256r1(s)), nil
	default:
		return plan.Param{}, fmt.Errorf("unknown parameter type %q", pd.Type)
	}
}

// asStepOrdinal accepts "step_N" strings and bare integers.
func asStepOrdinal(v any) (int, error) {
	switch ref := v.(type) {
	case string:
		rest, ok := strings.CutPrefix(ref, "step_")
		if !ok {
			return 0, fmt.Errorf("id value %q must look like step_N", ref)
		}
		ord, err := strconv.Atoi(rest)
		if err != nil || ord < 0 {
			return 0, fmt.Errorf("id value %q has no valid ordinal", ref)
		}
		return ord, nil
	default:
		ord, err := asUint64(v)
		if err != nil {
			return 0, fmt.Errorf("id value must be step_N or an ordinal: %w", err)
		}
		if ord > math.MaxInt32 {
			return 0, fmt.Errorf("id ordinal %d out of range", ord)
		}
		return int(ord), nil
	}
}

func asUint64(v any) (uint64, error) {
	switch n := v.(type) {
	case int:
		if n < 0 {
			return 0, fmt.Errorf("value %d is negative", n)
		}
		return uint64(n), nil
	case int64:
		if n < 0 {
			return 0, fmt.Errorf("value %d is negative", n)
		}
		return uint64(n), nil
	case uint64:
		return n, nil
	case float64:
		if n < 0 {
			return 0, fmt.Errorf("value %v is negative", n)
		}
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("value %v is not an integer", n)
		}
		return uint64(n), nil
	default:
		return 0, fmt.Errorf("value must be an unsigned integer, got %T", v)
	}
}
