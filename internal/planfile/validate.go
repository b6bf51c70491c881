package planfile

import (
	"fmt"
	"strings"
)

// Issue is one validation finding. Step is the zero-based index of the
// step it concerns, or -1 for plan-level findings.
type Issue struct {
	Step int    `json:"step"`
	Msg  string `json:"msg"`
}

func (i Issue) String() string {
	if i.Step < 0 {
		return i.Msg
	}
	return fmt.Sprintf("step %d: %s", i.Step, i.Msg)
}

var paramTypes = map[string]bool{
	"u64":       true,
	"string":    true,
	"id":        true,
	"ed25519":   true,
	"secp256r1": true,
}

// Validate checks the document against the engine's declared step rules
// without contacting the engine. An empty result means the document will
// compile and pass the engine's shape checks; it says nothing about what
// the steps do.
func (d *Document) Validate() []Issue {
	var issues []Issue
	add := func(step int, format string, args ...any) {
		issues = append(issues, Issue{Step: step, Msg: fmt.Sprintf(format, args...)})
	}

	if strings.TrimSpace(d.CallerKey) == "" {
		add(-1, "caller_key must not be empty")
	}

	for i, step := range d.Steps {
		switch step.Endpoint {
		case "key", "readonly", "execute":
		case "":
			add(i, "endpoint must not be empty")
			continue
		default:
			add(i, "unknown endpoint %q", step.Endpoint)
			continue
		}

		if strings.TrimSpace(step.Method) == "" {
			add(i, "method must not be empty")
		}

		if len(step.Params) == 0 {
			add(i, "at least one parameter is required")
			continue
		}

		for j, param := range step.Params {
			if !paramTypes[param.Type] {
				add(i, "param %d: unknown type %q", j, param.Type)
				continue
			}
			switch param.Type {
			case "u64":
				if _, err := asUint64(param.Value); err != nil {
					add(i, "param %d: %v", j, err)
				}
			case "id":
				ord, err := asStepOrdinal(param.Value)
				if err != nil {
					add(i, "param %d: %v", j, err)
				} else if ord >= i {
					add(i, "param %d: references step %d, which is not earlier", j, ord)
				}
			default:
				if _, ok := param.Value.(string); !ok {
					add(i, "param %d: %s needs a text value, got %T", j, param.Type, param.Value)
				}
			}
		}

		// The engine dispatches on the first parameter's type.
		first := step.Params[0].Type
		switch {
		case step.Endpoint == "key" && first != "ed25519" && first != "secp256r1":
			add(i, "key endpoint requires a key as first parameter, got %q", first)
		case step.Endpoint == "readonly" && first != "id":
			add(i, "readonly endpoint requires a step reference as first parameter, got %q", first)
		case step.Endpoint == "execute" && step.Method == "program_create" && first != "string":
			add(i, "program_create requires a program path as first parameter, got %q", first)
		case step.Endpoint == "execute" && step.Method != "program_create" && first != "id":
			add(i, "execute endpoint requires a step reference as first parameter, got %q", first)
		}
	}

	return issues
}
