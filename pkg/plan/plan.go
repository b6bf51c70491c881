// Package plan models test plans for the simulation engine: an ordered
// sequence of steps executed on behalf of one caller key, where each step
// invokes a method on an engine endpoint with typed parameters.
package plan

// Endpoint selects which engine surface a step addresses.
type Endpoint string

const (
	// EndpointKey manages keys in the engine's store.
	EndpointKey Endpoint = "key"
	// EndpointReadOnly queries program state without committing changes.
	EndpointReadOnly Endpoint = "readonly"
	// EndpointExecute invokes a program call that may mutate state.
	EndpointExecute Endpoint = "execute"
)

// Step is a single engine operation. Params are positional; the engine
// decides per endpoint and method what the leading parameter must be.
type Step struct {
	Endpoint Endpoint `json:"endpoint"`
	Method   string   `json:"method"`
	MaxUnits uint64   `json:"maxUnits"`
	Params   []Param  `json:"params"`
}

// Plan is an append-only sequence of steps. Build it with New and AddStep;
// steps are never removed or reordered once added.
type Plan struct {
	CallerKey string `json:"caller_key"`
	Steps     []Step `json:"steps"`
}

// New returns an empty plan executed on behalf of callerKey.
func New(callerKey string) *Plan {
	return &Plan{CallerKey: callerKey}
}

// AddStep appends a step and returns a handle that later steps can use to
// reference its result. Handles are minted here and nowhere else.
func (p *Plan) AddStep(s Step) ID {
	id := ID{ordinal: len(p.Steps)}
	p.Steps = append(p.Steps, s)
	return id
}

// CreateKey builds the key-endpoint step that registers key with the
// engine.
func CreateKey(key Key) Step {
	return Step{
		Endpoint: EndpointKey,
		Method:   "create_key",
		Params:   []Param{KeyRef(key)},
	}
}

// CreateProgram builds the execute-endpoint step that deploys the program
// binary at path.
func CreateProgram(path string) Step {
	return Step{
		Endpoint: EndpointExecute,
		Method:   "program_create",
		Params:   []Param{Text(path)},
	}
}

// CallProgram builds an execute-endpoint step invoking method on a
// previously deployed program, spending at most maxUnits.
func CallProgram(program ID, method string, maxUnits uint64, params ...Param) Step {
	return Step{
		Endpoint: EndpointExecute,
		Method:   method,
		MaxUnits: maxUnits,
		Params:   append([]Param{StepRef(program)}, params...),
	}
}

// ReadProgram builds a readonly-endpoint step querying method on a
// previously deployed program.
func ReadProgram(program ID, method string, params ...Param) Step {
	return Step{
		Endpoint: EndpointReadOnly,
		Method:   method,
		Params:   append([]Param{StepRef(program)}, params...),
	}
}
