package plan

import "fmt"

// ID is a handle to a step previously added to a Plan. Passing an ID as a
// parameter lets a later step consume the earlier step's result. IDs are
// only minted by Plan.AddStep; the zero value refers to the first step.
type ID struct {
	ordinal int
}

// Ordinal returns the zero-based position of the referenced step.
func (id ID) Ordinal() int { return id.ordinal }

// String renders the engine's reference form, e.g. "step_0".
func (id ID) String() string { return fmt.Sprintf("step_%d", id.ordinal) }
