package harness

// TraceEvent records one executed step.
type TraceEvent struct {
	Step     int    `json:"step"`
	Op       string `json:"op"`
	Entity   string `json:"entity,omitempty"`
	Category string `json:"category,omitempty"`
	// Time is the clock reading when the step ran, in leaf layout.
	Time string `json:"time"`
	// Value is the value read, written or counted.
	Value int64 `json:"value,omitempty"`
	// Addresses are the entries written, relative to the store root.
	Addresses []string `json:"addresses,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains one event per step, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Layout lists every entry left in the store, relative to its root,
	// slash-separated and sorted.
	Layout []string `json:"layout"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends a step event.
func (r *Result) AddTrace(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}

// CountOp returns how many trace events have the given op.
func (r *Result) CountOp(op string) int {
	n := 0
	for _, ev := range r.Trace {
		if ev.Op == op {
			n++
		}
	}
	return n
}
