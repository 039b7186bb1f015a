package harness

import "github.com/roach88/flash/internal/engine"

// TraceEvent is the observable outcome of rendering one frame.
type TraceEvent struct {
	Frame   int                   `json:"frame"`
	Target  string                `json:"target"`
	Seq     int64                 `json:"seq,omitempty"`
	Session string                `json:"session,omitempty"`
	Remount bool                  `json:"remount,omitempty"`
	Effects []engine.EffectRecord `json:"effects"`

	// HTML is the target's markup after the frame.
	HTML string `json:"html"`

	// Removes counts the RemoveChild calls the frame made on the host.
	Removes int `json:"removes"`

	// Error is the render error code; empty when the frame committed.
	Error string `json:"error,omitempty"`

	// handles maps fiber paths to host labels after the frame.
	handles map[string]string
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses and assertions match.
	Pass bool `json:"pass"`

	// Trace contains one event per rendered frame, in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Final maps each target label to its markup after the last frame.
	Final map[string]string `json:"final,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Final:  make(map[string]string),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Handle returns the host label of the node at path after frame, "" if the
// frame failed or nothing was mounted there.
func (r *Result) Handle(frame int, path string) string {
	if frame < 0 || frame >= len(r.Trace) {
		return ""
	}
	return r.Trace[frame].handles[path]
}
