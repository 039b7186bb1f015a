package engine

import "github.com/roach88/flash/internal/element"

// EffectOp names one kind of visual change applied during commit.
type EffectOp string

const (
	OpAdd    EffectOp = "add"
	OpUpdate EffectOp = "update"
	OpMove   EffectOp = "move"
	OpDelete EffectOp = "delete"
)

// EffectRecord is one applied change, in commit order.
type EffectRecord struct {
	Op   EffectOp `json:"op"`
	Path string   `json:"path"`
	Kind string   `json:"kind"`
}

// Report summarizes one successful Render.
type Report struct {
	Seq       int64  `json:"seq"`
	SessionID string `json:"session_id"`
	Remount   bool   `json:"remount"`

	Adds    int `json:"adds"`
	Updates int `json:"updates"`
	Moves   int `json:"moves"`
	Deletes int `json:"deletes"`

	Effects []EffectRecord `json:"effects"`
}

// Empty reports whether the render changed nothing.
func (r *Report) Empty() bool {
	return len(r.Effects) == 0
}

// Paths returns the paths of all effects with the given op, in commit order.
func (r *Report) Paths(op EffectOp) []string {
	var out []string
	for _, e := range r.Effects {
		if e.Op == op {
			out = append(out, e.Path)
		}
	}
	return out
}

func (r *Report) record(op EffectOp, path element.Path, kind string) {
	switch op {
	case OpAdd:
		r.Adds++
	case OpUpdate:
		r.Updates++
	case OpMove:
		r.Moves++
	case OpDelete:
		r.Deletes++
	}
	r.Effects = append(r.Effects, EffectRecord{Op: op, Path: path.String(), Kind: kind})
}

// Commit is handed to an Observer after every successful render.
type Commit struct {
	SessionID string
	Seq       int64
	Target    string // host label of the mount target
	Tree      *element.Descriptor
	Report    *Report
}

// Observer receives committed renders, e.g. to journal them.
type Observer interface {
	Committed(c Commit) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(c Commit) error

// Committed implements Observer.
func (fn ObserverFunc) Committed(c Commit) error {
	return fn(c)
}
