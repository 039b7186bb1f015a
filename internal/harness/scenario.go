package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/flash/internal/compiler"
	"github.com/roach88/flash/internal/element"
	"github.com/roach88/flash/internal/engine"
)

// DefaultTarget is the target label used when a frame names none.
const DefaultTarget = "main"

// Scenario defines a reconciliation test scenario: a sequence of trees
// rendered through one engine.Root, with per-frame expectations and final
// assertions.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Frames are rendered in order. Each frame is one Render call.
	Frames []Frame `yaml:"frames,omitempty"`

	// FramesFile is a CUE file or package supplying the trees, relative to
	// the scenario file. When set, inline frames may only carry targets and
	// expectations, one per compiled tree.
	FramesFile string `yaml:"frames_file,omitempty"`

	// AnyTag makes the memory host accept every tag.
	AnyTag bool `yaml:"any_tag,omitempty"`

	// SessionPrefix prefixes the sequential session ids; default "session".
	SessionPrefix string `yaml:"session_prefix,omitempty"`

	// Assertions run after the last frame.
	// Supported types: idempotent, handle_preserved, remove_count,
	// final_html, replay
	Assertions []Assertion `yaml:"assertions"`
}

// Frame is one render.
type Frame struct {
	// Target is the mount target label; default "main". Targets are
	// created on first use.
	Target string `yaml:"target,omitempty"`

	// Tree is the descriptor in element.Decode form. Null clears the target.
	Tree any `yaml:"tree"`

	// Expect checks the frame's outcome. If nil, the frame must succeed.
	Expect *Expect `yaml:"expect,omitempty"`

	desc *element.Descriptor
}

// TargetLabel returns the frame's target label.
func (f Frame) TargetLabel() string {
	if f.Target == "" {
		return DefaultTarget
	}
	return f.Target
}

// Descriptor returns the compiled tree; nil clears the target.
func (f Frame) Descriptor() *element.Descriptor {
	return f.desc
}

// Expect specifies the expected outcome of one frame. Unset fields are not
// checked.
type Expect struct {
	Adds    *int `yaml:"adds,omitempty"`
	Updates *int `yaml:"updates,omitempty"`
	Moves   *int `yaml:"moves,omitempty"`
	Deletes *int `yaml:"deletes,omitempty"`

	// Added, Moved and Deleted list effect paths in commit order.
	Added   []string `yaml:"added,omitempty"`
	Moved   []string `yaml:"moved,omitempty"`
	Deleted []string `yaml:"deleted,omitempty"`

	// HTML is the target's markup after the frame.
	HTML *string `yaml:"html,omitempty"`

	// Error is the expected render error code, e.g. DUPLICATE_KEY.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the trace or the final visual tree.
type Assertion struct {
	// Type specifies the assertion type:
	// - "idempotent": re-rendering the last committed frame changes nothing
	// - "handle_preserved": the node at Path keeps its handle from From to To
	// - "remove_count": frame Frame made exactly Count removals
	// - "final_html": Target ends with markup HTML
	// - "replay": every journaled session replays to the same effects
	Type string `yaml:"type"`

	// Path is a fiber path such as /#0/2 (used by handle_preserved).
	Path string `yaml:"path,omitempty"`

	// From and To are frame indexes (used by handle_preserved).
	From int `yaml:"from,omitempty"`
	To   int `yaml:"to,omitempty"`

	// Frame is a frame index (used by remove_count).
	Frame int `yaml:"frame,omitempty"`

	// Count is the expected number of removals (used by remove_count).
	Count int `yaml:"count,omitempty"`

	// Target is a target label (used by final_html); default "main".
	Target string `yaml:"target,omitempty"`

	// HTML is the expected markup (used by final_html).
	HTML string `yaml:"html,omitempty"`
}

// Assertion type constants.
const (
	AssertIdempotent      = "idempotent"
	AssertHandlePreserved = "handle_preserved"
	AssertRemoveCount     = "remove_count"
	AssertFinalHTML       = "final_html"
	AssertReplay          = "replay"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// frames_file is resolved relative to the scenario's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data, filepath.Dir(path))
}

// ParseScenario parses scenario YAML, resolving frames_file against baseDir,
// and compiles every frame tree.
func ParseScenario(data []byte, baseDir string) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.FramesFile != "" && !filepath.IsAbs(scenario.FramesFile) && baseDir != "" {
		scenario.FramesFile = filepath.Join(baseDir, scenario.FramesFile)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks required fields and compiles the frame trees.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.FramesFile != "" {
		if err := attachFramesFile(s); err != nil {
			return err
		}
	} else {
		if len(s.Frames) == 0 {
			return fmt.Errorf("frames list or frames_file is required")
		}
		for i := range s.Frames {
			f := &s.Frames[i]
			if f.Tree == nil {
				continue
			}
			d, err := element.Decode(f.Tree)
			if err != nil {
				return fmt.Errorf("frames[%d].tree: %w", i, err)
			}
			f.desc = d
		}
	}

	for i, f := range s.Frames {
		if f.Expect != nil && f.Expect.Error != "" {
			if err := validateErrorCode(f.Expect.Error); err != nil {
				return fmt.Errorf("frames[%d].expect: %w", i, err)
			}
		}
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion, len(s.Frames)); err != nil {
			return err
		}
	}

	return nil
}

// attachFramesFile compiles the CUE trees and pairs them with inline frames.
func attachFramesFile(s *Scenario) error {
	trees, err := compiler.LoadFrames(s.FramesFile)
	if err != nil {
		return err
	}
	if len(s.Frames) == 0 {
		s.Frames = make([]Frame, len(trees))
	}
	if len(s.Frames) != len(trees) {
		return fmt.Errorf("frames_file has %d trees but %d frames are listed", len(trees), len(s.Frames))
	}
	for i := range s.Frames {
		if s.Frames[i].Tree != nil {
			return fmt.Errorf("frames[%d]: tree is not allowed with frames_file", i)
		}
		s.Frames[i].desc = trees[i]
	}
	return nil
}

func validateErrorCode(code string) error {
	switch engine.RenderErrorCode(code) {
	case engine.ErrCodeUnsupportedKind, engine.ErrCodeDuplicateKey,
		engine.ErrCodeInvalidTarget, engine.ErrCodeTornTarget, engine.ErrCodeProvider:
		return nil
	default:
		return fmt.Errorf("unknown error code %q", code)
	}
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, frames int) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	inRange := func(name string, n int) error {
		if n < 0 || n >= frames {
			return fmt.Errorf("assertions[%d]: %s %d out of range (%d frames)", index, name, n, frames)
		}
		return nil
	}

	switch a.Type {
	case AssertIdempotent, AssertReplay:
	case AssertHandlePreserved:
		if a.Path == "" {
			return fmt.Errorf("assertions[%d]: path is required for handle_preserved", index)
		}
		if err := inRange("from", a.From); err != nil {
			return err
		}
		if err := inRange("to", a.To); err != nil {
			return err
		}
		if a.From == a.To {
			return fmt.Errorf("assertions[%d]: from and to must differ for handle_preserved", index)
		}
	case AssertRemoveCount:
		if err := inRange("frame", a.Frame); err != nil {
			return err
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for remove_count", index)
		}
	case AssertFinalHTML:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
