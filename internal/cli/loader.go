package cli

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/flash/internal/compiler"
	"github.com/roach88/flash/internal/element"
	"github.com/roach88/flash/internal/harness"
)

// FrameSpec is one render requested by a frames file.
type FrameSpec struct {
	Target string
	Tree   *element.Descriptor // nil clears the target
}

// LoadError represents an error that occurred while loading frames.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// yamlFrames is the YAML frames file layout.
//
//	frames:
//	  - target: main
//	    tree: {kind: ul, children: [{kind: li, props: {key: 1}, children: ["Item 1"]}]}
//	  - tree: ~
type yamlFrames struct {
	Frames []struct {
		Target string `yaml:"target,omitempty"`
		Tree   any    `yaml:"tree"`
	} `yaml:"frames"`
}

// LoadFramesFile reads frames from a YAML file, a .cue file, or a directory
// holding a CUE package. CUE frames all render into the default target.
func LoadFramesFile(path string) ([]FrameSpec, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("frames file not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing frames file: %v", err)}
	}

	var frames []FrameSpec
	switch ext := filepath.Ext(path); {
	case info.IsDir() || ext == ".cue":
		frames, err = loadCUEFrames(path)
	case ext == ".yaml" || ext == ".yml":
		frames, err = loadYAMLFrames(path)
	default:
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("unsupported frames file %q: want .yaml, .yml, .cue or a directory", path)}
	}
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, &LoadError{Code: ErrCodeNoFrames, Message: fmt.Sprintf("no frames in %s", path)}
	}
	return frames, nil
}

func loadCUEFrames(path string) ([]FrameSpec, error) {
	trees, err := compiler.LoadFrames(path)
	if err != nil {
		var ce *compiler.CompileError
		if errors.As(err, &ce) {
			return nil, &LoadError{Code: ErrCodeInvalidTree, Message: err.Error(), Pos: ce.Pos}
		}
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: err.Error()}
	}
	frames := make([]FrameSpec, len(trees))
	for i, t := range trees {
		frames[i] = FrameSpec{Target: harness.DefaultTarget, Tree: t}
	}
	return frames, nil
}

func loadYAMLFrames(path string) ([]FrameSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("failed to read frames file: %v", err)}
	}

	var doc yamlFrames
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, &LoadError{Code: ErrCodeLoadFailed, Message: fmt.Sprintf("failed to parse YAML: %v", err)}
	}

	frames := make([]FrameSpec, 0, len(doc.Frames))
	for i, f := range doc.Frames {
		spec := FrameSpec{Target: f.Target}
		if spec.Target == "" {
			spec.Target = harness.DefaultTarget
		}
		if f.Tree != nil {
			d, err := element.Decode(f.Tree)
			if err != nil {
				return nil, &LoadError{Code: ErrCodeInvalidTree, Message: fmt.Sprintf("frames[%d]: %v", i, err)}
			}
			spec.Tree = d
		}
		frames = append(frames, spec)
	}
	return frames, nil
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric     = "E001" // Generic/unknown error
	ErrCodeNoFrames    = "E003" // Frames file holds no frames
	ErrCodeLoadFailed  = "E004" // File read or parse failed
	ErrCodeNotFound    = "E005" // Path not found
	ErrCodeDatabase    = "E006" // Database open/read failed
	ErrCodeWriteFailed = "E007" // File write error

	ErrCodeInvalidTree  = "E104" // Tree does not describe a descriptor
	ErrCodeDuplicateKey = "E201" // Sibling keys collide
	ErrCodeRenderFailed = "E202" // One or more frames failed to render
	ErrCodeReplay       = "E203" // Replay diverged from the journal
	ErrCodeTestFailed   = "E301" // One or more scenarios failed
)

// loadErrorCode extracts the code of a LoadError.
func loadErrorCode(err error) (string, string) {
	var le *LoadError
	if errors.As(err, &le) {
		return le.Code, le.Message
	}
	return ErrCodeGeneric, err.Error()
}
