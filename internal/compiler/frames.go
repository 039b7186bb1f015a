package compiler

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/flash/internal/element"
)

// CompileFrames reads the frames list of v: one tree per render.
// A null frame clears the target.
//
//	frames: [
//		{kind: "ul", children: [{kind: "li", key: 1, children: ["Item 1"]}]},
//		null,
//	]
func CompileFrames(v cue.Value) ([]*element.Descriptor, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	framesVal := v.LookupPath(cue.ParsePath("frames"))
	if !framesVal.Exists() {
		return nil, &CompileError{Field: "frames", Message: "frames is required", Pos: v.Pos()}
	}
	iter, err := framesVal.List()
	if err != nil {
		return nil, &CompileError{Field: "frames", Message: "frames must be a list", Pos: framesVal.Pos()}
	}

	var frames []*element.Descriptor
	for i := 0; iter.Next(); i++ {
		fv := iter.Value()
		if fv.Kind() == cue.NullKind {
			frames = append(frames, nil)
			continue
		}
		d, err := CompileTree(fv)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		frames = append(frames, d)
	}
	if len(frames) == 0 {
		return nil, &CompileError{Field: "frames", Message: "at least one frame is required", Pos: framesVal.Pos()}
	}
	return frames, nil
}

// LoadFrames compiles the frames of a .cue file, or of the CUE package in a
// directory.
func LoadFrames(path string) ([]*element.Descriptor, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load frames: %w", err)
	}

	ctx := cuecontext.New()
	var v cue.Value
	if info.IsDir() {
		instances := load.Instances([]string{"."}, &load.Config{Dir: path})
		if len(instances) == 0 {
			return nil, fmt.Errorf("load frames: no CUE instances in %s", path)
		}
		if inst := instances[0]; inst.Err != nil {
			return nil, fmt.Errorf("load frames: %w", inst.Err)
		}
		v = ctx.BuildInstance(instances[0])
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load frames: %w", err)
		}
		v = ctx.CompileBytes(data, cue.Filename(path))
	}

	frames, err := CompileFrames(v)
	if err != nil {
		return nil, fmt.Errorf("load frames %s: %w", path, err)
	}
	return frames, nil
}
