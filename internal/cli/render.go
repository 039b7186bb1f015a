package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/flash/internal/engine"
	"github.com/roach88/flash/internal/host"
	"github.com/roach88/flash/internal/store"
)

// RenderOptions holds flags for the render command.
type RenderOptions struct {
	*RootOptions
	Database string
	AnyTag   bool

	// Sessions allows overriding the session id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	Sessions engine.SessionGenerator
}

// FrameReport is the outcome of one rendered frame.
type FrameReport struct {
	Frame   int                   `json:"frame"`
	Target  string                `json:"target"`
	Seq     int64                 `json:"seq,omitempty"`
	Session string                `json:"session,omitempty"`
	Remount bool                  `json:"remount,omitempty"`
	Adds    int                   `json:"adds"`
	Updates int                   `json:"updates"`
	Moves   int                   `json:"moves"`
	Deletes int                   `json:"deletes"`
	Effects []engine.EffectRecord `json:"effects"`
	Error   *CLIError             `json:"error,omitempty"`
}

// RenderResult holds the reports of every frame and the final markup.
type RenderResult struct {
	Frames []FrameReport     `json:"frames"`
	Final  map[string]string `json:"final"`
	Failed int               `json:"failed"`
}

// NewRenderCommand creates the render command.
func NewRenderCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RenderOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "render <frames-file>",
		Short: "Render frames into an in-memory visual tree",
		Long: `Render each frame of a frames file (YAML, CUE file or CUE package
directory) into an in-memory visual tree and report the effects applied.

With --db every commit is journaled to SQLite for trace and replay.

Exit codes:
  0 - All frames rendered
  1 - One or more frames failed to render
  2 - Command error (file not found, database error, etc.)

Examples:
  flash render ./frames.yaml
  flash render ./frames.cue --db ./flash.db
  flash render ./frames --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "journal commits to this SQLite database")
	cmd.Flags().BoolVar(&opts.AnyTag, "any-tag", false, "accept every element kind")

	return cmd
}

func runRender(opts *RenderOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())

	frames, err := LoadFramesFile(path)
	if err != nil {
		code, msg := loadErrorCode(err)
		_ = formatter.Error(code, msg, nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, msg))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	sessions := opts.Sessions
	if sessions == nil {
		sessions = engine.UUIDv7Generator{}
	}
	// One Root per target label. They share the clock and the session
	// generator so seq and session ids stay global to the run.
	clock := engine.NewClock()
	rootOpts := []engine.RootOption{engine.WithSessionGenerator(sessions)}

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()

		// Continue the database's seq so renders from separate runs stay ordered.
		last, err := st.LastSeq(ctx)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read database", err)
		}
		clock = engine.NewClockAt(last)
		rootOpts = append(rootOpts, engine.WithObserver(store.NewJournal(ctx, st)))
		formatter.VerboseLog("Journaling to %s from seq %d", opts.Database, last+1)
	}

	var memOpts []host.MemoryOption
	if opts.AnyTag {
		memOpts = append(memOpts, host.WithAnyTag())
	}
	mem := host.NewMemory(memOpts...)
	rootOpts = append(rootOpts, engine.WithClock(clock))

	targets := map[string]*host.Node{}
	roots := map[string]*engine.Root{}
	var order []string
	result := RenderResult{Frames: make([]FrameReport, 0, len(frames)), Final: map[string]string{}}

	for i, f := range frames {
		target, ok := targets[f.Target]
		if !ok {
			target = mem.NewRoot("div")
			targets[f.Target] = target
			roots[f.Target] = engine.NewRoot(mem, rootOpts...)
			order = append(order, f.Target)
		}

		report := FrameReport{Frame: i, Target: f.Target, Effects: []engine.EffectRecord{}}
		rep, err := roots[f.Target].Render(f.Tree, target)
		if err != nil {
			code := engine.CodeOf(err)
			if code == "" {
				_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
				return WrapExitError(ExitCommandError, "failed to journal render", err)
			}
			report.Error = &CLIError{Code: string(code), Message: err.Error()}
			result.Failed++
		} else {
			report.Seq = rep.Seq
			report.Session = rep.SessionID
			report.Remount = rep.Remount
			report.Adds, report.Updates, report.Moves, report.Deletes = rep.Adds, rep.Updates, rep.Moves, rep.Deletes
			if len(rep.Effects) > 0 {
				report.Effects = rep.Effects
			}
		}
		result.Frames = append(result.Frames, report)
	}

	for _, label := range order {
		result.Final[label] = targets[label].InnerString()
	}

	if opts.Format == "json" {
		if result.Failed > 0 {
			if err := formatter.Failure(result, ErrCodeRenderFailed, fmt.Sprintf("%d frame(s) failed", result.Failed)); err != nil {
				return err
			}
			return NewExitError(ExitFailure, fmt.Sprintf("%d frame(s) failed", result.Failed))
		}
		return formatter.Success(result)
	}

	outputRenderText(formatter, result, order)
	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d frame(s) failed", result.Failed))
	}
	return nil
}

// outputRenderText prints one block per frame followed by the final markup.
func outputRenderText(f *OutputFormatter, result RenderResult, order []string) {
	w := f.Writer
	for _, r := range result.Frames {
		if r.Error != nil {
			fmt.Fprintf(w, "%s frame %d → %s: %s\n", f.mark(false), r.Frame, r.Target, r.Error.Message)
			continue
		}
		fmt.Fprintf(w, "%s frame %d → %s: +%d ~%d ↕%d -%d (seq %d)\n",
			f.mark(true), r.Frame, r.Target, r.Adds, r.Updates, r.Moves, r.Deletes, r.Seq)
		if r.Remount {
			fmt.Fprintf(w, "  session %s\n", r.Session)
		}
		for _, e := range r.Effects {
			fmt.Fprintf(w, "  %s %s (%s)\n", f.paint(opColor(e.Op), fmt.Sprintf("%-6s", e.Op)), e.Path, e.Kind)
		}
	}

	fmt.Fprintln(w)
	for _, label := range order {
		fmt.Fprintf(w, "%s: %s\n", f.paint(ansiCyan, label), result.Final[label])
	}
}
