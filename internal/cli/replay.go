package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flash/internal/engine"
	"github.com/roach88/flash/internal/host"
	"github.com/roach88/flash/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // optional - specific session only
}

// ReplaySessionResult holds the replay result for a single session.
type ReplaySessionResult struct {
	Session       string `json:"session"`
	Target        string `json:"target"`
	Renders       int    `json:"renders"`
	Effects       int    `json:"effects"`
	Deterministic bool   `json:"deterministic"`
	Divergence    string `json:"divergence,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions         []ReplaySessionResult `json:"sessions"`
	TotalSessions    int                   `json:"total_sessions"`
	AllDeterministic bool                  `json:"all_deterministic"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journaled sessions and verify determinism",
		Long: `Replay every journaled session into a fresh in-memory target and check
that reconciliation reproduces the journaled effects exactly.

Exit codes:
  0 - All sessions are deterministic
  1 - Replay diverged from the journal
  2 - Command error (database not found, etc.)

Examples:
  flash replay --db ./flash.db
  flash replay --db ./flash.db --session 0190f5c2-...
  flash replay --db ./flash.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay specific session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := context.Background()

	st, err := openExisting(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return err
	}
	defer st.Close()

	var sessions []store.Session
	if opts.Session != "" {
		sess, err := st.ReadSession(ctx, opts.Session)
		if errors.Is(err, store.ErrNotFound) {
			msg := fmt.Sprintf("session not found: %s", opts.Session)
			_ = formatter.Error(ErrCodeNotFound, msg, nil)
			return NewExitError(ExitCommandError, msg)
		}
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read session", err)
		}
		sessions = []store.Session{sess}
	} else {
		sessions, err = st.ReadSessions(ctx)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
	}

	result := ReplayResult{
		Sessions:         make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions:    len(sessions),
		AllDeterministic: true,
	}
	for _, sess := range sessions {
		sr, err := replaySession(ctx, st, sess)
		if err != nil {
			_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", sess.ID), err)
		}
		formatter.VerboseLog("Replayed %s: %d render(s)", sess.ID, sr.Renders)
		result.Sessions = append(result.Sessions, sr)
		if !sr.Deterministic {
			result.AllDeterministic = false
		}
	}

	if opts.Format == "json" {
		return outputReplayJSON(formatter, result)
	}
	return outputReplayText(formatter, result)
}

// replaySession renders a session's journaled trees into a fresh target and
// compares the reproduced effects with the journal. An error is returned only
// when the journal itself cannot be read.
func replaySession(ctx context.Context, st *store.Store, sess store.Session) (ReplaySessionResult, error) {
	frames, err := st.ReplaySession(ctx, sess.ID)
	if err != nil {
		return ReplaySessionResult{}, err
	}

	sr := ReplaySessionResult{
		Session:       sess.ID,
		Target:        sess.Target,
		Renders:       len(frames),
		Deterministic: true,
	}

	mem := host.NewMemory(host.WithAnyTag())
	target := mem.NewRoot("div")
	root := engine.NewRoot(mem)
	for _, f := range frames {
		sr.Effects += len(f.Effects)
		if !sr.Deterministic {
			continue
		}
		rep, err := root.Render(f.Tree, target)
		if err != nil {
			sr.Deterministic = false
			sr.Divergence = fmt.Sprintf("seq %d: %v", f.Seq, err)
			continue
		}
		if err := store.MatchEffects(f.Effects, rep.Effects); err != nil {
			sr.Deterministic = false
			sr.Divergence = fmt.Sprintf("seq %d: %v", f.Seq, err)
		}
	}
	return sr, nil
}

// outputReplayJSON outputs the replay result as JSON.
func outputReplayJSON(f *OutputFormatter, result ReplayResult) error {
	if result.AllDeterministic {
		return f.Success(result)
	}
	if err := f.Failure(result, ErrCodeReplay, "determinism verification failed"); err != nil {
		return err
	}
	return NewExitError(ExitFailure, "determinism verification failed")
}

// outputReplayText outputs the replay result as text.
func outputReplayText(f *OutputFormatter, result ReplayResult) error {
	w := f.Writer

	if result.TotalSessions == 0 {
		fmt.Fprintln(w, "No sessions found in database.")
		return nil
	}

	fmt.Fprintf(w, "Replay Summary: %d session(s)\n\n", result.TotalSessions)
	for _, s := range result.Sessions {
		fmt.Fprintf(w, "%s Session: %s\n", f.mark(s.Deterministic), s.Session)
		fmt.Fprintf(w, "  Renders: %d, effects: %d\n", s.Renders, s.Effects)
		if !s.Deterministic {
			fmt.Fprintf(w, "  Divergence: %s\n", s.Divergence)
		}
		fmt.Fprintln(w)
	}

	if result.AllDeterministic {
		fmt.Fprintf(w, "%s All sessions verified deterministic\n", f.mark(true))
		return nil
	}

	fmt.Fprintf(w, "%s Determinism verification failed\n", f.mark(false))
	return NewExitError(ExitFailure, "determinism verification failed")
}
