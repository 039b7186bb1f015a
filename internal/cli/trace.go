package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/flash/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string // optional - list sessions when empty
}

// SessionInfo describes a journaled session.
type SessionInfo struct {
	ID            string `json:"id"`
	Target        string `json:"target"`
	OpenedSeq     int64  `json:"opened_seq"`
	EngineVersion string `json:"engine_version"`
	TreeVersion   string `json:"tree_version"`
}

// TraceEffect is one journaled effect.
type TraceEffect struct {
	Op   string `json:"op"`
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// TraceRender is one journaled render.
type TraceRender struct {
	Seq      int64         `json:"seq"`
	TreeHash string        `json:"tree_hash"`
	Adds     int           `json:"adds"`
	Updates  int           `json:"updates"`
	Moves    int           `json:"moves"`
	Deletes  int           `json:"deletes"`
	Effects  []TraceEffect `json:"effects"`
}

// TraceResult holds the complete trace output.
type TraceResult struct {
	Session SessionInfo   `json:"session"`
	Renders []TraceRender `json:"renders"`
	Stats   TraceStats    `json:"stats"`
}

// TraceStats holds summary statistics for the trace.
type TraceStats struct {
	Renders int `json:"renders"`
	Effects int `json:"effects"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show the journaled renders of a session",
		Long: `Show the renders and effects journaled for a session, in seq order.

Without --session, lists the journaled sessions.

Examples:
  flash trace --db ./flash.db
  flash trace --db ./flash.db --session 0190f5c2-...
  flash trace --db ./flash.db --session 0190f5c2-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session id to trace")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := context.Background()

	st, err := openExisting(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return err
	}
	defer st.Close()

	if opts.Session == "" {
		return listSessions(ctx, st, formatter)
	}

	sess, err := st.ReadSession(ctx, opts.Session)
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("session not found: %s", opts.Session), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", opts.Session))
	}
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	renders, err := st.ReadRenders(ctx, opts.Session)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read renders", err)
	}

	result := TraceResult{Session: sessionInfo(sess), Renders: make([]TraceRender, 0, len(renders))}
	for _, r := range renders {
		tr := TraceRender{
			Seq:      r.Seq,
			TreeHash: r.TreeHash,
			Adds:     r.Adds,
			Updates:  r.Updates,
			Moves:    r.Moves,
			Deletes:  r.Deletes,
			Effects:  make([]TraceEffect, len(r.Effects)),
		}
		for i, e := range r.Effects {
			tr.Effects[i] = TraceEffect{Op: e.Op, Path: e.Path, Kind: e.Kind}
		}
		result.Renders = append(result.Renders, tr)
		result.Stats.Effects += len(r.Effects)
	}
	result.Stats.Renders = len(result.Renders)

	if opts.Format == "json" {
		return formatter.Success(result)
	}
	outputTraceText(formatter, result)
	return nil
}

// openExisting opens a journal that must already exist; store.Open would
// silently create an empty one.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func listSessions(ctx context.Context, st *store.Store, formatter *OutputFormatter) error {
	sessions, err := st.ReadSessions(ctx)
	if err != nil {
		_ = formatter.Error(ErrCodeDatabase, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read sessions", err)
	}

	infos := make([]SessionInfo, len(sessions))
	for i, s := range sessions {
		infos[i] = sessionInfo(s)
	}

	if formatter.Format == "json" {
		return formatter.Success(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(formatter.Writer, "No sessions found.")
		return nil
	}
	for _, s := range infos {
		fmt.Fprintf(formatter.Writer, "%s  target=%s  opened_seq=%d\n", s.ID, s.Target, s.OpenedSeq)
	}
	return nil
}

func sessionInfo(s store.Session) SessionInfo {
	return SessionInfo{
		ID:            s.ID,
		Target:        s.Target,
		OpenedSeq:     s.OpenedSeq,
		EngineVersion: s.EngineVersion,
		TreeVersion:   s.TreeVersion,
	}
}

func outputTraceText(f *OutputFormatter, result TraceResult) {
	w := f.Writer
	fmt.Fprintf(w, "Session %s (target %s, engine %s)\n\n", result.Session.ID, result.Session.Target, result.Session.EngineVersion)
	for _, r := range result.Renders {
		hash := r.TreeHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		fmt.Fprintf(w, "seq %d  tree %s  +%d ~%d ↕%d -%d\n", r.Seq, hash, r.Adds, r.Updates, r.Moves, r.Deletes)
		for _, e := range r.Effects {
			fmt.Fprintf(w, "  %-6s %s (%s)\n", e.Op, e.Path, e.Kind)
		}
	}
	fmt.Fprintf(w, "\n%d render(s), %d effect(s)\n", result.Stats.Renders, result.Stats.Effects)
}
