package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/flash/internal/element"
)

// ValidationIssue is one problem found in a frame.
type ValidationIssue struct {
	Frame   int    `json:"frame"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Path    string `json:"path,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Frames int               `json:"frames"`
	Errors []ValidationIssue `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <frames-file>",
		Short: "Validate frames without rendering",
		Long: `Parse a frames file (YAML, CUE file or CUE package directory) and check
every tree for duplicate sibling keys without rendering it.

Exit codes:
  0 - All frames valid
  1 - One or more frames invalid
  2 - Command error (file not found, parse error, etc.)`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())

	frames, err := LoadFramesFile(path)
	if err != nil {
		code, msg := loadErrorCode(err)
		return outputValidateError(formatter, code, msg)
	}
	formatter.VerboseLog("Loaded %d frame(s) from %s", len(frames), path)

	issues := validateFrames(frames)
	if len(issues) > 0 {
		return outputValidationErrors(formatter, len(frames), issues)
	}
	return outputValidateSuccess(formatter, len(frames))
}

// validateFrames checks every tree for duplicate keys.
func validateFrames(frames []FrameSpec) []ValidationIssue {
	var issues []ValidationIssue
	for i, f := range frames {
		if f.Tree == nil {
			continue
		}
		if err := f.Tree.Validate(); err != nil {
			issue := ValidationIssue{Frame: i, Code: ErrCodeGeneric, Message: err.Error()}
			var dup *element.DuplicateKeyError
			if errors.As(err, &dup) {
				issue.Code = ErrCodeDuplicateKey
				issue.Path = dup.Parent.String()
			}
			issues = append(issues, issue)
		}
	}
	return issues
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, frames int) error {
	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Frames: frames})
	}

	fmt.Fprintf(formatter.Writer, "%s All %d frame(s) valid\n", formatter.mark(true), frames)
	return nil
}

// outputValidateError outputs a single load error.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	// Load errors are command-level errors (exit code 2)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

// outputValidationErrors outputs every invalid frame.
func outputValidationErrors(formatter *OutputFormatter, frames int, issues []ValidationIssue) error {
	if formatter.Format == "json" {
		result := ValidationResult{Valid: false, Frames: frames, Errors: issues}
		if err := formatter.Failure(result, issues[0].Code, issues[0].Message); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
	}

	fmt.Fprintf(formatter.Writer, "%s Validation failed\n\n", formatter.mark(false))
	for _, issue := range issues {
		fmt.Fprintf(formatter.Writer, "frame %d\n", issue.Frame)
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", issue.Code, issue.Message)
	}

	// Validation failures = exit code 1 (test/validation failure)
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(issues)))
}
