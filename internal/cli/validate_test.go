package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validFrames = `frames:
  - tree:
      kind: ul
      children:
        - {kind: li, props: {key: a}, children: ["A"]}
        - {kind: li, props: {key: b}, children: ["B"]}
  - target: side
    tree: {kind: p, children: ["side"]}
  - tree: ~
`

const duplicateFrames = `frames:
  - tree:
      kind: ul
      children:
        - {kind: li, props: {key: a}}
        - {kind: li, props: {key: a}}
  - tree: {kind: p}
  - tree:
      kind: div
      children:
        - kind: ul
          children:
            - {kind: li, props: {key: x}}
            - {kind: li, props: {key: x}}
`

// writeFile writes content to name inside a fresh temp dir.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func executeValidate(t *testing.T, format string, args ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	return buf, cmd.Execute()
}

func TestValidateValidFrames(t *testing.T) {
	path := writeFile(t, "frames.yaml", validFrames)

	buf, err := executeValidate(t, "text", path)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "✓ All 3 frame(s) valid")
}

func TestValidateValidFramesJSON(t *testing.T) {
	path := writeFile(t, "frames.yaml", validFrames)

	buf, err := executeValidate(t, "json", path)
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Equal(t, 3, resp.Data.Frames)
}

func TestValidateCUEFrames(t *testing.T) {
	path := writeFile(t, "frames.cue", `package frames

frames: [
	{kind: "ul", children: [{kind: "li", key: 1}, {kind: "li", key: 2}]},
	{kind: "ul", children: [{kind: "li", key: 2}]},
]
`)

	buf, err := executeValidate(t, "text", path)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "All 2 frame(s) valid")
}

func TestValidateNonExistentFile(t *testing.T) {
	buf, err := executeValidate(t, "text", "/nonexistent/frames.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNotFound)
	assert.Contains(t, buf.String(), "not found")
}

func TestValidateUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "frames.txt", "frames: []")

	_, err := executeValidate(t, "text", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeLoadFailed)
}

func TestValidateNoFrames(t *testing.T) {
	path := writeFile(t, "frames.yaml", "frames: []\n")

	_, err := executeValidate(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), ErrCodeNoFrames)
}

func TestValidateUnknownField(t *testing.T) {
	path := writeFile(t, "frames.yaml", "frames:\n  - tree: {kind: p}\n    extra: 1\n")

	_, err := executeValidate(t, "text", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeLoadFailed)
	assert.Contains(t, err.Error(), "extra")
}

func TestValidateInvalidTree(t *testing.T) {
	path := writeFile(t, "frames.yaml", "frames:\n  - tree: {children: []}\n")

	_, err := executeValidate(t, "text", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrCodeInvalidTree)
	assert.Contains(t, err.Error(), "frames[0]")
}

func TestValidateDuplicateKeys(t *testing.T) {
	path := writeFile(t, "frames.yaml", duplicateFrames)

	buf, err := executeValidate(t, "text", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, err.Error(), "validation failed with 2 error(s)")

	output := buf.String()
	assert.Contains(t, output, "✗ Validation failed")
	assert.Contains(t, output, "frame 0")
	assert.Contains(t, output, "frame 2")
	assert.NotContains(t, output, "frame 1\n")
	assert.Contains(t, output, ErrCodeDuplicateKey)
}

func TestValidateDuplicateKeysJSON(t *testing.T) {
	path := writeFile(t, "frames.yaml", duplicateFrames)

	buf, err := executeValidate(t, "json", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.Len(t, resp.Data.Errors, 2)
	assert.Equal(t, ValidationIssue{
		Frame:   0,
		Code:    ErrCodeDuplicateKey,
		Message: "duplicate key a under /#0 (children 0 and 1)",
		Path:    "/#0",
	}, resp.Data.Errors[0])
	assert.Equal(t, "/#0/#0", resp.Data.Errors[1].Path)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDuplicateKey, resp.Error.Code)
}

func TestValidateVerboseOutput(t *testing.T) {
	path := writeFile(t, "frames.yaml", validFrames)

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	cmd := NewValidateCommand(&RootOptions{Format: "text", Verbose: true})
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs([]string{path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, errOut.String(), "Loaded 3 frame(s)")
}
