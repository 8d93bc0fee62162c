package skills

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// defaultScriptTimeout bounds a script run when no timeout is configured.
const defaultScriptTimeout = 60 * time.Second

// ExecResult captures one script invocation.
type ExecResult struct {
	Skill    string          `json:"skill"`
	Script   string          `json:"script"`
	ExitCode int             `json:"exit_code"`
	Output   json.RawMessage `json:"output,omitempty"` // stdout when it is valid JSON
	Text     string          `json:"text,omitempty"`   // stdout otherwise
	Stderr   string          `json:"stderr,omitempty"`
	Duration time.Duration   `json:"duration"`
}

// Executor runs skill scripts as subprocesses.
type Executor struct {
	loader     *Loader
	timeout    time.Duration
	pythonPath string
}

// ExecOption configures an Executor.
type ExecOption func(*Executor)

// WithTimeout overrides the per-script timeout.
func WithTimeout(d time.Duration) ExecOption {
	return func(e *Executor) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithPythonPath overrides the python interpreter used for .py scripts.
func WithPythonPath(path string) ExecOption {
	return func(e *Executor) {
		if path != "" {
			e.pythonPath = path
		}
	}
}

// NewExecutor creates a script executor over a loader.
func NewExecutor(loader *Loader, opts ...ExecOption) *Executor {
	e := &Executor{
		loader:     loader,
		timeout:    defaultScriptTimeout,
		pythonPath: "python3",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteScript runs scripts/<script> of a skill with params passed as one
// JSON argv argument. The subprocess is killed at the timeout. A non-zero
// exit is not an error; callers read ExitCode.
func (e *Executor) ExecuteScript(ctx context.Context, skillName, script string, params map[string]any) (*ExecResult, error) {
	if strings.ContainsAny(script, `/\`) {
		return nil, eris.Errorf("skills: script name %q must not contain path separators", script)
	}
	path, err := e.loader.ResourcePath(skillName, filepath.Join("scripts", script))
	if err != nil {
		return nil, err
	}

	argv, err := e.buildArgv(path, params)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = filepath.Dir(filepath.Dir(path)) // skill root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	if ctx.Err() == context.DeadlineExceeded {
		return nil, eris.Errorf("skills: script %s/%s timed out after %s", skillName, script, e.timeout)
	}

	result := &ExecResult{
		Skill:    skillName,
		Script:   script,
		Stderr:   stderr.String(),
		Duration: elapsed,
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			return nil, eris.Wrapf(runErr, "skills: run %s/%s", skillName, script)
		}
		result.ExitCode = exitErr.ExitCode()
	}

	out := bytes.TrimSpace(stdout.Bytes())
	if json.Valid(out) && len(out) > 0 {
		result.Output = json.RawMessage(out)
	} else {
		result.Text = string(out)
	}

	zap.L().Debug("script executed",
		zap.String("skill", skillName),
		zap.String("script", script),
		zap.Int("exit_code", result.ExitCode),
		zap.Duration("duration", elapsed),
	)
	return result, nil
}

// buildArgv picks the interpreter by extension and appends the params as a
// single JSON argument.
func (e *Executor) buildArgv(path string, params map[string]any) ([]string, error) {
	var argv []string
	switch filepath.Ext(path) {
	case ".py":
		argv = []string{e.pythonPath, path}
	case ".sh":
		argv = []string{"bash", path}
	default:
		return nil, eris.Errorf("skills: unsupported script type %s", filepath.Ext(path))
	}

	if len(params) > 0 {
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, eris.Wrap(err, "skills: marshal params")
		}
		argv = append(argv, string(encoded))
	}
	return argv, nil
}
