// Package worker launches the external inference worker for an uploaded file
// and waits for it to finish.
//
// Dispatch is synchronous: the caller's request is blocked for the whole
// worker run. Moving this behind a job queue that returns a handle is the
// intended next step once long-running models are in use.
package worker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// Dispatcher runs one worker for one staged file.
type Dispatcher interface {
	Run(ctx context.Context, model, filePath string) error
}

// Failure is returned when the worker exits abnormally. ExitCode is -1 when
// the worker did not exit on its own (timeout, cancellation, failure to start).
type Failure struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("worker exited with status %d", f.ExitCode)
	if f.Err != nil && f.ExitCode < 0 {
		msg = "worker failed: " + f.Err.Error()
	}
	if s := strings.TrimSpace(f.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

func (f *Failure) Unwrap() error { return f.Err }

// Default container settings.
const (
	DefaultRuntime    = "docker"
	DefaultImage      = "bitnet_with_files"
	DefaultMountPoint = "/uploads"
)

// DefaultEntrypoint is the command run inside the container; the dispatcher
// appends "-m <model> -p <mounted file>".
var DefaultEntrypoint = []string{"python3", "run_inference.py"}

// ContainerConfig configures ContainerDispatcher.
type ContainerConfig struct {
	Runtime    string        // container CLI, e.g. docker or podman
	Image      string        // image holding the inference runtime
	StagingDir string        // host directory mounted read-write into the container
	MountPoint string        // where StagingDir appears inside the container
	Entrypoint []string      // command and leading args inside the container
	Timeout    time.Duration // 0 means wait indefinitely
}

// ContainerDispatcher runs each worker as an ephemeral container
// (`run --rm`) with the staging directory mounted.
type ContainerDispatcher struct {
	cfg    ContainerConfig
	logger *slog.Logger
}

var _ Dispatcher = (*ContainerDispatcher)(nil)

// NewContainerDispatcher applies defaults for empty fields.
func NewContainerDispatcher(cfg ContainerConfig, logger *slog.Logger) *ContainerDispatcher {
	if cfg.Runtime == "" {
		cfg.Runtime = DefaultRuntime
	}
	if cfg.Image == "" {
		cfg.Image = DefaultImage
	}
	if cfg.MountPoint == "" {
		cfg.MountPoint = DefaultMountPoint
	}
	if len(cfg.Entrypoint) == 0 {
		cfg.Entrypoint = DefaultEntrypoint
	}
	if abs, err := filepath.Abs(cfg.StagingDir); err == nil {
		cfg.StagingDir = abs
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ContainerDispatcher{cfg: cfg, logger: logger}
}

// Args returns the runtime arguments for one file. Only the base name of
// filePath is used; the file must live in the staging directory.
func (d *ContainerDispatcher) Args(model, filePath string) []string {
	args := []string{
		"run", "--rm",
		"-v", d.cfg.StagingDir + ":" + d.cfg.MountPoint,
		d.cfg.Image,
	}
	args = append(args, d.cfg.Entrypoint...)
	return append(args, "-m", model, "-p", path.Join(d.cfg.MountPoint, filepath.Base(filePath)))
}

// Run starts the container and blocks until it exits.
func (d *ContainerDispatcher) Run(ctx context.Context, model, filePath string) error {
	if d.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.cfg.Timeout)
		defer cancel()
	}

	return d.execute(ctx, d.Args(model, filePath), model, filePath)
}

func (d *ContainerDispatcher) execute(ctx context.Context, args []string, model, filePath string) error {
	cmd := exec.CommandContext(ctx, d.cfg.Runtime, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// bound the wait on output pipes held open by orphaned children after a kill
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	d.logger.Info("Dispatching worker", "runtime", d.cfg.Runtime, "image", d.cfg.Image, "model", model, "file", filepath.Base(filePath))

	err := cmd.Run()
	duration := time.Since(start)
	if err == nil {
		d.logger.Info("Worker finished", "file", filepath.Base(filePath), "duration", duration)
		d.logger.Debug("Worker output", "file", filepath.Base(filePath), "stdout", stdout.String())
		return nil
	}

	failure := &Failure{ExitCode: -1, Stderr: stderr.String(), Err: err}
	var exitErr *exec.ExitError
	if ctx.Err() == nil && errors.As(err, &exitErr) {
		failure.ExitCode = exitErr.ExitCode()
	} else if ctx.Err() != nil {
		failure.Err = ctx.Err()
	}
	d.logger.Warn("Worker failed", "file", filepath.Base(filePath), "exit_code", failure.ExitCode, "duration", duration, "error", err)
	return failure
}
