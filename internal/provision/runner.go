package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Execer runs a host command and returns its combined output.
type Execer interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// HostExecer executes commands on the local host.
type HostExecer struct{}

func (HostExecer) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Runner applies recipe steps in order, stopping at the first failure.
type Runner struct {
	exec   Execer
	http   *http.Client
	logger *slog.Logger
	root   string
}

// NewRunner creates a Runner. root prefixes every file path the runner
// writes, letting tests redirect system locations; pass "" on a real host.
func NewRunner(execer Execer, httpClient *http.Client, logger *slog.Logger, root string) *Runner {
	return &Runner{
		exec:   execer,
		http:   httpClient,
		logger: logger,
		root:   root,
	}
}

// Apply runs every step of the recipe in order. The first failing step
// aborts the run and its error names the step.
func (r *Runner) Apply(ctx context.Context, rec *Recipe) error {
	r.logger.Info("applying recipe", "name", rec.Name, "steps", len(rec.Steps))
	for i := range rec.Steps {
		step := &rec.Steps[i]
		r.logger.Info("applying step", "index", i+1, "name", step.Name, "action", step.Describe())
		if err := r.applyStep(ctx, step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Name, err)
		}
	}
	return nil
}

func (r *Runner) applyStep(ctx context.Context, s *Step) error {
	switch {
	case s.Locale != nil:
		return r.run(ctx, "locale-gen", s.Locale.Locale)
	case s.AptKey != nil:
		return r.fetchKey(ctx, s.AptKey)
	case s.AptRepository != nil:
		return r.writeHostFile(s.AptRepository.File, []byte(s.AptRepository.Entry+"\n"), 0o644)
	case s.AptUpdate != nil:
		return r.run(ctx, "apt-get", "update")
	case s.Packages != nil:
		args := append([]string{"install", "--yes", "--no-install-recommends"}, s.Packages.Names...)
		return r.run(ctx, "apt-get", args...)
	case s.BuildDep != nil:
		args := append([]string{"build-dep", "--yes"}, s.BuildDep.Packages...)
		return r.run(ctx, "apt-get", args...)
	case s.ServiceRestart != nil:
		return r.run(ctx, "systemctl", "restart", s.ServiceRestart.Name)
	case s.User != nil:
		return r.ensureUser(ctx, s.User)
	case s.Sudoers != nil:
		return r.installSudoers(ctx, s.Sudoers)
	}
	return errors.New("no action set")
}

func (r *Runner) run(ctx context.Context, name string, args ...string) error {
	out, err := r.exec.Run(ctx, name, args...)
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, bytes.TrimSpace(out))
	}
	return nil
}

// fetchKey downloads a repository signing key and installs it as a keyring
// file readable by apt.
func (r *Runner) fetchKey(ctx context.Context, s *AptKeyStep) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return fmt.Errorf("build key request: %w", err)
	}
	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch key %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch key %s: status %d", s.URL, resp.StatusCode)
	}

	key, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read key %s: %w", s.URL, err)
	}
	return r.writeHostFile(s.Keyring, key, 0o644)
}

// ensureUser creates the account or, when it already exists, reconciles
// its supplementary groups.
func (r *Runner) ensureUser(ctx context.Context, s *UserStep) error {
	args := []string{"--create-home"}
	if s.Shell != "" {
		args = append(args, "--shell", s.Shell)
	}
	if len(s.Groups) > 0 {
		args = append(args, "--groups", strings.Join(s.Groups, ","))
	}
	args = append(args, s.Name)

	out, err := r.exec.Run(ctx, "useradd", args...)
	if err == nil {
		return nil
	}
	if !bytes.Contains(out, []byte("already exists")) {
		return fmt.Errorf("useradd %s: %w: %s", s.Name, err, bytes.TrimSpace(out))
	}

	if len(s.Groups) == 0 {
		return nil
	}
	return r.run(ctx, "usermod", "--append", "--groups", strings.Join(s.Groups, ","), s.Name)
}

// installSudoers writes the drop-in to a temporary file, validates it with
// visudo, then installs it with the 0440 mode sudo requires.
func (r *Runner) installSudoers(ctx context.Context, s *SudoersStep) error {
	content := fmt.Sprintf("%s ALL=(ALL) NOPASSWD:ALL\n", s.User)

	tmp, err := os.CreateTemp("", "sudoers-*")
	if err != nil {
		return fmt.Errorf("stage sudoers drop-in: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("stage sudoers drop-in: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("stage sudoers drop-in: %w", err)
	}

	if out, err := r.exec.Run(ctx, "visudo", "-cf", tmp.Name()); err != nil {
		return fmt.Errorf("visudo rejected drop-in for %s: %w: %s", s.User, err, bytes.TrimSpace(out))
	}

	return r.writeHostFile(s.File, []byte(content), 0o440)
}

func (r *Runner) writeHostFile(path string, data []byte, perm os.FileMode) error {
	path = filepath.Join(r.root, path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}
