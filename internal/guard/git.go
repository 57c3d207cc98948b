package guard

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// GitRunner abstracts the git invocations used by the guard so they can be
// stubbed in tests.
type GitRunner interface {
	Run(ctx context.Context, args ...string) (string, error)
}

type execGitRunner struct {
	dir string
}

func NewGitRunner(dir string) GitRunner {
	return &execGitRunner{dir: dir}
}

func (g *execGitRunner) Run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if g.dir != "" {
		cmd.Dir = g.dir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), msg)
	}

	return strings.TrimSpace(stdout.String()), nil
}
