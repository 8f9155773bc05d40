// Package hostexec runs administrator CLI commands on the host.
package hostexec

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Runner implements platform.Exec with a per-command timeout.
type Runner struct {
	timeout time.Duration
}

// New returns a Runner. A non-positive timeout defaults to 30s.
func New(timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Runner{timeout: timeout}
}

// Run executes the command through the shell and returns its combined
// output. Output is trimmed so it reads cleanly in a chat reply.
func (r *Runner) Run(command string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	log.Info().Str("command", command).Msg("Running admin command")
	out, err := exec.CommandContext(ctx, "sh", "-c", command).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}
