package mautic

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ignite/bulletin-sync/internal/domain"
	"github.com/ignite/bulletin-sync/internal/pkg/logger"
)

// consoleCommands maps each maintenance step to its Mautic console command
var consoleCommands = map[domain.MaintenanceStep]string{
	domain.StepUpdateSegments:   "mautic:segments:update",
	domain.StepUpdateCampaigns:  "mautic:campaigns:update",
	domain.StepTriggerCampaigns: "mautic:campaigns:trigger",
}

// CommandRunner executes an external command and returns its combined output
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands on the local host
type ExecRunner struct{}

// Run implements CommandRunner
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Console runs maintenance steps through the Mautic console, e.g.
// "docker exec mautic php /var/www/html/bin/console mautic:segments:update".
type Console struct {
	prefix []string
	runner CommandRunner
}

// NewConsole creates a Console. prefix is the command that precedes the
// console command name and must not be empty.
func NewConsole(prefix []string, runner CommandRunner) *Console {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Console{prefix: prefix, runner: runner}
}

// RunStep runs one maintenance step and waits for it to finish
func (c *Console) RunStep(ctx context.Context, step domain.MaintenanceStep) error {
	command, ok := consoleCommands[step]
	if !ok {
		return fmt.Errorf("unknown maintenance step %q", step)
	}
	if len(c.prefix) == 0 {
		return fmt.Errorf("no console command configured")
	}

	args := append(append([]string{}, c.prefix[1:]...), command)
	logger.Info("running maintenance step", "step", string(step), "command", command)

	out, err := c.runner.Run(ctx, c.prefix[0], args...)
	if err != nil {
		return fmt.Errorf("%s: %w: %s", command, err, strings.TrimSpace(string(out)))
	}
	logger.Debug("maintenance step output", "step", string(step), "output", strings.TrimSpace(string(out)))
	return nil
}
