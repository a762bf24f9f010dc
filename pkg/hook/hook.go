// Package hook runs the optional pre-sync and post-sync shell commands.
package hook

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/paulschiretz/webdav-uploader/pkg/hints"
	"github.com/paulschiretz/webdav-uploader/pkg/plog"
)

var ErrNothingToExecute = hints.New("nothing to execute")
var ErrDisabled = hints.New("hook execution is disabled")

type HookExecutor struct {
	// commandContext allows mocking os/exec for testing hooks.
	commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd
}

// NewHookExecutor creates a new HookExecutor with the given command factory.
func NewHookExecutor(commandContext func(ctx context.Context, name string, arg ...string) *exec.Cmd) *HookExecutor {
	return &HookExecutor{
		commandContext: commandContext,
	}
}

func (e *HookExecutor) RunPreHook(ctx context.Context, p *Plan) error {
	return e.runHook(ctx, "Pre-sync", p.PreHookCommands, p)
}

func (e *HookExecutor) RunPostHook(ctx context.Context, p *Plan) error {
	return e.runHook(ctx, "Post-sync", p.PostHookCommands, p)
}

func (e *HookExecutor) runHook(ctx context.Context, label string, commands []string, p *Plan) error {
	if !p.Enabled {
		return ErrDisabled
	}
	if len(commands) == 0 {
		return ErrNothingToExecute
	}

	plog.Info(fmt.Sprintf("running %s hook commands", label))

	for _, hookCommand := range commands {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if p.DryRun {
			plog.Info("[DRY RUN] executing command", "command", hookCommand)
			continue
		}
		plog.Info("executing command", "command", hookCommand)

		cmd := e.createCommand(ctx, hookCommand)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr

		if err := cmd.Run(); err != nil {
			if ctx.Err() == context.Canceled {
				return context.Canceled
			}
			if p.FailFast {
				return fmt.Errorf("command '%s' failed: %w", hookCommand, err)
			}
			plog.Warn("hook command failed", "command", hookCommand, "error", err)
		}
	}
	return nil
}
