package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/paulschiretz/webdav-uploader/pkg/buildinfo"
	"github.com/paulschiretz/webdav-uploader/pkg/config"
	"github.com/paulschiretz/webdav-uploader/pkg/decision"
	"github.com/paulschiretz/webdav-uploader/pkg/hook"
	"github.com/paulschiretz/webdav-uploader/pkg/plog"
	"github.com/paulschiretz/webdav-uploader/pkg/preflight"
	"github.com/paulschiretz/webdav-uploader/pkg/runlock"
	"github.com/paulschiretz/webdav-uploader/pkg/syncengine"
)

const appName = "webdav-uploader"

// action is a special command to run instead of a sync.
type action int

const (
	actionRunSync action = iota
	actionShowVersion
)

// stringList collects the values of a repeatable flag, e.g. --exclude.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// parseFlagConfig defines and parses command-line flags, returning only the
// values the user explicitly set (via flag.Visit), so the config merge never
// overwrites a credentials-file or environment value with a flag default.
func parseFlagConfig() (action, map[string]any, error) {
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage of %s (version %s):\n", appName, buildinfo.Version)
		fmt.Fprintf(flag.CommandLine.Output(), "One-shot, unidirectional synchronizer from a local directory to a WebDAV endpoint.\n\n")
		flag.PrintDefaults()
	}

	sourceFlag := flag.String("source", "", "Local directory to synchronize from")
	emailFlag := flag.String("email", "", "WebDAV account email")
	appPasswordFlag := flag.String("app-password", "", "WebDAV account app password")
	remoteFlag := flag.String("remote", "", "Remote root path on the WebDAV server")
	baseURLFlag := flag.String("base-url", "", "Base URL of the WebDAV server")
	dryRunFlag := flag.Bool("dry-run", false, "Show what would be done without uploading or deleting anything")
	threadsFlag := flag.Int("threads", 0, "Number of concurrent upload workers")
	compareFlag := flag.String("compare", "", "Comparison mode: 'size-mtime' or 'size-only'")
	logLevelFlag := flag.String("log-level", "", "Logging level: 'debug', 'info', 'warn', or 'error'")
	versionFlag := flag.Bool("version", false, "Print the application version and exit")

	var excludeFlag stringList
	flag.Var(&excludeFlag, "exclude", "Glob pattern to exclude from the sync (repeatable)")
	var preSyncFlag stringList
	flag.Var(&preSyncFlag, "pre-sync-hook", "Shell command to run before the sync starts (repeatable)")
	var postSyncFlag stringList
	flag.Var(&postSyncFlag, "post-sync-hook", "Shell command to run after the sync finishes (repeatable)")

	flag.Parse()

	used := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { used[f.Name] = true })

	set := make(map[string]any)
	addIfUsed := func(name string, value any) {
		if used[name] {
			set[name] = value
		}
	}

	addIfUsed("source", *sourceFlag)
	addIfUsed("email", *emailFlag)
	addIfUsed("app-password", *appPasswordFlag)
	addIfUsed("remote", *remoteFlag)
	addIfUsed("base-url", *baseURLFlag)
	addIfUsed("dry-run", *dryRunFlag)
	addIfUsed("threads", *threadsFlag)
	addIfUsed("log-level", *logLevelFlag)
	if used["exclude"] {
		set["exclude"] = []string(excludeFlag)
	}
	if used["pre-sync-hook"] {
		set["pre-sync-hook"] = []string(preSyncFlag)
	}
	if used["post-sync-hook"] {
		set["post-sync-hook"] = []string(postSyncFlag)
	}
	if used["compare"] {
		mode, err := decision.ParseCompareMode(*compareFlag)
		if err != nil {
			return actionRunSync, nil, err
		}
		set["compare"] = mode
	}

	if *versionFlag {
		return actionShowVersion, set, nil
	}
	return actionRunSync, set, nil
}

// assembleConfig merges flags, the credentials file next to the executable,
// environment variables, and compiled defaults, in that precedence order.
func assembleConfig(set map[string]any) (config.Config, error) {
	cfg := config.Defaults()

	if exePath, err := os.Executable(); err == nil {
		credPath := filepath.Join(filepath.Dir(exePath), config.CredentialsFileName)
		if values, err := config.LoadCredentialsFile(credPath); err == nil {
			cfg = cfg.ApplyCredentialsFile(values)
		}
	}
	cfg = cfg.ApplyEnv()

	cfg = config.MergeWithFlags(cfg, set)
	return cfg, nil
}

func runSync(ctx context.Context, set map[string]any) error {
	cfg, err := assembleConfig(set)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	plog.SetLevel(plog.LevelFromString(cfg.LogLevel))
	cfg.LogSummary()

	if err := preflight.CheckSourceAccessible(cfg.Source); err != nil {
		return err
	}

	lock, err := runlock.Acquire(ctx, cfg.Source)
	if err != nil {
		return fmt.Errorf("run lock: %w", err)
	}
	defer lock.Release()

	hookPlan := &hook.Plan{
		Enabled:          true,
		PreHookCommands:  cfg.PreSyncHooks,
		PostHookCommands: cfg.PostSyncHooks,
		DryRun:           cfg.DryRun,
		FailFast:         false,
	}
	executor := hook.NewHookExecutor(exec.CommandContext)

	if len(cfg.PreSyncHooks) > 0 {
		if err := executor.RunPreHook(ctx, hookPlan); err != nil {
			return fmt.Errorf("pre-sync hook: %w", err)
		}
	}

	startTime := time.Now()
	stats, err := syncengine.RunSync(ctx, cfg)
	duration := time.Since(startTime).Round(time.Millisecond)
	if err != nil {
		return fmt.Errorf("sync: %w", err)
	}

	if len(cfg.PostSyncHooks) > 0 {
		if err := executor.RunPostHook(ctx, hookPlan); err != nil {
			plog.Warn("post-sync hook failed", "error", err)
		}
	}

	plog.Info(appName+" finished", "duration", duration,
		"uploaded", stats.FilesUploaded,
		"skipped", stats.FilesSkipped,
		"deleted", stats.FilesDeletedJPG+stats.FilesDeletedOld,
		"errors", stats.Errors,
	)

	if stats.Errors > 0 {
		return fmt.Errorf("sync completed with %d error(s)", stats.Errors)
	}
	return nil
}

// run encapsulates the main application logic and returns an error if
// something goes wrong, allowing main to pick the exit code.
func run(ctx context.Context) error {
	act, set, err := parseFlagConfig()
	if err != nil {
		return err
	}

	switch act {
	case actionShowVersion:
		fmt.Printf("%s version %s\n", appName, buildinfo.Version)
		return nil
	case actionRunSync:
		return runSync(ctx, set)
	default:
		return fmt.Errorf("internal error: unknown action %d", act)
	}
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := run(ctx); err != nil {
		plog.Error(appName+" exited with error", "error", err)
		os.Exit(1)
	}
}
