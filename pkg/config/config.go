// Package config assembles the immutable Config the sync engine runs with,
// merging command-line flags, a credentials file, environment variables,
// and compiled defaults in that precedence order.
package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/paulschiretz/webdav-uploader/pkg/decision"
	"github.com/paulschiretz/webdav-uploader/pkg/plog"
	"github.com/paulschiretz/webdav-uploader/pkg/util"
	"github.com/paulschiretz/webdav-uploader/pkg/webdavclient"
)

// CredentialsFileName is the INI-ish file consulted for email/app-password
// when a flag doesn't already supply them.
const CredentialsFileName = "uploader.conf"

const (
	envEmail    = "MAILRU_EMAIL"
	envPassword = "MAILRU_APP_PASSWORD"

	defaultRemoteRoot = "/PublicUploadRoot"
	defaultBaseURL    = "https://webdav.cloud.mail.ru"
	defaultThreads    = 1
	defaultLogLevel   = "info"
)

// Config is the fully assembled, immutable configuration a run executes with.
type Config struct {
	Source          string
	Email           string
	AppPassword     string
	RemoteRoot      string
	BaseURL         string
	DryRun          bool
	Threads         int
	CompareMode     decision.CompareMode
	ExcludePatterns []string
	PreSyncHooks    []string
	PostSyncHooks   []string
	LogLevel        string
}

// Defaults returns the compiled default configuration.
func Defaults() Config {
	return Config{
		RemoteRoot:  defaultRemoteRoot,
		BaseURL:     defaultBaseURL,
		Threads:     defaultThreads,
		CompareMode: decision.SizeMtime,
		LogLevel:    defaultLogLevel,
	}
}

// LoadCredentialsFile reads an INI-ish key=value credentials file. Missing
// files are not an error; the caller only falls back to it for fields still
// unset. Lines starting with '#' or ';' are comments; values may be quoted.
func LoadCredentialsFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("opening credentials file %s: %w", path, err)
	}
	defer f.Close()

	values := make(map[string]string)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		line = strings.TrimPrefix(line, "\uFEFF")
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		idx := strings.Index(line, "=")
		if idx < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])
		value = unquote(value)
		values[key] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading credentials file %s: %w", path, err)
	}
	return values, nil
}

func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// ApplyCredentialsFile fills Email/AppPassword from the parsed credentials
// file, but only for fields not already set (explicit flags win).
func (c Config) ApplyCredentialsFile(values map[string]string) Config {
	if c.Email == "" {
		if v, ok := values["email"]; ok {
			c.Email = v
		}
	}
	if c.AppPassword == "" {
		if v, ok := values["app_password"]; ok {
			c.AppPassword = v
		} else if v, ok := values["app-password"]; ok {
			c.AppPassword = v
		}
	}
	return c
}

// ApplyEnv fills Email/AppPassword from environment variables, for fields
// still unset after flags and the credentials file.
func (c Config) ApplyEnv() Config {
	if c.Email == "" {
		c.Email = os.Getenv(envEmail)
	}
	if c.AppPassword == "" {
		c.AppPassword = os.Getenv(envPassword)
	}
	return c
}

// MergeWithFlags overlays explicitly-set flag values (as captured via
// flag.Visit by the caller) onto a base configuration, in precedence order
// highest to lowest: this call's values win over whatever base carries.
func MergeWithFlags(base Config, setFlags map[string]any) Config {
	merged := base
	for name, value := range setFlags {
		switch name {
		case "source":
			merged.Source = value.(string)
		case "email":
			merged.Email = value.(string)
		case "app-password":
			merged.AppPassword = value.(string)
		case "remote":
			merged.RemoteRoot = value.(string)
		case "base-url":
			merged.BaseURL = value.(string)
		case "dry-run":
			merged.DryRun = value.(bool)
		case "threads":
			merged.Threads = value.(int)
		case "compare":
			merged.CompareMode = value.(decision.CompareMode)
		case "exclude":
			merged.ExcludePatterns = value.([]string)
		case "pre-sync-hook":
			merged.PreSyncHooks = value.([]string)
		case "post-sync-hook":
			merged.PostSyncHooks = value.([]string)
		case "log-level":
			merged.LogLevel = value.(string)
		default:
			plog.Debug("unhandled flag in MergeWithFlags", "flag", name)
		}
	}
	return merged
}

// Validate checks the assembled config for logical errors before a run
// starts.
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source path cannot be empty")
	}
	expanded, err := util.ExpandPath(c.Source)
	if err != nil {
		return fmt.Errorf("could not expand source path: %w", err)
	}
	c.Source = filepath.Clean(expanded)

	info, err := os.Stat(c.Source)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("source directory %s does not exist", c.Source)
		}
		return fmt.Errorf("cannot stat source directory %s: %w", c.Source, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source path %s is not a directory", c.Source)
	}

	if c.Threads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", c.Threads)
	}

	if c.BaseURL == "" {
		return fmt.Errorf("base-url cannot be empty")
	}
	if _, err := webdavclient.ParseBaseUrl(c.BaseURL); err != nil {
		return err
	}

	if !c.DryRun {
		if c.Email == "" || c.AppPassword == "" {
			return fmt.Errorf("email and app-password are required unless --dry-run is set")
		}
	}

	return nil
}

// LogSummary logs the effective configuration (never the password) at
// startup.
func (c *Config) LogSummary() {
	plog.Info("configuration loaded",
		"source", c.Source,
		"remote", c.RemoteRoot,
		"base_url", c.BaseURL,
		"dry_run", c.DryRun,
		"threads", c.Threads,
		"compare", c.CompareMode.String(),
		"log_level", c.LogLevel,
		"exclude_count", len(c.ExcludePatterns),
		"has_credentials", c.Email != "" && c.AppPassword != "",
	)
}
