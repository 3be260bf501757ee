// Package doctor validates the local environment relay needs: a usable
// config, writable state directories, and a reachable backend.
package doctor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zhubert/relay-core/chat"
	"github.com/zhubert/relay-core/config"
	"github.com/zhubert/relay-core/paths"
)

// backendProbeTimeout bounds the reachability check so doctor never hangs on
// a dead server.
const backendProbeTimeout = 5 * time.Second

// CheckResult is the outcome of one environment check.
type CheckResult struct {
	Name     string
	Required bool
	OK       bool
	Detail   string // version, path, or count when the check passed
	Error    error
}

// RunAll executes every check against the given configuration.
func RunAll(ctx context.Context, cfg config.Config) []CheckResult {
	return []CheckResult{
		checkConfig(cfg),
		checkStorage(),
		checkBackend(ctx, cfg),
	}
}

// ValidateRequired returns an error describing every failed required check,
// or nil when the environment is usable.
func ValidateRequired(results []CheckResult) error {
	var failed []string
	for _, r := range results {
		if r.Required && !r.OK {
			failed = append(failed, fmt.Sprintf("  - %s: %v", r.Name, r.Error))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("environment checks failed:\n%s", strings.Join(failed, "\n"))
	}
	return nil
}

func checkConfig(cfg config.Config) CheckResult {
	result := CheckResult{Name: "config", Required: true}

	if err := cfg.Validate(); err != nil {
		result.Error = err
		return result
	}

	result.OK = true
	if path, err := paths.ConfigFilePath(); err == nil {
		if _, statErr := os.Stat(path); statErr == nil {
			result.Detail = path
		} else {
			result.Detail = "using defaults (no config file)"
		}
	}
	return result
}

func checkStorage() CheckResult {
	result := CheckResult{Name: "storage", Required: true}

	dir, err := paths.SessionsDir()
	if err != nil {
		result.Error = err
		return result
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		result.Error = fmt.Errorf("cannot create %s: %w", dir, err)
		return result
	}

	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		result.Error = fmt.Errorf("%s is not writable: %w", dir, err)
		return result
	}
	os.Remove(probe)

	result.OK = true
	result.Detail = dir
	return result
}

func checkBackend(ctx context.Context, cfg config.Config) CheckResult {
	result := CheckResult{Name: "backend", Required: true}

	probeCtx, cancel := context.WithTimeout(ctx, backendProbeTimeout)
	defer cancel()

	client := chat.NewClient(cfg.Server)
	commands, err := client.ListCommands(probeCtx)
	if err != nil {
		result.Error = fmt.Errorf("cannot reach %s: %w", cfg.Server, err)
		return result
	}

	result.OK = true
	result.Detail = fmt.Sprintf("%s (%d commands)", cfg.Server, len(commands))
	return result
}

// FormatResults renders check results for display.
func FormatResults(results []CheckResult) string {
	var sb strings.Builder

	sb.WriteString("Environment checks:\n")
	for _, r := range results {
		status := "✓"
		if !r.OK {
			if r.Required {
				status = "✗"
			} else {
				status = "○"
			}
		}

		sb.WriteString(fmt.Sprintf("  %s %s", status, r.Name))
		if r.OK && r.Detail != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", r.Detail))
		} else if !r.OK && r.Error != nil {
			sb.WriteString(fmt.Sprintf(": %v", r.Error))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
