// Package initcmder provides the init command for initializing a local .mnemo
// directory in the current working directory.
package initcmder

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mnemolabs/mnemo/pkg/config"
)

const (
	dirName = ".mnemo"
)

const initLongDesc string = `Initialize a new .mnemo/ directory in the current working directory.

Creates a local .mnemo/ directory that takes precedence over the default
~/.mnemo/ directory for configuration, workspace state, and local stores.
A default config.toml is written when none exists yet.

This is useful for maintaining separate memory state per project or directory.

Pass --preset to write a config.toml for a known stack instead:
  local       in-process stores, mock embeddings, heuristic analysis
  ollama      Ollama embeddings and analysis on localhost
  anthropic   Anthropic analysis paired with Ollama embeddings

--preset also accepts an http(s) URL serving a config.toml, for sharing
one config across machines.

Examples:
  mnemo init
  mnemo init --preset ollama
  mnemo init --preset https://configs.example.com/mnemo.toml`

const initShortDesc string = "Initialize a local .mnemo/ directory"

type initCommander struct {
	preset string
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return cmder.run()
		},
	}

	cmd.Flags().StringVarP(&cmder.preset, "preset", "p", "",
		fmt.Sprintf("Write a preset config.toml (%s, or a URL)", strings.Join(config.ValidPresetNames(), ", ")))

	return cmd
}

func (c *initCommander) run() error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dirName)

	info, err := os.Stat(dir)
	if err == nil && info.IsDir() {
		fmt.Printf("Already initialized: %s\n", dir)
	} else {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating .mnemo directory: %w", err)
		}
		fmt.Printf("Initialized .mnemo directory: %s\n", dir)
	}

	cfger, err := config.NewConfiger(dir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if c.preset == "" {
		// Bare init materializes the default config once; re-running
		// leaves an existing config.toml alone.
		if _, err := os.Stat(cfger.GetTarget()); err == nil {
			return nil
		}
		if err := cfger.SaveConfig(config.NewDefaultConfig()); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Printf("Wrote default config to %s\n", cfger.GetTarget())
		return nil
	}

	cfg, err := c.resolvePreset()
	if err != nil {
		return err
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("Wrote %s preset to %s\n", c.preset, cfger.GetTarget())
	return nil
}

// resolvePreset maps the preset flag to a Config: a known preset name, or a
// URL serving a config.toml.
func (c *initCommander) resolvePreset() (*config.Config, error) {
	if strings.HasPrefix(c.preset, "http://") || strings.HasPrefix(c.preset, "https://") {
		return fetchRemoteConfig(c.preset)
	}
	return config.PresetConfig(c.preset)
}

// fetchRemoteConfig downloads and parses a config.toml from a URL.
func fetchRemoteConfig(target string) (*config.Config, error) {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading remote config: %w", err)
	}

	return config.ParseConfigTOML(data)
}
