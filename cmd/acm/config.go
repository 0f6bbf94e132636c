package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"acm/internal/storage/config"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change acm settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a setting in config.yaml",
	Long: `Change a setting in config.yaml.

Keys:
  host_settings  absolute path to the host's settings.json
  host_url       host base URL, used to list models through the host
  keybindings    vim or standard
  locale         collation locale for sorting names (e.g. en, de, ja)
  log_file       log to this file instead of the terminal
  log_level      debug, info, warn or error

Examples:
  acm config set host_settings ~/SillyTavern/data/default-user/settings.json
  acm config set keybindings standard`,
	Args: cobra.ExactArgs(2),
	RunE: runConfigSet,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}

// configSetters validate and apply one config key each
var configSetters = map[string]func(cfg *config.Config, value string) error{
	"host_settings": func(cfg *config.Config, value string) error {
		abs, err := filepath.Abs(value)
		if err != nil {
			return err
		}
		path, err := config.ParseFilePath(abs, ".json")
		if err != nil {
			return err
		}
		cfg.HostSettings = path
		return nil
	},
	"host_url": func(cfg *config.Config, value string) error {
		if value != "" && !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("host_url must start with http:// or https://")
		}
		cfg.HostURL = strings.TrimRight(value, "/")
		return nil
	},
	"keybindings": func(cfg *config.Config, value string) error {
		if value != "vim" && value != "standard" {
			return fmt.Errorf("keybindings must be vim or standard")
		}
		cfg.Keybindings = value
		return nil
	},
	"locale": func(cfg *config.Config, value string) error {
		cfg.Locale = value
		return nil
	},
	"log_file": func(cfg *config.Config, value string) error {
		cfg.LogFile = value
		return nil
	},
	"log_level": func(cfg *config.Config, value string) error {
		if _, err := log.ParseLevel(value); err != nil {
			return err
		}
		cfg.LogLevel = value
		return nil
	},
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	svcCfg, err := getServiceConfig()
	if err != nil {
		return err
	}
	cfg, err := config.Load(svcCfg.ConfigDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if svcCfg.HostSettings != "" {
		cfg.HostSettings = svcCfg.HostSettings
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(cfg)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	fmt.Fprintf(out, "# %s\n", filepath.Join(svcCfg.ConfigDir, "config.yaml"))
	_, err = out.Write(data)
	return err
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := args[0], strings.TrimSpace(args[1])
	set, ok := configSetters[key]
	if !ok {
		keys := make([]string, 0, len(configSetters))
		for k := range configSetters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return fmt.Errorf("unknown key %q (one of: %s)", key, strings.Join(keys, ", "))
	}

	svcCfg, err := getServiceConfig()
	if err != nil {
		return err
	}
	cfg, err := config.Load(svcCfg.ConfigDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := set(cfg, value); err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	if err := cfg.Save(svcCfg.ConfigDir); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s\n", key)
	return nil
}
