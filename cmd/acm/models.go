package main

import (
	"encoding/json"
	"fmt"

	"acm/internal/core"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models a connection offers",
	Long: `List the models available for a saved profile or for a connection given
by flags. Listings are cached per URL; --refresh fetches them again.

Examples:
  acm models --profile work
  acm models --endpoint https://llm.example.com/v1 --ask-key
  acm models --source makersuite --ask-key --json`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

var (
	modelsProfile       string
	modelsSource        string
	modelsEndpoint      string
	modelsKey           string
	modelsAskKey        bool
	modelsProxyPassword string
	modelsRefresh       bool
)

func init() {
	modelsCmd.Flags().StringVarP(&modelsProfile, "profile", "p", "", "use the connection of a saved profile")
	modelsCmd.Flags().StringVar(&modelsSource, "source", "", "source: custom or makersuite (default custom)")
	modelsCmd.Flags().StringVarP(&modelsEndpoint, "endpoint", "e", "", "custom URL, or reverse proxy for makersuite")
	modelsCmd.Flags().StringVar(&modelsKey, "key", "", "API key")
	modelsCmd.Flags().BoolVar(&modelsAskKey, "ask-key", false, "prompt for the API key")
	modelsCmd.Flags().StringVar(&modelsProxyPassword, "proxy-password", "", "reverse proxy password (makersuite)")
	modelsCmd.Flags().BoolVarP(&modelsRefresh, "refresh", "r", false, "ignore cached listings")

	rootCmd.AddCommand(modelsCmd)
}

// modelsJSONOutput is the JSON output for models
type modelsJSONOutput struct {
	Source   string   `json:"source"`
	Endpoint string   `json:"endpoint,omitempty"`
	Models   []string `json:"models"`
}

func runModels(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer svc.Close()

	m := svc.Profiles()
	var in core.ProfileInput
	if modelsProfile != "" {
		index, err := findProfile(m, modelsProfile)
		if err != nil {
			return err
		}
		p, err := m.Get(index)
		if err != nil {
			return err
		}
		in = core.ProfileInput{Source: p.Source, Endpoint: p.Endpoint, ProxyPassword: p.ProxyPassword, Key: p.Key}
	}

	flags := cmd.Flags()
	if flags.Changed("source") {
		in.Source = modelsSource
	}
	if flags.Changed("endpoint") {
		in.Endpoint = modelsEndpoint
	}
	if flags.Changed("key") {
		in.Key = modelsKey
	}
	if flags.Changed("proxy-password") {
		in.ProxyPassword = modelsProxyPassword
	}
	if modelsAskKey {
		if in.Key, err = readAPIKey(); err != nil {
			return err
		}
	}

	models, err := m.ListModels(cmd.Context(), in, modelsRefresh)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		result := modelsJSONOutput{Source: in.Source, Endpoint: in.Endpoint, Models: models}
		if result.Source == "" {
			result.Source = "custom"
		}
		if result.Models == nil {
			result.Models = []string{}
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if len(models) == 0 {
		fmt.Fprintln(out, "No models listed.")
		return nil
	}
	for _, id := range models {
		fmt.Fprintln(out, id)
	}
	return nil
}
