package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"

	"acm/internal/core"
	"acm/internal/domain"
	"acm/internal/storage/config"

	"github.com/spf13/cobra"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage connection profiles",
	Long: `Manage saved connection profiles.

A profile is a named connection: a source (custom OpenAI-compatible URL or
Google AI Studio), its URL or reverse proxy, an API key and a preferred model.
Applying a profile writes it into the host's settings and links the key in
the secret vault.`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles in display order",
	Long: `List profiles grouped and ranked the same way the interactive list shows them.

The live profile is marked ON.

Examples:
  acm profile list
  acm profile list --search openrouter
  acm profile list --json`,
	Args: cobra.NoArgs,
	RunE: runProfileList,
}

var profileAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a profile",
	Long: `Add a connection profile. Adding a name that already exists updates it.

Without --group the group is detected from the name or URL.

Examples:
  acm profile add work --endpoint https://llm.example.com/v1 --ask-key
  acm profile add studio --source makersuite --model gemini-1.5-pro --ask-key`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileAdd,
}

var profileEditCmd = &cobra.Command{
	Use:   "edit <name>",
	Short: "Edit a profile",
	Long: `Change fields of an existing profile. Only the flags given are changed.

When the URL changes and other profiles of the same source still use the
old one, acm offers to move them too (--sync / --no-sync decide up front).

Examples:
  acm profile edit work --endpoint https://llm2.example.com/v1 --sync
  acm profile edit work --rename work-old`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileEdit,
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a profile",
	Long: `Delete a profile. Its key stays in the host's secret vault.

Examples:
  acm profile delete old-proxy
  acm profile delete old-proxy --yes`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileDelete,
}

var profileApplyCmd = &cobra.Command{
	Use:   "apply <name>",
	Short: "Make a profile the host's live connection",
	Long: `Apply a profile: link its key in the secret vault, write the connection
into the host's settings and, when the profile has a model, wait for the
host to list models and select it.

Examples:
  acm profile apply work
  acm profile apply work --no-wait`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileApply,
}

var profileExportCmd = &cobra.Command{
	Use:   "export [name...]",
	Short: "Export profiles",
	Long: `Export profiles to portable YAML. Keys and vault ids are never exported.

Without names every profile is exported.

Examples:
  acm profile export > profiles.yaml
  acm profile export work studio -o shared.yaml`,
	RunE: runProfileExport,
}

var profileImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import profiles",
	Long: `Import profiles from a YAML export. Profiles whose name already exists are
updated and keep their key.

Examples:
  acm profile import shared.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runProfileImport,
}

var (
	profileSearch        string
	profileGroup         string
	profileSource        string
	profileEndpoint      string
	profileProxyPassword string
	profileModel         string
	profileKey           string
	profileAskKey        bool
	profileRename        string
	profileSync          bool
	profileNoSync        bool
	profileDeleteYes     bool
	profileNoWait        bool
	profileExportOutput  string
)

func init() {
	profileListCmd.Flags().StringVarP(&profileSearch, "search", "s", "", "only list profiles matching this text")

	for _, cmd := range []*cobra.Command{profileAddCmd, profileEditCmd} {
		cmd.Flags().StringVarP(&profileGroup, "group", "g", "", "display group (detected when empty)")
		cmd.Flags().StringVar(&profileSource, "source", "", "source: custom or makersuite (default custom)")
		cmd.Flags().StringVarP(&profileEndpoint, "endpoint", "e", "", "custom URL, or reverse proxy for makersuite")
		cmd.Flags().StringVar(&profileProxyPassword, "proxy-password", "", "reverse proxy password (makersuite)")
		cmd.Flags().StringVarP(&profileModel, "model", "m", "", "preferred model")
		cmd.Flags().StringVar(&profileKey, "key", "", "API key (visible in shell history, prefer --ask-key)")
		cmd.Flags().BoolVar(&profileAskKey, "ask-key", false, "prompt for the API key")
		cmd.Flags().BoolVar(&profileSync, "sync", false, "move other profiles on the old URL to the new one")
		cmd.Flags().BoolVar(&profileNoSync, "no-sync", false, "leave other profiles on the old URL")
	}
	profileEditCmd.Flags().StringVar(&profileRename, "rename", "", "new profile name")

	profileDeleteCmd.Flags().BoolVarP(&profileDeleteYes, "yes", "y", false, "skip confirmation prompt")
	profileApplyCmd.Flags().BoolVar(&profileNoWait, "no-wait", false, "do not wait for the host to select the model")
	profileExportCmd.Flags().StringVarP(&profileExportOutput, "output", "o", "", "write to file instead of stdout")

	profileCmd.AddCommand(profileListCmd)
	profileCmd.AddCommand(profileAddCmd)
	profileCmd.AddCommand(profileEditCmd)
	profileCmd.AddCommand(profileDeleteCmd)
	profileCmd.AddCommand(profileApplyCmd)
	profileCmd.AddCommand(profileExportCmd)
	profileCmd.AddCommand(profileImportCmd)
	rootCmd.AddCommand(profileCmd)
}

// findProfile resolves a profile name to its index
func findProfile(m *core.ProfileManager, name string) (int, error) {
	index := m.Find(strings.TrimSpace(name))
	if index < 0 {
		return -1, fmt.Errorf("%w: %s", domain.ErrProfileNotFound, name)
	}
	return index, nil
}

// profileJSON is a single profile in JSON output
type profileJSON struct {
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Group    string `json:"group,omitempty"`
	Source   string `json:"source"`
	Endpoint string `json:"endpoint,omitempty"`
	Model    string `json:"model,omitempty"`
	Usage    int    `json:"usage"`
	HasKey   bool   `json:"has_key"`
	Active   bool   `json:"active"`
}

// profileListJSONOutput is the JSON output for profile list
type profileListJSONOutput struct {
	Sort     string        `json:"sort"`
	Total    int           `json:"total"`
	Profiles []profileJSON `json:"profiles"`
}

func runProfileList(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer svc.Close()

	view := svc.Profiles().View(cmd.Context(), profileSearch)
	out := cmd.OutOrStdout()

	if jsonOutput {
		result := profileListJSONOutput{Sort: string(view.Mode), Total: view.Total, Profiles: []profileJSON{}}
		for _, e := range core.Flatten(view.Sections) {
			result.Profiles = append(result.Profiles, profileJSON{
				Index:    e.Index,
				Name:     e.Profile.Name,
				Group:    e.Group,
				Source:   e.Profile.Source,
				Endpoint: e.Profile.EndpointValue(),
				Model:    e.Profile.Model,
				Usage:    e.Usage,
				HasKey:   e.Profile.Key != "",
				Active:   e.Index == view.Active,
			})
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if view.Total == 0 {
		fmt.Fprintln(out, "No profiles yet.")
		fmt.Fprintln(out, "\nAdd one with: acm profile add <name> --endpoint <url> --ask-key")
		return nil
	}
	shown := core.Flatten(view.Sections)
	if len(shown) == 0 {
		fmt.Fprintf(out, "No profile matches %q.\n", profileSearch)
		return nil
	}

	fmt.Fprintf(out, "Profiles (sorted by %s):\n\n", view.Mode)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSOURCE\tENDPOINT\tMODEL\tUSES\tSTATUS")
	for _, s := range view.Sections {
		indent := ""
		if s.Group != "" {
			indent = "  "
			header := fmt.Sprintf("[%s]", s.Group)
			if s.Collapsed {
				header += " (collapsed)"
			}
			fmt.Fprintf(w, "%s\t\t\t\t%d\t\n", header, s.Usage)
		}
		for _, e := range s.Entries {
			status := ""
			if e.Index == view.Active {
				status = colorGreen("ON")
			}
			label := domain.SourceLabel(e.Profile.Source)
			if e.Profile.Source != "" && !domain.IsSupportedSource(e.Profile.Source) {
				label = colorRed(label)
			}
			fmt.Fprintf(w, "%s%s\t%s\t%s\t%s\t%d\t%s\n",
				indent, e.Profile.Name, label,
				e.Profile.EndpointValue(), e.Profile.Model, e.Usage, status)
		}
	}
	w.Flush()

	if len(shown) < view.Total {
		fmt.Fprintf(out, "\nShowing %d of %d profiles\n", len(shown), view.Total)
	}
	return nil
}

// profileInput builds a ProfileInput from the add/edit flags, starting
// from base and overriding only the flags that were set
func profileInput(cmd *cobra.Command, base core.ProfileInput) (core.ProfileInput, error) {
	in := base
	flags := cmd.Flags()
	if flags.Changed("group") {
		in.Group = profileGroup
	}
	if flags.Changed("source") {
		in.Source = profileSource
	}
	if flags.Changed("endpoint") {
		in.Endpoint = profileEndpoint
	}
	if flags.Changed("proxy-password") {
		in.ProxyPassword = profileProxyPassword
	}
	if flags.Changed("model") {
		in.Model = profileModel
	}
	if flags.Changed("key") {
		in.Key = profileKey
	}
	if profileAskKey {
		key, err := readAPIKey()
		if err != nil {
			return in, err
		}
		in.Key = key
	}
	if in.Source != "" && !domain.IsSupportedSource(in.Source) {
		return in, fmt.Errorf("%w: %q (use %s or %s)", domain.ErrUnsupportedSource, in.Source, domain.SourceCustom, domain.SourceMakerSuite)
	}
	return in, nil
}

func runProfileAdd(cmd *cobra.Command, args []string) error {
	in, err := profileInput(cmd, core.ProfileInput{Name: args[0]})
	if err != nil {
		return err
	}

	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer svc.Close()

	res, err := svc.Profiles().Save(in, -1)
	if err != nil {
		if domain.IsValidation(err) {
			return fmt.Errorf("%w (see 'acm profile add --help')", err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	if res.Created {
		fmt.Fprintf(out, "✓ Created profile: %s\n", strings.TrimSpace(in.Name))
	} else {
		fmt.Fprintf(out, "✓ Updated profile: %s\n", strings.TrimSpace(in.Name))
	}
	if res.AutoGroup != "" {
		fmt.Fprintf(out, "  Group: %s (detected)\n", res.AutoGroup)
	}
	if in.Key != "" {
		fmt.Fprintf(out, "  Key: %s\n", maskAPIKey(strings.TrimSpace(in.Key)))
	}
	return handleSync(cmd, svc.Profiles(), res.Sync)
}

func runProfileEdit(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer svc.Close()

	m := svc.Profiles()
	index, err := findProfile(m, args[0])
	if err != nil {
		return err
	}
	p, err := m.Get(index)
	if err != nil {
		return err
	}

	in, err := profileInput(cmd, core.ProfileInput{
		Name:          p.Name,
		Group:         p.Group,
		Source:        p.Source,
		Endpoint:      p.Endpoint,
		ProxyPassword: p.ProxyPassword,
		Key:           p.Key,
		Model:         p.Model,
	})
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("rename") {
		in.Name = profileRename
		if other := m.Find(strings.TrimSpace(in.Name)); other >= 0 && other != index {
			return fmt.Errorf("a profile named %q already exists", strings.TrimSpace(in.Name))
		}
	}

	res, err := m.Save(in, index)
	if err != nil {
		if domain.IsValidation(err) {
			return fmt.Errorf("%w (see 'acm profile edit --help')", err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Updated profile: %s\n", strings.TrimSpace(in.Name))
	if res.AutoGroup != "" {
		fmt.Fprintf(out, "  Group: %s (detected)\n", res.AutoGroup)
	}
	return handleSync(cmd, m, res.Sync)
}

// handleSync offers to move the other profiles still on an edited
// profile's old URL
func handleSync(cmd *cobra.Command, m *core.ProfileManager, plan *core.SyncPlan) error {
	if plan == nil || plan.Count() == 0 {
		return nil
	}
	if profileSync && profileNoSync {
		return fmt.Errorf("--sync and --no-sync are mutually exclusive")
	}

	out := cmd.OutOrStdout()
	apply := profileSync
	if !profileSync && !profileNoSync {
		if !stdinIsTerminal() {
			fmt.Fprintf(out, "  %d other profile(s) still use %s; edit with --sync to move them together\n",
				plan.Count(), plan.OldEndpoint)
			return nil
		}
		ok, err := confirm(
			fmt.Sprintf("Move %d other profile(s) to the new URL?", plan.Count()),
			fmt.Sprintf("%s -> %s", plan.OldEndpoint, plan.NewEndpoint),
		)
		if err != nil {
			return err
		}
		apply = ok
	}
	if !apply {
		return nil
	}

	n, err := m.ApplySync(plan)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Moved %d other profile(s) to %s\n", n, plan.NewEndpoint)
	return nil
}

func runProfileDelete(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer svc.Close()

	m := svc.Profiles()
	index, err := findProfile(m, args[0])
	if err != nil {
		return err
	}

	if !profileDeleteYes {
		if !stdinIsTerminal() {
			return fmt.Errorf("refusing to delete %q without confirmation (use --yes)", args[0])
		}
		ok, err := confirm(fmt.Sprintf("Delete profile %q?", args[0]), "Its key stays in the host's secret vault.")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return ErrCancelled
		}
	}

	removed, err := m.Delete(index)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted profile: %s\n", removed.Name)
	return nil
}

func runProfileApply(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer svc.Close()

	if svc.Host() == nil {
		return fmt.Errorf("%w: no host settings file (set host_settings in config.yaml or pass --host-settings)", domain.ErrInvalidConfig)
	}

	m := svc.Profiles()
	index, err := findProfile(m, args[0])
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := m.Apply(ctx, index)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Applied %s (%s %s)\n", res.Profile.Name,
		domain.SourceLabel(res.Profile.Source), res.Profile.EndpointValue())

	if res.Wait == nil || profileNoWait {
		return nil
	}
	return waitForModel(ctx, out, res)
}

// waitForModel blocks until the pending model selection finishes
func waitForModel(ctx context.Context, out io.Writer, res *core.ApplyResult) error {
	model := strings.TrimSpace(res.Profile.Model)
	fmt.Fprintf(out, "  Waiting for the host to list models...\n")

	select {
	case <-res.Wait.Done():
	case <-ctx.Done():
		res.Wait.Cancel()
		<-res.Wait.Done()
		return ErrCancelled
	}

	if err := res.Wait.Err(); err != nil {
		return fmt.Errorf("selecting model %s: %w", model, err)
	}
	if res.Wait.Selected() {
		fmt.Fprintf(out, "✓ Selected model: %s\n", model)
		return nil
	}
	fmt.Fprintf(out, "  %s\n", colorYellow(fmt.Sprintf("Model %s was set but the host did not confirm it", model)))
	return nil
}

func runProfileExport(cmd *cobra.Command, args []string) error {
	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer svc.Close()

	m := svc.Profiles()
	var indices []int
	for _, name := range args {
		index, err := findProfile(m, name)
		if err != nil {
			return err
		}
		indices = append(indices, index)
	}

	data, err := m.Export(indices)
	if err != nil {
		return fmt.Errorf("exporting profiles: %w", err)
	}

	if profileExportOutput == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(profileExportOutput, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", profileExportOutput, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Exported to %s\n", profileExportOutput)
	return nil
}

func runProfileImport(cmd *cobra.Command, args []string) error {
	abs, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving %s: %w", args[0], err)
	}
	path, err := config.ParseFilePath(abs, ".yaml", ".yml")
	if err != nil {
		return fmt.Errorf("invalid profile file %s: %w", args[0], err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading profile file: %w", err)
	}

	svc, err := initService()
	if err != nil {
		return fmt.Errorf("initializing service: %w", err)
	}
	defer svc.Close()

	res, err := svc.Profiles().Import(data)
	if err != nil {
		return fmt.Errorf("importing profiles: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Imported profiles: %d added, %d updated\n", res.Added, res.Updated)
	if res.Skipped > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", colorYellow(fmt.Sprintf("%d invalid profile(s) skipped", res.Skipped)))
	}
	return nil
}
