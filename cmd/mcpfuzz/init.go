package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/config"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/fileutil"
)

var (
	initDefaults bool
	initForce    bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the configuration file interactively",
	Long: `Create or update the mcpfuzz configuration file.

Prompts for the service address, auth mode and run parameters, then
writes the result to ~/.config/mcpfuzz/config.yaml (or --config).
Access tokens are never written; use 'mcpfuzz token set' instead.

Examples:
  mcpfuzz init
  mcpfuzz init --defaults --config ./mcpfuzz.yaml`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initDefaults, "defaults", false, "Write the built-in defaults without prompting")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file when using --defaults")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.ConfigPath(); err != nil {
			return err
		}
	}
	path, err := fileutil.ExpandHome(path)
	if err != nil {
		return err
	}

	cfg := config.Default()
	exists := false
	if _, err := os.Stat(path); err == nil {
		exists = true
		if cfg, err = config.Load(path, nil); err != nil {
			return err
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat config: %w", err)
	}

	if initDefaults {
		if exists && !initForce {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
		}
	} else {
		form, apply := configForm(cfg)
		if err := form.Run(); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted; nothing written.")
				return nil
			}
			return fmt.Errorf("config form: %w", err)
		}
		apply()
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.SaveTo(cfg, path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

// configForm collects the editable fields. apply copies the numeric
// answers back into cfg once the form completes.
func configForm(cfg *config.Config) (form *huh.Form, apply func()) {
	port := strconv.Itoa(cfg.Server.Port)
	rounds := strconv.Itoa(cfg.Explore.Rounds)
	workers := strconv.Itoa(cfg.Explore.Workers)

	keymap := huh.NewDefaultKeyMap()
	keymap.Input.Prev.SetKeys("up", "shift+tab")
	keymap.Input.Next.SetKeys("down", "tab")

	form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Host").
				Value(&cfg.Server.Host).
				Validate(huh.ValidateNotEmpty()),
			huh.NewInput().
				Title("Port").
				Value(&port).
				Validate(intInRange(1, 65535)),
			huh.NewSelect[string]().
				Title("Auth mode").
				Options(
					huh.NewOption("none", config.AuthNone),
					huh.NewOption("bearer (token from --token or MCP_ACCESS_TOKEN)", config.AuthBearer),
					huh.NewOption("keyring", config.AuthKeyring),
					huh.NewOption("file", config.AuthFile),
					huh.NewOption("vault", config.AuthVault),
				).
				Value(&cfg.Auth.Mode),
		).Title("Service"),
		huh.NewGroup(
			huh.NewInput().
				Title("Vault address").
				Description("Empty uses VAULT_ADDR").
				Value(&cfg.Auth.VaultAddress),
			huh.NewInput().
				Title("Vault secret path").
				Placeholder("secret/data/mcpfuzz").
				Value(&cfg.Auth.VaultPath).
				Validate(huh.ValidateNotEmpty()),
		).Title("Vault").WithHideFunc(func() bool { return cfg.Auth.Mode != config.AuthVault }),
		huh.NewGroup(
			huh.NewInput().
				Title("Rounds").
				Value(&rounds).
				Validate(intInRange(0, 1_000_000)),
			huh.NewInput().
				Title("Workers").
				Value(&workers).
				Validate(intInRange(1, 256)),
			huh.NewInput().
				Title("Run log file").
				Value(&cfg.Output.LogFile).
				Validate(huh.ValidateNotEmpty()),
			huh.NewConfirm().
				Title("Show live progress by default?").
				Value(&cfg.Output.TUI),
		).Title("Run"),
	).
		WithKeyMap(keymap).
		WithTheme(huh.ThemeBase16()).
		WithAccessible(os.Getenv("ACCESSIBLE") != "")

	apply = func() {
		// Validated by the form.
		cfg.Server.Port, _ = strconv.Atoi(strings.TrimSpace(port))
		cfg.Explore.Rounds, _ = strconv.Atoi(strings.TrimSpace(rounds))
		cfg.Explore.Workers, _ = strconv.Atoi(strings.TrimSpace(workers))
	}
	return form, apply
}

func intInRange(lo, hi int) func(string) error {
	return func(s string) error {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return errors.New("must be a number")
		}
		if n < lo || n > hi {
			return fmt.Errorf("must be between %d and %d", lo, hi)
		}
		return nil
	}
}
