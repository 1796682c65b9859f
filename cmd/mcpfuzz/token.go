package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/auth"
)

var (
	tokenStore  string
	tokenServer string
	tokenShow   bool
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Manage stored bearer tokens",
	Long: `Store, show and delete bearer tokens used by the keyring and file auth
modes. Tokens are keyed by the service base URL, which defaults to the
configured host and port.`,
}

var tokenSetCmd = &cobra.Command{
	Use:   "set [token]",
	Short: "Store a token (reads stdin when omitted or '-')",
	Example: `  mcpfuzz token set eyJhbGciOi...
  echo "$TOKEN" | mcpfuzz token set --store file`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTokenSet,
}

var tokenGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Show the stored token (masked unless --show)",
	Args:  cobra.NoArgs,
	RunE:  runTokenGet,
}

var tokenDeleteCmd = &cobra.Command{
	Use:     "delete",
	Aliases: []string{"rm"},
	Short:   "Delete the stored token",
	Args:    cobra.NoArgs,
	RunE:    runTokenDelete,
}

var tokenListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List servers with stored tokens",
	Args:    cobra.NoArgs,
	RunE:    runTokenList,
}

func init() {
	tokenCmd.PersistentFlags().StringVar(&tokenStore, "store", string(auth.StoreModeAuto), "Token store: auto, keyring, file")
	tokenCmd.PersistentFlags().StringVar(&tokenServer, "server", "", "Service base URL (default: from config)")
	tokenCmd.PersistentFlags().String("host", "", "Service host")
	tokenCmd.PersistentFlags().Int("port", 0, "Service port")
	tokenGetCmd.Flags().BoolVar(&tokenShow, "show", false, "Print the token unmasked")

	tokenCmd.AddCommand(tokenSetCmd, tokenGetCmd, tokenDeleteCmd, tokenListCmd)
	rootCmd.AddCommand(tokenCmd)
}

// openTokenStore returns the selected store and the server URL the
// command operates on.
func openTokenStore(cmd *cobra.Command) (auth.TokenStore, string, error) {
	cfg, _, closer, err := loadConfig(cmd)
	if err != nil {
		return nil, "", err
	}
	closer.Close()

	server := tokenServer
	if server == "" {
		server = cfg.BaseURL()
	}
	store, err := auth.NewStore(auth.StoreMode(tokenStore), cfg.Auth.TokenFile)
	if err != nil {
		return nil, "", err
	}
	return store, strings.TrimRight(server, "/"), nil
}

func runTokenSet(cmd *cobra.Command, args []string) error {
	store, server, err := openTokenStore(cmd)
	if err != nil {
		return err
	}

	var token string
	if len(args) == 1 && args[0] != "-" {
		token = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read token from stdin: %w", err)
		}
		token = line
	}
	token = strings.TrimSpace(token)

	entry, err := auth.NewEntry(server, token)
	if err != nil {
		return err
	}
	if err := store.Put(entry); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored token for %s\n", server)
	return nil
}

func runTokenGet(cmd *cobra.Command, args []string) error {
	store, server, err := openTokenStore(cmd)
	if err != nil {
		return err
	}
	entry, err := store.Get(server)
	if errors.Is(err, auth.ErrNotFound) {
		return fmt.Errorf("no token stored for %s", server)
	}
	if err != nil {
		return err
	}

	token := entry.AccessToken
	if !tokenShow {
		token = maskToken(token)
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}

func runTokenDelete(cmd *cobra.Command, args []string) error {
	store, server, err := openTokenStore(cmd)
	if err != nil {
		return err
	}
	if err := store.Delete(server); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted token for %s\n", server)
	return nil
}

func runTokenList(cmd *cobra.Command, args []string) error {
	store, _, err := openTokenStore(cmd)
	if err != nil {
		return err
	}
	entries, err := store.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stored tokens.")
		return nil
	}
	for _, e := range entries {
		updated := time.UnixMilli(e.UpdatedAt).Format(time.RFC3339)
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", e.ServerURL, maskToken(e.AccessToken), updated)
	}
	return nil
}

// maskToken keeps the last four characters.
func maskToken(t string) string {
	if len(t) <= 4 {
		return strings.Repeat("*", len(t))
	}
	return strings.Repeat("*", 8) + t[len(t)-4:]
}
