package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/explore"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/mcp"
	"github.com/AlexMiaWat/1C-MCP-SERVER-OWN/internal/tui/theme"
)

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the tools the service advertises",
	Long: `Perform the handshake and print the service's tool catalog.

Tools the exploration rounds depend on are marked; any that are missing
are reported on stderr.

Examples:
  mcpfuzz tools
  mcpfuzz tools --host 10.0.0.5 --json`,
	Args: cobra.NoArgs,
	RunE: runTools,
}

func init() {
	addServerFlags(toolsCmd.Flags())
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "Output as JSON")

	rootCmd.AddCommand(toolsCmd)
}

func runTools(cmd *cobra.Command, args []string) error {
	cfg, logger, closer, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer closer.Close()

	client, _, err := connect(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	pre, err := explore.Preflight(cmd.Context(), client, logger)
	if err != nil {
		return err
	}

	if toolsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(pre.Tools)
	}

	if len(pre.Tools) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "The service advertises no tools.")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), toolsTable(pre.Tools, theme.New()))
	}
	for _, name := range pre.Missing {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %s is not advertised; rounds will record it as failing\n", name)
	}
	return nil
}

// toolsTable renders the catalog with each tool's required arguments and
// the token cost of its definition.
func toolsTable(tools []mcp.Tool, th theme.Theme) string {
	explored := make(map[string]bool, len(explore.Methods))
	for _, m := range explore.Methods {
		explored[m] = true
	}

	rows := make([][]string, 0, len(tools)+1)
	total := 0
	for _, t := range tools {
		mark := ""
		if explored[t.Name] {
			mark = "●"
		}
		tokens := t.TokenCount()
		total += tokens
		rows = append(rows, []string{mark, t.Name, requiredArgs(t.InputSchema), strconv.Itoa(tokens), truncate(firstLine(t.Description), 60)})
	}
	rows = append(rows, []string{"", "total", "", strconv.Itoa(total), ""})
	totalsRow := len(rows) - 1

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(th.TableBorder).
		Headers("", "NAME", "REQUIRED", "TOKENS", "DESCRIPTION").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return th.TableHeader
			case row == totalsRow:
				return th.TableTotal
			case col == 0:
				return th.TableCell.Inherit(th.Success)
			default:
				return th.TableCell
			}
		}).
		String()
}

func requiredArgs(schema json.RawMessage) string {
	var names []string
	for _, r := range gjson.GetBytes(schema, "required").Array() {
		names = append(names, r.String())
	}
	return strings.Join(names, ", ")
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
