package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/opsgate/slb-mcp-gateway/internal/classifier"
	"github.com/opsgate/slb-mcp-gateway/internal/config"
	"github.com/opsgate/slb-mcp-gateway/internal/learning"
	"github.com/opsgate/slb-mcp-gateway/internal/output"
	"github.com/opsgate/slb-mcp-gateway/internal/patterns"
	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"
)

var (
	flagPatternTier     string
	flagPatternFormat   string
	flagPatternFile     string
	flagPatternExitCode bool
)

func init() {
	patternsCmd.PersistentFlags().StringVarP(&flagPatternTier, "tier", "T", "", "filter by tier (safe, risky, dangerous, critical, blocked)")
	patternsTestCmd.Flags().BoolVar(&flagPatternExitCode, "exit-code", false, "exit 1 if the command would be blocked or require confirmation")
	patternsExportCmd.Flags().StringVarP(&flagPatternFormat, "format", "f", "json", "export format: json, yaml")
	patternsExportCmd.Flags().StringVarP(&flagPatternFile, "output", "o", "", "output file (default: stdout)")

	patternsCmd.AddCommand(patternsListCmd)
	patternsCmd.AddCommand(patternsTestCmd)
	patternsCmd.AddCommand(patternsExportCmd)
	patternsCmd.AddCommand(patternsVersionCmd)
}

// patternsCmd groups the read-only pattern-inspection commands. Unlike the
// teacher, this gateway never exposes `patterns add`/`remove` from the CLI:
// §4.3 routes all pattern mutation through the `learn` MCP tool so every
// promotion goes through the Learning Store's single-writer task and gets
// audited as PATTERN_CACHE_INVALIDATED (§4.2); a second, unaudited mutation
// path here would violate that.
var patternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "Inspect the command classification pattern tiers",
	Long: `Inspect the regex pattern tiers used to classify commands (§4.2).

Commands are classified in severity order: BLOCKED, CRITICAL, DANGEROUS,
RISKY, SAFE. The first matching pattern in the highest-severity tier wins.

Pattern mutation (approving a learned-safe candidate) happens through the
"learn" MCP tool, not this CLI, so every promotion is audited uniformly.`,
}

func loadPatternStore() (*patterns.Store, config.Config, error) {
	cfg, err := config.Load(config.LoadOptions{ProjectDir: flagProject, ConfigPathOverride: flagConfig})
	if err != nil {
		return nil, cfg, err
	}
	store := patterns.NewStore()
	if _, err := store.ApplyOverrides(cfg.Security.AdditionalSafe, cfg.Security.AdditionalBlocked, cfg.Security.SuppressPatterns); err != nil {
		return nil, cfg, err
	}
	return store, cfg, nil
}

var patternsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List patterns grouped by tier",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := loadPatternStore()
		if err != nil {
			return err
		}
		snap := store.CurrentSnapshot()

		tiers := patterns.SeverityOrder()
		if flagPatternTier != "" {
			t := patterns.Tier(strings.ToUpper(flagPatternTier))
			tiers = []patterns.Tier{t}
		}

		out := output.New(GetOutput())
		if GetOutput() == output.FormatText {
			for _, tier := range tiers {
				list := snap.InTier(tier)
				if len(list) == 0 {
					continue
				}
				fmt.Printf("\n%s (%d patterns):\n", tier, len(list))
				for _, p := range list {
					fmt.Printf("  [%s] %s\n", p.ID, p.Expr)
					if p.Description != "" {
						fmt.Printf("      # %s\n", p.Description)
					}
				}
			}
			fmt.Println()
			return nil
		}

		type patternView struct {
			ID          string `json:"id"`
			Category    string `json:"category"`
			Expr        string `json:"expr"`
			Description string `json:"description,omitempty"`
			Source      string `json:"source"`
		}
		result := make(map[string][]patternView, len(tiers))
		for _, tier := range tiers {
			list := snap.InTier(tier)
			views := make([]patternView, 0, len(list))
			for _, p := range list {
				views = append(views, patternView{ID: p.ID, Category: p.Category, Expr: p.Expr, Description: p.Description, Source: p.Source})
			}
			result[string(tier)] = views
		}
		return out.Write(result)
	},
}

var patternsTestCmd = &cobra.Command{
	Use:   "test <command>",
	Short: "Classify a command and show the resulting tier",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, dataDir, err := loadPatternStoreAndDataDir()
		if err != nil {
			return err
		}
		learningStore, err := learning.NewStore(dataDir)
		if err != nil {
			return err
		}
		defer learningStore.Close()

		cls := classifier.New(store, learningStore, nil)
		a := cls.Classify(args[0])

		out := output.New(GetOutput())
		if GetOutput() == output.FormatText {
			fmt.Printf("Command:              %s\n", args[0])
			fmt.Printf("Tier:                 %s\n", a.Level)
			fmt.Printf("Category:             %s\n", a.Category)
			fmt.Printf("Blocked:              %v\n", a.Blocked)
			fmt.Printf("RequiresConfirmation: %v\n", a.RequiresConfirmation)
			if a.MatchedPattern != "" {
				fmt.Printf("MatchedPattern:       %s\n", a.MatchedPattern)
			}
			if a.OriginalAlias != "" {
				fmt.Printf("Alias:                %s -> %s\n", a.OriginalAlias, a.ResolvedCmdlet)
			}
		} else if err := out.Write(a); err != nil {
			return err
		}

		if flagPatternExitCode && (a.Blocked || a.RequiresConfirmation) {
			os.Stdout.Sync()
			os.Exit(1)
		}
		return nil
	},
}

func loadPatternStoreAndDataDir() (*patterns.Store, string, error) {
	store, _, err := loadPatternStore()
	if err != nil {
		return nil, "", err
	}
	return store, learningDataDir(), nil
}

var patternsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the merged pattern set",
	Long: `Export the full merged pattern set (builtin + config overrides) with
its content hash, for external hook tooling or change detection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := loadPatternStore()
		if err != nil {
			return err
		}
		snap := store.CurrentSnapshot()

		type patternExport struct {
			ID          string `json:"id"`
			Tier        string `json:"tier"`
			Category    string `json:"category"`
			Expr        string `json:"expr"`
			Description string `json:"description,omitempty"`
			Source      string `json:"source"`
		}
		all := snap.All()
		exported := make([]patternExport, 0, len(all))
		for _, p := range all {
			exported = append(exported, patternExport{ID: p.ID, Tier: string(p.Tier), Category: p.Category, Expr: p.Expr, Description: p.Description, Source: p.Source})
		}
		payload := map[string]any{
			"version":  snap.Version(),
			"sha256":   snap.Hash(),
			"count":    len(exported),
			"patterns": exported,
		}

		var content []byte
		switch strings.ToLower(flagPatternFormat) {
		case "json":
			content, err = json.MarshalIndent(payload, "", "  ")
			content = append(content, '\n')
		case "yaml":
			content, err = yaml.Marshal(payload)
		default:
			return fmt.Errorf("unknown format: %s (use json or yaml)", flagPatternFormat)
		}
		if err != nil {
			return fmt.Errorf("exporting patterns: %w", err)
		}

		if flagPatternFile != "" {
			if err := os.WriteFile(flagPatternFile, content, 0o644); err != nil {
				return fmt.Errorf("writing export file: %w", err)
			}
			out := output.New(GetOutput())
			return out.Write(map[string]any{"status": "exported", "file": flagPatternFile, "hash": snap.Hash(), "count": len(exported)})
		}
		fmt.Print(string(content))
		return nil
	},
}

var patternsVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the pattern set version and content hash",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := loadPatternStore()
		if err != nil {
			return err
		}
		snap := store.CurrentSnapshot()
		out := output.New(GetOutput())
		return out.Write(map[string]any{
			"version": snap.Version(),
			"sha256":  snap.Hash(),
			"count":   len(snap.All()),
		})
	},
}
