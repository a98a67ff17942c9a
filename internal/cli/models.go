package cli

import (
	"fmt"
	"io"
	"strings"

	"hrportal/internal/ai"

	"github.com/spf13/cobra"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List Gemini models that can run a review",
	Long: `List the Gemini models visible to the configured API key that support the
discovery capability (generateContent by default), and show which one the portal
would pick.`,
	RunE: runModels,
}

var modelsAll bool

func init() {
	modelsCmd.Flags().BoolVar(&modelsAll, "all", false, "Include models without the required capability")
}

func runModels(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := getConfigFromContext(ctx)
	logger := getLoggerFromContext(ctx)

	service, err := newAIService(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = service.Close() }()

	models, err := service.Provider.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}
	if !modelsAll {
		models = ai.FilterCapable(models, cfg.AI.Discovery.Capability)
	}

	resolved, err := service.Provider.ResolveModel(ctx)
	if err != nil {
		return err
	}
	printModels(cmd.OutOrStdout(), models, resolved)
	return nil
}

func printModels(w io.Writer, models []ai.ModelInfo, resolved string) {
	if len(models) == 0 {
		fmt.Fprintln(w, "No models found.")
	}
	for _, m := range models {
		marker := " "
		if m.Name == resolved {
			marker = "*"
		}
		line := fmt.Sprintf("%s %s", marker, m.Name)
		if m.DisplayName != "" {
			line += fmt.Sprintf(" (%s)", m.DisplayName)
		}
		if len(m.SupportedActions) > 0 {
			line += " [" + strings.Join(m.SupportedActions, ", ") + "]"
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "\nSelected model: %s\n", resolved)
}
