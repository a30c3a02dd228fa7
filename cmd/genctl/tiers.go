package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/af-corp/genroute/internal/models"
	"github.com/spf13/cobra"
)

var (
	flagModel        string
	flagInputTokens  int
	flagOutputTokens int
)

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "List model tiers with pricing",
	RunE:  runTiers,
}

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the USD cost of a call",
	RunE:  runEstimate,
}

func init() {
	estimateCmd.Flags().StringVarP(&flagModel, "model", "m", string(models.TierGPT5Mini), "Model tier")
	estimateCmd.Flags().IntVarP(&flagInputTokens, "input", "i", 0, "Input tokens")
	estimateCmd.Flags().IntVarP(&flagOutputTokens, "output", "o", 0, "Output tokens")

	rootCmd.AddCommand(tiersCmd)
	rootCmd.AddCommand(estimateCmd)
}

func runTiers(cmd *cobra.Command, _ []string) error {
	catalog := models.Catalog()
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), catalog)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIER\tPROVIDER\tINPUT $/M\tOUTPUT $/M\tREASONING")
	for _, info := range catalog {
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%t\n",
			info.Tier, info.Provider, info.Pricing.InputPerMillion, info.Pricing.OutputPerMillion, info.SupportsReasoningEffort)
	}
	return tw.Flush()
}

func runEstimate(cmd *cobra.Command, _ []string) error {
	if flagInputTokens < 0 || flagOutputTokens < 0 {
		return fmt.Errorf("token counts must not be negative")
	}
	tier, err := models.ParseTier(flagModel)
	if err != nil {
		return err
	}
	cost := models.Estimate(tier, flagInputTokens, flagOutputTokens)
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"model":          tier,
			"input_tokens":   flagInputTokens,
			"output_tokens":  flagOutputTokens,
			"estimated_cost": cost,
		})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "$%.6f\n", cost)
	return nil
}
