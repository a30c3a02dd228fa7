package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/af-corp/genroute/internal/complexity"
	"github.com/af-corp/genroute/internal/gateway"
	"github.com/spf13/cobra"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [prompt...]",
	Short: "Classify a prompt as simple, medium or complex",
	RunE:  runClassify,
}

var planCmd = &cobra.Command{
	Use:   "plan [prompt...]",
	Short: "Show the model, parameters and fallback chain a prompt would use",
	RunE:  runPlan,
}

func init() {
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(planCmd)
}

func runClassify(cmd *cobra.Command, args []string) error {
	prompt, err := promptArg(cmd, args)
	if err != nil {
		return err
	}
	level := complexity.Classify(prompt)
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), map[string]string{"complexity": level.String()})
	}
	fmt.Fprintln(cmd.OutOrStdout(), level)
	return nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	prompt, err := promptArg(cmd, args)
	if err != nil {
		return err
	}
	mcfg, err := loadModelConfig()
	if err != nil {
		return err
	}
	plan := gateway.PlanFor(prompt, mcfg)
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), plan)
	}

	effort := plan.ReasoningEffort
	if effort == "" {
		effort = "none"
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "complexity:       %s\n", plan.Complexity)
	fmt.Fprintf(out, "model:            %s\n", plan.Model)
	fmt.Fprintf(out, "reasoning effort: %s\n", effort)
	fmt.Fprintf(out, "temperature:      %.2f\n", plan.Temperature)
	fmt.Fprintf(out, "max tokens:       %d\n", plan.MaxTokens)
	fmt.Fprintf(out, "cost multiplier:  %.1fx\n", plan.CostMultiplier)
	fmt.Fprintf(out, "fallback chain:   %s\n", strings.Join(plan.FallbackChain, " -> "))
	return nil
}

// promptArg joins the arguments, or reads stdin when there are none.
func promptArg(cmd *cobra.Command, args []string) (string, error) {
	prompt := strings.Join(args, " ")
	if len(args) == 0 {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read prompt: %w", err)
		}
		prompt = string(data)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("prompt is required")
	}
	return prompt, nil
}
