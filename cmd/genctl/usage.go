package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/af-corp/genroute/internal/httputil"
	"github.com/af-corp/genroute/internal/usage"
	"github.com/spf13/cobra"
)

var flagLimit int

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show usage statistics from a running server",
	RunE:  runStats,
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "Show the most recent generations from a running server",
	RunE:  runRecent,
}

func init() {
	recentCmd.Flags().IntVarP(&flagLimit, "limit", "l", 20, "Number of records")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(recentCmd)
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// getJSON fetches path from --addr and decodes the body into dst.
func getJSON(path string, query url.Values, dst any) error {
	u := strings.TrimRight(flagAddr, "/") + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	resp, err := httpClient.Get(u)
	if err != nil {
		return fmt.Errorf("request %s: %w", u, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr httputil.APIError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	return json.Unmarshal(body, dst)
}

func runStats(cmd *cobra.Command, _ []string) error {
	var stats usage.Stats
	if err := getJSON("/v1/usage/stats", nil, &stats); err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), stats)
	}

	out := cmd.OutOrStdout()
	if stats.Count == 0 {
		fmt.Fprintln(out, "No generations recorded.")
		return nil
	}
	fmt.Fprintf(out, "generations:     %d\n", stats.Count)
	fmt.Fprintf(out, "success rate:    %.1f%%\n", stats.SuccessRate)
	fmt.Fprintf(out, "fallback rate:   %.1f%%\n", stats.FallbackRate)
	fmt.Fprintf(out, "total cost:      $%.6f\n", stats.TotalCost)
	fmt.Fprintf(out, "average cost:    $%.6f\n", stats.AverageCost)
	fmt.Fprintf(out, "average tokens:  %.0f\n", stats.AverageTokens)
	fmt.Fprintf(out, "average latency: %.0fms\n", stats.AverageLatencyMs)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nMODEL\tCOUNT")
	for model, n := range stats.ByModel {
		fmt.Fprintf(tw, "%s\t%d\n", model, n)
	}
	fmt.Fprintln(tw, "\nREASONING EFFORT\tCOUNT")
	for effort, n := range stats.ByReasoningEffort {
		fmt.Fprintf(tw, "%s\t%d\n", effort, n)
	}
	return tw.Flush()
}

func runRecent(cmd *cobra.Command, _ []string) error {
	if flagLimit <= 0 {
		return fmt.Errorf("limit must be positive")
	}
	var recent struct {
		Count   int            `json:"count"`
		Records []usage.Record `json:"records"`
	}
	if err := getJSON("/v1/usage/recent", url.Values{"limit": {strconv.Itoa(flagLimit)}}, &recent); err != nil {
		return err
	}
	if flagJSON {
		return printJSON(cmd.OutOrStdout(), recent)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tMODEL\tEFFORT\tTOKENS\tMS\tCOST\tSTATUS")
	for _, r := range recent.Records {
		status := "ok"
		if !r.Success {
			status = r.ErrorKind
		}
		if r.FallbackOccurred {
			status += " (fallback from " + r.OriginalModel + ")"
		}
		effort := r.ReasoningEffort
		if effort == "" {
			effort = "none"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t$%.6f\t%s\n",
			r.Timestamp.Local().Format(time.TimeOnly), r.Model, effort, r.TokensUsed, r.GenerationTimeMs, r.EstimatedCost, status)
	}
	return tw.Flush()
}
