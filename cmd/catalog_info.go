package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Abhigyan126/Make-FaceDB/internal/config"
)

var catalogInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show identity catalog statistics",
	Long: `Show the number of known identities and the matching configuration.

Examples:
  # Print catalog statistics
  facedb catalog info

  # Output as JSON
  facedb catalog info --json

  # List every identity label
  facedb catalog info --labels`,
	RunE: runCatalogInfo,
}

func init() {
	catalogCmd.AddCommand(catalogInfoCmd)

	catalogInfoCmd.Flags().Bool("json", false, "Output as JSON")
	catalogInfoCmd.Flags().Bool("labels", false, "List all identity labels")
}

// CatalogInfo is the JSON output structure for catalog info.
type CatalogInfo struct {
	Identities int      `json:"identities"`
	Dim        int      `json:"dim"`
	Metric     string   `json:"metric"`
	Threshold  float64  `json:"threshold"`
	Labels     []string `json:"labels,omitempty"`
}

func runCatalogInfo(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	showLabels := mustGetBool(cmd, "labels")

	ctx := context.Background()
	cfg := config.Load()
	matcher := matcherFromConfig(cmd, cfg)

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	records, err := store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	info := CatalogInfo{
		Identities: len(records),
		Metric:     matcher.Metric,
		Threshold:  matcher.Threshold,
	}
	if len(records) > 0 {
		info.Dim = len(records[0].Embedding)
	}
	if showLabels {
		for _, record := range records {
			info.Labels = append(info.Labels, record.Label)
		}
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(info)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Identities:\t%d\n", info.Identities)
	fmt.Fprintf(w, "Dimension:\t%d\n", info.Dim)
	fmt.Fprintf(w, "Metric:\t%s\n", info.Metric)
	fmt.Fprintf(w, "Threshold:\t%g\n", info.Threshold)
	if err := w.Flush(); err != nil {
		return err
	}

	if showLabels {
		fmt.Println()
		for _, label := range info.Labels {
			fmt.Println(label)
		}
	}
	return nil
}
