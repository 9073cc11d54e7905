package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Abhigyan126/Make-FaceDB/internal/catalog"
	"github.com/Abhigyan126/Make-FaceDB/internal/config"
	"github.com/Abhigyan126/Make-FaceDB/internal/constants"
	"github.com/Abhigyan126/Make-FaceDB/internal/embedder"
)

var catalogSimilarCmd = &cobra.Command{
	Use:   "similar [image]",
	Short: "Find the nearest known identities for faces in an image",
	Long: `Detect faces in an image and list the nearest known identities per face.

This is an inspection query over the catalog; it never registers new
identities. Distances are exact, computed with the configured metric.

Examples:
  # Show the nearest identities for every face in a photo
  facedb catalog similar ./photo.jpg

  # Limit results per face
  facedb catalog similar ./photo.jpg --limit 3

  # Output as JSON
  facedb catalog similar ./photo.jpg --json`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogSimilar,
}

func init() {
	catalogCmd.AddCommand(catalogSimilarCmd)

	catalogSimilarCmd.Flags().Int("limit", constants.DefaultSimilarLimit, "Maximum number of neighbors per face")
	catalogSimilarCmd.Flags().Bool("json", false, "Output as JSON")
}

// FaceSimilarOutput is the JSON output structure for one detected face.
type FaceSimilarOutput struct {
	FaceIndex int                `json:"face_index"`
	Neighbors []catalog.Neighbor `json:"neighbors"`
}

func runCatalogSimilar(cmd *cobra.Command, args []string) error {
	imagePath := args[0]
	limit := mustGetInt(cmd, "limit")
	jsonOutput := mustGetBool(cmd, "json")

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
	if len(records) == 0 {
		return errors.New("the catalog is empty - run 'facedb process' first")
	}

	imageData, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	emb := embedder.NewClient(cfg.Embedding.URL, cfg.Embedding.Model)
	embeddings, err := emb.DetectAndEmbed(ctx, imageData)
	if err != nil {
		return fmt.Errorf("embedding faces: %w", err)
	}
	if len(embeddings) == 0 {
		fmt.Printf("No faces detected in %s\n", imagePath)
		return nil
	}

	index := catalog.NewIndex(matcher, records)

	results := make([]FaceSimilarOutput, 0, len(embeddings))
	for i, embedding := range embeddings {
		results = append(results, FaceSimilarOutput{
			FaceIndex: i,
			Neighbors: index.Search(embedding, limit),
		})
	}

	if jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	}

	for _, face := range results {
		fmt.Printf("Face %d:\n", face.FaceIndex)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintf(w, "  LABEL\tDISTANCE\n")
		for _, neighbor := range face.Neighbors {
			fmt.Fprintf(w, "  %s\t%.4f\n", neighbor.Label, neighbor.Distance)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	return nil
}
