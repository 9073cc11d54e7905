package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Abhigyan126/Make-FaceDB/internal/batch"
	"github.com/Abhigyan126/Make-FaceDB/internal/config"
	"github.com/Abhigyan126/Make-FaceDB/internal/constants"
	"github.com/Abhigyan126/Make-FaceDB/internal/embedder"
	"github.com/Abhigyan126/Make-FaceDB/internal/pipeline"
)

var processCmd = &cobra.Command{
	Use:   "process [folder]",
	Short: "Process a folder of images and assign face identities",
	Long: `Process every image in a folder: detect faces, embed them, and match
each face against the identity catalog. Matching faces reuse the known
label; unmatched faces register a new one.

Results are written to image_faces_data.json inside the processed folder,
and the updated catalog is persisted when the run finishes.

Press Ctrl+C to cancel; the run stops after the current image and keeps
the results produced so far.

Examples:
  # Process a folder with the configured model
  facedb process ./photos

  # Override the matching threshold
  facedb process ./photos --threshold 0.5

  # Use cosine distance instead of euclidean
  facedb process ./photos --metric cosine

  # Skip persisting the catalog afterwards
  facedb process ./photos --no-save`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().String("metric", "", "Distance metric: euclidean or cosine (defaults to model configuration)")
	processCmd.Flags().Float64("threshold", 0, "Maximum distance for two faces to share an identity (defaults to model configuration)")
	processCmd.Flags().Bool("no-save", false, "Do not persist the catalog after the run")
}

func runProcess(cmd *cobra.Command, args []string) error {
	folder := args[0]
	noSave := mustGetBool(cmd, "no-save")

	ctx := context.Background()
	cfg := config.Load()
	matcher := matcherFromConfig(cmd, cfg)

	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	cat := loadCatalog(ctx, store, matcher)
	fmt.Printf("Catalog loaded: %d known identities\n", cat.Len())

	emb := embedder.NewClient(cfg.Embedding.URL, cfg.Embedding.Model)
	controller := pipeline.New(emb, cat)

	if err := controller.Start(folder); err != nil {
		return fmt.Errorf("starting run: %w", err)
	}

	// First Ctrl+C cancels after the current image, second one kills the process.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nCancelling after the current image...")
		controller.Cancel()
		signal.Stop(sigChan)
	}()

	consumeEvents(controller)

	path, err := batch.WriteResults(folder, controller.Output())
	if err != nil {
		return fmt.Errorf("writing results: %w", err)
	}
	fmt.Printf("Results written to %s\n", path)

	if noSave {
		fmt.Println("Catalog not saved (--no-save)")
	} else {
		if err := store.Save(ctx, cat.Records()); err != nil {
			return fmt.Errorf("saving catalog: %w", err)
		}
		fmt.Printf("Catalog saved: %d identities\n", cat.Len())
	}

	if controller.State() == pipeline.StateCancelled {
		fmt.Println("Run cancelled")
	} else {
		fmt.Println("Run completed")
	}
	return nil
}

// consumeEvents drains controller events at the poll interval until the
// completion event, printing log lines and driving the progress bar.
func consumeEvents(controller *pipeline.Controller) {
	var bar *progressbar.ProgressBar

	for {
		for _, event := range controller.Poll() {
			switch event.Type {
			case batch.EventLog:
				if bar != nil {
					bar.Clear()
				}
				fmt.Println(event.Message)
			case batch.EventProgress:
				if bar == nil {
					bar = progressbar.NewOptions(event.Total,
						progressbar.OptionSetDescription("Processing images"),
						progressbar.OptionShowCount(),
						progressbar.OptionShowElapsedTimeOnFinish(),
						progressbar.OptionSetPredictTime(true),
						progressbar.OptionFullWidth(),
					)
				}
				bar.Set(event.Current)
			case batch.EventComplete:
				if bar != nil {
					bar.Finish()
					fmt.Println()
				}
				return
			}
		}
		time.Sleep(constants.PollInterval)
	}
}
