package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Abhigyan126/Make-FaceDB/internal/catalog"
	"github.com/Abhigyan126/Make-FaceDB/internal/embedder"
)

// ImageFaces records the identity labels assigned to one image, in face
// detection order.
type ImageFaces struct {
	ImageName string   `json:"image_name"`
	Faces     []string `json:"faces"`
}

// Output accumulates per-image results for one run, in file enumeration
// order. A fresh Output is created for every run; outputs are never merged
// across runs.
type Output struct {
	Images []ImageFaces
}

// supportedExtensions are the recognized image file extensions (lowercase).
var supportedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// Processor feeds every image in a folder through the embedder and resolves
// the resulting embeddings against the identity catalog.
type Processor struct {
	embedder embedder.Embedder
}

// NewProcessor creates a processor using the given embedder.
func NewProcessor(emb embedder.Embedder) *Processor {
	return &Processor{embedder: emb}
}

// listImageFiles returns the names of image files directly inside the folder,
// in directory order. Subfolders are not traversed.
func listImageFiles(folder string) ([]string, error) {
	entries, err := os.ReadDir(folder)
	if err != nil {
		return nil, fmt.Errorf("reading folder %s: %w", folder, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if supportedExtensions[ext] {
			files = append(files, entry.Name())
		}
	}
	return files, nil
}

// Run processes every image in the folder, appending results to out and
// emitting events through emit. The emit calls happen in a strict order: log
// and progress events as work proceeds, then exactly one completion event,
// always, even on cancellation or when every image fails.
//
// Cancellation is observed between images only; an in-flight embedding call
// runs to completion. Results gathered before cancellation are kept.
func (p *Processor) Run(ctx context.Context, folder string, cat *catalog.Catalog, out *Output, emit func(Event)) {
	defer emit(CompleteEvent())

	files, err := listImageFiles(folder)
	if err != nil {
		emit(LogEvent(fmt.Sprintf("Error reading folder: %v", err)))
		return
	}

	total := len(files)
	if total == 0 {
		emit(LogEvent("No valid image files found."))
		return
	}

	for i, name := range files {
		if ctx.Err() != nil {
			emit(LogEvent("Processing cancelled."))
			return
		}

		p.processImage(ctx, folder, name, cat, out, emit)
		emit(ProgressEvent(i+1, total))
	}
}

// processImage handles a single image. Failures are logged and swallowed so
// one bad image never aborts the batch.
func (p *Processor) processImage(ctx context.Context, folder, name string, cat *catalog.Catalog, out *Output, emit func(Event)) {
	imageData, err := os.ReadFile(filepath.Join(folder, name))
	if err != nil {
		emit(LogEvent(fmt.Sprintf("Error processing %s: %v", name, err)))
		return
	}

	// The embedding call always runs to completion once started; cancellation
	// is observed at the next image boundary, never by aborting the request.
	embeddings, err := p.embedder.DetectAndEmbed(context.WithoutCancel(ctx), imageData)
	if err != nil {
		emit(LogEvent(fmt.Sprintf("Error processing %s: %v", name, err)))
		return
	}

	if len(embeddings) == 0 {
		emit(LogEvent(fmt.Sprintf("No faces detected in %s. Skipping.", name)))
		return
	}

	faces := make([]string, 0, len(embeddings))
	for _, emb := range embeddings {
		faces = append(faces, cat.MatchOrRegister(emb))
	}

	out.Images = append(out.Images, ImageFaces{ImageName: name, Faces: faces})
	emit(LogEvent(fmt.Sprintf("Processed %s: %d face(s) detected.", name, len(faces))))
}
