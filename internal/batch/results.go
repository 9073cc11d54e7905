package batch

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ResultFileName is the name of the result file written inside the processed folder.
const ResultFileName = "image_faces_data.json"

// WriteResults persists a run's output as pretty-printed JSON inside the
// processed folder and returns the destination path. Called exactly once per
// run, after the completion event has been observed.
func WriteResults(folder string, out *Output) (string, error) {
	images := out.Images
	if images == nil {
		images = []ImageFaces{}
	}

	data, err := json.MarshalIndent(images, "", "    ")
	if err != nil {
		return "", fmt.Errorf("encoding results: %w", err)
	}

	path := filepath.Join(folder, ResultFileName)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", fmt.Errorf("writing result file %s: %w", path, err)
	}
	return path, nil
}
