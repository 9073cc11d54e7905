package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/Abhigyan126/Make-FaceDB/internal/constants"
)

//go:embed models.yaml
var modelsYAML []byte

type Config struct {
	Embedding EmbeddingConfig
	Match     MatchConfig
	Catalog   CatalogConfig
	Models    ModelsConfig
}

type EmbeddingConfig struct {
	URL   string // defaults to http://localhost:8000
	Model string // embedder model name, defaults to dlib
	Dim   int    // expected embedding length, defaults per model
}

type MatchConfig struct {
	Metric    string  // "euclidean" or "cosine"
	Threshold float64 // maximum distance for two faces to share an identity
}

type CatalogConfig struct {
	Path        string // path to the catalog blob (default known_faces.json)
	DatabaseURL string // PostgreSQL connection URL; when set, the catalog is stored in Postgres
}

type ModelsConfig struct {
	Models map[string]ModelDefaults `yaml:"models"`
}

// ModelDefaults holds the matching parameters calibrated for one embedder model.
type ModelDefaults struct {
	Metric    string  `yaml:"metric"`
	Threshold float64 `yaml:"threshold"`
	Dim       int     `yaml:"dim"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// envString reads an environment variable, falling back to a default when unset.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var models ModelsConfig
	if err := yaml.Unmarshal(modelsYAML, &models); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded models.yaml: " + err.Error())
	}

	model := envString("EMBEDDING_MODEL", "dlib")
	defaults := models.defaultsFor(model)

	return &Config{
		Embedding: EmbeddingConfig{
			URL:   os.Getenv("EMBEDDING_URL"),
			Model: model,
			Dim:   envInt("EMBEDDING_DIM", defaults.Dim),
		},
		Match: MatchConfig{
			Metric:    envString("FACE_MATCH_METRIC", defaults.Metric),
			Threshold: envFloat("FACE_MATCH_THRESHOLD", defaults.Threshold),
		},
		Catalog: CatalogConfig{
			Path:        envString("CATALOG_PATH", "known_faces.json"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
		},
		Models: models,
	}
}

// defaultsFor returns the matching defaults for a model, falling back to the
// dlib profile for unknown models.
func (m *ModelsConfig) defaultsFor(model string) ModelDefaults {
	if d, ok := m.Models[model]; ok {
		return d
	}
	return ModelDefaults{
		Metric:    "euclidean",
		Threshold: constants.DefaultEuclideanThreshold,
		Dim:       constants.DefaultEmbeddingDim,
	}
}
