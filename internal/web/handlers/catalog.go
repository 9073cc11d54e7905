package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/Abhigyan126/Make-FaceDB/internal/catalog"
	"github.com/Abhigyan126/Make-FaceDB/internal/constants"
	"github.com/Abhigyan126/Make-FaceDB/internal/embedder"
	"github.com/Abhigyan126/Make-FaceDB/internal/pipeline"
)

// CatalogHandler exposes catalog stats, saving, and similarity queries.
//
// The catalog is owned by the background worker while a run is in progress,
// so every handler here rejects requests with 409 while Running.
type CatalogHandler struct {
	controller *pipeline.Controller
	store      catalog.Store
	embedder   embedder.Embedder
}

// NewCatalogHandler creates a catalog handler.
func NewCatalogHandler(controller *pipeline.Controller, store catalog.Store, emb embedder.Embedder) *CatalogHandler {
	return &CatalogHandler{controller: controller, store: store, embedder: emb}
}

// CatalogStats describes the current catalog.
type CatalogStats struct {
	Identities int     `json:"identities"`
	Dim        int     `json:"dim"`
	Metric     string  `json:"metric"`
	Threshold  float64 `json:"threshold"`
}

// Stats returns catalog statistics.
func (h *CatalogHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.controller.Running() {
		respondError(w, http.StatusConflict, "cannot read catalog while a run is in progress")
		return
	}

	cat := h.controller.Catalog()
	respondJSON(w, http.StatusOK, CatalogStats{
		Identities: cat.Len(),
		Dim:        cat.Dim(),
		Metric:     cat.Matcher().Metric,
		Threshold:  cat.Matcher().Threshold,
	})
}

// Save persists the catalog. A save failure leaves the in-memory catalog
// intact so the save can be retried.
func (h *CatalogHandler) Save(w http.ResponseWriter, r *http.Request) {
	if h.controller.Running() {
		respondError(w, http.StatusConflict, "cannot save while processing images")
		return
	}

	if err := h.store.Save(r.Context(), h.controller.Catalog().Records()); err != nil {
		respondError(w, http.StatusInternalServerError, fmt.Sprintf("saving catalog: %v", err))
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

// FaceNeighbors lists the nearest known identities for one detected face.
type FaceNeighbors struct {
	FaceIndex int                `json:"face_index"`
	Neighbors []catalog.Neighbor `json:"neighbors"`
}

// Similar accepts an uploaded image, embeds its faces, and returns the
// nearest known identities per face. This is an inspection query; it never
// registers new identities.
func (h *CatalogHandler) Similar(w http.ResponseWriter, r *http.Request) {
	if h.controller.Running() {
		respondError(w, http.StatusConflict, "cannot query catalog while a run is in progress")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing image file")
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "reading image file")
		return
	}

	embeddings, err := h.embedder.DetectAndEmbed(r.Context(), imageData)
	if err != nil {
		respondError(w, http.StatusBadGateway, fmt.Sprintf("embedding failed: %v", err))
		return
	}
	if len(embeddings) == 0 {
		respondJSON(w, http.StatusOK, []FaceNeighbors{})
		return
	}

	cat := h.controller.Catalog()
	index := catalog.NewIndex(cat.Matcher(), cat.Records())

	results := make([]FaceNeighbors, 0, len(embeddings))
	for i, emb := range embeddings {
		results = append(results, FaceNeighbors{
			FaceIndex: i,
			Neighbors: index.Search(emb, constants.DefaultSimilarLimit),
		})
	}
	respondJSON(w, http.StatusOK, results)
}
