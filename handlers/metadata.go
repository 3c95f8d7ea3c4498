package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"iptvdesk/models"
	metadatapkg "iptvdesk/services/metadata"
)

type metadataService interface {
	GetEnrichedEntity(ctx context.Context, kind string, id int64) (*models.EnrichedEntity, error)
	PrefetchEntities(kind string, ids []int64) (string, error)
	GetProgressSnapshot() metadatapkg.ProgressSnapshot
	ClearCache() error
}

var _ metadataService = (*metadatapkg.Service)(nil)

type MetadataHandler struct {
	Service metadataService
}

func NewMetadataHandler(s metadataService) *MetadataHandler {
	return &MetadataHandler{Service: s}
}

// GetEntity returns one enriched entity: the normalized record plus its
// display plot, translated when the title looks non-English.
func (h *MetadataHandler) GetEntity(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	kind := strings.TrimSpace(vars["kind"])
	if !models.ValidKind(kind) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid entity kind"})
		return
	}

	id, err := strconv.ParseInt(strings.TrimSpace(vars["id"]), 10, 64)
	if err != nil || id <= 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid entity id"})
		return
	}

	enriched, err := h.Service.GetEnrichedEntity(r.Context(), kind, id)
	if err != nil {
		if errors.Is(err, metadatapkg.ErrNotFound) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{"error": "entity not found"})
			return
		}
		log.Printf("[metadata] enrich error kind=%s id=%d err=%v", kind, id, err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(enriched)
}

// PrefetchRequest is the request body for starting a cache warm-up.
type PrefetchRequest struct {
	Kind string  `json:"kind"`
	IDs  []int64 `json:"ids"`
}

// PrefetchResponse reports the background task started for a prefetch.
type PrefetchResponse struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

// Prefetch warms the metadata cache for a batch of ids in the background.
func (h *MetadataHandler) Prefetch(w http.ResponseWriter, r *http.Request) {
	var req PrefetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid request body"})
		return
	}
	if len(req.IDs) == 0 {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "ids are required"})
		return
	}

	taskID, err := h.Service.PrefetchEntities(strings.TrimSpace(req.Kind), req.IDs)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(PrefetchResponse{TaskID: taskID, Status: "started"})
}

// GetProgress returns a snapshot of active background enrichment tasks.
func (h *MetadataHandler) GetProgress(w http.ResponseWriter, r *http.Request) {
	snapshot := h.Service.GetProgressSnapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snapshot)
}

// ClearCache drops all cached metadata records.
func (h *MetadataHandler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.ClearCache(); err != nil {
		log.Printf("[metadata] cache clear error: %v", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// RegisterRoutes attaches the metadata endpoints to the router.
func (h *MetadataHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/metadata/progress", h.GetProgress).Methods(http.MethodGet)
	r.HandleFunc("/api/metadata/prefetch", h.Prefetch).Methods(http.MethodPost)
	r.HandleFunc("/api/metadata/cache/clear", h.ClearCache).Methods(http.MethodPost)
	r.HandleFunc("/api/metadata/{kind}/{id}", h.GetEntity).Methods(http.MethodGet)
}
