package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"iptvdesk/config"
	"iptvdesk/services/metadata"
	"iptvdesk/services/translation"
)

// settingsMetadataService is what the settings handler needs to hot-reload
// the pipeline after a credential change.
type settingsMetadataService interface {
	UpdateCredentials(apiKey, readAccessToken string)
	UpdateTranslator(gw *translation.Gateway)
}

var _ settingsMetadataService = (*metadata.Service)(nil)

type SettingsHandler struct {
	Manager          *config.Manager
	MetadataService  settingsMetadataService
	TranslationStore translation.Store
}

func NewSettingsHandler(m *config.Manager) *SettingsHandler {
	return &SettingsHandler{Manager: m}
}

// SetMetadataService sets the metadata service for hot reloading API keys
func (h *SettingsHandler) SetMetadataService(ms settingsMetadataService) {
	h.MetadataService = ms
}

// SetTranslationStore sets the cache store used when the translation gateway
// is rebuilt after a settings change.
func (h *SettingsHandler) SetTranslationStore(store translation.Store) {
	h.TranslationStore = store
}

func (h *SettingsHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Manager.Load()
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s)
}

func (h *SettingsHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	oldSettings, _ := h.Manager.Load()

	var s config.Settings
	dec := json.NewDecoder(r.Body)
	// Allow unknown fields for backward compatibility with old configs
	if err := dec.Decode(&s); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	if err := h.Manager.Save(s); err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		return
	}

	// Hot reload services that need it
	h.reloadServices(oldSettings, s)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(s)
}

// reloadServices reloads services that cache configuration at startup
func (h *SettingsHandler) reloadServices(old, s config.Settings) {
	if h.MetadataService == nil {
		return
	}
	if old.TMDB != s.TMDB {
		log.Printf("[settings] metadata credentials changed, reloading provider")
		h.MetadataService.UpdateCredentials(s.TMDB.APIKey, s.TMDB.ReadAccessToken)
	}
	if old.Translate != s.Translate {
		gw, err := translation.NewGateway(translation.Config{
			BaseURL: s.Translate.BaseURL,
			APIKey:  s.Translate.APIKey,
		}, h.TranslationStore)
		if err != nil {
			log.Printf("[settings] translation disabled: %v", err)
			h.MetadataService.UpdateTranslator(nil)
			return
		}
		log.Printf("[settings] translation settings changed, reloading gateway")
		h.MetadataService.UpdateTranslator(gw)
	}
}

// RegisterRoutes attaches the settings endpoints to the router.
func (h *SettingsHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/settings", h.GetSettings).Methods(http.MethodGet)
	r.HandleFunc("/api/settings", h.PutSettings).Methods(http.MethodPut)
}
