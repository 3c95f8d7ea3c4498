package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"iptvdesk/config"
	"iptvdesk/services/translation"
)

// fakeSettingsService records hot-reload calls issued by PutSettings.
type fakeSettingsService struct {
	credentialUpdates int
	lastAPIKey        string
	translatorSwaps   []*translation.Gateway
}

func (f *fakeSettingsService) UpdateCredentials(apiKey, readAccessToken string) {
	f.credentialUpdates++
	f.lastAPIKey = apiKey
}

func (f *fakeSettingsService) UpdateTranslator(gw *translation.Gateway) {
	f.translatorSwaps = append(f.translatorSwaps, gw)
}

func putSettings(t *testing.T, handler *SettingsHandler, s config.Settings) {
	t.Helper()
	buf, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	handler.PutSettings(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
}

func TestSettingsHandler_GetSettings(t *testing.T) {
	cfg := config.DefaultSettings()
	cfg.TMDB.APIKey = "tmdb-key"
	cfg.Translate.APIKey = "lt-key"

	mgr := config.NewManager(filepath.Join(t.TempDir(), "settings.json"))
	if err := mgr.Save(cfg); err != nil {
		t.Fatalf("save settings: %v", err)
	}

	handler := NewSettingsHandler(mgr)

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()

	handler.GetSettings(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("unexpected content-type %q", got)
	}

	var got config.Settings
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.TMDB.APIKey != cfg.TMDB.APIKey || got.Translate.APIKey != cfg.Translate.APIKey {
		t.Fatalf("unexpected settings: %+v", got)
	}
}

func TestSettingsHandler_PutSettings(t *testing.T) {
	mgr := config.NewManager(filepath.Join(t.TempDir(), "settings.json"))
	handler := NewSettingsHandler(mgr)

	payload := config.DefaultSettings()
	payload.TMDB.APIKey = "new-key"
	payload.Cache.TTLHours = 12

	buf, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader(buf))
	rec := httptest.NewRecorder()

	handler.PutSettings(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	saved, err := mgr.Load()
	if err != nil {
		t.Fatalf("load settings: %v", err)
	}
	if saved.TMDB.APIKey != "new-key" || saved.Cache.TTLHours != 12 {
		t.Fatalf("settings not persisted: %+v", saved)
	}
}

func TestSettingsHandler_PutSettingsReloadsProvider(t *testing.T) {
	mgr := config.NewManager(filepath.Join(t.TempDir(), "settings.json"))
	svc := &fakeSettingsService{}
	handler := NewSettingsHandler(mgr)
	handler.SetMetadataService(svc)

	payload := config.DefaultSettings()
	payload.TMDB.APIKey = "rotated-key"
	putSettings(t, handler, payload)

	if svc.credentialUpdates != 1 || svc.lastAPIKey != "rotated-key" {
		t.Fatalf("expected one credential reload with the new key, got %+v", svc)
	}
	if len(svc.translatorSwaps) != 0 {
		t.Errorf("translation settings unchanged, expected no gateway swap, got %d", len(svc.translatorSwaps))
	}
}

func TestSettingsHandler_PutSettingsReloadsTranslationGateway(t *testing.T) {
	mgr := config.NewManager(filepath.Join(t.TempDir(), "settings.json"))
	svc := &fakeSettingsService{}
	handler := NewSettingsHandler(mgr)
	handler.SetMetadataService(svc)
	handler.SetTranslationStore(translation.NewMemoryStore())

	// Enabling a previously missing key swaps in a working gateway.
	payload := config.DefaultSettings()
	payload.Translate.APIKey = "lt-new"
	putSettings(t, handler, payload)

	if len(svc.translatorSwaps) != 1 || svc.translatorSwaps[0] == nil {
		t.Fatalf("expected one non-nil gateway swap, got %+v", svc.translatorSwaps)
	}

	// Clearing the key disables translation without a restart.
	payload.Translate.APIKey = ""
	putSettings(t, handler, payload)

	if len(svc.translatorSwaps) != 2 || svc.translatorSwaps[1] != nil {
		t.Fatalf("expected a nil gateway swap after the key was removed, got %+v", svc.translatorSwaps)
	}
}

func TestSettingsHandler_PutSettingsInvalidBody(t *testing.T) {
	mgr := config.NewManager(filepath.Join(t.TempDir(), "settings.json"))
	handler := NewSettingsHandler(mgr)

	req := httptest.NewRequest(http.MethodPut, "/api/settings", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()

	handler.PutSettings(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}
