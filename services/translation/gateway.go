package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL = "https://libretranslate.com"

	// requestTimeout bounds a single translation call.
	requestTimeout = 30 * time.Second
)

var (
	// ErrMissingAPIKey is a startup-time configuration error; the gateway
	// refuses to construct without a credential.
	ErrMissingAPIKey = errors.New("translation: api key not configured")

	// ErrAuth and ErrQuota classify provider rejections. They never reach
	// Translate callers; the gateway degrades to the original text.
	ErrAuth  = errors.New("translation: authentication rejected")
	ErrQuota = errors.New("translation: quota exhausted")
)

// Result is the outcome of a translation request. Text is always usable:
// either the translation or the unchanged input.
type Result struct {
	Text          string `json:"text"`
	WasTranslated bool   `json:"wasTranslated"`
}

// Config holds the gateway's external service settings.
type Config struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// inflightTranslation tracks one shared provider call per (text, lang) pair.
type inflightTranslation struct {
	done       chan struct{}
	translated string
	err        error
}

// Gateway translates plot text via a LibreTranslate-style service, caching
// successful translations in its Store. Translation failure is never an
// error to callers: any failure falls back to the original text.
type Gateway struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	store   Store

	inflightMu sync.Mutex
	inflight   map[string]*inflightTranslation
}

// NewGateway constructs a gateway. A missing API key is reported here, once,
// rather than on every call; callers run without a gateway in that case.
func NewGateway(cfg Config, store Store) (*Gateway, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	httpc := cfg.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: requestTimeout}
	}
	if store == nil {
		store = NewMemoryStore()
	}
	return &Gateway{
		baseURL:  baseURL,
		apiKey:   cfg.APIKey,
		httpc:    httpc,
		store:    store,
		inflight: make(map[string]*inflightTranslation),
	}, nil
}

// Translate returns text in targetLang. English targets and blank input
// short-circuit untranslated. Cache hits skip the network entirely;
// concurrent misses for the same (text, lang) pair share one provider call.
func (g *Gateway) Translate(ctx context.Context, text, targetLang string) Result {
	if targetLang == "en" || strings.TrimSpace(text) == "" {
		return Result{Text: text, WasTranslated: false}
	}

	hash := HashText(text)
	if cached, ok, err := g.store.Get(hash, targetLang); err != nil {
		log.Printf("[translation] cache read failed: %v", err)
	} else if ok {
		return Result{Text: cached, WasTranslated: true}
	}

	translated, err := g.fetchShared(ctx, hash, text, targetLang)
	if err != nil {
		log.Printf("[translation] falling back to original text (target=%s): %v", targetLang, err)
		return Result{Text: text, WasTranslated: false}
	}
	return Result{Text: translated, WasTranslated: true}
}

// fetchShared coalesces concurrent provider calls per (hash, targetLang) and
// writes the cache record before releasing waiters, so a second call with
// the same inputs never re-hits the network. Every caller, the initiator
// included, only waits: a caller abandoning via ctx neither cancels the
// shared call nor affects the result the other waiters receive.
func (g *Gateway) fetchShared(ctx context.Context, hash, text, targetLang string) (string, error) {
	key := storeKey(hash, targetLang)

	g.inflightMu.Lock()
	fl, exists := g.inflight[key]
	if !exists {
		fl = &inflightTranslation{done: make(chan struct{})}
		g.inflight[key] = fl
		// Detach from the initiating caller so its cancellation cannot
		// poison the result shared with coalesced waiters.
		go g.runShared(context.WithoutCancel(ctx), fl, key, hash, text, targetLang)
	}
	g.inflightMu.Unlock()

	select {
	case <-fl.done:
		return fl.translated, fl.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// runShared performs the one provider call for a coalesced group and stores
// the cache record before releasing the waiters.
func (g *Gateway) runShared(ctx context.Context, fl *inflightTranslation, key, hash, text, targetLang string) {
	translated, err := g.translateRaw(ctx, text, "en", targetLang)
	if err == nil {
		rec := Record{
			SourceTextHash: hash,
			SourceLang:     "en",
			TargetLang:     targetLang,
			TranslatedText: translated,
			CreatedAt:      time.Now(),
		}
		if perr := g.store.Put(rec); perr != nil {
			log.Printf("[translation] cache write failed: %v", perr)
		}
	}
	fl.translated, fl.err = translated, err

	g.inflightMu.Lock()
	delete(g.inflight, key)
	g.inflightMu.Unlock()
	close(fl.done)
}

// translateRaw performs the single HTTP call to the translation service.
func (g *Gateway) translateRaw(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{
		"q":       text,
		"source":  sourceLang,
		"target":  targetLang,
		"format":  "text",
		"api_key": g.apiKey,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpc.Do(req)
	if err != nil {
		return "", fmt.Errorf("translation request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", ErrAuth
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrQuota
	case resp.StatusCode >= 300:
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("translation service returned status %d: %s", resp.StatusCode, payload)
	}

	var parsed struct {
		TranslatedText string `json:"translatedText"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("translation response decode failed: %w", err)
	}
	if parsed.TranslatedText == "" {
		return "", errors.New("translation response contained no text")
	}
	return parsed.TranslatedText, nil
}
