package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"iptvdesk/models"
	"iptvdesk/services/translation"
)

// prefetchWorkers bounds concurrent provider fetches during cache warming.
const prefetchWorkers = 4

// provider is the external metadata collaborator: entity kind + id → raw JSON.
type provider interface {
	FetchRaw(ctx context.Context, kind string, id int64) (json.RawMessage, error)
}

// detector classifies a title into a language code.
type detector interface {
	Detect(title, languageField string) string
}

// translator resolves display text for a plot. Implementations never fail;
// they fall back to the input text.
type translator interface {
	Translate(ctx context.Context, text, targetLang string) translation.Result
}

// Config holds the metadata service settings.
type Config struct {
	APIKey          string
	ReadAccessToken string
	CacheDir        string
	CacheTTL        time.Duration
}

// Service is the enrichment orchestrator: it resolves normalized entities
// through the persistent cache and attaches a display-ready, possibly
// translated, plot summary. Safe for concurrent use; repeated concurrent
// calls for the same id never duplicate network work.
type Service struct {
	mu       sync.RWMutex
	provider provider

	cache      *fileCache
	detector   detector
	translator translator // nil when translation is not configured

	progressMu    sync.Mutex
	progressTasks map[string]*ProgressTask
}

func NewService(cfg Config, det detector, tr translator) *Service {
	// Dedicated subdirectory so metadata records do not collide with other
	// data stored under the cache dir.
	cacheDir := filepath.Join(cfg.CacheDir, "metadata")
	return &Service{
		provider:      newTMDBClient(cfg.APIKey, cfg.ReadAccessToken, &http.Client{Timeout: tmdbRequestTimeout}),
		cache:         newFileCache(cacheDir, cfg.CacheTTL),
		detector:      det,
		translator:    tr,
		progressTasks: make(map[string]*ProgressTask),
	}
}

// GetEnrichedEntity is the consumer-facing entry point. It returns the
// normalized entity plus the resolved display plot. Metadata fetch failures
// propagate as a single coalesced error; translation failures only surface
// as PlotWasTranslated=false.
func (s *Service) GetEnrichedEntity(ctx context.Context, kind string, id int64) (*models.EnrichedEntity, error) {
	if !models.ValidKind(kind) {
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}

	entity, err := s.getEntity(ctx, kind, id)
	if err != nil {
		return nil, err
	}

	enriched := &models.EnrichedEntity{
		Kind:        kind,
		Entity:      entity,
		DisplayPlot: entity.PlotOverview(),
		PosterURL:   imageURL(entity.PosterImagePath(), posterSize),
	}

	s.mu.RLock()
	tr := s.translator
	s.mu.RUnlock()

	lang := s.detector.Detect(entity.DisplayTitle(), entity.LanguageHint())
	if lang != "en" && entity.PlotOverview() != "" && tr != nil {
		res := tr.Translate(ctx, entity.PlotOverview(), lang)
		enriched.DisplayPlot = res.Text
		enriched.PlotWasTranslated = res.WasTranslated
	}
	return enriched, nil
}

// getEntity resolves one normalized entity via the cache. The fetch path
// normalizes before storing, so the cache only ever holds typed payloads.
func (s *Service) getEntity(ctx context.Context, kind string, id int64) (models.Entity, error) {
	key := models.CacheKey(kind, id)
	fetch := func(ctx context.Context) (json.RawMessage, error) {
		s.mu.RLock()
		prov := s.provider
		s.mu.RUnlock()

		raw, err := prov.FetchRaw(ctx, kind, id)
		if err != nil {
			return nil, err
		}
		entity, err := models.Normalize(kind, raw)
		if err != nil {
			return nil, err
		}
		return json.Marshal(entity)
	}

	switch kind {
	case models.KindMovieDetails:
		var v models.MovieDetails
		if err := s.cache.getOrFetch(ctx, key, &v, fetch); err != nil {
			return nil, err
		}
		return v, nil
	case models.KindSeriesDetails:
		var v models.SeriesDetails
		if err := s.cache.getOrFetch(ctx, key, &v, fetch); err != nil {
			return nil, err
		}
		return v, nil
	case models.KindMovieCredits:
		var v models.MovieCredits
		if err := s.cache.getOrFetch(ctx, key, &v, fetch); err != nil {
			return nil, err
		}
		return v, nil
	case models.KindSeriesCredits:
		var v models.SeriesCredits
		if err := s.cache.getOrFetch(ctx, key, &v, fetch); err != nil {
			return nil, err
		}
		return v, nil
	}
	return nil, fmt.Errorf("unknown entity kind %q", kind)
}

// PrefetchEntities warms the cache for a list of ids in the background and
// returns a task id whose progress can be observed via GetProgressSnapshot.
// Duplicate ids and ids already being fetched coalesce inside the cache.
func (s *Service) PrefetchEntities(kind string, ids []int64) (string, error) {
	if !models.ValidKind(kind) {
		return "", fmt.Errorf("unknown entity kind %q", kind)
	}

	taskID := uuid.NewString()
	cleanup := s.startProgressTask(taskID, kind, "fetching", len(ids))

	go func() {
		defer cleanup()
		// Detached from any request context: prefetch outlives the caller.
		ctx := context.Background()

		p := pool.New().WithMaxGoroutines(prefetchWorkers)
		for _, id := range ids {
			id := id
			p.Go(func() {
				if _, err := s.getEntity(ctx, kind, id); err != nil {
					log.Printf("[metadata] prefetch %s %d failed: %v", kind, id, err)
				}
				s.incrementProgress(taskID)
			})
		}
		p.Wait()
	}()

	return taskID, nil
}

// UpdateCredentials swaps the provider credentials and clears cached
// metadata so fresh data is fetched with the new keys.
func (s *Service) UpdateCredentials(apiKey, readAccessToken string) {
	s.mu.Lock()
	s.provider = newTMDBClient(apiKey, readAccessToken, &http.Client{Timeout: tmdbRequestTimeout})
	s.mu.Unlock()

	if err := s.cache.clear(); err != nil {
		log.Printf("[metadata] warning: failed to clear cache: %v", err)
	} else {
		log.Printf("[metadata] cleared metadata cache due to credential change")
	}
}

// UpdateTranslator swaps the translation gateway, or disables translation
// when gw is nil. Entries already cached keep their display plots; only new
// enrichment calls go through the new gateway.
func (s *Service) UpdateTranslator(gw *translation.Gateway) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gw == nil {
		s.translator = nil
		return
	}
	s.translator = gw
}

// ClearCache removes all cached metadata records.
func (s *Service) ClearCache() error {
	return s.cache.clear()
}

// SweepCache removes expired records and reports how many were reclaimed.
// Intended to be called from a periodic background loop.
func (s *Service) SweepCache() int {
	return s.cache.sweepExpired()
}

// ProgressTask describes one in-flight background operation.
type ProgressTask struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Phase     string    `json:"phase"`
	Current   int       `json:"current"`
	Total     int       `json:"total"`
	StartedAt time.Time `json:"startedAt"`
}

// ProgressSnapshot is a point-in-time copy of all active tasks.
type ProgressSnapshot struct {
	ActiveCount int            `json:"activeCount"`
	Tasks       []ProgressTask `json:"tasks"`
}

// startProgressTask registers a task and returns its cleanup function.
func (s *Service) startProgressTask(id, label, phase string, total int) func() {
	s.progressMu.Lock()
	s.progressTasks[id] = &ProgressTask{
		ID:        id,
		Label:     label,
		Phase:     phase,
		Total:     total,
		StartedAt: time.Now(),
	}
	s.progressMu.Unlock()

	return func() {
		s.progressMu.Lock()
		delete(s.progressTasks, id)
		s.progressMu.Unlock()
	}
}

// updateProgressPhase moves a task to a new phase with a new total. Safe to
// call for a task that no longer exists.
func (s *Service) updateProgressPhase(id, phase string, total int) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	if task, ok := s.progressTasks[id]; ok {
		task.Phase = phase
		task.Total = total
	}
}

// incrementProgress bumps a task's completion counter. Safe to call for a
// task that no longer exists.
func (s *Service) incrementProgress(id string) {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	if task, ok := s.progressTasks[id]; ok {
		task.Current++
	}
}

// GetProgressSnapshot returns a copy of all active tasks, oldest first.
func (s *Service) GetProgressSnapshot() ProgressSnapshot {
	s.progressMu.Lock()
	defer s.progressMu.Unlock()

	tasks := make([]ProgressTask, 0, len(s.progressTasks))
	for _, task := range s.progressTasks {
		tasks = append(tasks, *task)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].StartedAt.Before(tasks[j].StartedAt) })
	return ProgressSnapshot{ActiveCount: len(tasks), Tasks: tasks}
}
