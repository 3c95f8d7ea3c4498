package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"iptvdesk/api"
	"iptvdesk/config"
	"iptvdesk/handlers"
	"iptvdesk/internal/database"
	"iptvdesk/services/metadata"
	"iptvdesk/services/translation"
	"iptvdesk/utils"
)

const (
	cacheSweepInterval     = 1 * time.Hour
	translationEvictPeriod = 24 * time.Hour
	translationMaxAge      = 30 * 24 * time.Hour
)

func main() {
	configPath := flag.String("config", "data/config.json", "path to the config file")
	flag.Parse()

	cfgManager := config.NewManager(*configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("[startup] failed to load config: %v", err)
	}

	setupLogging(settings.Logging.Path)

	if err := settings.Validate(); err != nil {
		log.Printf("[startup] %v; update via PUT /api/settings", err)
	}

	// Durable translation store with an in-memory fallback so translation
	// keeps working when the database cannot be opened.
	var store translation.Store
	db, err := database.NewDB(database.Config{DatabasePath: settings.Database.Path})
	if err != nil {
		log.Printf("[startup] database unavailable, using in-memory translation store: %v", err)
		store = translation.NewMemoryStore()
	} else {
		defer db.Close()
		store = database.NewTranslationRepository(db.Connection())
	}

	detector := translation.NewDetector()

	gateway, err := translation.NewGateway(translation.Config{
		BaseURL: settings.Translate.BaseURL,
		APIKey:  settings.Translate.APIKey,
	}, store)
	if err != nil {
		if errors.Is(err, translation.ErrMissingAPIKey) {
			log.Printf("[startup] translation disabled: no API key configured")
		} else {
			log.Printf("[startup] translation disabled: %v", err)
		}
	}

	metadataCfg := metadata.Config{
		APIKey:          settings.TMDB.APIKey,
		ReadAccessToken: settings.TMDB.ReadAccessToken,
		CacheDir:        settings.Cache.Dir,
		CacheTTL:        settings.CacheTTL(),
	}
	var metadataSvc *metadata.Service
	if gateway != nil {
		metadataSvc = metadata.NewService(metadataCfg, detector, gateway)
	} else {
		metadataSvc = metadata.NewService(metadataCfg, detector, nil)
	}

	router := utils.NewRouter()
	router.Use(api.LoggingMiddleware())

	metadataHandler := handlers.NewMetadataHandler(metadataSvc)
	metadataHandler.RegisterRoutes(router)

	settingsHandler := handlers.NewSettingsHandler(cfgManager)
	settingsHandler.SetMetadataService(metadataSvc)
	settingsHandler.SetTranslationStore(store)
	settingsHandler.RegisterRoutes(router)

	router.HandleFunc("/api/version", handlers.NewVersionHandler().GetVersion).Methods(http.MethodGet)

	// 10 req/s per client with short bursts keeps prefetch storms in check.
	limiter := api.NewIPRateLimiter(rate.Limit(10), 30)

	srv := &http.Server{
		Addr:         settings.Server.ListenAddr,
		Handler:      api.RateLimitHandler(limiter, router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runMaintenance(ctx, metadataSvc, store)

	go func() {
		log.Printf("[startup] listening on %s", settings.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[startup] server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("[shutdown] signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[shutdown] forced close: %v", err)
	}
}

// setupLogging mirrors log output to stdout and a size-rotated file.
func setupLogging(path string) {
	if path == "" {
		return
	}
	rotated := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stdout, rotated))
}

// runMaintenance periodically reclaims expired cache records and bounds the
// translation store.
func runMaintenance(ctx context.Context, svc *metadata.Service, store translation.Store) {
	sweep := time.NewTicker(cacheSweepInterval)
	evict := time.NewTicker(translationEvictPeriod)
	defer sweep.Stop()
	defer evict.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-sweep.C:
			if removed := svc.SweepCache(); removed > 0 {
				log.Printf("[maintenance] removed %d expired metadata records", removed)
			}
		case <-evict.C:
			removed, err := store.EvictOlderThan(translationMaxAge)
			if err != nil {
				log.Printf("[maintenance] translation eviction failed: %v", err)
			} else if removed > 0 {
				log.Printf("[maintenance] evicted %d stale translations", removed)
			}
		}
	}
}
