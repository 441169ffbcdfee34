package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"pricemonitor/api"
	"pricemonitor/config"
	"pricemonitor/httputil"
	"pricemonitor/logging"
	"pricemonitor/notify"
	"pricemonitor/scheduler"
	"pricemonitor/scraper"
	"pricemonitor/services"
	"pricemonitor/storage"
)

var (
	scrapeNow = flag.Bool("scrape", false, "Run one check cycle and exit")
)

func main() {
	flag.Parse()
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logFile, err := logging.Setup("daemon.log")
	if err != nil {
		log.Printf("Warning: could not set up file logging: %v", err)
	} else {
		defer logFile.Close()
	}

	log.Println("Starting pricemonitor...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}
	log.Printf("Loaded %d marketplace configs", len(cfg.Marketplaces))
	for id, mp := range cfg.Marketplaces {
		log.Printf("  - %s (%s)", mp.Name, id)
	}

	ctx := context.Background()

	store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer store.Close()
	log.Printf("Connected to Postgres: %s", maskConnectionString(cfg.DatabaseURL))

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("Warning: Redis unavailable, scrape cache disabled: %v", err)
			rdb = nil
		} else {
			defer rdb.Close()
			log.Printf("Connected to Redis: %s", cfg.RedisAddr)
		}
	}

	clients := httputil.NewClients(cfg.Scraper.ProxyURL, cfg.Scheduler.ScrapeTimeout)

	var browser *scraper.Browser
	if cfg.Scraper.UseBrowser {
		browser = scraper.NewBrowser()
		defer browser.Close()
		log.Println("Browser fallback enabled")
	}

	registry := scraper.NewRegistry(cfg, clients, browser)
	cache := scraper.NewCache(rdb, cfg.Scraper.CacheTTL)

	detector := services.NewDetector(store)

	var channels []services.Channel
	var telegram *notify.Telegram
	if cfg.Telegram.BotToken != "" {
		telegram, err = notify.NewTelegram(cfg.Telegram.BotToken, store)
		if err != nil {
			log.Printf("Warning: Telegram disabled: %v", err)
		} else {
			channels = append(channels, telegram)
		}
	}
	dispatcher := services.NewDispatcher(store, channels...)

	sched := scheduler.New(cfg.Scheduler, store, registry, cache, detector, dispatcher)
	productService := services.NewProductService(store, cfg.Marketplaces, sched)
	cleanup := services.NewCleanup(store)
	analytics := services.NewAnalyticsService(store)
	email := notify.NewEmail(cfg.Email, cfg.BaseURL, clients.API)

	if *scrapeNow {
		log.Println("Running one check cycle...")
		if err := sched.RunCycle(ctx, scheduler.TriggerManual); err != nil {
			log.Fatalf("Cycle failed: %v", err)
		}
		log.Println("Cycle complete!")
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := sched.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	if telegram != nil {
		go telegram.Listen(ctx)
		log.Println("Telegram bot listening")
	}

	server := api.NewServer(cfg, store, productService, cleanup, analytics, email)
	httpServer := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.Router(),
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server: %v", err)
		}
	}()

	log.Println("Daemon running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Warning: HTTP shutdown: %v", err)
	}

	sched.Stop()
	log.Println("Goodbye!")
}

// maskConnectionString masks the password in a connection string for logging.
func maskConnectionString(connStr string) string {
	start := 0
	for i := 0; i < len(connStr)-3; i++ {
		if connStr[i:i+3] == "://" {
			start = i + 3
			break
		}
	}
	if start == 0 {
		return connStr
	}

	colonIdx := -1
	atIdx := -1
	for i := start; i < len(connStr); i++ {
		if connStr[i] == ':' && colonIdx == -1 {
			colonIdx = i
		}
		if connStr[i] == '@' {
			atIdx = i
			break
		}
	}

	if colonIdx > 0 && atIdx > colonIdx {
		return connStr[:colonIdx+1] + "****" + connStr[atIdx:]
	}
	return connStr
}
