package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"nse_tracker/internal/config"
	"nse_tracker/internal/logger"
	"nse_tracker/internal/market"
	"nse_tracker/internal/market/alpaca"
	"nse_tracker/internal/market/yahoo"
	"nse_tracker/internal/server"
	"nse_tracker/internal/storage"
	"nse_tracker/internal/symbols"
	"nse_tracker/internal/telegram"
	"nse_tracker/internal/tracker"
)

const LogFile = "tracker.log"
const VersionFile = "version.latest"

// main is the entry point of the application.
func main() {
	// 1. Initialization
	// Load configuration first to get logger settings
	cfg := config.Load()
	cfg.Version = readVersion()

	logger.Setup(LogFile, cfg.MaxLogSizeMB, cfg.MaxLogBackups, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Dependencies
	fetcher := market.NewFetcher(newPriceSource(cfg), market.FetcherOptions{
		ExchangeSuffix: cfg.ExchangeSuffix,
		Timeout:        time.Duration(cfg.PriceFetchTimeoutSec) * time.Second,
		Retries:        cfg.PriceFetchRetries,
	})
	symbolLoader := symbols.NewLoader(cfg.SymbolsURL, time.Duration(cfg.SymbolsCacheTTLMins)*time.Minute)
	sessions := storage.NewSessions()

	t := tracker.New(fetcher, symbolLoader, sessions, tracker.Options{
		Workers:        cfg.PriceFetchWorkers,
		CurrencySymbol: cfg.CurrencySymbol,
	})

	// Warm the symbol cache so the first form render is not kept waiting
	go symbolLoader.Symbols(ctx)

	// 3. Front-ends
	var srv *server.Server
	if cfg.HTTPAddr != "" {
		srv = server.New(server.Config{Addr: cfg.HTTPAddr, Tracker: t, Version: cfg.Version})
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("ERROR: HTTP server stopped: %v", err)
				cancel()
			}
		}()
	}

	var bot *telegram.Bot
	if cfg.TelegramEnabled() {
		bot = telegram.NewBot(cfg.TelegramToken, cfg.TelegramChatID)
		go bot.Listen(ctx, t.HandleCommand)
	} else {
		log.Println("INFO: Telegram not configured, bot disabled")
	}

	if srv == nil && bot == nil {
		log.Fatal("CRITICAL: Neither HTTP_ADDR nor Telegram is configured, nothing to serve")
	}

	// 4. Setup Signal Handling (Graceful Shutdown)
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("⚠️ Tracker Shutting Down: System signal received.")
		cancel()
	}()

	log.Printf("NSE Position Tracker %s Initialized (price source: %s)", cfg.Version, cfg.PriceSource)
	if bot != nil {
		bot.Notify(ctx, "🟢 *NSE Position Tracker* "+cfg.Version+" online. Send /help for commands.")
	}

	// 5. Main Loop: expire idle sessions
	idleTTL := time.Duration(cfg.SessionIdleTTLMins) * time.Minute
	ticker := time.NewTicker(sweepInterval(idleTTL))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("🛑 Main loop stopping...")
			if srv != nil {
				shutdownCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
				if err := srv.Shutdown(shutdownCtx); err != nil {
					log.Printf("ERROR: HTTP shutdown: %v", err)
				}
				done()
			}
			return
		case <-ticker.C:
			if idleTTL <= 0 {
				continue
			}
			if n := sessions.Sweep(idleTTL); n > 0 {
				log.Printf("INFO: Expired %d idle session(s), %d active", n, sessions.Count())
			}
		}
	}
}

func newPriceSource(cfg *config.Config) market.PriceSource {
	switch cfg.PriceSource {
	case config.PriceSourceAlpaca:
		return alpaca.NewProvider()
	default:
		return yahoo.NewProvider(cfg.YahooBaseURL)
	}
}

// sweepInterval checks a few times per TTL, bounded to [1m, 1h].
func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval < time.Minute {
		return time.Minute
	}
	if interval > time.Hour {
		return time.Hour
	}
	return interval
}

func readVersion() string {
	version, err := os.ReadFile(VersionFile)
	if err != nil {
		return "v0.0.0-dev"
	}
	return strings.TrimSpace(string(version))
}
