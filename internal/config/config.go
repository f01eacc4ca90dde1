package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// IstLoc is the exchange time zone (UTC+5:30) used when printing timestamps.
var IstLoc = time.FixedZone("IST", 5*3600+1800)

const (
	PriceSourceYahoo  = "yahoo"
	PriceSourceAlpaca = "alpaca"

	DefaultSymbolsURL = "https://raw.githubusercontent.com/datasets/nse/master/data/nse-listed.csv"
	DefaultYahooURL   = "https://query1.finance.yahoo.com"
)

// Config holds every tunable of the tracker.
type Config struct {
	Version  string
	LogLevel string

	// Price source
	PriceSource          string
	ExchangeSuffix       string
	YahooBaseURL         string
	PriceFetchTimeoutSec int
	PriceFetchRetries    int
	PriceFetchWorkers    int

	// Symbol list
	SymbolsURL          string
	SymbolsCacheTTLMins int

	// Presentation
	CurrencySymbol string

	// Front-ends
	HTTPAddr           string
	TelegramToken      string
	TelegramChatID     int64
	SessionIdleTTLMins int

	// Logging
	MaxLogSizeMB  int64
	MaxLogBackups int
}

// secretVars are masked whenever configuration is echoed to the log.
var secretVars = map[string]bool{
	"APCA_API_KEY_ID":     true,
	"APCA_API_SECRET_KEY": true,
	"TELEGRAM_BOT_TOKEN":  true,
}

// Load reads .env (if present) and the process environment.
// It exits the process when a required variable is missing.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}

	cfg := fromEnv()

	if missing := missingRequired(cfg); len(missing) > 0 {
		log.Fatalf("CRITICAL: Missing required environment variables: %v", missing)
	}

	logEnvFile()
	return cfg
}

func fromEnv() *Config {
	source := strings.ToLower(getEnv("PRICE_SOURCE", PriceSourceYahoo))
	if source != PriceSourceYahoo && source != PriceSourceAlpaca {
		log.Printf("Warning: Unknown PRICE_SOURCE %q, using %s", source, PriceSourceYahoo)
		source = PriceSourceYahoo
	}

	// Alpaca quotes bare US tickers, so the NSE suffix only defaults on for Yahoo.
	defaultSuffix := ".NS"
	if source == PriceSourceAlpaca {
		defaultSuffix = ""
	}

	return &Config{
		LogLevel:             strings.ToUpper(getEnv("WATCHER_LOG_LEVEL", "INFO")),
		PriceSource:          source,
		ExchangeSuffix:       getEnv("EXCHANGE_SUFFIX", defaultSuffix),
		YahooBaseURL:         strings.TrimRight(getEnv("YAHOO_BASE_URL", DefaultYahooURL), "/"),
		PriceFetchTimeoutSec: getEnvAsInt("PRICE_FETCH_TIMEOUT_SEC", 10),
		PriceFetchRetries:    getEnvAsInt("PRICE_FETCH_RETRIES", 2),
		PriceFetchWorkers:    getEnvAsInt("PRICE_FETCH_WORKERS", 1),
		SymbolsURL:           getEnv("SYMBOLS_URL", DefaultSymbolsURL),
		SymbolsCacheTTLMins:  getEnvAsInt("SYMBOLS_CACHE_TTL_MINS", 1440),
		CurrencySymbol:       getEnv("CURRENCY_SYMBOL", "₹"),
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		TelegramToken:        os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:       getEnvAsInt64("TELEGRAM_CHAT_ID", 0),
		SessionIdleTTLMins:   getEnvAsInt("SESSION_IDLE_TTL_MINS", 720),
		MaxLogSizeMB:         getEnvAsInt64("MAX_LOG_SIZE_MB", 10),
		MaxLogBackups:        getEnvAsInt("MAX_LOG_BACKUPS", 3),
	}
}

// missingRequired lists the variables the chosen configuration cannot run without.
func missingRequired(cfg *Config) []string {
	var required []string
	if cfg.PriceSource == PriceSourceAlpaca {
		required = append(required, "APCA_API_KEY_ID", "APCA_API_SECRET_KEY")
	}

	var missing []string
	for _, key := range required {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}

// TelegramEnabled reports whether the bot front-end has credentials.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

// logEnvFile prints the variables defined in .env, masking secrets.
func logEnvFile() {
	envMap, err := godotenv.Read()
	if err != nil {
		return
	}

	log.Println("--- .env File Variables ---")
	for key, val := range envMap {
		log.Printf("%s=%s", key, mask(key, val))
	}
	log.Println("---------------------------")
}

func mask(key, val string) string {
	if !secretVars[key] {
		return val
	}
	// Show only the last 4 chars
	if len(val) > 4 {
		return "***" + val[len(val)-4:]
	}
	return "***"
}
