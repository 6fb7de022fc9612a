package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	JWTSecret   string
	MongoURI    string
	DBName      string
	SkipAuth    bool
	Environment string
	AppId       string

	// Polling loop
	PollInterval   time.Duration
	OrdersPageSize int

	// Storefront (WooCommerce REST API)
	WooBaseURL        string
	WooConsumerKey    string
	WooConsumerSecret string

	// CRM (Zoho-style OAuth + REST API)
	ZohoApiBaseURL   string
	ZohoAccountsURL  string
	ZohoClientId     string
	ZohoClientSecret string
	ZohoRefreshToken string

	// Dead-letter / run-log store: "mongodb" or "postgres"
	DeadLetterStore string
	PostgresHost    string
	PostgresPort    string
	PostgresUser    string
	PostgresPass    string
	PostgresDB      string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	} else {
		log.Println("Loaded .env file successfully")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		JWTSecret:   getEnv("JWT_SECRET", "secret"),
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		DBName:      getEnv("DB_NAME", "go-ordersync"),
		SkipAuth:    getEnv("SKIP_AUTH", "false") == "true",
		Environment: getEnv("ENVIRONMENT", "development"),
		AppId:       getEnv("APP_ID", "go-ordersync"),

		PollInterval:   time.Duration(getEnvInt("POLL_INTERVAL_SECONDS", 90)) * time.Second,
		OrdersPageSize: getEnvInt("ORDERS_PAGE_SIZE", 2),

		WooBaseURL:        getEnv("WOO_BASE_URL", "http://localhost/wp-json/wc/v3"),
		WooConsumerKey:    getEnv("WOO_CONSUMER_KEY", ""),
		WooConsumerSecret: getEnv("WOO_CONSUMER_SECRET", ""),

		ZohoApiBaseURL:   getEnv("ZOHO_API_BASE_URL", "https://www.zohoapis.com/crm/v2"),
		ZohoAccountsURL:  getEnv("ZOHO_ACCOUNTS_URL", "https://accounts.zoho.com/oauth/v2/token?"),
		ZohoClientId:     getEnv("ZOHO_CLIENT_ID", ""),
		ZohoClientSecret: getEnv("ZOHO_CLIENT_SECRET", ""),
		ZohoRefreshToken: getEnv("ZOHO_REFRESH_TOKEN", ""),

		DeadLetterStore: getEnv("DEAD_LETTER_STORE", "mongodb"),
		PostgresHost:    getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:    getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:    getEnv("POSTGRES_USER", "postgres"),
		PostgresPass:    getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:      getEnv("POSTGRES_DB", "go-ordersync"),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		log.Printf("Invalid integer for %s, using fallback %d", key, fallback)
	}
	return fallback
}
