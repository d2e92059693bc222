package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     Server     `mapstructure:"server"`
	Database   Database   `mapstructure:"database"`
	Redis      Redis      `mapstructure:"redis"`
	Kafka      Kafka      `mapstructure:"kafka"`
	Auth       Auth       `mapstructure:"auth"`
	Logging    Logging    `mapstructure:"logging"`
	Engine     Engine     `mapstructure:"engine"`
	Evaluation Evaluation `mapstructure:"evaluation"`
	Security   Security   `mapstructure:"security"`
}

type Server struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type Database struct {
	URL            string        `mapstructure:"url"`
	MaxConnections int           `mapstructure:"max_connections"`
	MaxIdleTime    time.Duration `mapstructure:"max_idle_time"`
	MaxLifetime    time.Duration `mapstructure:"max_lifetime"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
}

type Redis struct {
	Hot  RedisInstance `mapstructure:"hot"`
	Warm RedisInstance `mapstructure:"warm"`
}

type RedisInstance struct {
	URL        string        `mapstructure:"url"`
	MaxRetries int           `mapstructure:"max_retries"`
	PoolSize   int           `mapstructure:"pool_size"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type Kafka struct {
	Enabled bool     `mapstructure:"enabled"`
	Brokers []string `mapstructure:"brokers"`
	Topics  struct {
		RatingEvents string `mapstructure:"rating_events"`
	} `mapstructure:"topics"`
}

type Auth struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	RateLimit RateLimit     `mapstructure:"rate_limit"`
}

type RateLimit struct {
	Anonymous     int           `mapstructure:"anonymous"`
	Authenticated int           `mapstructure:"authenticated"`
	Admin         int           `mapstructure:"admin"`
	Window        time.Duration `mapstructure:"window"`
}

type Logging struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Engine holds the tunables of the recommendation core. Defaults mirror
// the documented contract of each component.
type Engine struct {
	Content       Content       `mapstructure:"content"`
	Collaborative Collaborative `mapstructure:"collaborative"`
	ColdStart     ColdStart     `mapstructure:"cold_start"`
	Signals       Signals       `mapstructure:"signals"`
	Fusion        Fusion        `mapstructure:"fusion"`
	Caching       Caching       `mapstructure:"caching"`
}

type Content struct {
	MaxGenres        int     `mapstructure:"max_genres"`
	MaxItemsPerGenre int     `mapstructure:"max_items_per_genre"`
	DefaultPref      float64 `mapstructure:"default_pref"`
	Decimals         int     `mapstructure:"decimals"`

	PublicMaxGenres        int `mapstructure:"public_max_genres"`
	PublicMaxItemsPerGenre int `mapstructure:"public_max_items_per_genre"`
	PublicMaxInputGenres   int `mapstructure:"public_max_input_genres"`
}

type Collaborative struct {
	Enabled       bool    `mapstructure:"enabled"`
	MinSeedRating int     `mapstructure:"min_seed_rating"`
	MaxSeeds      int     `mapstructure:"max_seeds"`
	MaxNeighbors  int     `mapstructure:"max_neighbors"`
	Shrinkage     float64 `mapstructure:"shrinkage"`
}

type ColdStart struct {
	MinRatings  int     `mapstructure:"min_ratings"`
	BoostFactor float64 `mapstructure:"boost_factor"`
	MaxBoosted  int     `mapstructure:"max_boosted"`
}

type Signals struct {
	Enabled            bool    `mapstructure:"enabled"`
	MaxBonus           float64 `mapstructure:"max_bonus"`
	Popularity         float64 `mapstructure:"popularity"`
	Recency            float64 `mapstructure:"recency"`
	AuthorAffinity     float64 `mapstructure:"author_affinity"`
	LanguagePreference float64 `mapstructure:"language_preference"`
	MediaTypeMatch     float64 `mapstructure:"media_type_match"`
}

type Fusion struct {
	CFWeight  float64 `mapstructure:"cf_weight"`
	Threshold int     `mapstructure:"threshold"`
	TopN      int     `mapstructure:"top_n"`
}

type Caching struct {
	RecommendationsTTL time.Duration `mapstructure:"recommendations_ttl"`
	SimilarityTTL      time.Duration `mapstructure:"similarity_ttl"`
	CatalogTTL         time.Duration `mapstructure:"catalog_ttl"`
}

type Evaluation struct {
	K        int     `mapstructure:"k"`
	Split    float64 `mapstructure:"split"`
	Seed     int64   `mapstructure:"seed"`
	MaxUsers int     `mapstructure:"max_users"`
}

type Security struct {
	CORS CORS `mapstructure:"cors"`
}

type CORS struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
}

func Load() (*Config, error) {
	viper.SetConfigName("app")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	setDefaults()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		// Config file is optional, continue with env vars and defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "development")

	// Database defaults
	viper.SetDefault("database.max_connections", 25)
	viper.SetDefault("database.max_idle_time", "15m")
	viper.SetDefault("database.max_lifetime", "1h")
	viper.SetDefault("database.connect_timeout", "10s")

	// Redis defaults
	viper.SetDefault("redis.hot.max_retries", 3)
	viper.SetDefault("redis.hot.pool_size", 10)
	viper.SetDefault("redis.hot.timeout", "5s")
	viper.SetDefault("redis.warm.max_retries", 3)
	viper.SetDefault("redis.warm.pool_size", 5)
	viper.SetDefault("redis.warm.timeout", "10s")

	// Kafka defaults
	viper.SetDefault("kafka.enabled", false)
	viper.SetDefault("kafka.topics.rating_events", "rating-events")

	// Auth defaults
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("auth.rate_limit.anonymous", 100)
	viper.SetDefault("auth.rate_limit.authenticated", 1000)
	viper.SetDefault("auth.rate_limit.admin", 10000)
	viper.SetDefault("auth.rate_limit.window", "1h")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	// Content scorer defaults
	viper.SetDefault("engine.content.max_genres", 10)
	viper.SetDefault("engine.content.max_items_per_genre", 21)
	viper.SetDefault("engine.content.default_pref", 6)
	viper.SetDefault("engine.content.decimals", 1)
	viper.SetDefault("engine.content.public_max_genres", 5)
	viper.SetDefault("engine.content.public_max_items_per_genre", 6)
	viper.SetDefault("engine.content.public_max_input_genres", 20)

	// Collaborative filtering defaults
	viper.SetDefault("engine.collaborative.enabled", true)
	viper.SetDefault("engine.collaborative.min_seed_rating", 7)
	viper.SetDefault("engine.collaborative.max_seeds", 10)
	viper.SetDefault("engine.collaborative.max_neighbors", 50)
	viper.SetDefault("engine.collaborative.shrinkage", 25)

	// Cold-start defaults
	viper.SetDefault("engine.cold_start.min_ratings", 5)
	viper.SetDefault("engine.cold_start.boost_factor", 15)
	viper.SetDefault("engine.cold_start.max_boosted", 10)

	// Feature signal defaults
	viper.SetDefault("engine.signals.enabled", true)
	viper.SetDefault("engine.signals.max_bonus", 30)
	viper.SetDefault("engine.signals.popularity", 10)
	viper.SetDefault("engine.signals.recency", 8)
	viper.SetDefault("engine.signals.author_affinity", 12)
	viper.SetDefault("engine.signals.language_preference", 5)
	viper.SetDefault("engine.signals.media_type_match", 8)

	// Fusion defaults
	viper.SetDefault("engine.fusion.cf_weight", 0.4)
	viper.SetDefault("engine.fusion.threshold", 15)
	viper.SetDefault("engine.fusion.top_n", 100)

	// Caching defaults
	viper.SetDefault("engine.caching.recommendations_ttl", "1h")
	viper.SetDefault("engine.caching.similarity_ttl", "6h")
	viper.SetDefault("engine.caching.catalog_ttl", "1h")

	// Evaluation defaults
	viper.SetDefault("evaluation.k", 10)
	viper.SetDefault("evaluation.split", 0.8)
	viper.SetDefault("evaluation.seed", 42)
	viper.SetDefault("evaluation.max_users", 50)

	// Security defaults
	viper.SetDefault("security.cors.allowed_origins", []string{"*"})
	viper.SetDefault("security.cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("security.cors.allowed_headers", []string{"*"})
}
