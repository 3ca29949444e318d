package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds every tunable of the comparison core. It is built once and
// passed explicitly to the components that need it.
type Config struct {
	FeeRate      float64 `mapstructure:"fee_rate"`
	BaseCurrency string  `mapstructure:"base_currency"`

	Batch     BatchConfig     `mapstructure:"batch"`
	Keepa     KeepaConfig     `mapstructure:"keepa"`
	WebSearch WebSearchConfig `mapstructure:"websearch"`
	Exchange  ExchangeConfig  `mapstructure:"exchange"`
	Cache     CacheConfig     `mapstructure:"cache"`

	Markets    []MarketConfig   `mapstructure:"markets"`
	Categories []CategoryConfig `mapstructure:"categories"`
}

// BatchConfig controls compare-all execution.
type BatchConfig struct {
	Workers           int           `mapstructure:"workers"`
	ItemTimeout       time.Duration `mapstructure:"item_timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
}

// KeepaConfig configures the reference-marketplace provider.
type KeepaConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	BaseURL       string        `mapstructure:"base_url"`
	Domain        int           `mapstructure:"domain"`
	RatePerMinute int           `mapstructure:"rate_per_minute"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// WebSearchConfig configures the open-web provider.
type WebSearchConfig struct {
	APIKey        string        `mapstructure:"api_key"`
	EngineID      string        `mapstructure:"engine_id"`
	BaseURL       string        `mapstructure:"base_url"`
	MaxResults    int           `mapstructure:"max_results"`
	RatePerMinute int           `mapstructure:"rate_per_minute"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// ExchangeConfig configures currency conversion.
type ExchangeConfig struct {
	BaseURL       string             `mapstructure:"base_url"`
	FallbackRates map[string]float64 `mapstructure:"fallback_rates"`
}

// CacheConfig selects where provider lookups are cached.
type CacheConfig struct {
	Backend    string        `mapstructure:"backend"` // none, memory, file, redis
	Path       string        `mapstructure:"path"`
	RedisURL   string        `mapstructure:"redis_url"`
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// MarketConfig describes one regional reference marketplace.
type MarketConfig struct {
	Code     string `mapstructure:"code"`
	Name     string `mapstructure:"name"`
	Domain   int    `mapstructure:"domain"`
	Currency string `mapstructure:"currency"`
}

// CategoryConfig maps a product category to detection keywords and the
// plausible resale price range used for synthetic prices.
type CategoryConfig struct {
	Name     string   `mapstructure:"name"`
	Keywords []string `mapstructure:"keywords"`
	MinPrice float64  `mapstructure:"min_price"`
	MaxPrice float64  `mapstructure:"max_price"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		FeeRate:      0.15,
		BaseCurrency: "EUR",
		Batch: BatchConfig{
			Workers:           5,
			ItemTimeout:       45 * time.Second,
			RequestsPerSecond: 5,
		},
		Keepa: KeepaConfig{
			BaseURL:       "https://api.keepa.com",
			Domain:        4,
			RatePerMinute: 20,
			Timeout:       30 * time.Second,
		},
		WebSearch: WebSearchConfig{
			BaseURL:       "https://www.googleapis.com/customsearch/v1",
			MaxResults:    10,
			RatePerMinute: 60,
			Timeout:       15 * time.Second,
		},
		Exchange: ExchangeConfig{
			BaseURL:       "https://api.frankfurter.app",
			FallbackRates: DefaultFallbackRates(),
		},
		Cache: CacheConfig{
			Backend:    "none",
			Path:       "./data/cache/providers.json",
			TTL:        2 * time.Hour,
			MaxEntries: 1000,
		},
		Markets:    DefaultMarkets(),
		Categories: DefaultCategories(),
	}
}

// DefaultMarkets lists the European marketplaces compared for arbitrage.
func DefaultMarkets() []MarketConfig {
	return []MarketConfig{
		{Code: "fr", Name: "Amazon.fr", Domain: 4, Currency: "EUR"},
		{Code: "de", Name: "Amazon.de", Domain: 3, Currency: "EUR"},
		{Code: "uk", Name: "Amazon.co.uk", Domain: 2, Currency: "GBP"},
		{Code: "es", Name: "Amazon.es", Domain: 9, Currency: "EUR"},
		{Code: "it", Name: "Amazon.it", Domain: 8, Currency: "EUR"},
	}
}

// DefaultFallbackRates gives the value of one unit of each currency in EUR,
// used when no live rate can be fetched.
func DefaultFallbackRates() map[string]float64 {
	return map[string]float64{
		"EUR": 1.0,
		"GBP": 1.17,
		"USD": 0.92,
		"SEK": 0.087,
		"PLN": 0.23,
	}
}

// DefaultCategories returns the category keyword tables.
func DefaultCategories() []CategoryConfig {
	return []CategoryConfig{
		{
			Name: "Electronics",
			Keywords: []string{"iphone", "samsung", "phone", "téléphone", "laptop", "ordinateur", "macbook",
				"airpods", "écouteurs", "casque", "tablette", "ipad", "télévision", "monitor", "écran",
				"camera", "gopro", "drone", "playstation", "ps5", "xbox", "nintendo", "gpu", "ssd",
				"clavier", "souris", "imprimante", "enceinte", "bluetooth", "smartwatch", "console", "gaming"},
			MinPrice: 50, MaxPrice: 1500,
		},
		{
			Name: "Fashion",
			Keywords: []string{"nike", "adidas", "chaussure", "sneaker", "vêtement", "robe", "pantalon", "jean",
				"t-shirt", "chemise", "veste", "manteau", "sac", "lunettes", "montre", "bracelet", "collier",
				"puma", "reebok", "converse", "vans", "pull", "sweat", "hoodie", "short", "jupe", "boots"},
			MinPrice: 15, MaxPrice: 300,
		},
		{
			Name: "Home",
			Keywords: []string{"meuble", "canapé", "matelas", "lampe", "table", "chaise", "bureau", "étagère",
				"rangement", "aspirateur", "cuisine", "cafetière", "mixer", "four", "micro-ondes",
				"réfrigérateur", "lave-linge", "décoration", "coussin", "rideau", "tapis", "vaisselle",
				"casserole", "poêle"},
			MinPrice: 20, MaxPrice: 800,
		},
		{
			Name: "Sport",
			Keywords: []string{"vélo", "haltère", "fitness", "yoga", "ballon", "raquette", "tennis", "football",
				"basketball", "running", "natation", "randonnée", "camping", "sac à dos", "gourde",
				"protéine", "musculation"},
			MinPrice: 10, MaxPrice: 500,
		},
		{
			Name: "Toys",
			Keywords: []string{"lego", "playmobil", "poupée", "figurine", "puzzle", "jeu de société", "nerf",
				"peluche", "barbie", "hot wheels", "voiture télécommandée"},
			MinPrice: 10, MaxPrice: 150,
		},
		{
			Name: "Books",
			Keywords: []string{"livre", "roman", "manga", "bande dessinée", "ebook", "kindle", "dictionnaire",
				"encyclopédie", "guide", "manuel"},
			MinPrice: 5, MaxPrice: 50,
		},
		{
			Name: "Beauty",
			Keywords: []string{"parfum", "maquillage", "crème", "shampoing", "soin", "sérum", "mascara",
				"rouge à lèvres", "fond de teint", "déodorant", "gel douche", "sèche-cheveux", "rasoir",
				"épilateur", "manucure"},
			MinPrice: 5, MaxPrice: 200,
		},
	}
}

// Load reads an optional .env file, then an optional YAML config file, then
// RESELLGAP_* environment variables, layered over Default().
func Load(path string) (*Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	def := Default()
	v := viper.New()
	setDefaults(v, def)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix("RESELLGAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if len(cfg.Markets) == 0 {
		cfg.Markets = def.Markets
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = def.Categories
	}
	if len(cfg.Exchange.FallbackRates) == 0 {
		cfg.Exchange.FallbackRates = def.Exchange.FallbackRates
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper, def Config) {
	v.SetDefault("fee_rate", def.FeeRate)
	v.SetDefault("base_currency", def.BaseCurrency)

	v.SetDefault("batch.workers", def.Batch.Workers)
	v.SetDefault("batch.item_timeout", def.Batch.ItemTimeout)
	v.SetDefault("batch.requests_per_second", def.Batch.RequestsPerSecond)

	v.SetDefault("keepa.api_key", "")
	v.SetDefault("keepa.base_url", def.Keepa.BaseURL)
	v.SetDefault("keepa.domain", def.Keepa.Domain)
	v.SetDefault("keepa.rate_per_minute", def.Keepa.RatePerMinute)
	v.SetDefault("keepa.timeout", def.Keepa.Timeout)

	v.SetDefault("websearch.api_key", "")
	v.SetDefault("websearch.engine_id", "")
	v.SetDefault("websearch.base_url", def.WebSearch.BaseURL)
	v.SetDefault("websearch.max_results", def.WebSearch.MaxResults)
	v.SetDefault("websearch.rate_per_minute", def.WebSearch.RatePerMinute)
	v.SetDefault("websearch.timeout", def.WebSearch.Timeout)

	v.SetDefault("exchange.base_url", def.Exchange.BaseURL)

	v.SetDefault("cache.backend", def.Cache.Backend)
	v.SetDefault("cache.path", def.Cache.Path)
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", def.Cache.TTL)
	v.SetDefault("cache.max_entries", def.Cache.MaxEntries)
}

// Validate rejects configurations the pipeline cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.FeeRate < 0 || c.FeeRate >= 1 {
		errs = append(errs, fmt.Errorf("fee_rate must be in [0,1), got %v", c.FeeRate))
	}
	if c.BaseCurrency == "" {
		errs = append(errs, errors.New("base_currency is required"))
	}
	if c.Batch.Workers <= 0 {
		errs = append(errs, fmt.Errorf("batch.workers must be positive, got %d", c.Batch.Workers))
	}
	if len(c.Markets) == 0 {
		errs = append(errs, errors.New("at least one market is required"))
	}
	for _, m := range c.Markets {
		if m.Code == "" || m.Currency == "" {
			errs = append(errs, fmt.Errorf("market %q needs a code and a currency", m.Name))
		}
	}
	switch c.Cache.Backend {
	case "", "none", "memory", "file", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	return errors.Join(errs...)
}

// PrimaryMarket returns the market whose Keepa domain matches Keepa.Domain,
// or the first configured market. With no markets configured it returns an
// unnamed market on Keepa.Domain priced in the base currency.
func (c *Config) PrimaryMarket() MarketConfig {
	for _, m := range c.Markets {
		if m.Domain == c.Keepa.Domain {
			return m
		}
	}
	if len(c.Markets) == 0 {
		return MarketConfig{Domain: c.Keepa.Domain, Currency: c.BaseCurrency}
	}
	return c.Markets[0]
}
