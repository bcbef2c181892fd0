package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

type Config struct {
	Output   OutputConfig   `mapstructure:"output"`
	Crawl    CrawlConfig    `mapstructure:"crawl"`
	Browser  BrowserConfig  `mapstructure:"browser"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// OutputConfig names the batch files. Relative names resolve against Dir.
type OutputConfig struct {
	Dir           string `mapstructure:"dir" validate:"required"`
	OptionsFile   string `mapstructure:"options_file" validate:"required"`
	ProductsFile  string `mapstructure:"products_file"`
	InfoFile      string `mapstructure:"info_file"`
	BrandsFile    string `mapstructure:"brands_file"`
	BrandSQLFile  string `mapstructure:"brand_sql_file"`
	ProgressFile  string `mapstructure:"progress_file"`
	ScreenshotDir string `mapstructure:"screenshot_dir"`
}

type CrawlConfig struct {
	Policy         string        `mapstructure:"policy" validate:"oneof=strict permissive"`
	StartProductID int64         `mapstructure:"start_product_id" validate:"min=1"`
	Seed           uint64        `mapstructure:"seed"`
	RateLimitMin   time.Duration `mapstructure:"rate_limit_min"`
	RateLimitMax   time.Duration `mapstructure:"rate_limit_max"`
	MaxRetries     int           `mapstructure:"max_retries" validate:"min=1,max=10"`
	QueueSize      int           `mapstructure:"queue_size" validate:"min=1"`
}

type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"min=1s"`
	SettleDelay    time.Duration `mapstructure:"settle_delay"`
	ChallengeWait  time.Duration `mapstructure:"challenge_wait"`
	ViewportWidth  int           `mapstructure:"viewport_width" validate:"min=320"`
	ViewportHeight int           `mapstructure:"viewport_height" validate:"min=240"`
	Locale         string        `mapstructure:"locale"`
	TimezoneID     string        `mapstructure:"timezone"`
	ProxyServer    string        `mapstructure:"proxy_server" validate:"omitempty,url"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	SetKey    string `mapstructure:"set_key"`
	StreamKey string `mapstructure:"stream_key"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port" validate:"required,numeric"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=text json"`
}

// SetDefaults registers every key so environment overrides are picked up
// by Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("output.dir", ".")
	v.SetDefault("output.options_file", "product_options_sql.txt")
	v.SetDefault("output.products_file", "product_sql.txt")
	v.SetDefault("output.info_file", "product_info.txt")
	v.SetDefault("output.brands_file", "brand_data.json")
	v.SetDefault("output.brand_sql_file", "brand_sql.txt")
	v.SetDefault("output.progress_file", "crawl_progress.json")
	v.SetDefault("output.screenshot_dir", "")

	v.SetDefault("crawl.policy", "strict")
	v.SetDefault("crawl.start_product_id", 1)
	v.SetDefault("crawl.seed", 0)
	v.SetDefault("crawl.rate_limit_min", 5*time.Second)
	v.SetDefault("crawl.rate_limit_max", 15*time.Second)
	v.SetDefault("crawl.max_retries", 3)
	v.SetDefault("crawl.queue_size", 1000)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.timeout", 60*time.Second)
	v.SetDefault("browser.settle_delay", 3*time.Second)
	v.SetDefault("browser.challenge_wait", 15*time.Second)
	v.SetDefault("browser.viewport_width", 1920)
	v.SetDefault("browser.viewport_height", 1080)
	v.SetDefault("browser.locale", "ko-KR")
	v.SetDefault("browser.timezone", "Asia/Seoul")
	v.SetDefault("browser.proxy_server", "")

	v.SetDefault("database.url", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.set_key", "crawler:committed_products")
	v.SetDefault("redis.stream_key", "stream:product_options")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Load reads configuration from v. Environment variables use the key with
// dots replaced by underscores, e.g. CRAWL_POLICY or DATABASE_URL.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Crawl.RateLimitMin > c.Crawl.RateLimitMax {
		return errors.New("invalid config: crawl.rate_limit_min cannot be greater than crawl.rate_limit_max")
	}

	return nil
}

// Path resolves an output file name against the output directory.
// Empty names stay empty.
func (o OutputConfig) Path(name string) string {
	if name == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(o.Dir, name)
}

func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}
