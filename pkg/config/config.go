package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Service  ServiceConfig  `mapstructure:"service"`
	Backend  BackendConfig  `mapstructure:"backend"`
	Consul   ConsulConfig   `mapstructure:"consul"`
	Mysql    MysqlConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	Jaeger   JaegerConfig   `mapstructure:"jaeger"`
	Jwt      JwtConfig      `mapstructure:"jwt"`
	Printer  PrinterConfig  `mapstructure:"printer"`
	Store    StoreConfig    `mapstructure:"store"`
	Transfer TransferConfig `mapstructure:"transfer"`
	Orders   OrdersConfig   `mapstructure:"orders"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Security SecurityConfig `mapstructure:"security"`
	Cors     CorsConfig     `mapstructure:"cors"`

	PrintAgent PrintAgentConfig `mapstructure:"print_agent"`
}

// PrintAgentConfig names the print agent. The agent registers under Name, serves gRPC health
// for it, and the gateway resolves it by the same Name.
type PrintAgentConfig struct {
	Name string `mapstructure:"name"`
}

type ServiceConfig struct {
	Name     string `mapstructure:"name"`
	Port     int    `mapstructure:"port"`
	GrpcPort int    `mapstructure:"grpc_port"`
}

// BackendConfig points at the POS REST backend.
type BackendConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ConsulConfig struct {
	Address string `mapstructure:"address"`
	Enabled bool   `mapstructure:"enabled"`
}

type MysqlConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DbName   string `mapstructure:"dbname"`
}

type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	Db       int           `mapstructure:"db"`
	TableTTL time.Duration `mapstructure:"table_ttl"`
}

type RabbitMQConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	VHost    string `mapstructure:"vhost"`
	Prefetch int    `mapstructure:"prefetch"`
}

type JaegerConfig struct {
	Endpoint string `mapstructure:"endpoint"`
}

type JwtConfig struct {
	Secret string        `mapstructure:"secret"`
	TTL    time.Duration `mapstructure:"ttl"`
	Issuer string        `mapstructure:"issuer"`
}

// PrinterDevice is a known Bluetooth printer, used when discovery runs off a static list.
type PrinterDevice struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
}

type PrinterConfig struct {
	// Family is matched case-insensitively against advertised device names.
	Family    string          `mapstructure:"family"`
	Transport string          `mapstructure:"transport"` // rfcomm | tcp
	Channel   int             `mapstructure:"channel"`
	Scanner   string          `mapstructure:"scanner"` // static | bluetoothctl
	Devices   []PrinterDevice `mapstructure:"devices"`
	Width     int             `mapstructure:"width"`
	CutPaper  bool            `mapstructure:"cut_paper"`
}

type StoreConfig struct {
	Name    string `mapstructure:"name"`
	Address string `mapstructure:"address"`
	Phone   string `mapstructure:"phone"`
	Footer  string `mapstructure:"footer"`
	// IANA zone for receipt times and for backend timestamps that carry no offset.
	// Empty means the host's local zone.
	Timezone string `mapstructure:"timezone"`
}

// Location resolves Timezone, falling back to time.Local. Validate reports a bad zone.
func (s StoreConfig) Location() *time.Location {
	if s.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type TransferConfig struct {
	DefaultTaxRate float64 `mapstructure:"default_tax_rate"`
}

type OrdersConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
	JSON  bool   `mapstructure:"json"`
}

type SecurityConfig struct {
	// bcrypt hash; empty means bulk cancellation needs no manager approval.
	ManagerPinHash string `mapstructure:"manager_pin_hash"`
}

type CorsConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service.port", 8080)
	v.SetDefault("service.grpc_port", 50070)
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.timeout", 15*time.Second)
	v.SetDefault("consul.address", "localhost:8500")
	v.SetDefault("mysql.port", 3306)
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.table_ttl", 10*time.Second)
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.vhost", "/")
	v.SetDefault("rabbitmq.prefetch", 1)
	v.SetDefault("jaeger.endpoint", "localhost:4318")
	v.SetDefault("jwt.ttl", 12*time.Hour)
	v.SetDefault("jwt.issuer", "go-pos")
	v.SetDefault("printer.family", "InnerPrinter")
	v.SetDefault("printer.transport", "rfcomm")
	v.SetDefault("printer.channel", 1)
	v.SetDefault("printer.cut_paper", true)
	v.SetDefault("printer.scanner", "static")
	v.SetDefault("printer.width", 32)
	v.SetDefault("print_agent.name", "pos-print-agent")
	v.SetDefault("store.footer", "Thank you for dining with us!")
	v.SetDefault("transfer.default_tax_rate", 0.08)
	v.SetDefault("orders.poll_interval", 30*time.Second)
	v.SetDefault("logging.level", "info")

	// keys without a sensible default still need registering so AutomaticEnv can fill them
	for _, key := range []string{
		"service.name", "mysql.host", "mysql.user", "mysql.password", "mysql.dbname",
		"redis.password", "rabbitmq.host", "rabbitmq.user", "rabbitmq.password",
		"jwt.secret", "security.manager_pin_hash", "store.name", "store.address", "store.phone",
		"store.timezone",
		"logging.file",
	} {
		v.SetDefault(key, "")
	}
}

// LoadConfig reads config.yaml from path. A .env next to config.yaml is loaded first; POS_* environment variables override file values
// (POS_BACKEND_BASE_URL -> backend.base_url).
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(path, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("POS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &config, nil
}

// Validate checks the fields every binary needs.
func (c *Config) Validate() error {
	var errs []error
	if c.Backend.BaseURL == "" {
		errs = append(errs, errors.New("backend.base_url is required"))
	}
	if c.Transfer.DefaultTaxRate < 0 || c.Transfer.DefaultTaxRate >= 1 {
		errs = append(errs, fmt.Errorf("transfer.default_tax_rate must be a fraction in [0,1), got %v", c.Transfer.DefaultTaxRate))
	}
	if c.Orders.PollInterval <= 0 {
		errs = append(errs, errors.New("orders.poll_interval must be > 0"))
	}
	if c.Store.Timezone != "" {
		if _, err := time.LoadLocation(c.Store.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("store.timezone: %w", err))
		}
	}
	if c.PrintAgent.Name == "" {
		errs = append(errs, errors.New("print_agent.name is required"))
	}
	if c.Printer.Width < 16 {
		errs = append(errs, errors.New("printer.width must be >= 16"))
	}
	return errors.Join(errs...)
}

// ValidateGateway adds the checks that only the gateway needs.
func (c *Config) ValidateGateway() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Jwt.Secret == "" {
		return errors.New("jwt.secret is required")
	}
	return nil
}
