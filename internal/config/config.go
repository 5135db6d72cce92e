// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	License            string `mapstructure:"license"`
	KeygenAccountID    string `mapstructure:"keygen_account_id"`
	KeygenProductToken string `mapstructure:"keygen_product_token"`
	KeygenProductID    string `mapstructure:"keygen_product_id"`

	HTTPAddr      string   `mapstructure:"http_addr"`
	PostgresURL   string   `mapstructure:"postgres_url"`
	RedisAddr     string   `mapstructure:"redis_addr"`
	RedisPassword string   `mapstructure:"redis_password"`
	RedisDB       int      `mapstructure:"redis_db"`
	RPCList       []string `mapstructure:"rpc_list"`
	WebSocketURL  string   `mapstructure:"websocket_url"`
	ProgramID     string   `mapstructure:"program_id"`
	MirrorDelay   int      `mapstructure:"mirror_delay"`
	Workers       int      `mapstructure:"workers"`
	Retries       int      `mapstructure:"retries"`
	EventBuffer   int      `mapstructure:"event_buffer"`
	TradeLogDir   string   `mapstructure:"trade_log_dir"`
	DebugLogging  bool     `mapstructure:"debug_logging"`
	LogFile       string   `mapstructure:"log_file"`
}

const (
	DefaultHTTPAddr    = ":8080"
	DefaultMirrorDelay = 1000
	DefaultWorkers     = 5
	DefaultRetries     = 3
	DefaultEventBuffer = 256
	DefaultLogFile     = "engine.log"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"http_addr":    DefaultHTTPAddr,
		"mirror_delay": DefaultMirrorDelay,
		"workers":      DefaultWorkers,
		"retries":      DefaultRetries,
		"event_buffer": DefaultEventBuffer,
		"log_file":     DefaultLogFile,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.License == "" {
		return errors.New("missing license in configuration")
	}
	if cfg.PostgresURL == "" {
		return errors.New("missing postgres_url in configuration")
	}
	// Зеркало цепочки опционально: пустой rpc_list его выключает.
	for _, rpcURL := range cfg.RPCList {
		if err := validateURLWithCache(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if cfg.WebSocketURL != "" {
		if err := validateURLWithCache(cfg.WebSocketURL, "ws"); err != nil {
			return errors.New("invalid WebSocket URL protocol")
		}
	}
	if len(cfg.RPCList) > 0 && cfg.ProgramID == "" {
		return errors.New("rpc_list set but program_id missing")
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.MirrorDelay <= 0 {
		return errors.New("invalid mirror_delay")
	}
	if cfg.Workers < 0 {
		return errors.New("invalid workers count")
	}
	if cfg.Retries < 0 {
		return errors.New("invalid retries count")
	}
	if cfg.EventBuffer <= 0 {
		return errors.New("invalid event_buffer")
	}
	if cfg.RedisDB < 0 {
		return errors.New("invalid redis_db")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("PREDICTION_PUMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envLicense := v.GetString("LICENSE")
	if envLicense != "" {
		cfg.License = envLicense
	}

	envPostgres := v.GetString("POSTGRES_URL")
	if envPostgres != "" {
		cfg.PostgresURL = envPostgres
	}

	envRedis := v.GetString("REDIS_ADDR")
	if envRedis != "" {
		cfg.RedisAddr = envRedis
	}

	envRPCList := v.GetString("RPC_LIST")
	if envRPCList != "" {
		rpcs := strings.Split(envRPCList, ",")
		var cleanRPCs []string
		for _, rpc := range rpcs {
			clean := strings.TrimSpace(rpc)
			if clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}
	return nil
}
