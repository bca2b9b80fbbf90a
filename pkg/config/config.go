package config

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/vault-client-go"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
		// SlowQueryThreshold of zero disables slow query warnings.
		SlowQueryThreshold time.Duration `mapstructure:"SLOW_QUERY_THRESHOLD"`
		ConnectRetries     int           `mapstructure:"CONNECT_RETRIES"`
		ConnectBackoff     time.Duration `mapstructure:"CONNECT_BACKOFF"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	WorkCalendar WorkCalendar `mapstructure:"WORK_CALENDAR"`
	Scoring      Scoring      `mapstructure:"SCORING"`
	Health       Health       `mapstructure:"HEALTH"`
	Scheduler    struct {
		Secret          string `mapstructure:"SECRET"`
		RecalculateSpec string `mapstructure:"RECALCULATE_SPEC"`
		HealthSweepSpec string `mapstructure:"HEALTH_SWEEP_SPEC"`
	} `mapstructure:"SCHEDULER"`
	GoogleCalendar struct {
		Enable          bool   `mapstructure:"ENABLE"`
		CredentialsFile string `mapstructure:"CREDENTIALS_FILE"`
		CalendarID      string `mapstructure:"CALENDAR_ID"`
	} `mapstructure:"GOOGLE_CALENDAR"`
	Otel struct {
		// Protocol is "grpc" or "http". The endpoint comes from OTEL_EXPORTER_OTLP_ENDPOINT.
		Protocol    string  `mapstructure:"PROTOCOL"`
		Insecure    bool    `mapstructure:"INSECURE"`
		SampleRatio float64 `mapstructure:"SAMPLE_RATIO"`
	} `mapstructure:"OTEL"`
	Consul struct {
		// ServiceHost defaults to the machine hostname.
		ServiceHost string `mapstructure:"SERVICE_HOST"`
	} `mapstructure:"CONSUL"`
	Pyroscope struct {
		Addr string `mapstructure:"ADDR"`
	} `mapstructure:"PYROSCOPE"`
	Flagsmith struct {
		Addr   string `mapstructure:"ADDR"`
		ApiKey string `mapstructure:"API_KEY"`
	} `mapstructure:"FLAGSMITH"`
}

// WorkCalendar describes the studio work week. Times are "HH:MM" in Timezone.
type WorkCalendar struct {
	Timezone string   `mapstructure:"TIMEZONE"`
	WorkDays []string `mapstructure:"WORK_DAYS"`
	DayStart string   `mapstructure:"DAY_START"`
	DayEnd   string   `mapstructure:"DAY_END"`
	Freeze   Window   `mapstructure:"FREEZE"`
	Boost    Window   `mapstructure:"BOOST"`
}

type Window struct {
	StartDay  string `mapstructure:"START_DAY"`
	StartTime string `mapstructure:"START_TIME"`
	EndDay    string `mapstructure:"END_DAY"`
	EndTime   string `mapstructure:"END_TIME"`
}

type Scoring struct {
	TypeWeights      map[string]float64 `mapstructure:"TYPE_WEIGHTS"`
	PriorityFactors  map[string]float64 `mapstructure:"PRIORITY_FACTORS"`
	UserPriority     map[string]float64 `mapstructure:"USER_PRIORITY"`
	AgingScale       float64            `mapstructure:"AGING_SCALE"`
	UrgencyScale     float64            `mapstructure:"URGENCY_SCALE"`
	UrgencyHorizon   float64            `mapstructure:"URGENCY_HORIZON"`
	OverdueStep      float64            `mapstructure:"OVERDUE_STEP"`
	OverduePerHour   float64            `mapstructure:"OVERDUE_PER_HOUR"`
	InReviewBoost    float64            `mapstructure:"IN_REVIEW_BOOST"`
	EmergencyBoost   float64            `mapstructure:"EMERGENCY_BOOST"`
	BoostWindowBonus float64            `mapstructure:"BOOST_WINDOW_BONUS"`
	BoostQualifier   string             `mapstructure:"BOOST_QUALIFIER"`
	CapacityPenalty  float64            `mapstructure:"CAPACITY_PENALTY"`
	DisplayFloor     float64            `mapstructure:"DISPLAY_FLOOR"`
	DisplayCeiling   float64            `mapstructure:"DISPLAY_CEILING"`
}

type Health struct {
	OnTimeWeight     float64 `mapstructure:"ON_TIME_WEIGHT"`
	OverdueWeight    float64 `mapstructure:"OVERDUE_WEIGHT"`
	WorkloadWeight   float64 `mapstructure:"WORKLOAD_WEIGHT"`
	BudgetWeight     float64 `mapstructure:"BUDGET_WEIGHT"`
	OverduePenalty   float64 `mapstructure:"OVERDUE_PENALTY"`
	SweepConcurrency int     `mapstructure:"SWEEP_CONCURRENCY"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

type Params struct {
	fx.In
	Vault *vault.Client `optional:"true"`
}

func LoadConfig(p Params) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		zap.L().Info("no config file found, using defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if p.Vault != nil {
		if err := applyVaultSecrets(context.Background(), p.Vault, &cfg); err != nil {
			return nil, err
		}
	}

	return &cfg, nil
}

// Default returns a Config populated only from built-in defaults.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func applyVaultSecrets(ctx context.Context, client *vault.Client, cfg *Config) error {
	zap.L().Info("Starting Get Secrets", zap.String("path", cfg.AppEnv))
	secret, err := client.Secrets.KvV2Read(ctx, cfg.AppEnv, vault.WithMountPath("secret"))
	if err != nil {
		zap.L().Error("failed get secret from vault", zap.Error(err))
		return err
	}
	zap.L().Info("Success Get Secret")

	get := func(key string) string {
		if val, ok := secret.Data.Data[key].(string); ok {
			return val
		}
		return ""
	}

	if v := get("postgres_password"); v != "" {
		cfg.Database.Password = v
	}
	if v := get("redis_password"); v != "" {
		cfg.Redis.Password = v
	}
	if v := get("scheduler_secret"); v != "" {
		cfg.Scheduler.Secret = v
	}
	if v := get("flagsmith_api_key"); v != "" {
		cfg.Flagsmith.ApiKey = v
	}
	return nil
}

// VaultEnabled reports whether a Vault address is present in the environment.
func VaultEnabled() bool {
	_, ok := os.LookupEnv("VAULT_ADDR")
	return ok
}
