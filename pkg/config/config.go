package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración del servicio (Viper: variables de entorno y opcionalmente archivo).
type Config struct {
	App       AppConfig
	DB        DBConfig
	JWT       JWTConfig
	HTTP      HTTPConfig
	Redis     RedisConfig
	Inventory InventoryConfig
}

// AppConfig configuración general.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
	Storage  string // postgres | memory
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int32
}

// ConnectionString devuelve DATABASE_URL si está definido; si no, el DSN construido.
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN arma el connection string con la contraseña escapada.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RedisConfig configuración del cache de disponibilidad. Addr vacío lo desactiva.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// Enabled indica si hay Redis configurado.
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// InventoryConfig controla los reintentos ante conflictos de concurrencia optimista.
type InventoryConfig struct {
	ConflictRetries int
	RetryBaseDelay  time.Duration
}

// Load lee la configuración. Las variables de entorno tienen prioridad sobre el archivo.
// Nombres esperados: APP_ENV, DB_HOST, JWT_SECRET, REDIS_ADDR, INVENTORY_CONFLICT_RETRIES, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // opcional

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "commerce-core"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
			Storage:  strings.ToLower(getString(v, "APP_STORAGE", "postgres")),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "commerce"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    int32(getInt(v, "DB_MAX_CONNS", 10)),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "commerce-core"),
		},
		HTTP: HTTPConfig{
			Host:            getString(v, "HTTP_HOST", "0.0.0.0"),
			Port:            getInt(v, "HTTP_PORT", 8080),
			ShutdownTimeout: getDuration(v, "HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", ""),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
			TTL:      getDuration(v, "REDIS_TTL", 5*time.Minute),
		},
		Inventory: InventoryConfig{
			ConflictRetries: getInt(v, "INVENTORY_CONFLICT_RETRIES", 3),
			RetryBaseDelay:  getDuration(v, "INVENTORY_RETRY_BASE_DELAY", 20*time.Millisecond),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.App.Storage {
	case "postgres", "memory":
	default:
		return fmt.Errorf("config: APP_STORAGE inválido %q (postgres|memory)", c.App.Storage)
	}
	if c.Inventory.ConflictRetries < 0 {
		return fmt.Errorf("config: INVENTORY_CONFLICT_RETRIES no puede ser negativo")
	}
	if c.DB.MaxConns <= 0 {
		return fmt.Errorf("config: DB_MAX_CONNS debe ser positivo")
	}
	return nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if !v.IsSet(key) {
		return def
	}
	if s, ok := v.Get(key).(string); ok {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil {
			return def
		}
		return n
	}
	return v.GetInt(key)
}

func getDuration(v *viper.Viper, key string, def time.Duration) time.Duration {
	if !v.IsSet(key) {
		return def
	}
	d, err := time.ParseDuration(strings.TrimSpace(v.GetString(key)))
	if err != nil {
		return def
	}
	return d
}
