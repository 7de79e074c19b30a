// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"matrixTasks/internal/logger"
	"matrixTasks/internal/models/focus"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const DefaultPath = "config.yml"
const EnvPrefix = "MATRIX"

type Config struct {
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Database   DatabaseConfig   `mapstructure:"database" yaml:"database"`
	Logging    LoggingConfig    `mapstructure:"logging" yaml:"logging"`
	Repository RepositoryConfig `mapstructure:"repository" yaml:"repository"`
	Tracker    TrackerConfig    `mapstructure:"tracker" yaml:"tracker"`
	Focus      FocusConfig      `mapstructure:"focus" yaml:"focus"`
	Chat       ChatConfig       `mapstructure:"chat" yaml:"chat"`
	Worker     WorkerConfig     `mapstructure:"worker" yaml:"worker"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port" yaml:"port" validate:"required,numeric"`
	Host         string        `mapstructure:"host" yaml:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"gte=1s"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"gte=1s"`
	CORSOrigins  []string      `mapstructure:"cors_origins" yaml:"cors_origins"`
	RateLimit    int           `mapstructure:"rate_limit" yaml:"rate_limit" validate:"gte=0"` // запросов в минуту, 0 - без лимита
}

type DatabaseConfig struct {
	URL            string        `mapstructure:"url" yaml:"url"`
	MaxConnections int32         `mapstructure:"max_connections" yaml:"max_connections" validate:"gte=0"`
	MinConnections int32         `mapstructure:"min_connections" yaml:"min_connections" validate:"gte=0"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
}

type LoggingConfig struct {
	Development bool `mapstructure:"development" yaml:"development"`
}

type RepositoryConfig struct {
	Type string `mapstructure:"type" yaml:"type" validate:"oneof=postgres inmemory"`
}

type TrackerConfig struct {
	TickInterval  time.Duration `mapstructure:"tick_interval" yaml:"tick_interval" validate:"gte=100ms"`
	FlushInterval time.Duration `mapstructure:"flush_interval" yaml:"flush_interval" validate:"gte=1s"`
}

type FocusConfig struct {
	DBPath         string `mapstructure:"db_path" yaml:"db_path" validate:"required"`
	focus.Settings `mapstructure:",squash" yaml:",inline"`
}

type ChatConfig struct {
	Provider  string        `mapstructure:"provider" yaml:"provider" validate:"omitempty,oneof=anthropic openai ollama"`
	Model     string        `mapstructure:"model" yaml:"model"`
	APIKey    string        `mapstructure:"api_key" yaml:"-"`
	BaseURL   string        `mapstructure:"base_url" yaml:"base_url"`
	MaxTokens int           `mapstructure:"max_tokens" yaml:"max_tokens" validate:"gte=1,lte=4096"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// Enabled - без ключа облачные провайдеры не поднимаются
func (c ChatConfig) Enabled() bool {
	return c.Provider == "ollama" || c.APIKey != ""
}

type WorkerConfig struct {
	Interval  time.Duration `mapstructure:"interval" yaml:"interval" validate:"gte=1s"`
	BatchSize int           `mapstructure:"batch_size" yaml:"batch_size" validate:"gte=1"`
}

func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

var validate = validator.New()

func init() {
	validate.RegisterStructValidation(func(sl validator.StructLevel) {
		c := sl.Current().Interface().(Config)
		if c.Repository.Type == "postgres" && c.Database.URL == "" {
			sl.ReportError(c.Database.URL, "database.url", "URL", "required_for_postgres", "")
		}
		if c.Database.MaxConnections > 0 && c.Database.MinConnections > c.Database.MaxConnections {
			sl.ReportError(c.Database.MinConnections, "database.min_connections", "MinConnections", "lte_max", "")
		}
	}, Config{})
}

func setDefaults(v *viper.Viper) {
	settings := focus.DefaultSettings()

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.host", "")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.rate_limit", 600)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.min_connections", 2)
	v.SetDefault("database.idle_timeout", 5*time.Minute)
	v.SetDefault("database.connect_timeout", 30*time.Second)

	v.SetDefault("logging.development", false)
	v.SetDefault("repository.type", "inmemory")

	v.SetDefault("tracker.tick_interval", time.Second)
	v.SetDefault("tracker.flush_interval", time.Minute)

	v.SetDefault("focus.db_path", "data/focus.db")
	v.SetDefault("focus.work_minutes", settings.WorkMinutes)
	v.SetDefault("focus.short_break_minutes", settings.ShortBreakMinutes)
	v.SetDefault("focus.long_break_minutes", settings.LongBreakMinutes)
	v.SetDefault("focus.sessions_before_long_break", settings.SessionsBeforeLongBreak)

	v.SetDefault("chat.provider", "anthropic")
	v.SetDefault("chat.model", "")
	v.SetDefault("chat.api_key", "")
	v.SetDefault("chat.base_url", "")
	v.SetDefault("chat.max_tokens", 150)
	v.SetDefault("chat.timeout", 30*time.Second)

	v.SetDefault("worker.interval", 5*time.Minute)
	v.SetDefault("worker.batch_size", 100)
}

// Loader читает config.yml, .env и переменные окружения MATRIX_*
type Loader struct {
	fs   afero.Fs
	path string
	v    *viper.Viper

	mu      sync.Mutex
	current *Config
}

func NewLoader(fs afero.Fs, path string) *Loader {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetFs(fs)
	v.SetConfigFile(path)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// ключ провайдера можно не дублировать в MATRIX_CHAT_API_KEY
	_ = v.BindEnv("chat.api_key", EnvPrefix+"_CHAT_API_KEY", "ANTHROPIC_API_KEY", "OPENAI_API_KEY")
	setDefaults(v)

	return &Loader{fs: fs, path: path, v: v}
}

// Load - конфиг из файла по умолчанию на реальной файловой системе
func Load(path string) (*Config, error) {
	return NewLoader(afero.NewOsFs(), path).Load()
}

func (l *Loader) Viper() *viper.Viper {
	return l.v
}

func (l *Loader) Load() (*Config, error) {
	if err := l.loadDotEnv(); err != nil {
		return nil, err
	}

	exists, err := afero.Exists(l.fs, l.path)
	if err != nil {
		return nil, fmt.Errorf("проверка %s: %w", l.path, err)
	}
	if exists {
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("ошибка парсинга %s: %w", l.path, err)
		}
	} else {
		logger.Warn("Config: Файл не найден, используются значения по умолчанию", zap.String("path", l.path))
	}

	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()
	return cfg, nil
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	err := l.v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, fmt.Errorf("разбор конфига: %w", err)
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, describe(err)
	}
	return &cfg, nil
}

// loadDotEnv дописывает в окружение переменные из .env рядом с конфигом, не перетирая заданные
func (l *Loader) loadDotEnv() error {
	envPath := filepath.Join(filepath.Dir(l.path), ".env")
	f, err := l.fs.Open(envPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("открытие .env: %w", err)
	}
	defer f.Close()

	values, err := godotenv.Parse(f)
	if err != nil {
		return fmt.Errorf("разбор .env: %w", err)
	}
	for key, value := range values {
		if _, set := os.LookupEnv(key); !set {
			_ = os.Setenv(key, value)
		}
	}
	return nil
}

// Watch перечитывает файл при изменении; невалидная версия пропускается
func (l *Loader) Watch(onChange func(*Config)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		l.reload(e, onChange)
	})
	l.v.WatchConfig()
	logger.Info("Config: Отслеживание изменений включено", zap.String("path", l.path))
}

func (l *Loader) reload(e fsnotify.Event, onChange func(*Config)) {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
		return
	}

	cfg, err := l.decode()
	if err != nil {
		logger.Warn("Config: Изменённый конфиг отклонён", zap.Error(err), zap.String("file", e.Name))
		return
	}

	l.mu.Lock()
	l.current = cfg
	l.mu.Unlock()

	logger.Info("Config: Конфиг перечитан", zap.String("file", e.Name))
	if onChange != nil {
		onChange(cfg)
	}
}

func (l *Loader) Current() *Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("проверка конфига: %w", err)
	}

	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s (%s %s)", fe.Namespace(), fe.Tag(), fe.Param()))
	}
	return fmt.Errorf("неверный конфиг: %s", strings.Join(parts, ", "))
}
