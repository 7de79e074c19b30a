package app

import (
	"context"
	"errors"
	"fmt"
	"matrixTasks/internal/chat"
	"matrixTasks/internal/config"
	"matrixTasks/internal/handlers"
	"matrixTasks/internal/logger"
	"matrixTasks/internal/middleware"
	"matrixTasks/internal/repository/focus/sqlite"
	"matrixTasks/internal/repository/task/inmemory"
	"matrixTasks/internal/repository/task/postgres"
	"matrixTasks/internal/service"
	"matrixTasks/internal/tracker"
	"matrixTasks/internal/worker"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	config     *config.Config
	loader     *config.Loader
	server     *http.Server
	router     *chi.Mux
	repository service.TaskRepository
	registry   *tracker.Registry
	tasks      *service.TaskService
	focus      *service.FocusService
	chat       *service.ChatService
	worker     *worker.TrackingWorker
	shutdowns  []func(context.Context) // выполняются в обратном порядке
}

// New: loader может быть nil, тогда конфиг не перечитывается на лету
func New(cfg *config.Config, loader *config.Loader) *App {
	return &App{
		config:    cfg,
		loader:    loader,
		shutdowns: make([]func(context.Context), 0),
	}
}

func (a *App) onShutdown(fn func(context.Context)) {
	a.shutdowns = append(a.shutdowns, fn)
}

func (a *App) Init(ctx context.Context) (*App, error) {
	if err := logger.Init(a.config.Logging.Development); err != nil {
		return nil, fmt.Errorf("инициализация логгера: %w", err)
	}
	a.onShutdown(func(context.Context) {
		logger.Info("Завершение работы логгирования...")
		logger.Sync()
	})

	if err := a.initRepository(ctx); err != nil {
		a.Close(ctx)
		return nil, err
	}

	a.registry = tracker.New(a.repository,
		tracker.WithTickInterval(a.config.Tracker.TickInterval),
		tracker.WithFlushInterval(a.config.Tracker.FlushInterval))
	a.onShutdown(func(ctx context.Context) {
		if err := a.registry.Close(ctx); err != nil {
			logger.Error("App: Не все таймеры сохранены", err)
		}
	})
	a.tasks = service.NewTaskService(a.repository, a.registry)

	sessions, err := sqlite.Open(a.config.Focus.DBPath)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("история фокус-сессий: %w", err)
	}
	a.onShutdown(func(context.Context) {
		if err := sessions.Close(); err != nil {
			logger.Error("App: Ошибка закрытия SQLite", err)
		}
	})

	a.focus = service.NewFocusService(a.tasks, sessions, a.config.Focus.Settings, nil)
	// сессии закрываются раньше реестра, чтобы их время попало в задачи
	a.onShutdown(a.focus.EndAll)

	a.chat = service.NewChatService(a.tasks, a.newAdvisor(ctx))

	interval := a.config.Worker.Interval
	batch := a.config.Worker.BatchSize
	a.worker = worker.NewTrackingWorker(a.repository, a.registry, &interval, &batch)

	a.router = a.newRouter()
	a.server = &http.Server{
		Addr:         a.config.GetServerAddr(),
		Handler:      otelhttp.NewHandler(a.router, handlers.ServiceName),
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
	}

	if a.loader != nil {
		a.loader.Watch(func(cfg *config.Config) {
			a.registry.SetFlushInterval(cfg.Tracker.FlushInterval)
		})
	}

	logger.Info("App: Приложение инициализировано",
		zap.String("repository", a.config.Repository.Type),
		zap.String("addr", a.server.Addr))
	return a, nil
}

func (a *App) initRepository(ctx context.Context) error {
	switch a.config.Repository.Type {
	case "postgres":
		if err := postgres.Migrate(a.config.Database.URL); err != nil {
			return fmt.Errorf("миграции: %w", err)
		}

		storage, err := postgres.New(ctx, a.config.Database.URL, postgres.PoolConfig{
			MaxConns:        a.config.Database.MaxConnections,
			MinConns:        a.config.Database.MinConnections,
			MaxConnIdleTime: a.config.Database.IdleTimeout,
			ConnectTimeout:  a.config.Database.ConnectTimeout,
		})
		if err != nil {
			return fmt.Errorf("подключение к postgres: %w", err)
		}
		a.onShutdown(func(context.Context) {
			logger.Info("App: Закрытие пула postgres")
			storage.Close()
		})
		a.repository = storage
	default:
		logger.Warn("App: Используется хранилище в памяти, данные не переживут перезапуск")
		a.repository = inmemory.NewTaskStorage()
	}
	return nil
}

// newAdvisor: чат необязателен, ошибка настройки только выключает его
func (a *App) newAdvisor(ctx context.Context) service.Advisor {
	cfg := a.config.Chat
	if !cfg.Enabled() {
		logger.Info("Chat: Ключ API не задан, чат выключен", zap.String("provider", cfg.Provider))
		return nil
	}

	chatCfg := chat.Config{
		Provider:  chat.Provider(cfg.Provider),
		Model:     cfg.Model,
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		MaxTokens: cfg.MaxTokens,
		Timeout:   cfg.Timeout,
	}
	chatModel, err := chat.NewChatModel(ctx, chatCfg)
	if err != nil {
		logger.Warn("Chat: Модель не создана, чат выключен", zap.Error(err))
		return nil
	}

	logger.Info("Chat: Морфеус на связи", zap.String("provider", cfg.Provider))
	return chat.New(chatModel, chatCfg)
}

func (a *App) newRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.config.Server.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", middleware.UserHeader, "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "Location"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)
	r.Use(middleware.RateLimit(a.config.Server.RateLimit))

	r.Handle("/metrics", promhttp.Handler())
	handlers.Mount(r,
		handlers.NewTaskHandler(a.tasks),
		handlers.NewFocusHandler(a.focus),
		handlers.NewChatHandler(a.chat))

	return r
}

func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run блокируется до отмены ctx или падения сервера, затем закрывает ресурсы
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("App: Сервер запущен", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http сервер: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		a.worker.Start(gctx)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("App: Остановка сервера...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.server.Shutdown(shutdownCtx)
	})

	err := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.Close(closeCtx)
	return err
}

func (a *App) Close(ctx context.Context) {
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		a.shutdowns[i](ctx)
	}
	a.shutdowns = nil
}
