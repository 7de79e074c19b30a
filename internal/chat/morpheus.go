// Package chat - короткие советы от Морфеуса поверх LLM через eino.
package chat

import (
	"context"
	"errors"
	"fmt"
	"matrixTasks/internal/logger"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

type Provider string

const ProviderAnthropic Provider = "anthropic"
const ProviderOpenAI Provider = "openai"
const ProviderOllama Provider = "ollama"

const DefaultModel = "claude-3-haiku-20240307"
const DefaultOllamaURL = "http://localhost:11434"
const DefaultMaxTokens = 150
const DefaultTemperature = 0.5

const maxMessageLength = 2000

var ErrEmptyMessage = errors.New("пустое сообщение")
var ErrEmptyReply = errors.New("модель вернула пустой ответ")

type Config struct {
	Provider    Provider
	Model       string
	APIKey      string
	BaseURL     string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.Provider == "" {
		c.Provider = ProviderAnthropic
	}
	if c.Model == "" && c.Provider == ProviderAnthropic {
		c.Model = DefaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultMaxTokens
	}
	if c.Temperature <= 0 {
		c.Temperature = DefaultTemperature
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// NewChatModel собирает модель eino под выбранного провайдера
func NewChatModel(ctx context.Context, cfg Config) (model.BaseChatModel, error) {
	cfg = cfg.withDefaults()

	switch cfg.Provider {
	case ProviderAnthropic:
		if cfg.APIKey == "" {
			return nil, errors.New("не задан ключ API Anthropic")
		}
		return claude.NewChatModel(ctx, &claude.Config{
			APIKey:    cfg.APIKey,
			Model:     cfg.Model,
			MaxTokens: cfg.MaxTokens,
		})

	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, errors.New("не задан ключ API OpenAI")
		}
		return openai.NewChatModel(ctx, &openai.ChatModelConfig{
			APIKey: cfg.APIKey,
			Model:  cfg.Model,
		})

	case ProviderOllama:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultOllamaURL
		}
		return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
			BaseURL: baseURL,
			Model:   cfg.Model,
		})
	}
	return nil, fmt.Errorf("неизвестный провайдер %q (anthropic, openai, ollama)", cfg.Provider)
}

// Snapshot - то, что Морфеус знает о пользователе на момент вопроса
type Snapshot struct {
	Now          time.Time
	Tasks        int
	InProgress   int
	Completed    int
	Tracking     int
	TotalSeconds int64

	// задачи, завершённые сегодня, и время, учтённое на них
	CompletedToday int
	SecondsToday   int64
}

type Morpheus struct {
	model model.BaseChatModel
	cfg   Config
}

func New(chatModel model.BaseChatModel, cfg Config) *Morpheus {
	return &Morpheus{model: chatModel, cfg: cfg.withDefaults()}
}

// Reply отвечает на одно сообщение, истории разговора нет
func (m *Morpheus) Reply(ctx context.Context, message string, snap Snapshot) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	if runes := []rune(message); len(runes) > maxMessageLength {
		message = string(runes[:maxMessageLength])
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := m.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt(message, snap)),
	}, model.WithMaxTokens(m.cfg.MaxTokens), model.WithTemperature(m.cfg.Temperature))
	if err != nil {
		logger.Error("Chat: Ошибка генерации ответа", err,
			zap.String("provider", string(m.cfg.Provider)),
			zap.Duration("ms", time.Since(start)))
		return "", fmt.Errorf("генерация ответа: %w", err)
	}

	reply := ""
	if resp != nil {
		reply = strings.TrimSpace(resp.Content)
	}
	if reply == "" {
		return "", ErrEmptyReply
	}

	logger.Info("Chat: Ответ получен",
		zap.String("provider", string(m.cfg.Provider)),
		zap.Int("reply_len", len(reply)),
		zap.Duration("ms", time.Since(start)))
	return reply, nil
}
