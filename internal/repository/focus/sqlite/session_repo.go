// Package sqlite хранит историю фокус-сессий в локальном файле SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"matrixTasks/internal/logger"
	"matrixTasks/internal/models/focus"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type Storage struct {
	db *sql.DB
}

// Open создаёт или открывает базу по пути path, ":memory:" для тестов
func Open(path string) (*Storage, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("создание каталога: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		logger.Error("Focus: Не удалось открыть SQLite", err, zap.String("path", path))
		return nil, fmt.Errorf("открытие sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("проверка sqlite: %w", err)
	}

	// один писатель
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Storage{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("миграции sqlite: %w", err)
	}

	logger.Info("Focus: История сессий открыта", zap.String("path", path))
	return s, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS focus_sessions (
			id              TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL,
			task_id         TEXT NOT NULL,
			task_title      TEXT NOT NULL DEFAULT '',
			mode            TEXT NOT NULL,
			started_at      INTEGER NOT NULL,
			ended_at        INTEGER NOT NULL,
			paused_seconds  INTEGER NOT NULL DEFAULT 0,
			planned_seconds INTEGER NOT NULL,
			focused_seconds INTEGER NOT NULL,
			interruptions   INTEGER NOT NULL DEFAULT 0,
			note            TEXT NOT NULL DEFAULT '',
			completed       BOOLEAN NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_focus_user_started ON focus_sessions(user_id, started_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("миграция: %w", err)
		}
	}
	return nil
}

// Save пишет законченную сессию
func (s *Storage) Save(ctx context.Context, session *focus.Session) error {
	if session.EndedAt == nil {
		return errors.New("сессия не завершена")
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO focus_sessions
			(id, user_id, task_id, task_title, mode, started_at, ended_at, paused_seconds,
			 planned_seconds, focused_seconds, interruptions, note, completed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID.String(), session.UserID, session.TaskID.String(), session.TaskTitle, string(session.Mode),
		session.StartedAt.Unix(), session.EndedAt.Unix(), session.PausedSeconds,
		session.PlannedSeconds, session.FocusedSeconds, session.Interruptions, session.Note, session.Completed,
	)
	if err != nil {
		logger.Error("Focus: Не удалось сохранить сессию", err, zap.String("session_id", session.ID.String()))
		return fmt.Errorf("сохранение сессии: %w", err)
	}
	return nil
}

// ListByUser - сессии пользователя от новых к старым, limit <= 0 без ограничения
func (s *Storage) ListByUser(ctx context.Context, userID string, limit int) ([]*focus.Session, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, task_id, task_title, mode, started_at, ended_at, paused_seconds,
			planned_seconds, focused_seconds, interruptions, note, completed
		 FROM focus_sessions
		 WHERE user_id = ?
		 ORDER BY started_at DESC
		 LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("получение сессий: %w", err)
	}
	defer rows.Close()

	sessions := []*focus.Session{}
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			logger.Warn("Focus: Ошибка сканирования сессии", zap.Error(err))
			continue
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("итерация по строкам: %w", err)
	}
	return sessions, nil
}

func scanSession(rows *sql.Rows) (*focus.Session, error) {
	var (
		id, taskID, mode   string
		startedAt, endedAt int64
		session            focus.Session
	)
	err := rows.Scan(&id, &session.UserID, &taskID, &session.TaskTitle, &mode, &startedAt, &endedAt,
		&session.PausedSeconds, &session.PlannedSeconds, &session.FocusedSeconds,
		&session.Interruptions, &session.Note, &session.Completed)
	if err != nil {
		return nil, err
	}

	if session.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if session.TaskID, err = uuid.Parse(taskID); err != nil {
		return nil, err
	}
	session.Mode = focus.Mode(mode)
	session.StartedAt = time.Unix(startedAt, 0)
	ended := time.Unix(endedAt, 0)
	session.EndedAt = &ended
	return &session, nil
}
