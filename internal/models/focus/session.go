// Package focus описывает помодоро-сессии, привязанные к задаче.
package focus

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotPaused = errors.New("сессия не на паузе")
var ErrAlreadyPaused = errors.New("сессия уже на паузе")

type Mode string

const ModeWork Mode = "work"
const ModeShortBreak Mode = "short_break"
const ModeLongBreak Mode = "long_break"

type Settings struct {
	WorkMinutes             int `json:"work_minutes" mapstructure:"work_minutes" yaml:"work_minutes" validate:"min=1,max=180"`
	ShortBreakMinutes       int `json:"short_break_minutes" mapstructure:"short_break_minutes" yaml:"short_break_minutes" validate:"min=1,max=60"`
	LongBreakMinutes        int `json:"long_break_minutes" mapstructure:"long_break_minutes" yaml:"long_break_minutes" validate:"min=1,max=120"`
	SessionsBeforeLongBreak int `json:"sessions_before_long_break" mapstructure:"sessions_before_long_break" yaml:"sessions_before_long_break" validate:"min=1,max=12"`
}

func DefaultSettings() Settings {
	return Settings{
		WorkMinutes:             25,
		ShortBreakMinutes:       5,
		LongBreakMinutes:        15,
		SessionsBeforeLongBreak: 4,
	}
}

// Duration - плановая длительность режима
func (s Settings) Duration(mode Mode) time.Duration {
	switch mode {
	case ModeShortBreak:
		return time.Duration(s.ShortBreakMinutes) * time.Minute
	case ModeLongBreak:
		return time.Duration(s.LongBreakMinutes) * time.Minute
	}
	return time.Duration(s.WorkMinutes) * time.Minute
}

// NextMode - что идёт после completedWork завершённых рабочих сессий подряд.
// 0 означает, что рабочей сессии ещё не было.
func (s Settings) NextMode(completedWork int) Mode {
	if completedWork <= 0 {
		return ModeWork
	}
	if s.SessionsBeforeLongBreak > 0 && completedWork%s.SessionsBeforeLongBreak == 0 {
		return ModeLongBreak
	}
	return ModeShortBreak
}

type Session struct {
	ID             uuid.UUID  `json:"id"`
	UserID         string     `json:"user_id"`
	TaskID         uuid.UUID  `json:"task_id"`
	TaskTitle      string     `json:"task_title"`
	Mode           Mode       `json:"mode"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	PausedAt       *time.Time `json:"paused_at,omitempty"`
	PausedSeconds  int64      `json:"paused_seconds"`
	PlannedSeconds int64      `json:"planned_seconds"`
	FocusedSeconds int64      `json:"focused_seconds"`
	Interruptions  int        `json:"interruptions"`
	Note           string     `json:"note,omitempty"`
	Completed      bool       `json:"completed"`
}

func (s *Session) Paused() bool {
	return s.PausedAt != nil
}

// Elapsed - чистое время фокуса в секундах без пауз
func (s *Session) Elapsed(now time.Time) int64 {
	end := now
	if s.EndedAt != nil {
		end = *s.EndedAt
	}
	if s.PausedAt != nil && s.PausedAt.Before(end) {
		end = *s.PausedAt
	}
	elapsed := int64(end.Sub(s.StartedAt)/time.Second) - s.PausedSeconds
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func (s *Session) Remaining(now time.Time) int64 {
	remaining := s.PlannedSeconds - s.Elapsed(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (s *Session) Pause(now time.Time) error {
	if s.PausedAt != nil {
		return ErrAlreadyPaused
	}
	s.PausedAt = &now
	return nil
}

func (s *Session) Resume(now time.Time) error {
	if s.PausedAt == nil {
		return ErrNotPaused
	}
	s.PausedSeconds += int64(now.Sub(*s.PausedAt) / time.Second)
	s.PausedAt = nil
	return nil
}

// Finish фиксирует сессию, пауза на момент окончания закрывается
func (s *Session) Finish(now time.Time, completed bool) {
	if s.PausedAt != nil {
		_ = s.Resume(now)
	}
	s.FocusedSeconds = s.Elapsed(now)
	s.EndedAt = &now
	s.Completed = completed
}

func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.EndedAt != nil {
		t := *s.EndedAt
		c.EndedAt = &t
	}
	if s.PausedAt != nil {
		t := *s.PausedAt
		c.PausedAt = &t
	}
	return &c
}

type Stats struct {
	TotalSessions         int     `json:"total_sessions"`
	TodaySessions         int     `json:"today_sessions"`
	CompletedSessions     int     `json:"completed_sessions"`
	CompletionRate        float64 `json:"completion_rate"`
	TotalFocusSeconds     int64   `json:"total_focus_seconds"`
	AverageSessionSeconds int64   `json:"average_session_seconds"`
	NextMode              Mode    `json:"next_mode"`
}

// ComputeStats считает статистику по законченным сессиям, "сегодня" берётся в зоне now
func ComputeStats(sessions []*Session, now time.Time, settings Settings) Stats {
	st := Stats{TotalSessions: len(sessions)}

	y, m, d := now.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	streak := 0
	streakOpen := true
	// сессии приходят от новых к старым
	for _, s := range sessions {
		if !s.StartedAt.Before(dayStart) {
			st.TodaySessions++
		}
		if s.Completed {
			st.CompletedSessions++
		}
		st.TotalFocusSeconds += s.FocusedSeconds

		if streakOpen {
			if s.Completed && s.Mode == ModeWork {
				streak++
			} else {
				streakOpen = false
			}
		}
	}

	if st.TotalSessions > 0 {
		st.CompletionRate = float64(st.CompletedSessions) * 100 / float64(st.TotalSessions)
		st.AverageSessionSeconds = st.TotalFocusSeconds / int64(st.TotalSessions)
	}
	st.NextMode = settings.NextMode(streak)
	return st
}
