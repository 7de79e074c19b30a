// Package tracker ведёт учёт времени по задачам.
//
// Registry владеет всеми активными таймерами процесса: на каждую задачу одна горутина
// с тикером. Тик считает целые секунды с опорной метки, добавляет их в аккумулятор и
// сдвигает метку ровно на учтённые секунды, поэтому дробная часть не теряется.
// Накопленное пишется в хранилище, когда незаписанное время достигает flushInterval,
// и всегда при остановке. Все поля записи меняются только под мьютексом реестра и
// только по id, тик никогда не работает с копией задачи.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"matrixTasks/internal/logger"
	"matrixTasks/internal/metrics"
	"matrixTasks/internal/models/task"
	repo "matrixTasks/internal/repository"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
)

var ErrNotTracking = errors.New("задача не трекается")

const DefaultTickInterval = time.Second
const DefaultFlushInterval = time.Minute

const flushTimeout = 5 * time.Second

// Store - то, что трекеру нужно от хранилища задач
type Store interface {
	GetByID(context.Context, uuid.UUID) (*task.Task, error)
	Update(context.Context, *task.Task) error
	SaveTracking(context.Context, uuid.UUID, int64, bool) error
}

type entry struct {
	id          uuid.UUID
	ref         time.Time // опорная метка, до неё время уже учтено
	accumulated int64     // всего секунд, включая записанные
	flushed     int64     // последнее записанное значение
	parked      bool      // таймер остановлен, финальная запись ещё не прошла

	stopMu sync.Mutex // один Stop на запись за раз
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

type Registry struct {
	store Store
	clock clock.Clock

	mu            sync.Mutex
	entries       map[uuid.UUID]*entry
	tickInterval  time.Duration
	flushInterval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Registry)

func WithClock(c clock.Clock) Option {
	return func(r *Registry) {
		r.clock = c
	}
}

func WithTickInterval(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.tickInterval = d
		}
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.flushInterval = d
		}
	}
}

// New создаёт реестр на сессию процесса, закрывать через Close
func New(store Store, opts ...Option) *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		store:         store,
		clock:         clock.New(),
		entries:       make(map[uuid.UUID]*entry),
		tickInterval:  DefaultTickInterval,
		flushInterval: DefaultFlushInterval,
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Registry) Now() time.Time {
	return r.clock.Now()
}

// SetFlushInterval меняет порог записи на лету (перечитывание конфига)
func (r *Registry) SetFlushInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	r.mu.Lock()
	r.flushInterval = d
	r.mu.Unlock()
	logger.Info("Tracker: Новый интервал записи", zap.Duration("flush_interval", d))
}

// Start запускает таймер задачи. Для завершённой или уже трекаемой задачи ничего не делает
// и возвращает false.
func (r *Registry) Start(ctx context.Context, t *task.Task) (bool, error) {
	if t.Status == task.StatusCompleted {
		logger.Info("Tracker: Задача завершена, трекинг не запускается", zap.String("task_id", t.UUID.String()))
		return false, nil
	}

	now := r.clock.Now()

	r.mu.Lock()
	if existing, ok := r.entries[t.UUID]; ok {
		parked := existing.parked
		r.mu.Unlock()
		if !parked {
			return false, nil
		}
		return r.restart(ctx, t)
	}
	entryCtx, cancel := context.WithCancel(r.ctx)
	e := &entry{
		id:          t.UUID,
		ref:         now,
		accumulated: t.TotalTimeSpent,
		flushed:     t.TotalTimeSpent,
		ctx:         entryCtx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	// запись резервируется до похода в хранилище, параллельный Start увидит её
	r.entries[t.UUID] = e
	r.mu.Unlock()

	toSave := t.Clone()
	if err := toSave.Start(now); err != nil {
		r.discard(e)
		return false, err
	}
	if err := r.store.Update(ctx, toSave); err != nil {
		r.discard(e)
		logger.Error("Tracker: Не удалось сохранить старт трекинга", err, zap.String("task_id", t.UUID.String()))
		return false, fmt.Errorf("старт трекинга: %w", err)
	}
	*t = *toSave

	ticker := r.clock.Ticker(r.tickInterval)
	go r.run(e, ticker)

	metrics.TrackingActive.Inc()
	logger.Info("Tracker: Трекинг запущен",
		zap.String("task_id", t.UUID.String()),
		zap.Int64("base_seconds", t.TotalTimeSpent))
	return true, nil
}

// restart сначала дописывает время, оставшееся от неудачной остановки, и только потом
// запускает таймер заново с сохранённого значения
func (r *Registry) restart(ctx context.Context, t *task.Task) (bool, error) {
	if _, err := r.Stop(ctx, t.UUID); err != nil && !errors.Is(err, ErrNotTracking) {
		return false, err
	}
	fresh, err := r.store.GetByID(ctx, t.UUID)
	if err != nil {
		return false, fmt.Errorf("получение задачи: %w", err)
	}
	*t = *fresh
	return r.Start(ctx, t)
}

func (r *Registry) discard(e *entry) {
	r.mu.Lock()
	if r.entries[e.id] == e {
		delete(r.entries, e.id)
	}
	r.mu.Unlock()
	e.cancel()
	close(e.done)
}

func (r *Registry) run(e *entry, ticker *clock.Ticker) {
	defer close(e.done)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			r.tick(e)
		}
	}
}

func (r *Registry) tick(e *entry) {
	r.mu.Lock()
	if r.entries[e.id] != e {
		r.mu.Unlock()
		return
	}
	delta := r.advance(e, r.clock.Now())
	total := e.accumulated
	due := time.Duration(total-e.flushed)*time.Second >= r.flushInterval
	r.mu.Unlock()

	if delta > 0 {
		metrics.TrackedSeconds.Add(float64(delta))
	}
	if !due {
		return
	}

	ctx, cancel := context.WithTimeout(e.ctx, flushTimeout)
	defer cancel()

	if err := r.store.SaveTracking(ctx, e.id, total, true); err != nil {
		// в памяти остаётся источник истины, следующий тик попробует снова
		metrics.TrackingFlushes.WithLabelValues("error").Inc()
		logger.Error("Tracker: Ошибка записи накопленного времени", err,
			zap.String("task_id", e.id.String()),
			zap.Int64("total_seconds", total))
		return
	}
	metrics.TrackingFlushes.WithLabelValues("ok").Inc()

	r.mu.Lock()
	if total > e.flushed {
		e.flushed = total
	}
	r.mu.Unlock()
}

// advance переносит целые секунды с опорной метки в аккумулятор, вызывать под r.mu
func (r *Registry) advance(e *entry, now time.Time) int64 {
	delta := int64(now.Sub(e.ref) / time.Second)
	if delta <= 0 {
		return 0
	}
	e.accumulated += delta
	e.ref = e.ref.Add(time.Duration(delta) * time.Second)
	return delta
}

// Stop останавливает таймер, дописывает остаток и снимает флаг трекинга.
// Возвращает итоговое время в секундах. Если финальная запись не прошла, задача остаётся
// в реестре с замороженным временем: повторный Stop, Complete или Close допишут его.
func (r *Registry) Stop(ctx context.Context, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	e, ok := r.entries[id]
	r.mu.Unlock()
	if !ok {
		return 0, ErrNotTracking
	}

	e.stopMu.Lock()
	defer e.stopMu.Unlock()

	r.mu.Lock()
	if r.entries[id] != e {
		// параллельный Stop уже всё записал
		r.mu.Unlock()
		return 0, ErrNotTracking
	}
	parked := e.parked
	e.parked = true
	r.mu.Unlock()

	if !parked {
		// ждём горутину, чтобы запоздалый тик не перезаписал итог
		e.cancel()
		<-e.done

		r.mu.Lock()
		delta := r.advance(e, r.clock.Now())
		r.mu.Unlock()

		if delta > 0 {
			metrics.TrackedSeconds.Add(float64(delta))
		}
		metrics.TrackingActive.Dec()
	}

	r.mu.Lock()
	total := e.accumulated
	r.mu.Unlock()

	if err := r.store.SaveTracking(ctx, id, total, false); err != nil {
		metrics.TrackingFlushes.WithLabelValues("error").Inc()
		logger.Error("Tracker: Ошибка финальной записи времени, время держится в памяти", err,
			zap.String("task_id", id.String()),
			zap.Int64("total_seconds", total))
		return total, fmt.Errorf("остановка трекинга: %w", err)
	}
	metrics.TrackingFlushes.WithLabelValues("ok").Inc()

	r.mu.Lock()
	if r.entries[id] == e {
		delete(r.entries, id)
	}
	r.mu.Unlock()

	logger.Info("Tracker: Трекинг остановлен",
		zap.String("task_id", id.String()),
		zap.Int64("total_seconds", total))
	return total, nil
}

// TrackedTime - текущее лучшее известное значение без ожидания тика
func (r *Registry) TrackedTime(ctx context.Context, id uuid.UUID) (int64, error) {
	r.mu.Lock()
	if e, ok := r.entries[id]; ok {
		total := e.accumulated
		if !e.parked {
			if elapsed := int64(r.clock.Now().Sub(e.ref) / time.Second); elapsed > 0 {
				total += elapsed
			}
		}
		r.mu.Unlock()
		return total, nil
	}
	r.mu.Unlock()

	t, err := r.store.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	return t.TotalTimeSpent, nil
}

// IsTracking - задача принадлежит реестру, включая остановленную, но ещё не записанную
func (r *Registry) IsTracking(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.entries[id]
	return ok
}

// Active - id задач, которые сейчас трекаются
func (r *Registry) Active() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]uuid.UUID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	return ids
}

// Complete останавливает трекинг (если был) и завершает задачу
func (r *Registry) Complete(ctx context.Context, id uuid.UUID) (*task.Task, error) {
	if _, err := r.Stop(ctx, id); err != nil && !errors.Is(err, ErrNotTracking) {
		return nil, err
	}

	t, err := r.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("получение задачи: %w", err)
	}
	if err := t.Complete(r.clock.Now()); err != nil {
		return nil, err
	}
	if err := r.store.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("завершение задачи: %w", err)
	}

	metrics.TasksCompleted.WithLabelValues(string(t.Priority)).Inc()
	logger.Info("Tracker: Задача завершена",
		zap.String("task_id", id.String()),
		zap.Int64("total_seconds", t.TotalTimeSpent))
	return t, nil
}

// Restore останавливает трекинг и сбрасывает задачу в not_started.
// Отсутствующая задача только логируется.
func (r *Registry) Restore(ctx context.Context, id uuid.UUID) error {
	if _, err := r.Stop(ctx, id); err != nil && !errors.Is(err, ErrNotTracking) {
		return err
	}

	t, err := r.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			logger.Warn("Tracker: Восстановление несуществующей задачи", zap.String("task_id", id.String()))
			return nil
		}
		return fmt.Errorf("получение задачи: %w", err)
	}

	t.Restore()
	if err := r.store.Update(ctx, t); err != nil {
		return fmt.Errorf("восстановление задачи: %w", err)
	}

	logger.Info("Tracker: Задача восстановлена", zap.String("task_id", id.String()))
	return nil
}

// Close останавливает все таймеры с финальной записью, после него реестр не используется
func (r *Registry) Close(ctx context.Context) error {
	ids := r.Active()

	p := pool.New().WithErrors().WithContext(ctx)
	for _, id := range ids {
		p.Go(func(ctx context.Context) error {
			_, err := r.Stop(ctx, id)
			if errors.Is(err, ErrNotTracking) {
				return nil
			}
			return err
		})
	}
	err := p.Wait()

	r.cancel()
	logger.Info("Tracker: Реестр закрыт", zap.Int("stopped", len(ids)))
	return err
}
