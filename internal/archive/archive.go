// Package archive stores summaries of finished games.
package archive

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/DoyleJ11/bunker-backend/internal/engine"
)

// GameRecord is one finished game.
type GameRecord struct {
	ID               uint                   `gorm:"primaryKey"`
	RoomCode         string                 `gorm:"size:16;index;not null"`
	Catastrophe      string                 `gorm:"size:255"`
	Rounds           int                    `gorm:"not null"`
	BunkerCapacity   int                    `gorm:"not null"`
	Players          []engine.SummaryPlayer `gorm:"serializer:json"`
	EliminationOrder []string               `gorm:"serializer:json"`
	EndedAt          time.Time              `gorm:"index"`
	CreatedAt        time.Time
}

func recordFromSummary(s engine.GameSummary) GameRecord {
	return GameRecord{
		RoomCode:         s.RoomCode,
		Catastrophe:      s.Catastrophe,
		Rounds:           s.Rounds,
		BunkerCapacity:   s.BunkerCapacity,
		Players:          s.Players,
		EliminationOrder: s.EliminationOrder,
		EndedAt:          s.EndedAt,
	}
}

type Store interface {
	SaveGame(ctx context.Context, rec *GameRecord) error
	Close() error
}

// Nop discards every record. Used when no database is configured.
type Nop struct{}

func (Nop) SaveGame(context.Context, *GameRecord) error { return nil }
func (Nop) Close() error                                 { return nil }

type Postgres struct {
	db *gorm.DB
}

// OpenPostgres connects to dsn and migrates the schema.
func OpenPostgres(dsn string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("archive: connect: %w", err)
	}
	if err := db.AutoMigrate(&GameRecord{}); err != nil {
		return nil, multierr.Append(fmt.Errorf("archive: migrate: %w", err), closeDB(db))
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) SaveGame(ctx context.Context, rec *GameRecord) error {
	return p.db.WithContext(ctx).Create(rec).Error
}

func (p *Postgres) Close() error { return closeDB(p.db) }

func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Recorder saves summaries off the room goroutine.
type Recorder struct {
	store   Store
	log     *zap.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func NewRecorder(store Store, log *zap.Logger, timeout time.Duration) *Recorder {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &Recorder{store: store, log: log, timeout: timeout}
}

// Record queues s for saving. It never blocks the caller.
func (r *Recorder) Record(s engine.GameSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		r.log.Warn("game dropped after close", zap.String("room", s.RoomCode))
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		rec := recordFromSummary(s)
		if err := r.store.SaveGame(ctx, &rec); err != nil {
			r.log.Warn("save game failed", zap.String("room", s.RoomCode), zap.Error(err))
			return
		}
		r.log.Info("game archived", zap.String("room", s.RoomCode), zap.Uint("id", rec.ID))
	}()
}

// Close waits for in-flight saves, then closes the store.
func (r *Recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.wg.Wait()
	return r.store.Close()
}
