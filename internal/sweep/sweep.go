package sweep

import (
	"context"
	"time"

	"ptw/internal/logs"
	"ptw/internal/models"
)

// Source — активные наряды с истёкшим end_time.
type Source interface {
	ListExpired(ctx context.Context, now time.Time) ([]models.Permit, error)
}

// Sweeper периодически обходит просроченные наряды. «Просрочен» — производный
// флаг поверх канонического статуса, а не отдельное состояние: обход только
// наблюдает и пишет в лог, статусы не трогает.
type Sweeper struct {
	src      Source
	interval time.Duration
}

func New(src Source, interval time.Duration) *Sweeper {
	return &Sweeper{src: src, interval: interval}
}

// Run блокируется до отмены ctx; interval <= 0 — обход выключен.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 || s.src == nil {
		return
	}
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			s.sweep(ctx, now)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context, now time.Time) {
	expired, err := s.src.ListExpired(ctx, now.UTC())
	if err != nil {
		logs.Logger.Errorf("expiry sweep failed: %v", err)
		return
	}
	for _, p := range expired {
		logs.Logger.Warnf("permit expired serial=%s status=%s end_time=%s",
			p.Serial, p.Status, p.EndTime.Format(time.RFC3339))
	}
}
