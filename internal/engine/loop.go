package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser — парсер cron-выражений (стандартные пять полей).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateScanCron проверяет валидность cron-выражения цикла scan.
func ValidateScanCron(expr string) error {
	if _, err := cronParser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// Run запускает цикл сканирования по cron-расписанию. Блокирует до
// отмены ctx; in-flight scan дорабатывает до конца перед возвратом —
// shutdown не гонится с проходом.
func (e *Engine) Run(ctx context.Context) error {
	sched, err := cronParser.Parse(e.scanCron)
	if err != nil {
		return fmt.Errorf("parse scan cron %q: %w", e.scanCron, err)
	}

	e.logger.Info("scan loop started", "cron", e.scanCron)

	for {
		now := time.Now()
		next := sched.Next(now)
		timer := time.NewTimer(next.Sub(now))

		select {
		case <-ctx.Done():
			timer.Stop()
			e.logger.Info("scan loop stopped")
			return ctx.Err()

		case t := <-timer.C:
			if _, err := e.Scan(ctx, t); err != nil {
				e.logger.Error("scan failed", "error", err)
			}
		}
	}
}
