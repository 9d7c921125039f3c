// Package engine реализует бизнес-логику планировщика повторений.
//
// Структура:
//   - engine.go   — OnCompletion, Scan, Seed, retention-проход
//   - handlers.go — обработчик completion-событий из RabbitMQ
//   - policy.go   — интервал повторения (pluggable)
//   - loop.go     — cron-управляемый цикл сканирования
//
// Использование:
//
//	eng := engine.New(engine.Config{
//	    Store:     st,
//	    Publisher: publisher, // nil допустим: items копятся без emit
//	    Logger:    logger,
//	})
//
//	go eng.Run(ctx) // периодический scan
//
// Scan-проходы сериализованы: пока один проход не завершился,
// следующий тик пропускается. Два конкурентных прохода по одному
// unprocessed item дали бы двойной emit.
package engine
