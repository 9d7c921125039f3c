package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shaiso/studyflow-scheduler/internal/domain"
	"github.com/shaiso/studyflow-scheduler/internal/mq"
)

// HandleCompletion — обработчик очереди completion-events.
//
// Недекодируемое тело и тело без обязательных полей — poison message:
// возвращается mq.ErrMalformed, consumer отбрасывает без requeue.
// Ошибка store — временная: возвращается ErrProcessing, consumer
// делает bounded requeue.
func (e *Engine) HandleCompletion(ctx context.Context, body []byte) error {
	var ev domain.CompletionEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: decode completion event: %v", mq.ErrMalformed, err)
	}

	if !ev.Valid() {
		return fmt.Errorf("%w: completion event missing required fields", mq.ErrMalformed)
	}

	if err := e.OnCompletion(ctx, ev); err != nil {
		return fmt.Errorf("%w: %v", ErrProcessing, err)
	}

	return nil
}
