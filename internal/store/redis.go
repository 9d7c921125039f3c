package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/shaiso/studyflow-scheduler/internal/domain"
)

// Ключи Redis.
const (
	// keyItems — sorted set: score = DueAt в миллисекундах,
	// member = zero-padded seq. Лексикографический порядок members
	// с одинаковым score совпадает с порядком вставки.
	keyItems = "due:items"

	// keyItemPrefix — hash с полями item, ключ due:item:<member>.
	keyItemPrefix = "due:item:"

	// keySeq — счётчик порядковых номеров вставки.
	keySeq = "due:seq"
)

// opTimeout — предел на один вызов Redis. Scan и query не должны
// зависать на недоступном бэкенде: по истечении срабатывает failover.
const opTimeout = 5 * time.Second

// RedisStore — primary бэкенд на Redis sorted set.
// Доступ к диапазону по score — O(log n + k).
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore создаёт RedisStore и проверяет соединение.
func NewRedisStore(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping redis: %v", ErrUnavailable, err)
	}

	return &RedisStore{client: client}, nil
}

// member возвращает ZSET-member для порядкового номера.
func member(seq uint64) string {
	return fmt.Sprintf("%020d", seq)
}

// Insert добавляет item: INCR для seq, hash с полями, ZADD со score = DueAt.
func (s *RedisStore) Insert(ctx context.Context, item *domain.DueItem) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	seq, err := s.client.Incr(ctx, keySeq).Result()
	if err != nil {
		return fmt.Errorf("%w: incr seq: %v", ErrUnavailable, err)
	}
	item.Seq = uint64(seq)

	m := member(item.Seq)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, keyItemPrefix+m, map[string]interface{}{
		"id":         item.ID.String(),
		"subject_id": item.SubjectID,
		"due_at":     item.DueAt.UTC().Format(time.RFC3339Nano),
		"created_at": item.CreatedAt.UTC().Format(time.RFC3339Nano),
		"processed":  boolField(item.Processed),
	})
	pipe.ZAdd(ctx, keyItems, redis.Z{
		Score:  float64(item.DueAt.UnixMilli()),
		Member: m,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: insert item: %v", ErrUnavailable, err)
	}

	return nil
}

// Range возвращает items с DueAt в [from, to], по возрастанию DueAt.
func (s *RedisStore) Range(ctx context.Context, from, to time.Time) ([]domain.DueItem, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	min := "-inf"
	if !from.IsZero() {
		min = strconv.FormatInt(from.UnixMilli(), 10)
	}
	max := strconv.FormatInt(to.UnixMilli(), 10)

	members, err := s.client.ZRangeByScore(ctx, keyItems, &redis.ZRangeBy{
		Min: min,
		Max: max,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: range query: %v", ErrUnavailable, err)
	}

	if len(members) == 0 {
		return []domain.DueItem{}, nil
	}

	// Забираем hashes одним pipeline
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(members))
	for i, m := range members {
		cmds[i] = pipe.HGetAll(ctx, keyItemPrefix+m)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: fetch items: %v", ErrUnavailable, err)
	}

	items := make([]domain.DueItem, 0, len(members))
	for i, cmd := range cmds {
		fields, err := cmd.Result()
		if err != nil || len(fields) == 0 {
			// Hash удалён между ZRANGEBYSCORE и HGETALL (prune) —
			// пропускаем
			continue
		}
		item, err := itemFromFields(members[i], fields)
		if err != nil {
			return nil, fmt.Errorf("decode item %s: %w", members[i], err)
		}
		items = append(items, *item)
	}

	return items, nil
}

// MarkProcessed помечает item как processed.
func (s *RedisStore) MarkProcessed(ctx context.Context, seq uint64) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	key := keyItemPrefix + member(seq)
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: exists: %v", ErrUnavailable, err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	if err := s.client.HSet(ctx, key, "processed", "1").Err(); err != nil {
		return fmt.Errorf("%w: mark processed: %v", ErrUnavailable, err)
	}
	return nil
}

// PruneProcessed удаляет processed items с DueAt < before и возвращает их.
func (s *RedisStore) PruneProcessed(ctx context.Context, before time.Time) ([]domain.DueItem, error) {
	items, err := s.Range(ctx, time.Time{}, before.Add(-time.Millisecond))
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var pruned []domain.DueItem
	for _, item := range items {
		if !item.Processed {
			continue
		}
		m := member(item.Seq)
		pipe := s.client.TxPipeline()
		pipe.ZRem(ctx, keyItems, m)
		pipe.Del(ctx, keyItemPrefix+m)
		if _, err := pipe.Exec(ctx); err != nil {
			return pruned, fmt.Errorf("%w: prune item: %v", ErrUnavailable, err)
		}
		pruned = append(pruned, item)
	}

	return pruned, nil
}

// Backend возвращает имя бэкенда.
func (s *RedisStore) Backend() string {
	return "redis"
}

// Ping проверяет соединение.
func (s *RedisStore) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close закрывает соединение.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// --- Helpers ---

func boolField(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// itemFromFields восстанавливает item из hash-полей.
func itemFromFields(m string, fields map[string]string) (*domain.DueItem, error) {
	seq, err := strconv.ParseUint(m, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse seq %q: %w", m, err)
	}

	id, err := uuid.Parse(fields["id"])
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}

	dueAt, err := time.Parse(time.RFC3339Nano, fields["due_at"])
	if err != nil {
		return nil, fmt.Errorf("parse due_at: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &domain.DueItem{
		ID:        id,
		SubjectID: fields["subject_id"],
		DueAt:     dueAt,
		CreatedAt: createdAt,
		Processed: fields["processed"] == "1",
		Seq:       seq,
	}, nil
}
