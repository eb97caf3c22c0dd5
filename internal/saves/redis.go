package saves

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	keyPrefix = "textquest:save:"
	indexKey  = "textquest:saves"
)

// RedisStore keeps each slot as a YAML string under textquest:save:<slot>
// and the slot names in the textquest:saves set.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisStore connects to the server at url (redis://host:port/db) and
// checks that it answers.
func NewRedisStore(ctx context.Context, url string, logger *zap.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", opts.Addr, err)
	}
	logger.Info("redis save store connected", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	return &RedisStore{client: client, logger: logger.Named("RedisSaveStore")}, nil
}

func key(slot string) string { return keyPrefix + slot }

func (s *RedisStore) Save(ctx context.Context, slot string, g Game) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	data, err := encode(g)
	if err != nil {
		return err
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key(slot), data, 0)
	pipe.SAdd(ctx, indexKey, slot)
	if _, err := pipe.Exec(ctx); err != nil {
		s.logger.Error("failed to save slot", zap.String("slot", slot), zap.Error(err))
		return fmt.Errorf("save %s: %w", slot, err)
	}
	s.logger.Debug("slot saved", zap.String("slot", slot), zap.Int("scenes", len(g.History)))
	return nil
}

func (s *RedisStore) Load(ctx context.Context, slot string) (Game, error) {
	if err := ValidateSlot(slot); err != nil {
		return Game{}, err
	}
	data, err := s.client.Get(ctx, key(slot)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Game{}, fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	if err != nil {
		return Game{}, fmt.Errorf("load %s: %w", slot, err)
	}
	return decode(data)
}

func (s *RedisStore) List(ctx context.Context) ([]Info, error) {
	slots, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	infos := []Info{}
	if len(slots) == 0 {
		return infos, nil
	}

	keys := make([]string, len(slots))
	for i, slot := range slots {
		keys[i] = key(slot)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("list saves: %w", err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// indexed but the value is gone
			s.logger.Warn("dangling save index entry", zap.String("slot", slots[i]))
			continue
		}
		g, err := decode([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("slot %s: %w", slots[i], err)
		}
		infos = append(infos, info(slots[i], g))
	}
	sortInfos(infos)
	return infos, nil
}

func (s *RedisStore) Delete(ctx context.Context, slot string) error {
	if err := ValidateSlot(slot); err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, key(slot))
	pipe.SRem(ctx, indexKey, slot)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete %s: %w", slot, err)
	}
	if del.Val() == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, slot)
	}
	return nil
}

func (s *RedisStore) Close() error { return s.client.Close() }
