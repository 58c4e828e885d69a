package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no configuration is stored for a plugin.
var ErrNotFound = errors.New("settings: plugin configuration not found")

// Configuration is what the host stores for one plugin.
type Configuration struct {
	Active bool
	Values Values
}

// Store loads and saves plugin configuration.
type Store interface {
	Load(ctx context.Context, pluginID string) (Configuration, error)
	Save(ctx context.Context, pluginID string, cfg Configuration) error
}

// InMemoryStore keeps configurations in a map.
type InMemoryStore struct {
	mu      sync.RWMutex
	configs map[string]Configuration
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{configs: make(map[string]Configuration)}
}

// Load returns a copy of the stored configuration, or ErrNotFound.
func (s *InMemoryStore) Load(_ context.Context, pluginID string) (Configuration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[pluginID]
	if !ok {
		return Configuration{}, fmt.Errorf("%w: %s", ErrNotFound, pluginID)
	}
	return Configuration{Active: cfg.Active, Values: copyValues(cfg.Values)}, nil
}

// Save stores a copy of cfg.
func (s *InMemoryStore) Save(_ context.Context, pluginID string, cfg Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[pluginID] = Configuration{Active: cfg.Active, Values: copyValues(cfg.Values)}
	return nil
}

// redisCommands is the subset of *redis.Client used by RedisStore.
type redisCommands interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	TxPipelined(ctx context.Context, fn func(redis.Pipeliner) error) ([]redis.Cmder, error)
}

// RedisStore keeps field values in the hash plugin:config:<id> and the active
// flag in plugin:active:<id>.
type RedisStore struct {
	client redisCommands
}

// NewRedisStore creates a Redis client for addr. It does not ping the server.
func NewRedisStore(addr, password string, db int) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisStore{client: rdb}
}

func newRedisStoreWithClient(c redisCommands) *RedisStore {
	return &RedisStore{client: c}
}

func configKey(pluginID string) string { return fmt.Sprintf("plugin:config:%s", pluginID) }
func activeKey(pluginID string) string { return fmt.Sprintf("plugin:active:%s", pluginID) }

// Load reads the field hash and the active flag. A missing flag means inactive.
func (s *RedisStore) Load(ctx context.Context, pluginID string) (Configuration, error) {
	values, err := s.client.HGetAll(ctx, configKey(pluginID)).Result()
	if err != nil {
		return Configuration{}, fmt.Errorf("settings: redis HGETALL %s: %w", pluginID, err)
	}
	if len(values) == 0 {
		return Configuration{}, fmt.Errorf("%w: %s", ErrNotFound, pluginID)
	}

	active := false
	flag, err := s.client.Get(ctx, activeKey(pluginID)).Result()
	switch {
	case err == redis.Nil:
	case err != nil:
		return Configuration{}, fmt.Errorf("settings: redis GET %s: %w", activeKey(pluginID), err)
	default:
		active, _ = strconv.ParseBool(flag)
	}
	return Configuration{Active: active, Values: Values(values)}, nil
}

// Save replaces the stored field values and the active flag in one MULTI/EXEC
// block, so fields missing from cfg do not survive.
func (s *RedisStore) Save(ctx context.Context, pluginID string, cfg Configuration) error {
	fields := make([]interface{}, 0, len(cfg.Values)*2)
	for k, v := range cfg.Values {
		fields = append(fields, k, v)
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, configKey(pluginID))
		if len(fields) > 0 {
			pipe.HSet(ctx, configKey(pluginID), fields...)
		}
		pipe.Set(ctx, activeKey(pluginID), strconv.FormatBool(cfg.Active), 0)
		return nil
	})
	if err != nil {
		return fmt.Errorf("settings: redis save %s: %w", pluginID, err)
	}
	return nil
}

func copyValues(v Values) Values {
	out := make(Values, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}
