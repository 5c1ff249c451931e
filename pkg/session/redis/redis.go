package redis

import (
	"context"
	"fmt"
	"time"

	"opensacco-client/pkg/portal"

	"github.com/redis/rueidis"
)

// Store keeps tokens in Redis so several client processes on a kiosk or
// back-office host share one sign-in.
type Store struct {
	client rueidis.Client
	config Config
}

// Config configures the Redis token store.
type Config struct {
	// Addr is the Redis server address for single node mode.
	Addr string
	// ClusterAddrs enables cluster mode when set.
	ClusterAddrs []string
	Username     string
	Password     string
	// DB is the Redis database number. Cluster mode only supports DB 0.
	DB int
	// KeyPrefix namespaces token keys, e.g. "sacco:alice:".
	KeyPrefix string
	// TTL expires stored tokens. 0 keeps them until cleared.
	TTL          time.Duration
	DialTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns a single-node configuration on localhost.
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		KeyPrefix:    "sacco:session:",
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// New connects to Redis and verifies the connection with PING.
func New(config Config) (*Store, error) {
	var initAddress []string
	switch {
	case len(config.ClusterAddrs) > 0:
		initAddress = config.ClusterAddrs
	case config.Addr != "":
		initAddress = []string{config.Addr}
	default:
		return nil, fmt.Errorf("redis session: no addresses configured (set Addr or ClusterAddrs)")
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = 5 * time.Second
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:      initAddress,
		Username:         config.Username,
		Password:         config.Password,
		SelectDB:         config.DB,
		ConnWriteTimeout: config.WriteTimeout,
		DisableCache:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis session: failed to create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.DialTimeout)
	defer cancel()

	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis session: failed to ping server: %w", err)
	}

	return NewWithClient(client, config), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client rueidis.Client, config Config) *Store {
	return &Store{client: client, config: config}
}

// Get returns the value for key or portal.ErrTokenNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	cmd := s.client.B().Get().Key(s.config.KeyPrefix + key).Build()
	v, err := s.client.Do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return "", portal.ErrTokenNotFound
		}
		return "", fmt.Errorf("redis session get: %w", err)
	}
	return v, nil
}

// Set stores value under key, with the configured TTL if any.
func (s *Store) Set(ctx context.Context, key string, value string) error {
	fullKey := s.config.KeyPrefix + key

	var cmd rueidis.Completed
	if s.config.TTL > 0 {
		cmd = s.client.B().Set().Key(fullKey).Value(value).Ex(s.config.TTL).Build()
	} else {
		cmd = s.client.B().Set().Key(fullKey).Value(value).Build()
	}

	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis session set: %w", err)
	}
	return nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	cmd := s.client.B().Del().Key(s.config.KeyPrefix + key).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("redis session delete: %w", err)
	}
	return nil
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("redis session ping: %w", err)
	}
	return nil
}

// Name returns the store name.
func (s *Store) Name() string {
	return "redis"
}

// Close closes the client.
func (s *Store) Close() error {
	s.client.Close()
	return nil
}
