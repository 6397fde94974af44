package settings

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Flag defines a public type used by goBiometric APIs.
//
// Flag names one user-configurable enablement switch mirrored by the broker.
type Flag string

const (
	// FlagFaceKeyguard is an exported constant or variable used by the arbitration broker.
	FlagFaceKeyguard Flag = "face_unlock_keyguard_enabled"
	// FlagFaceApps is an exported constant or variable used by the arbitration broker.
	FlagFaceApps Flag = "face_unlock_app_enabled"
	// FlagFaceConfirm is an exported constant or variable used by the arbitration broker.
	FlagFaceConfirm Flag = "face_unlock_always_require_confirmation"
)

// ErrSourceUnavailable is an exported constant or variable used by the arbitration broker.
var ErrSourceUnavailable = errors.New("settings source unavailable")

// Source is the settings source of truth the mirror reads from. ReadFlag
// reports ok=false when the flag has never been written for that user, in
// which case the mirror falls back to its configured default.
type Source interface {
	ReadFlag(ctx context.Context, flag Flag, userID int) (value bool, ok bool, err error)
}

// RedisSource reads flags from Redis, one key per user and flag. Values are
// stored as "0"/"1" the same way the platform settings provider stores
// boolean secure settings.
type RedisSource struct {
	client *redis.Client
	prefix string
}

// NewRedisSource creates a redis-backed settings source. An empty prefix
// defaults to "biometric".
func NewRedisSource(client *redis.Client, prefix string) *RedisSource {
	if prefix == "" {
		prefix = "biometric"
	}
	return &RedisSource{client: client, prefix: prefix}
}

func (s *RedisSource) key(flag Flag, userID int) string {
	return s.prefix + ":settings:" + string(flag) + ":" + strconv.Itoa(userID)
}

// ReadFlag describes the readflag operation and its observable behavior.
//
// ReadFlag may return an error when the backing store is unreachable; an
// unset key is reported as ok=false with a nil error.
func (s *RedisSource) ReadFlag(ctx context.Context, flag Flag, userID int) (bool, bool, error) {
	if s == nil || s.client == nil {
		return false, false, ErrSourceUnavailable
	}
	raw, err := s.client.Get(ctx, s.key(flag, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, false, nil
	}
	if err != nil {
		return false, false, err
	}
	return raw != "0" && raw != "", true, nil
}

// WriteFlag stores a flag value. It exists for provisioning and tests; the
// broker itself never writes settings.
func (s *RedisSource) WriteFlag(ctx context.Context, flag Flag, userID int, value bool) error {
	if s == nil || s.client == nil {
		return ErrSourceUnavailable
	}
	v := "0"
	if value {
		v = "1"
	}
	return s.client.Set(ctx, s.key(flag, userID), v, 0).Err()
}

// StaticSource is an in-memory source for tests and single-process
// deployments with no external settings store.
type StaticSource struct {
	values map[Flag]map[int]bool
}

// NewStaticSource creates an empty in-memory source.
func NewStaticSource() *StaticSource {
	return &StaticSource{values: make(map[Flag]map[int]bool)}
}

// Set stores a flag value for a user.
func (s *StaticSource) Set(flag Flag, userID int, value bool) {
	byUser, ok := s.values[flag]
	if !ok {
		byUser = make(map[int]bool)
		s.values[flag] = byUser
	}
	byUser[userID] = value
}

// ReadFlag describes the readflag operation and its observable behavior.
func (s *StaticSource) ReadFlag(_ context.Context, flag Flag, userID int) (bool, bool, error) {
	if s == nil {
		return false, false, ErrSourceUnavailable
	}
	v, ok := s.values[flag][userID]
	return v, ok, nil
}
