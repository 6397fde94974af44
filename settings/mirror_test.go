package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func testDefaults() Defaults {
	return Defaults{FaceKeyguard: true, FaceApps: true, FaceConfirm: false}
}

type mirrorSubscriber struct {
	changes []bool
	users   []int
	err     error
}

func (s *mirrorSubscriber) OnChanged(enabled bool, userID int) error {
	if s.err != nil {
		return s.err
	}
	s.changes = append(s.changes, enabled)
	s.users = append(s.users, userID)
	return nil
}

func TestRedisSourceRoundTrip(t *testing.T) {
	_, rdb := newTestRedis(t)
	src := NewRedisSource(rdb, "bio")
	ctx := context.Background()

	if _, ok, err := src.ReadFlag(ctx, FlagFaceApps, 0); err != nil || ok {
		t.Fatalf("unset flag must read as ok=false, got ok=%v err=%v", ok, err)
	}

	if err := src.WriteFlag(ctx, FlagFaceApps, 0, true); err != nil {
		t.Fatalf("WriteFlag failed: %v", err)
	}
	v, ok, err := src.ReadFlag(ctx, FlagFaceApps, 0)
	if err != nil || !ok || !v {
		t.Fatalf("expected true after write, got v=%v ok=%v err=%v", v, ok, err)
	}

	if err := src.WriteFlag(ctx, FlagFaceApps, 0, false); err != nil {
		t.Fatalf("WriteFlag failed: %v", err)
	}
	v, ok, err = src.ReadFlag(ctx, FlagFaceApps, 0)
	if err != nil || !ok || v {
		t.Fatalf("expected false after write, got v=%v ok=%v err=%v", v, ok, err)
	}
}

func TestRedisSourceKeysAreScopedPerUser(t *testing.T) {
	_, rdb := newTestRedis(t)
	src := NewRedisSource(rdb, "bio")
	ctx := context.Background()

	if err := src.WriteFlag(ctx, FlagFaceKeyguard, 7, false); err != nil {
		t.Fatalf("WriteFlag failed: %v", err)
	}
	if _, ok, _ := src.ReadFlag(ctx, FlagFaceKeyguard, 0); ok {
		t.Fatalf("user 0 must not see user 7's flag")
	}
}

func TestRedisSourceUnavailable(t *testing.T) {
	var src *RedisSource
	if _, _, err := src.ReadFlag(context.Background(), FlagFaceApps, 0); !errors.Is(err, ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestMirrorDefaultsWhenUnset(t *testing.T) {
	_, rdb := newTestRedis(t)
	m := NewMirror(NewRedisSource(rdb, "bio"), testDefaults(), zerolog.Nop())

	if !m.FaceEnabledOnKeyguard(0) || !m.FaceEnabledForApps(0) {
		t.Fatalf("unset flags must fall back to defaults")
	}
	if m.FaceAlwaysRequireConfirmation(0) {
		t.Fatalf("confirmation default must be false")
	}
}

func TestMirrorCachesUntilRefresh(t *testing.T) {
	_, rdb := newTestRedis(t)
	src := NewRedisSource(rdb, "bio")
	m := NewMirror(src, testDefaults(), zerolog.Nop())
	ctx := context.Background()

	if !m.FaceEnabledForApps(0) {
		t.Fatalf("expected default true on first read")
	}

	if err := src.WriteFlag(ctx, FlagFaceApps, 0, false); err != nil {
		t.Fatalf("WriteFlag failed: %v", err)
	}
	if !m.FaceEnabledForApps(0) {
		t.Fatalf("cached value must survive an out-of-band write")
	}

	m.Refresh(FlagFaceApps, 0)
	if m.FaceEnabledForApps(0) {
		t.Fatalf("refresh must pick up the new value")
	}
}

func TestMirrorSourceErrorFallsBackWithoutCaching(t *testing.T) {
	mr, rdb := newTestRedis(t)
	src := NewRedisSource(rdb, "bio")
	m := NewMirror(src, testDefaults(), zerolog.Nop())
	ctx := context.Background()

	if err := src.WriteFlag(ctx, FlagFaceApps, 0, false); err != nil {
		t.Fatalf("WriteFlag failed: %v", err)
	}

	mr.SetError("store down")
	if !m.FaceEnabledForApps(0) {
		t.Fatalf("unreachable source must fall back to the default")
	}

	mr.SetError("")
	if m.FaceEnabledForApps(0) {
		t.Fatalf("recovered source must be re-read, not served from a cached default")
	}
}

func TestMirrorRefreshNotifiesKeyguardSubscribers(t *testing.T) {
	_, rdb := newTestRedis(t)
	src := NewRedisSource(rdb, "bio")
	m := NewMirror(src, testDefaults(), zerolog.Nop())
	ctx := context.Background()

	sub := &mirrorSubscriber{}
	m.Subscribe(sub)

	if err := src.WriteFlag(ctx, FlagFaceKeyguard, 0, false); err != nil {
		t.Fatalf("WriteFlag failed: %v", err)
	}
	m.Refresh(FlagFaceKeyguard, 0)

	if len(sub.changes) != 1 || sub.changes[0] != false {
		t.Fatalf("expected one notification with false, got %v", sub.changes)
	}

	// Another user's keyguard flag never reaches subscribers.
	_ = src.WriteFlag(ctx, FlagFaceKeyguard, 7, false)
	m.Refresh(FlagFaceKeyguard, 7)
	if len(sub.changes) != 1 {
		t.Fatalf("non-active-user refresh must not notify, got %v", sub.changes)
	}

	// Nor does a non-keyguard flag.
	_ = src.WriteFlag(ctx, FlagFaceApps, 0, false)
	m.Refresh(FlagFaceApps, 0)
	if len(sub.changes) != 1 {
		t.Fatalf("app-flag refresh must not notify, got %v", sub.changes)
	}
}

func TestMirrorUnregistersFailingSubscriber(t *testing.T) {
	_, rdb := newTestRedis(t)
	src := NewRedisSource(rdb, "bio")
	m := NewMirror(src, testDefaults(), zerolog.Nop())

	broken := &mirrorSubscriber{err: errors.New("remote gone")}
	live := &mirrorSubscriber{}
	m.Subscribe(broken)
	m.Subscribe(live)

	m.NotifyKeyguardSubscribers(0)
	if m.SubscriberCount() != 1 {
		t.Fatalf("failing subscriber must be unregistered, count=%d", m.SubscriberCount())
	}
	if len(live.changes) != 1 {
		t.Fatalf("healthy subscriber must still be notified, got %v", live.changes)
	}
}

func TestMirrorOnUserSwitch(t *testing.T) {
	_, rdb := newTestRedis(t)
	src := NewRedisSource(rdb, "bio")
	m := NewMirror(src, testDefaults(), zerolog.Nop())
	ctx := context.Background()

	if err := src.WriteFlag(ctx, FlagFaceKeyguard, 7, false); err != nil {
		t.Fatalf("WriteFlag failed: %v", err)
	}

	sub := &mirrorSubscriber{}
	m.Subscribe(sub)
	m.OnUserSwitch(7)

	if m.ActiveUser() != 7 {
		t.Fatalf("expected active user 7, got %d", m.ActiveUser())
	}
	if len(sub.changes) != 1 || sub.changes[0] != false || sub.users[0] != 7 {
		t.Fatalf("expected switch notification false/7, got %v/%v", sub.changes, sub.users)
	}
}
