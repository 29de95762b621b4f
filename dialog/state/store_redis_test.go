package state

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func newRedisTestStore(t *testing.T, opts ...RedisStoreOption) *RedisStore {
	t.Helper()
	store, err := NewRedisStore(redis.NewClient(&redis.Options{Addr: "localhost:0"}), opts...)
	if err != nil {
		t.Fatalf("NewRedisStore: %v", err)
	}
	return store
}

func TestRedisStoreKey(t *testing.T) {
	t.Parallel()

	store := newRedisTestStore(t)
	key, err := store.key("CA123")
	if err != nil {
		t.Fatalf("key: %v", err)
	}
	if key != "call:session:CA123" {
		t.Fatalf("key = %q", key)
	}

	if _, err := store.key("   "); !errors.Is(err, ErrInvalidCallID) {
		t.Fatalf("blank call id error = %v", err)
	}
}

func TestRedisStoreOptions(t *testing.T) {
	t.Parallel()

	store := newRedisTestStore(t, WithKeyPrefix("ivr:"), WithTTL(10*time.Minute))
	if store.keyPrefix != "ivr:" {
		t.Fatalf("prefix = %q", store.keyPrefix)
	}
	if store.ttl != 10*time.Minute {
		t.Fatalf("ttl = %s", store.ttl)
	}

	// Blank or non-positive options keep the defaults.
	store = newRedisTestStore(t, WithKeyPrefix("  "), WithTTL(0))
	if store.keyPrefix != "call:session:" {
		t.Fatalf("prefix = %q", store.keyPrefix)
	}
	if store.ttl != time.Hour {
		t.Fatalf("ttl = %s", store.ttl)
	}
}

func TestNewRedisStoreRequiresClient(t *testing.T) {
	t.Parallel()

	if _, err := NewRedisStore(nil); err == nil {
		t.Fatal("nil client accepted")
	}
}

func TestDecodeSession(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	sess := NewCallSession("CA123", now)
	sess.State = StateCollectingFirstName

	payload, err := json.Marshal(sess)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	decoded, err := decodeSession(payload)
	if err != nil {
		t.Fatalf("decodeSession: %v", err)
	}
	if decoded.CallID != "CA123" || decoded.State != StateCollectingFirstName {
		t.Fatalf("decoded = %+v", decoded)
	}

	if _, err := decodeSession([]byte("{not json")); err == nil {
		t.Fatal("garbage payload accepted")
	}
	if _, err := decodeSession([]byte(`{"call_id":""}`)); err == nil {
		t.Fatal("session without call id accepted")
	}
}
