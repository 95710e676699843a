package store

import (
	"errors"
	"testing"
)

func TestKVSetGetRemove(t *testing.T) {
	kv := NewKVStore(openTestDB(t), "freeday")

	if _, err := kv.Get("prefs"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get missing: err = %v, want ErrNotFound", err)
	}

	if err := kv.Set("prefs", `{"version":1}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := kv.Get("prefs")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != `{"version":1}` {
		t.Errorf("get = %q", got)
	}

	if err := kv.Set("prefs", `{"version":2}`); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if got, _ := kv.Get("prefs"); got != `{"version":2}` {
		t.Errorf("after overwrite = %q", got)
	}

	if err := kv.Remove("prefs"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := kv.Get("prefs"); !errors.Is(err, ErrNotFound) {
		t.Errorf("after remove: err = %v, want ErrNotFound", err)
	}
	if err := kv.Remove("prefs"); err != nil {
		t.Errorf("removing a missing key should not fail: %v", err)
	}
}

func TestKVScopesAreIsolated(t *testing.T) {
	db := openTestDB(t)
	a := NewKVStore(db, "a")
	b := NewKVStore(db, "b")

	if err := a.Set("unlocked", "true"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if _, err := b.Get("unlocked"); !errors.Is(err, ErrNotFound) {
		t.Errorf("scope b sees scope a's key: %v", err)
	}

	if err := b.Set("unlocked", "false"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if v, err := a.Get("unlocked"); err != nil || v != "true" {
		t.Errorf("scope a = %q, %v; want true", v, err)
	}
}
