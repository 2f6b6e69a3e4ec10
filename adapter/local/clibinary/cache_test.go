package clibinary

import (
	"path/filepath"
	"testing"
	"time"
)

func TestCacheGetMissingModeReturnsNotFound(t *testing.T) {
	cache, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cache.Close()

	_, ok, err := cache.Get("bundled")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Fatal("expected no cached resolution for an empty cache")
	}
}

func TestCachePutThenGetRoundTrips(t *testing.T) {
	cache, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cache.Close()

	now := time.Now().UTC().Truncate(time.Second)
	want := Resolution{Path: "/usr/local/bin/claude", Version: "1.2.3", ResolvedAt: now}
	if err := cache.Put("global", want); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := cache.Get("global")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected a cached resolution after Put")
	}
	if got.Path != want.Path || got.Version != want.Version {
		t.Fatalf("got=%+v, want=%+v", got, want)
	}
}

func TestCachePutOverwritesPriorEntryForSameMode(t *testing.T) {
	cache, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer cache.Close()

	_ = cache.Put("bundled", Resolution{Path: "/old/path", ResolvedAt: time.Now()})
	_ = cache.Put("bundled", Resolution{Path: "/new/path", ResolvedAt: time.Now()})

	got, ok, err := cache.Get("bundled")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok || got.Path != "/new/path" {
		t.Fatalf("got=%+v, want path=/new/path", got)
	}
}
