package cache

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/ppiankov/symptomlog/internal/model"
)

func sampleResult() model.ExtractionResult {
	r := model.NewExtractionResult()
	r.Symptoms["pain_level"] = model.ScoreValue(7)
	r.Symptoms["hand_grip"] = model.CategoryValue("bad")
	r.Symptoms["swelling"] = model.BoolValue(true)
	r.Triggers = []string{"cold"}
	r.Notes = "pain 7/10, weak grip, swelling in the cold"
	return r
}

func TestKey(t *testing.T) {
	a := Key("abc", "pain 5/10")
	if !strings.HasPrefix(a, "symptomlog:v2:") {
		t.Errorf("Expected key prefix, got %s", a)
	}
	if a != Key("abc", "pain 5/10") {
		t.Error("Expected keys to be stable")
	}
	if a == Key("def", "pain 5/10") {
		t.Error("Expected fingerprint to change the key")
	}
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("Expected separator between fingerprint and transcript")
	}
}

func TestResult_RoundTripAllBackends(t *testing.T) {
	backends := map[string]Cache{
		"memory":  NewMemoryCache(time.Minute, time.Minute),
		"disk":    NewDiskCache(t.TempDir(), time.Hour),
		"layered": NewLayeredCache(time.Minute, t.TempDir(), time.Hour),
	}

	want := sampleResult()
	for name, c := range backends {
		t.Run(name, func(t *testing.T) {
			key := Key("fp", want.Notes)
			if _, ok := GetResult(c, key); ok {
				t.Fatal("Expected miss before Set")
			}
			if err := SetResult(c, key, want, 0); err != nil {
				t.Fatalf("SetResult failed: %v", err)
			}
			got, ok := GetResult(c, key)
			if !ok {
				t.Fatal("Expected hit after Set")
			}
			if !reflect.DeepEqual(got, want) {
				t.Errorf("Cached result differs:\nwant %+v\ngot  %+v", want, got)
			}
		})
	}
}

func TestGetResult_CorruptEntryIsMiss(t *testing.T) {
	for name, data := range map[string]string{
		"out of range": `{"symptoms":{"pain_level":42}}`,
		"null value":   `{"symptoms":{"pain_level":null}}`,
	} {
		t.Run(name, func(t *testing.T) {
			c := NewMemoryCache(time.Minute, time.Minute)
			key := Key("fp", "x")
			_ = c.Set(key, []byte(data), 0)

			if _, ok := GetResult(c, key); ok {
				t.Error("Expected corrupt entry to be a miss")
			}
			if _, ok := c.Get(key); ok {
				t.Error("Expected corrupt entry to be deleted")
			}
		})
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	if err := c.Set("k", []byte(`"v"`), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, ok := c.Get("k"); !ok {
		t.Fatal("Expected hit before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("Expected miss after expiry")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("Expected expired file to be removed")
	}
}

func TestDiskCache_RejectsInvalidJSON(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	if err := c.Set("k", []byte("not json"), 0); err == nil {
		t.Error("Expected error for non-JSON value")
	}
}

func TestDiskCache_DeleteAndClear(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	if err := c.Delete("missing"); err != nil {
		t.Errorf("Deleting a missing key should succeed, got %v", err)
	}

	_ = c.Set("symptomlog:v2:a", []byte(`1`), 0)
	_ = c.Set("symptomlog:v2:b", []byte(`2`), 0)
	if err := os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok := c.Get("symptomlog:v2:a"); ok {
		t.Error("Expected cache to be empty after Clear")
	}
	if _, err := os.Stat(filepath.Join(dir, "keep.txt")); err != nil {
		t.Error("Clear must only remove cache files")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Minute, dir, time.Hour)

	// Written by an earlier process
	if err := NewDiskCache(dir, time.Hour).Set("k", []byte(`"v"`), 0); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.memory.Get("k"); ok {
		t.Fatal("Expected memory miss before first Get")
	}
	if val, ok := c.Get("k"); !ok || string(val) != `"v"` {
		t.Fatalf("Expected disk hit, got %q (ok=%v)", val, ok)
	}
	if _, ok := c.memory.Get("k"); !ok {
		t.Error("Expected disk hit to be promoted to memory")
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("a", []byte("1"), 0)
	c.Get("a")
	c.Get("b")

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %d/%d", hits, misses)
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 item, got %d", c.Len())
	}
}

func TestNew(t *testing.T) {
	if New(model.CacheConfig{Enabled: false}) != nil {
		t.Error("Expected nil cache when disabled")
	}
	if _, ok := New(model.CacheConfig{Enabled: true, MemoryTTL: time.Minute}).(*MemoryCache); !ok {
		t.Error("Expected memory cache without a directory")
	}
	if _, ok := New(model.CacheConfig{Enabled: true, Dir: t.TempDir()}).(*LayeredCache); !ok {
		t.Error("Expected layered cache with a directory")
	}
}
