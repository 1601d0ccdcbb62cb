package leodocs

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestTemplateCache_Basic(t *testing.T) {
	cache := NewTemplateCache(CacheConfig{MaxSize: 10})
	pt := &PreparedTemplate{name: "minutes.docx"}

	cache.Set("minutes.docx", pt)
	got, ok := cache.Get("minutes.docx")
	if !ok {
		t.Fatal("Expected cached template")
	}
	if got != pt {
		t.Error("Expected cached template to be the same object")
	}

	if _, ok := cache.Get("other.docx"); ok {
		t.Error("Expected miss for unknown key")
	}
}

func TestTemplateCache_LRUEviction(t *testing.T) {
	cache := NewTemplateCache(CacheConfig{MaxSize: 2})
	cache.Set("a", &PreparedTemplate{name: "a"})
	cache.Set("b", &PreparedTemplate{name: "b"})

	// Touch a so b becomes the least recently used entry.
	cache.Get("a")
	cache.Set("c", &PreparedTemplate{name: "c"})

	if cache.Size() != 2 {
		t.Fatalf("Expected 2 entries, got %d", cache.Size())
	}
	if _, ok := cache.Get("b"); ok {
		t.Error("Expected b to be evicted")
	}
	for _, key := range []string{"a", "c"} {
		if _, ok := cache.Get(key); !ok {
			t.Errorf("Expected %s to stay cached", key)
		}
	}
}

func TestTemplateCache_TTL(t *testing.T) {
	cache := NewTemplateCache(CacheConfig{MaxSize: 10, TTL: time.Minute})
	now := time.Date(2026, time.October, 1, 10, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	cache.Set("minutes.docx", &PreparedTemplate{})
	now = now.Add(30 * time.Second)
	if _, ok := cache.Get("minutes.docx"); !ok {
		t.Fatal("Expected entry before expiry")
	}

	now = now.Add(31 * time.Second)
	if _, ok := cache.Get("minutes.docx"); ok {
		t.Error("Expected entry to expire")
	}
	if cache.Size() != 0 {
		t.Errorf("Expected expired entry to be dropped, size is %d", cache.Size())
	}
}

func TestTemplateCache_Disabled(t *testing.T) {
	cache := NewTemplateCache(CacheConfig{MaxSize: 0})
	cache.Set("a", &PreparedTemplate{})
	if cache.Size() != 0 {
		t.Errorf("Expected disabled cache to stay empty, size is %d", cache.Size())
	}

	loads := 0
	for i := 0; i < 3; i++ {
		_, hit, err := cache.GetOrLoad("a", func() (*PreparedTemplate, error) {
			loads++
			return &PreparedTemplate{}, nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if hit {
			t.Error("Disabled cache reported a hit")
		}
	}
	if loads != 3 {
		t.Errorf("Expected every lookup to load, got %d loads", loads)
	}
}

func TestTemplateCache_RemoveAndClear(t *testing.T) {
	cache := NewTemplateCache(CacheConfig{MaxSize: 10})
	cache.Set("b", &PreparedTemplate{})
	cache.Set("a", &PreparedTemplate{})

	if got := cache.Keys(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Unexpected keys %v", got)
	}
	if !cache.Remove("a") {
		t.Error("Expected Remove to report a present key")
	}
	if cache.Remove("a") {
		t.Error("Expected second Remove to report a missing key")
	}

	cache.Clear()
	if cache.Size() != 0 {
		t.Errorf("Expected empty cache after Clear, size is %d", cache.Size())
	}
	// The cache stays usable after Clear.
	cache.Set("c", &PreparedTemplate{})
	if _, ok := cache.Get("c"); !ok {
		t.Error("Expected entry set after Clear")
	}
}

func TestTemplateCache_GetOrLoad(t *testing.T) {
	cache := NewTemplateCache(CacheConfig{MaxSize: 10})
	pt := &PreparedTemplate{name: "minutes.docx"}

	got, hit, err := cache.GetOrLoad("minutes.docx", func() (*PreparedTemplate, error) { return pt, nil })
	if err != nil || hit || got != pt {
		t.Fatalf("First load: got %p hit=%v err=%v", got, hit, err)
	}
	got, hit, err = cache.GetOrLoad("minutes.docx", func() (*PreparedTemplate, error) {
		t.Fatal("Loader must not run on a hit")
		return nil, nil
	})
	if err != nil || !hit || got != pt {
		t.Fatalf("Second load: got %p hit=%v err=%v", got, hit, err)
	}
}

func TestTemplateCache_GetOrLoadErrorIsNotCached(t *testing.T) {
	cache := NewTemplateCache(CacheConfig{MaxSize: 10})
	boom := errors.New("boom")

	_, _, err := cache.GetOrLoad("bad.docx", func() (*PreparedTemplate, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("Expected loader error, got %v", err)
	}
	if cache.Size() != 0 {
		t.Error("Failed loads must not be cached")
	}
}

func TestTemplateCache_ConcurrentLoadsShareOneCall(t *testing.T) {
	cache := NewTemplateCache(CacheConfig{MaxSize: 10})
	var loads atomic.Int32
	release := make(chan struct{})

	const callers = 16
	results := make([]*PreparedTemplate, callers)
	var started, done sync.WaitGroup
	started.Add(callers)
	done.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer done.Done()
			started.Done()
			pt, _, err := cache.GetOrLoad("minutes.docx", func() (*PreparedTemplate, error) {
				loads.Add(1)
				<-release
				return &PreparedTemplate{name: "minutes.docx"}, nil
			})
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = pt
		}(i)
	}
	started.Wait()
	// Give every caller time to reach the shared load before it returns.
	time.Sleep(50 * time.Millisecond)
	close(release)
	done.Wait()

	if n := loads.Load(); n != 1 {
		t.Errorf("Expected one load, got %d", n)
	}
	for i, pt := range results {
		if pt != results[0] {
			t.Errorf("Caller %d got a different template", i)
		}
	}
}

func TestTemplateCache_ConcurrentAccess(t *testing.T) {
	cache := NewTemplateCache(CacheConfig{MaxSize: 4})
	keys := []string{"a", "b", "c", "d", "e", "f"}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := keys[(i+j)%len(keys)]
				cache.Set(key, &PreparedTemplate{name: key})
				cache.Get(key)
				if j%10 == 0 {
					cache.Remove(key)
				}
			}
		}(i)
	}
	wg.Wait()

	if cache.Size() > 4 {
		t.Errorf("Cache exceeded its size: %d", cache.Size())
	}
}
