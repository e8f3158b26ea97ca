package cache_test

import (
	"fmt"
	"image"
	"sync"
	"testing"

	"github.com/ibooker/imgloader/internal/cache"
)

// newImage returns an NRGBA image occupying exactly size*4 bytes
func newImage(size int) *image.NRGBA {
	return image.NewNRGBA(image.Rect(0, 0, size, 1))
}

func TestImages(t *testing.T) {
	t.Run("get item", func(t *testing.T) {
		c := cache.NewImages(1000)
		img := newImage(10)

		if !c.Put("foo", img) {
			t.Fatal("item not stored")
		}

		got, ok := c.Get("foo")
		if !ok {
			t.Fatal("item not found")
		}

		if got != img {
			t.Fatal("wrong item")
		}

		if c.Size() != 40 || c.Len() != 1 {
			t.Fatalf("wrong accounting: %d bytes, %d entries", c.Size(), c.Len())
		}
	})

	t.Run("get nonexistant item", func(t *testing.T) {
		c := cache.NewImages(1000)
		if _, ok := c.Get("notfound"); ok {
			t.Fatal("found item that was never stored")
		}
	})

	t.Run("first writer wins", func(t *testing.T) {
		c := cache.NewImages(1000)
		first, second := newImage(10), newImage(20)

		c.Put("foo", first)
		if c.Put("foo", second) {
			t.Error("second put reported success")
		}

		got, _ := c.Get("foo")
		if got != first {
			t.Error("entry was overwritten")
		}

		if c.Size() != 40 {
			t.Errorf("wrong size %d", c.Size())
		}
	})

	t.Run("evicts least recently used", func(t *testing.T) {
		var evicted []string
		c := cache.NewImages(120, cache.WithEvictCallback(func(key string, size int64) {
			evicted = append(evicted, key)
		}))

		c.Put("a", newImage(10))
		c.Put("b", newImage(10))
		c.Put("c", newImage(10))

		// Touch a so b becomes the oldest
		c.Get("a")

		c.Put("d", newImage(10))

		if c.Contains("b") {
			t.Error("least recently used entry was kept")
		}

		for _, key := range []string{"a", "c", "d"} {
			if !c.Contains(key) {
				t.Errorf("%s was evicted", key)
			}
		}

		if len(evicted) != 1 || evicted[0] != "b" {
			t.Errorf("wrong evictions %v", evicted)
		}
	})

	t.Run("evicts until the new entry fits", func(t *testing.T) {
		c := cache.NewImages(100)
		c.Put("a", newImage(10))
		c.Put("b", newImage(10))
		c.Put("big", newImage(20))

		if c.Len() != 1 || !c.Contains("big") {
			t.Errorf("wrong entries after big insert: %d", c.Len())
		}

		if c.Size() > c.Capacity() {
			t.Errorf("size %d exceeds capacity %d", c.Size(), c.Capacity())
		}
	})

	t.Run("rejects entries larger than the capacity", func(t *testing.T) {
		c := cache.NewImages(100)
		c.Put("a", newImage(10))

		if c.Put("huge", newImage(100)) {
			t.Error("oversized entry stored")
		}

		if !c.Contains("a") {
			t.Error("existing entry evicted for an oversized insert")
		}
	})

	t.Run("purge", func(t *testing.T) {
		var evicted int
		c := cache.NewImages(100, cache.WithEvictCallback(func(key string, size int64) {
			evicted++
		}))
		c.Put("a", newImage(10))
		c.Put("b", newImage(10))
		c.Purge()

		if c.Len() != 0 || c.Size() != 0 {
			t.Error("purge left entries behind")
		}

		if evicted != 2 {
			t.Errorf("expected 2 evictions, got %d", evicted)
		}
	})
}

func TestImagesConcurrentPuts(t *testing.T) {
	c := cache.NewImages(4000)

	var wg sync.WaitGroup
	for worker := 0; worker < 16; worker++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("%d", (worker*7+i)%150)
				c.Put(key, newImage(1+i%50))
				c.Get(fmt.Sprintf("%d", i%150))

				if size := c.Size(); size > c.Capacity() {
					t.Errorf("size %d exceeds capacity %d", size, c.Capacity())
					return
				}
			}
		}(worker)
	}
	wg.Wait()

	if c.Size() > c.Capacity() {
		t.Fatalf("size %d exceeds capacity %d", c.Size(), c.Capacity())
	}
}

func TestImagesConcurrentSameKey(t *testing.T) {
	c := cache.NewImages(1 << 20)

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		stored int
	)

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Put("same", newImage(10)) {
				mu.Lock()
				stored++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if stored != 1 {
		t.Errorf("%d puts succeeded for one key", stored)
	}

	if c.Len() != 1 || c.Size() != 40 {
		t.Errorf("wrong accounting: %d entries, %d bytes", c.Len(), c.Size())
	}
}

func TestSizeOf(t *testing.T) {
	tests := []struct {
		Name     string
		Image    image.Image
		Expected int64
	}{
		{"nrgba", image.NewNRGBA(image.Rect(0, 0, 10, 10)), 400},
		{"rgba64", image.NewRGBA64(image.Rect(0, 0, 10, 10)), 800},
		{"gray", image.NewGray(image.Rect(0, 0, 10, 10)), 100},
		{"ycbcr 444", image.NewYCbCr(image.Rect(0, 0, 10, 10), image.YCbCrSubsampleRatio444), 300},
	}

	for _, test := range tests {
		if size := cache.SizeOf(test.Image); size != test.Expected {
			t.Errorf("%s: wrong size %d", test.Name, size)
		}
	}
}

func TestCapacity(t *testing.T) {
	tests := []struct {
		Budget   int64
		Fraction float64
		Expected int64
	}{
		{1000, 0.25, 250},
		{1000, 1, 1000},
		{1000, 2, 1000},
		{1000, 0, 0},
		{0, 0.25, 0},
	}

	for _, test := range tests {
		if c := cache.Capacity(test.Budget, test.Fraction); c != test.Expected {
			t.Errorf("%d*%f: wrong capacity %d", test.Budget, test.Fraction, c)
		}
	}

	if cache.MemoryBudget() <= 0 {
		t.Error("memory budget must be positive")
	}
}
