package cache

import (
	"fmt"
	"testing"
	"time"

	"github.com/krisalay/resilient-client/eviction"
)

func newBenchmarkCache(b *testing.B) *ResponseCache {
	c, err := New(Options{
		TTL:        time.Minute,
		Shards:     8,
		MaxEntries: 100000,
		Eviction:   eviction.LRU,
	})
	if err != nil {
		b.Fatal(err)
	}
	return c
}

func BenchmarkGetHit(b *testing.B) {
	c := newBenchmarkCache(b)
	c.Set("key", "value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("key")
	}
}

func BenchmarkGetMiss(b *testing.B) {
	c := newBenchmarkCache(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get("missing")
	}
}

func BenchmarkParallelGetHit(b *testing.B) {
	c := newBenchmarkCache(b)
	for i := 0; i < 1000; i++ {
		c.Set(fmt.Sprintf("k%d", i), i)
	}

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			c.Get(fmt.Sprintf("k%d", i%1000))
			i++
		}
	})
}

func BenchmarkSet(b *testing.B) {
	c := newBenchmarkCache(b)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set(fmt.Sprintf("k%d", i%1000), i)
	}
}
