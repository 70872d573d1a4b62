package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	resilient "github.com/krisalay/resilient-client"
	"github.com/krisalay/resilient-client/config"
	"github.com/krisalay/resilient-client/connectivity"
	"github.com/krisalay/resilient-client/types"
)

// ================= BENCHMARK =================

func main() {
	ctx := context.Background()

	const (
		shards      = 8
		capacity    = 200000
		preloadKeys = 100000
		goroutines  = 200
		opsPerG     = 5000
	)

	fmt.Println("\n================ READ PIPELINE BENCHMARK =================")
	fmt.Println("CONFIG")
	fmt.Println("---------------------------------")
	fmt.Println("Shards       :", shards)
	fmt.Println("Capacity     :", capacity)
	fmt.Println("Preload Keys :", preloadKeys)
	fmt.Println("Goroutines   :", goroutines)
	fmt.Println("Ops/Goroutine:", opsPerG)
	fmt.Println("---------------------------------")

	cfg := config.Default()
	cfg.Cache.TTL = time.Minute
	cfg.Cache.Shards = shards
	cfg.Cache.MaxEntries = capacity

	c, err := resilient.New(ctx, cfg,
		resilient.WithLogger(zap.NewNop()),
		resilient.WithSource(connectivity.NewManual(true)))
	if err != nil {
		fmt.Println("setup failed:", err)
		return
	}
	defer c.Close()

	// the "backend" answers instantly so the numbers measure the client
	var mu sync.Mutex
	fetches := 0
	fetch := func(key string) types.Fetcher {
		return func(context.Context) (any, error) {
			mu.Lock()
			fetches++
			mu.Unlock()
			return key, nil
		}
	}

	// ---------------- Preload Cache ----------------
	fmt.Println("Preloading cache...")
	for i := 0; i < preloadKeys; i++ {
		key := fmt.Sprintf("key-%d", i)
		_, _ = c.Fetch(ctx, key, 0, fetch(key))
	}
	fmt.Println("Preload complete.")

	// ---------------- Load Test ----------------
	fmt.Println("Running concurrency benchmark...")
	start := time.Now()

	wg := sync.WaitGroup{}
	wg.Add(goroutines)
	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < opsPerG; j++ {
				key := fmt.Sprintf("key-%d", (id*opsPerG+j)%preloadKeys)
				_, _ = c.Fetch(ctx, key, 0, fetch(key))
			}
		}(i)
	}
	wg.Wait()

	duration := time.Since(start)
	totalOps := goroutines * opsPerG

	fmt.Println("\n================ RESULTS =================")
	fmt.Printf("Total Operations : %d\n", totalOps)
	fmt.Printf("Backend Fetches  : %d\n", fetches-preloadKeys)
	fmt.Printf("Total Time       : %v\n", duration)
	fmt.Printf("Throughput       : %.2f ops/sec\n", float64(totalOps)/duration.Seconds())
	fmt.Println("=========================================")
}
