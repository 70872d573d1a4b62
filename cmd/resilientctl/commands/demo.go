package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	resilient "github.com/krisalay/resilient-client"
	"github.com/krisalay/resilient-client/config"
	"github.com/krisalay/resilient-client/connectivity"
	"github.com/krisalay/resilient-client/metrics"
	"github.com/krisalay/resilient-client/platform"
	"github.com/krisalay/resilient-client/types"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Walk through caching, deduplication and offline replay",
	Long: `demo starts a fake trading backend in-process and drives a client
against it: cache miss and hit, TTL expiry, five concurrent reads sharing one
request, an offline read, queued offline writes and their replay.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runDemo(cmd.Context(), cmd.OutOrStdout(), cfg)
	},
}

// fakeBackend answers reads slowly and records writes.
type fakeBackend struct {
	reads  atomic.Int64
	mu     sync.Mutex
	writes []string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		b.reads.Add(1)
		time.Sleep(200 * time.Millisecond)
		_ = json.NewEncoder(w).Encode(map[string]any{"path": r.URL.Path, "pnl": 10})
		return
	}
	b.mu.Lock()
	b.writes = append(b.writes, r.Method+" "+r.URL.Path)
	b.mu.Unlock()
	w.WriteHeader(http.StatusAccepted)
}

func runDemo(ctx context.Context, out io.Writer, cfg *config.Config) error {
	say := func(format string, args ...any) { fmt.Fprintf(out, format+"\n", args...) }
	section := func(title string) { say("\n==================== %s ====================", title) }

	backend := &fakeBackend{}
	srv := httptest.NewServer(backend)
	defer srv.Close()

	cfg.Remote.BaseURL = srv.URL
	cfg.Cache.TTL = time.Second
	cfg.Store = config.StoreConfig{Kind: "memory"}
	cfg.Logging.Quiet = true

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	if cfg.Metrics.Listen != "" {
		msrv := &http.Server{Addr: cfg.Metrics.Listen, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				say("metrics server: %v", err)
			}
		}()
		defer msrv.Close()
	}

	src := connectivity.NewManual(true)
	c, err := resilient.New(ctx, cfg,
		resilient.WithSource(src),
		resilient.WithMetrics(m),
		resilient.WithNotifier(platform.LogNotifier{Logger: zap.NewExample()}))
	if err != nil {
		return err
	}
	defer c.Close()

	section("SYSTEM BOOT")
	say("BACKEND         : %s", srv.URL)
	say("CACHE TTL       : %s", cfg.Cache.TTL)
	say("STORE           : %s", cfg.Store.Kind)
	say("CONNECTIVITY    : manual (online)")

	c.AddListener(func(online bool) { say("NETWORK → online = %v", online) })

	section("1) CACHE MISS")
	v, err := c.Get(ctx, "/dashboard", 0)
	say("CLIENT → GET /dashboard = %v (err=%v)", v, err)

	section("2) CACHE HIT")
	v, _ = c.Get(ctx, "/dashboard", 0)
	say("CLIENT → GET /dashboard = %v", v)
	say("BACKEND → reads so far = %d", backend.reads.Load())

	section("3) TTL EXPIRATION")
	time.Sleep(cfg.Cache.TTL + 100*time.Millisecond)
	v, _ = c.Get(ctx, "/dashboard", 0)
	say("CLIENT → GET /dashboard after TTL = %v", v)
	say("BACKEND → reads so far = %d", backend.reads.Load())

	section("4) DEDUPLICATION")
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			v, _ := c.Get(ctx, "/bots", 0)
			say("GOROUTINE-%d → GET /bots = %v", id, v)
		}(i)
	}
	wg.Wait()
	say("BACKEND → reads so far = %d", backend.reads.Load())

	section("5) OFFLINE READ")
	src.Set(false)
	_, err = c.Get(ctx, "/strategies", 0)
	say("CLIENT → GET /strategies offline: %v (offline no data = %v)", err, errors.Is(err, types.ErrOfflineNoData))

	section("6) OFFLINE WRITES")
	for _, a := range []types.QueuedAction{
		{Type: "createBot", Endpoint: "/bots", Payload: json.RawMessage(`{"name":"grid"}`), Invalidates: []string{"/bots"}},
		{Type: "startBot", Endpoint: "/bots/1/start"},
	} {
		res, err := c.Write(ctx, a)
		if err != nil {
			return err
		}
		say("CLIENT → %s: %s (position %d)", a.Type, res.Status, res.Position)
	}

	section("7) RECONNECT")
	src.Set(true)
	deadline := time.Now().Add(5 * time.Second)
	for len(c.Pending()) > 0 && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
	}
	backend.mu.Lock()
	say("BACKEND → writes = %v", backend.writes)
	backend.mu.Unlock()
	say("QUEUE → pending = %d", len(c.Pending()))

	section("METRICS")
	say("HITS      : %.0f", testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	say("MISSES    : %.0f", testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
	say("EXPIRED   : %.0f", testutil.ToFloat64(m.CacheRemovals.WithLabelValues("expired")))
	say("SHARED    : %.0f", testutil.ToFloat64(m.SharedCalls))
	say("QUEUED    : %.0f", testutil.ToFloat64(m.Writes.WithLabelValues("queued")))
	say("DELIVERED : %.0f", testutil.ToFloat64(m.Writes.WithLabelValues("delivered")))

	section("SHUTDOWN")
	if err := c.Close(); err != nil {
		return err
	}
	say("SYSTEM → client closed cleanly")
	return nil
}
