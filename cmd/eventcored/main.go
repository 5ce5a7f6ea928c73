package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/meridian-chain/eventcore/internal/config"
	"github.com/meridian-chain/eventcore/internal/pipeline"
	"github.com/meridian-chain/eventcore/internal/storage"
	"github.com/meridian-chain/eventcore/pkg/store"
	"github.com/meridian-chain/eventcore/pkg/types"
)

func main() {
	// Load configuration (YAML overrides fall back to env)
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Dedupe cache: Redis when configured, in-memory otherwise
	var dedupe pipeline.DedupeCache
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			opt = &redis.Options{
				Addr: cfg.RedisURL,
			}
		}
		redisDedupe := pipeline.NewRedisDedupe(redis.NewClient(opt), cfg.DedupeTTL)
		defer redisDedupe.Close()
		dedupe = redisDedupe
	} else {
		dedupe = pipeline.NewMemoryDedupe(cfg.DedupeTTL)
	}

	// In-memory event pool
	pool := store.New()
	sinks := []pipeline.Sink{pipeline.NewStoreSink(pool)}

	// NATS JetStream sink
	natsSink, err := pipeline.NewNATSSink(cfg.NatsURL, cfg.NatsStream, cfg.NatsSubject)
	if err != nil {
		log.Fatalf("Failed to create NATS sink: %v", err)
	}
	sinks = append(sinks, natsSink)

	// Optional DuckDB archive
	if cfg.ArchivePath != "" {
		archive, err := storage.NewArchive(cfg.ArchivePath)
		if err != nil {
			log.Fatalf("Failed to open archive: %v", err)
		}
		defer archive.Close()
		sinks = append(sinks, pipeline.NewArchiveSink(archive))
	}

	p := pipeline.New(cfg, dedupe, sinks...)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Received shutdown signal")
		cancel()
	}()

	// Periodically prune the pool behind the highest collected period
	go prunePool(ctx, pool, cfg.PruneDepth)

	log.Printf("Starting event pipeline %s...", p.ID())
	if err := p.Start(ctx); err != nil && err != context.Canceled {
		log.Fatalf("Pipeline error: %v", err)
	}

	if err := p.Stop(); err != nil {
		log.Printf("Pipeline stop: %v", err)
	}
	log.Println("Event pipeline stopped")
}

// prunePool trims the pool to the configured depth of periods.
func prunePool(ctx context.Context, pool *store.Store, depth uint64) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var highest uint64
			for _, ev := range pool.Filter(store.Filter{}) {
				if ev.Context.Slot.Period > highest {
					highest = ev.Context.Slot.Period
				}
			}
			if highest <= depth {
				continue
			}
			horizon := types.NewSlot(highest-depth, 0)
			if removed := pool.Prune(horizon); removed > 0 {
				log.Printf("Pruned %d events below %s", removed, horizon)
			}
		}
	}
}
