// Package pipeline collects output events from the execution engine's feed
// and fans them out to the node's sinks: the in-memory pool, NATS, and the
// archive. It owns deduplication and endpoint failover; it never touches
// event contents.
package pipeline

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-chain/eventcore/internal/config"
	"github.com/meridian-chain/eventcore/pkg/engine"
	"github.com/meridian-chain/eventcore/pkg/event"
	"github.com/meridian-chain/eventcore/pkg/store"
)

// threadFeed tracks the feed state for one execution thread.
type threadFeed struct {
	config  config.ThreadConfig
	source  *engine.WebSocketSource
	nodeIdx int // current node index for failover
}

// Pipeline consumes every configured thread feed concurrently.
type Pipeline struct {
	id         uuid.UUID
	feeds      map[uint8]*threadFeed
	dedupe     DedupeCache
	sinks      []Sink
	retryDelay time.Duration
	mu         sync.Mutex
}

// New builds a pipeline from the thread configuration. Sinks receive each
// collected event in order; a failing sink is logged, not fatal.
func New(cfg *config.Config, dedupe DedupeCache, sinks ...Sink) *Pipeline {
	feeds := make(map[uint8]*threadFeed, len(cfg.Threads))
	for _, tc := range cfg.Threads {
		feeds[tc.Thread] = &threadFeed{config: tc}
	}
	return &Pipeline{
		id:         uuid.New(),
		feeds:      feeds,
		dedupe:     dedupe,
		sinks:      sinks,
		retryDelay: cfg.RetryDelay,
	}
}

// ID identifies this pipeline instance in logs and diagnostics.
func (p *Pipeline) ID() uuid.UUID {
	return p.id
}

// Start runs one collection loop per thread and blocks until ctx is done.
func (p *Pipeline) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	for _, feed := range p.feeds {
		wg.Add(1)
		go func(feed *threadFeed) {
			defer wg.Done()
			p.runFeed(ctx, feed)
		}(feed)
	}
	wg.Wait()
	return ctx.Err()
}

// runFeed keeps one thread's feed alive, rotating through its engine
// endpoints when a connection dies.
func (p *Pipeline) runFeed(ctx context.Context, feed *threadFeed) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		url := feed.config.NodeURLs[feed.nodeIdx]
		source := engine.NewWebSocketSource(url, feed.config.Thread)

		p.mu.Lock()
		feed.source = source
		p.mu.Unlock()

		if err := source.Start(); err != nil {
			log.Printf("pipeline %s: thread %d: connect to %s failed: %v",
				p.id, feed.config.Thread, url, err)
		} else {
			for raw := range source.Out() {
				ev, ok := raw.(*event.OutputEvent)
				if !ok {
					continue
				}
				p.collect(ctx, ev)
			}
		}

		// Connection ended; try the next node after a delay.
		feed.nodeIdx = (feed.nodeIdx + 1) % len(feed.config.NodeURLs)
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.retryDelay):
		}
	}
}

// collect runs one event through dedupe and hands it to every sink.
func (p *Pipeline) collect(ctx context.Context, ev *event.OutputEvent) {
	seen, err := p.dedupe.Seen(ctx, ev.ID)
	if err != nil {
		// Dedupe failure degrades to at-least-once; the store still
		// rejects replays by identity.
		log.Printf("pipeline %s: dedupe lookup for %s failed: %v", p.id, ev.ID, err)
	}
	if seen {
		return
	}

	for _, sink := range p.sinks {
		if err := sink.Write(ctx, ev); err != nil {
			if errors.Is(err, store.ErrDuplicateID) || errors.Is(err, store.ErrDuplicateIndex) {
				log.Printf("pipeline %s: rejected event %s: %v", p.id, ev.ID, err)
				return
			}
			log.Printf("pipeline %s: sink write for %s failed: %v", p.id, ev.ID, err)
		}
	}

	if err := p.dedupe.Mark(ctx, ev.ID); err != nil {
		log.Printf("pipeline %s: dedupe mark for %s failed: %v", p.id, ev.ID, err)
	}
}

// Stop closes every feed source and sink.
func (p *Pipeline) Stop() error {
	p.mu.Lock()
	for _, feed := range p.feeds {
		if feed.source != nil {
			if err := feed.source.Close(); err != nil {
				log.Printf("pipeline %s: closing thread %d source: %v",
					p.id, feed.config.Thread, err)
			}
		}
	}
	p.mu.Unlock()

	for _, sink := range p.sinks {
		if err := sink.Close(); err != nil {
			log.Printf("pipeline %s: closing sink: %v", p.id, err)
		}
	}
	return nil
}
