// Package engine connects to the execution engine's event feed. The engine
// runs the contracts and assigns every output event its identity, slot,
// index, and call stack; this package only ingests what the engine emits.
package engine

import (
	"context"
	"encoding/json"
	"log"

	"github.com/gorilla/websocket"
	"github.com/reugn/go-streams"

	"github.com/meridian-chain/eventcore/pkg/event"
)

// subscribeMethod is the engine's pub/sub entry point for output events.
const subscribeMethod = "sce_subscribe"

// WebSocketSource subscribes to the engine's output-event feed over a
// websocket and emits decoded *event.OutputEvent values. It implements
// streams.Source. One source covers one connection: when the connection
// breaks, Out closes and the caller decides where to reconnect (same node
// or failover).
type WebSocketSource struct {
	url    string
	thread uint8
	conn   *websocket.Conn
	outCh  chan any
	ctx    context.Context
	cancel context.CancelFunc
}

// NewWebSocketSource creates a feed source for one execution thread.
func NewWebSocketSource(url string, thread uint8) *WebSocketSource {
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocketSource{
		url:    url,
		thread: thread,
		outCh:  make(chan any),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Out returns the channel that emits *event.OutputEvent values. It closes
// when the connection ends.
func (s *WebSocketSource) Out() <-chan any {
	return s.outCh
}

// Via implements streams.Source.
func (s *WebSocketSource) Via(flow streams.Flow) streams.Flow {
	go func() {
		for ev := range s.outCh {
			flow.In() <- ev
		}
		close(flow.In())
	}()
	return flow
}

// Close stops the source.
func (s *WebSocketSource) Close() error {
	s.cancel()
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Start dials the engine, subscribes to the thread's output events, and
// begins emitting them in the background.
func (s *WebSocketSource) Start() error {
	conn, _, err := websocket.DefaultDialer.Dial(s.url, nil)
	if err != nil {
		return err
	}

	req := &JSONRPCRequest{
		JSONRPC: "2.0",
		Method:  subscribeMethod,
		Params:  []interface{}{"outputEvents", map[string]interface{}{"thread": s.thread}},
		ID:      1,
	}
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return err
	}
	s.conn = conn
	log.Printf("engine feed thread %d: subscribed at %s", s.thread, s.url)

	go s.readLoop()
	return nil
}

// readLoop decodes subscription frames until the connection breaks or the
// source is closed.
func (s *WebSocketSource) readLoop() {
	defer close(s.outCh)
	defer s.conn.Close()

	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if s.ctx.Err() == nil {
				log.Printf("engine feed thread %d: read failed: %v", s.thread, err)
			}
			return
		}

		ev, err := decodeFrame(message)
		if err != nil {
			log.Printf("engine feed thread %d: dropping frame: %v", s.thread, err)
			continue
		}
		if ev == nil {
			// Subscription ack or keepalive.
			continue
		}

		select {
		case s.outCh <- ev:
		case <-s.ctx.Done():
			return
		}
	}
}

// decodeFrame extracts the output event from one subscription frame. A nil
// event with nil error means the frame carried no event payload.
func decodeFrame(message []byte) (*event.OutputEvent, error) {
	var note feedNotification
	if err := json.Unmarshal(message, &note); err != nil {
		return nil, err
	}
	if len(note.Params.Result) == 0 {
		return nil, nil
	}

	var ev event.OutputEvent
	if err := json.Unmarshal(note.Params.Result, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
