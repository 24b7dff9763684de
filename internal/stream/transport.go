package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/dexscan-data/internal/config"
	"github.com/rickgao/dexscan-data/internal/model"
)

// DialFunc constructs and connects a Client. Injected so tests can run the
// transport state machine without real sockets.
type DialFunc func(ctx context.Context) (Client, error)

// WebSocketDialer returns a DialFunc backed by a real WebSocket client.
func WebSocketDialer(cfg ClientConfig, logger *slog.Logger) DialFunc {
	return func(ctx context.Context) (Client, error) {
		cl := NewClient(cfg, logger)
		if err := cl.Connect(ctx); err != nil {
			return nil, err
		}
		return cl, nil
	}
}

// Handlers receive decoded inbound events, one per event tag. Nil handlers
// drop their events.
type Handlers struct {
	ScannerPairs func(model.ScannerPairsEvent)
	Tick         func(model.TickEvent)
	PairStats    func(model.PairStatsEvent)
	Prices       func(model.PricesEvent)
}

// Transport owns one socket connection to the scanner feed and implements
// automatic reconnection with a countdown, restoring subscriptions after a
// short settle delay once the connection is open again.
//
// A manual Disconnect (clean close, code 1000) never reconnects; any other
// close or socket error starts the reconnect countdown. Only one countdown,
// one dial-retry timer, and one settle timer may be active at a time: every
// state transition bumps a generation counter and timers from older
// generations abandon themselves.
type Transport struct {
	cfg    config.StreamConfig
	dial   DialFunc
	logger *slog.Logger

	// tickEvery is the countdown tick granularity. One second in
	// production; tests shorten it.
	tickEvery time.Duration

	mu            sync.Mutex
	ctx           context.Context
	state         State
	establishing  bool
	manual        bool
	client        Client
	session       uuid.UUID
	countdown     int
	gen           int
	handlers      Handlers
	restore       func()
	onReconnected func()
	stats         Stats
}

// NewTransport creates a transport. Connect must be called to open the feed.
func NewTransport(cfg config.StreamConfig, dial DialFunc, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		cfg:       cfg,
		dial:      dial,
		logger:    logger,
		tickEvery: time.Second,
		state:     StateClosed,
	}
}

// SetHandlers registers the inbound event handlers. Must be called before
// Connect.
func (t *Transport) SetHandlers(h Handlers) {
	t.mu.Lock()
	t.handlers = h
	t.mu.Unlock()
}

// OnRestore registers the queued restore-subscriptions callback, flushed
// after the settle delay on every successful (re)connection.
func (t *Transport) OnRestore(f func()) {
	t.mu.Lock()
	t.restore = f
	t.mu.Unlock()
}

// OnReconnected registers the hook the owner uses to re-issue its top-level
// scanner subscription after a (re)connection.
func (t *Transport) OnReconnected(f func()) {
	t.mu.Lock()
	t.onReconnected = f
	t.mu.Unlock()
}

// Connect opens the connection, replacing any prior one. The context governs
// all reconnect attempts: cancellation stops the transport's timers.
func (t *Transport) Connect(ctx context.Context) {
	t.mu.Lock()
	t.ctx = ctx
	t.manual = false
	gen := t.bumpGenLocked()
	t.state = StateConnecting
	t.establishing = true
	old := t.client
	t.client = nil
	t.mu.Unlock()

	if old != nil {
		old.Close()
	}
	go t.establish(ctx, gen)
}

// Disconnect performs a clean close (code 1000) and prevents any subsequent
// auto-reconnect. All timers are canceled.
func (t *Transport) Disconnect() {
	t.mu.Lock()
	t.manual = true
	t.bumpGenLocked()
	t.state = StateClosed
	t.establishing = false
	t.countdown = 0
	cl := t.client
	t.client = nil
	t.mu.Unlock()

	if cl != nil {
		cl.Close()
	}
	t.logger.Info("stream disconnected")
}

// Send is a fire-and-forget enqueue. If the transport is not open the frame
// is dropped with a warning; callers get no failure signal by design.
func (t *Transport) Send(event string, data any) {
	t.mu.Lock()
	cl := t.client
	open := t.state == StateOpen
	t.mu.Unlock()

	if !open || cl == nil {
		t.logger.Warn("dropping outbound frame, transport not open", "event", event)
		return
	}

	payload, err := json.Marshal(Frame{Event: event, Data: data})
	if err != nil {
		t.logger.Warn("failed to encode outbound frame", "event", event, "error", err)
		return
	}
	if err := cl.Send(payload); err != nil {
		t.logger.Warn("send failed", "event", event, "error", err)
	}
}

// Status returns a snapshot for the UI layer.
func (t *Transport) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Status{
		State:        t.state,
		Establishing: t.establishing,
		Countdown:    t.countdown,
		CleanClose:   t.manual,
	}
}

// Stats returns frame-level counters.
func (t *Transport) Stats() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stats
}

// bumpGenLocked invalidates all outstanding timers and read loops.
// Caller must hold t.mu.
func (t *Transport) bumpGenLocked() int {
	t.gen++
	return t.gen
}

// establish dials a new connection for the given generation.
func (t *Transport) establish(ctx context.Context, gen int) {
	cl, err := t.dial(ctx)

	t.mu.Lock()
	if gen != t.gen || t.manual {
		t.mu.Unlock()
		if err == nil {
			cl.Close()
		}
		return
	}

	if err != nil {
		// Connection construction failed: retry after a fixed backoff
		// rather than failing permanently.
		t.logger.Warn("connection construction failed, retrying",
			"error", err,
			"retry_in", t.cfg.DialRetryDelay,
		)
		t.mu.Unlock()

		go func() {
			select {
			case <-ctx.Done():
				return
			case <-time.After(t.cfg.DialRetryDelay):
			}
			t.mu.Lock()
			live := gen == t.gen && !t.manual
			t.mu.Unlock()
			if live {
				t.establish(ctx, gen)
			}
		}()
		return
	}

	t.client = cl
	t.session = uuid.New()
	t.state = StateOpen
	t.establishing = false
	t.countdown = 0
	session := t.session
	t.mu.Unlock()

	t.logger.Info("stream connected", "session", session)

	go t.readLoop(ctx, cl, gen)
	go t.settle(ctx, gen)
}

// settle waits the settle delay (letting the server finish accepting the
// connection), then flushes the restore callback and the onReconnected hook.
func (t *Transport) settle(ctx context.Context, gen int) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(t.cfg.SettleDelay):
	}

	t.mu.Lock()
	live := gen == t.gen && t.state == StateOpen
	restore := t.restore
	hook := t.onReconnected
	t.mu.Unlock()

	if !live {
		return
	}
	if restore != nil {
		restore()
	}
	if hook != nil {
		hook()
	}
}

// readLoop consumes frames and errors for one connection generation.
func (t *Transport) readLoop(ctx context.Context, cl Client, gen int) {
	for {
		select {
		case <-ctx.Done():
			return

		case data, ok := <-cl.Messages():
			if !ok {
				t.handleClosed(gen, websocket.CloseAbnormalClosure)
				return
			}
			t.dispatch(data)

		case err := <-cl.Errors():
			code := websocket.CloseAbnormalClosure
			if ce, ok := err.(*websocket.CloseError); ok {
				code = ce.Code
			}
			t.handleClosed(gen, code)
			return
		}
	}
}

// handleClosed runs the close transition: clean closes stay closed, any
// other code starts the reconnect countdown.
func (t *Transport) handleClosed(gen int, code int) {
	t.mu.Lock()
	if gen != t.gen || t.manual {
		t.mu.Unlock()
		return
	}

	t.state = StateClosed
	cl := t.client
	t.client = nil

	if code == websocket.CloseNormalClosure {
		t.mu.Unlock()
		if cl != nil {
			cl.Close()
		}
		t.logger.Info("stream closed cleanly, not reconnecting", "code", code)
		return
	}

	secs := int(t.cfg.ReconnectDelay / time.Second)
	if secs < 1 {
		secs = 1
	}
	t.countdown = secs
	t.stats.Reconnects++
	ctx := t.ctx
	newGen := t.bumpGenLocked()
	t.mu.Unlock()

	// The replaced client may still hold a live socket (a stale-heartbeat
	// close is synthesized while the connection is open); close it so its
	// read loop unblocks.
	if cl != nil {
		cl.Close()
	}

	t.logger.Warn("stream closed uncleanly, reconnecting",
		"code", code,
		"countdown_seconds", secs,
	)

	go t.countdownLoop(ctx, newGen)
}

// countdownLoop surfaces the reconnect countdown tick-by-tick, then dials.
func (t *Transport) countdownLoop(ctx context.Context, gen int) {
	ticker := time.NewTicker(t.tickEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.mu.Lock()
			if gen != t.gen || t.manual {
				t.mu.Unlock()
				return
			}
			t.countdown--
			remaining := t.countdown
			if remaining <= 0 {
				t.countdown = 0
				t.state = StateConnecting
				t.establishing = true
				t.mu.Unlock()
				t.establish(ctx, gen)
				return
			}
			t.mu.Unlock()
			t.logger.Debug("reconnecting", "in_seconds", remaining)
		}
	}
}

// dispatch decodes one inbound frame and routes it by event tag. A frame
// that fails to parse is logged and dropped; it never crashes the transport.
func (t *Transport) dispatch(data []byte) {
	t.mu.Lock()
	t.stats.FramesReceived++
	h := t.handlers
	t.mu.Unlock()

	var f inboundFrame
	if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
		t.noteParseError("frame", err)
		return
	}

	switch f.Event {
	case EventScannerPairs:
		var ev model.ScannerPairsEvent
		if err := json.Unmarshal(f.Data, &ev); err != nil {
			t.noteParseError(f.Event, err)
			return
		}
		if h.ScannerPairs != nil {
			h.ScannerPairs(ev)
		}

	case EventTick:
		var ev model.TickEvent
		if err := json.Unmarshal(f.Data, &ev); err != nil {
			t.noteParseError(f.Event, err)
			return
		}
		if h.Tick != nil {
			h.Tick(ev)
		}

	case EventPairStats:
		var ev model.PairStatsEvent
		if err := json.Unmarshal(f.Data, &ev); err != nil {
			t.noteParseError(f.Event, err)
			return
		}
		if h.PairStats != nil {
			h.PairStats(ev)
		}

	case EventPrices:
		var ev model.PricesEvent
		if err := json.Unmarshal(f.Data, &ev); err != nil {
			t.noteParseError(f.Event, err)
			return
		}
		if h.Prices != nil {
			h.Prices(ev)
		}

	default:
		t.mu.Lock()
		t.stats.UnknownEvents++
		t.mu.Unlock()
		t.logger.Debug("dropping unrecognized event", "event", f.Event)
		return
	}

	t.mu.Lock()
	t.stats.FramesDispatched++
	t.mu.Unlock()
}

func (t *Transport) noteParseError(what string, err error) {
	t.mu.Lock()
	t.stats.ParseErrors++
	t.mu.Unlock()
	t.logger.Warn("dropping unparseable frame", "event", what, "error", err)
}
