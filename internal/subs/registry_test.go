package subs

import (
	"sync"
	"testing"

	"github.com/rickgao/dexscan-data/internal/model"
	"github.com/rickgao/dexscan-data/internal/stream"
)

// recordingSender captures every outbound frame for assertions.
type recordingSender struct {
	mu     sync.Mutex
	frames []sentFrame
}

type sentFrame struct {
	event string
	data  any
}

func (s *recordingSender) Send(event string, data any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = append(s.frames, sentFrame{event: event, data: data})
}

func (s *recordingSender) sent() []sentFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sentFrame, len(s.frames))
	copy(out, s.frames)
	return out
}

func (s *recordingSender) countEvent(event string) int {
	n := 0
	for _, f := range s.sent() {
		if f.event == event {
			n++
		}
	}
	return n
}

func (s *recordingSender) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frames = nil
}

func key(pair string) model.PairKey {
	return model.PairKey{Pair: pair, Token: pair + "-token", Chain: "ETH"}
}

func TestSubscribeRowSendsBothKinds(t *testing.T) {
	sender := &recordingSender{}
	r := NewRegistry(sender, nil)

	r.SubscribeRow(key("0xabc"))

	if got := sender.countEvent(stream.EventSubscribePair); got != 1 {
		t.Errorf("subscribe-pair frames = %d, want 1", got)
	}
	if got := sender.countEvent(stream.EventSubscribeStats); got != 1 {
		t.Errorf("subscribe-pair-stats frames = %d, want 1", got)
	}
	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
	if !r.Has("0xabc", KindTick) || !r.Has("0xabc", KindStats) {
		t.Error("subscriptions not recorded for both kinds")
	}
}

func TestSubscribeRowIdempotent(t *testing.T) {
	sender := &recordingSender{}
	r := NewRegistry(sender, nil)

	r.SubscribeRow(key("0xabc"))
	r.SubscribeRow(key("0xabc"))
	r.SubscribeRow(key("0xabc"))

	if got := len(sender.sent()); got != 2 {
		t.Errorf("frames sent = %d, want 2 (duplicates are no-ops)", got)
	}
	if r.Count() != 2 {
		t.Errorf("Count() = %d, want 2", r.Count())
	}
}

func TestUnsubscribeRow(t *testing.T) {
	sender := &recordingSender{}
	r := NewRegistry(sender, nil)

	r.SubscribeRow(key("0xabc"))
	sender.reset()

	r.UnsubscribeRow("0xabc")

	if got := sender.countEvent(stream.EventUnsubscribePair); got != 1 {
		t.Errorf("unsubscribe-pair frames = %d, want 1", got)
	}
	if got := sender.countEvent(stream.EventUnsubscribeStats); got != 1 {
		t.Errorf("unsubscribe-pair-stats frames = %d, want 1", got)
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}

	// Absent record: nothing goes out.
	sender.reset()
	r.UnsubscribeRow("0xabc")
	r.UnsubscribeRow("0xnever")
	if got := len(sender.sent()); got != 0 {
		t.Errorf("frames sent for absent records = %d, want 0", got)
	}
}

func TestSetAndClearFilter(t *testing.T) {
	sender := &recordingSender{}
	r := NewRegistry(sender, nil)

	params := model.DefaultScannerParams()
	r.SetFilter(params)

	if got := sender.countEvent(stream.EventScannerFilter); got != 1 {
		t.Errorf("scanner-filter frames = %d, want 1", got)
	}

	r.ClearFilter()
	if got := sender.countEvent(stream.EventUnsubScannerFilter); got != 1 {
		t.Errorf("unsubscribe-scanner-filter frames = %d, want 1", got)
	}

	// Clearing again with no filter set: no frame.
	sender.reset()
	r.ClearFilter()
	if got := len(sender.sent()); got != 0 {
		t.Errorf("frames after second ClearFilter = %d, want 0", got)
	}
}

func TestRestoreAllReplaysFilterAndSubscriptions(t *testing.T) {
	sender := &recordingSender{}
	r := NewRegistry(sender, nil)

	r.SetFilter(model.DefaultScannerParams())
	r.SubscribeRow(key("0xabc"))
	r.SubscribeRow(key("0xdef"))
	sender.reset()

	r.RestoreAll()

	frames := sender.sent()
	if len(frames) != 5 {
		t.Fatalf("frames = %d, want 5 (filter + 2 rows x 2 kinds)", len(frames))
	}
	if frames[0].event != stream.EventScannerFilter {
		t.Errorf("first restored frame = %q, want scanner-filter", frames[0].event)
	}
	if got := sender.countEvent(stream.EventSubscribePair); got != 2 {
		t.Errorf("subscribe-pair frames = %d, want 2", got)
	}
	if got := sender.countEvent(stream.EventSubscribeStats); got != 2 {
		t.Errorf("subscribe-pair-stats frames = %d, want 2", got)
	}

	// RestoreAll must not duplicate the recorded set.
	if r.Count() != 4 {
		t.Errorf("Count() = %d, want 4", r.Count())
	}
}

func TestReconcile(t *testing.T) {
	sender := &recordingSender{}
	r := NewRegistry(sender, nil)

	r.SubscribeRow(key("0xold"))
	r.SubscribeRow(key("0xkeep"))
	sender.reset()

	current := map[string]model.PairKey{
		"0xkeep": key("0xkeep"),
		"0xnew":  key("0xnew"),
	}
	r.Reconcile(current)

	// 0xold swept, 0xnew added, 0xkeep untouched.
	if got := sender.countEvent(stream.EventUnsubscribePair); got != 1 {
		t.Errorf("unsubscribe-pair frames = %d, want 1", got)
	}
	if got := sender.countEvent(stream.EventSubscribePair); got != 1 {
		t.Errorf("subscribe-pair frames = %d, want 1", got)
	}

	if r.Has("0xold", KindTick) || r.Has("0xold", KindStats) {
		t.Error("stale subscription survived reconcile")
	}
	if !r.Has("0xnew", KindTick) || !r.Has("0xkeep", KindStats) {
		t.Error("reconciled set incomplete")
	}
	if r.Count() != 4 {
		t.Errorf("Count() = %d, want 4", r.Count())
	}
}

func TestClear(t *testing.T) {
	sender := &recordingSender{}
	r := NewRegistry(sender, nil)

	r.SetFilter(model.DefaultScannerParams())
	r.SubscribeRow(key("0xabc"))
	r.SubscribeRow(key("0xdef"))
	sender.reset()

	r.Clear()

	if got := sender.countEvent(stream.EventUnsubscribePair); got != 2 {
		t.Errorf("unsubscribe-pair frames = %d, want 2", got)
	}
	if got := sender.countEvent(stream.EventUnsubscribeStats); got != 2 {
		t.Errorf("unsubscribe-pair-stats frames = %d, want 2", got)
	}
	if got := sender.countEvent(stream.EventUnsubScannerFilter); got != 1 {
		t.Errorf("unsubscribe-scanner-filter frames = %d, want 1", got)
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
}
