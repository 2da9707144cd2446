package relay

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smukkama/weather-monitor/internal/connection"
)

type sink struct {
	mu   sync.Mutex
	got  []string
	fail bool
}

func (s *sink) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("client gone")
	}
	s.got = append(s.got, string(payload))
	return nil
}

func (s *sink) Close() error { return nil }

func (s *sink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.got...)
}

type panicBroadcaster struct {
	calls int
	seen  chan struct{}
}

func (p *panicBroadcaster) Broadcast(city string, payload []byte) int {
	p.calls++
	p.seen <- struct{}{}
	if p.calls == 1 {
		panic("broken client")
	}
	return 1
}

func TestRelay_ForwardsToAllClients(t *testing.T) {
	registry := connection.NewManager(10)
	a, b := &sink{}, &sink{}
	dead := &sink{fail: true}
	registry.Register("a", "", "", a)
	registry.Register("b", "", "", b)
	registry.Register("dead", "", "", dead)

	messages := make(chan []byte, 4)
	payload := `{"id":1,"type":"temperature","message":"High temperature alert: 50.0°C in Paris","city":"Paris","timestamp":"2024-07-01T12:00:00Z"}`
	messages <- []byte(payload)
	messages <- []byte(`not json`)
	close(messages)

	New(registry, nil).Run(context.Background(), messages)

	for name, s := range map[string]*sink{"a": a, "b": b} {
		got := s.messages()
		if len(got) != 1 || got[0] != payload {
			t.Errorf("client %s: expected payload forwarded unchanged, got %v", name, got)
		}
	}
	if registry.Count() != 2 {
		t.Errorf("Expected failing client removed, got %d clients", registry.Count())
	}
}

func TestRelay_SurvivesPanicsAndStopsOnCancel(t *testing.T) {
	pb := &panicBroadcaster{seen: make(chan struct{}, 2)}
	messages := make(chan []byte)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		New(pb, nil).Run(ctx, messages)
		close(done)
	}()

	msg := []byte(`{"id":2,"type":"aqi","message":"m","city":"Delhi","timestamp":"2024-07-01T12:00:00Z"}`)
	messages <- msg
	messages <- msg
	<-pb.seen
	<-pb.seen

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop after cancel")
	}

	if pb.calls != 2 {
		t.Errorf("Expected relay to keep going after a panic, got %d calls", pb.calls)
	}
}
