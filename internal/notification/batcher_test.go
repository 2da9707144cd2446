package notification

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/smukkama/weather-monitor/internal/database"
	"github.com/smukkama/weather-monitor/internal/protocol"
)

type fakeSource struct {
	msgs chan kafka.Message

	mu        sync.Mutex
	committed []kafka.Message
}

func (f *fakeSource) Consume(ctx context.Context) (kafka.Message, error) {
	select {
	case msg := <-f.msgs:
		return msg, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (f *fakeSource) Commit(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeSource) committedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

type recordingDispatcher struct {
	mu      sync.Mutex
	batches [][]Request
}

func (r *recordingDispatcher) DispatchBatch(ctx context.Context, reqs []Request) []Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, reqs)
	out := make([]Outcome, len(reqs))
	for i, req := range reqs {
		out[i] = Outcome{Request: req}
	}
	return out
}

func (r *recordingDispatcher) snapshot() [][]Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]Request(nil), r.batches...)
}

func eventMessage(t *testing.T, offset int64, alert *database.Alert) kafka.Message {
	t.Helper()
	data, err := protocol.EncodeAlertEvent(protocol.NewAlertEvent(alert))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return kafka.Message{Offset: offset, Value: data}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestBatcher_FlushOnSize(t *testing.T) {
	source := &fakeSource{msgs: make(chan kafka.Message, 10)}
	dispatcher := &recordingDispatcher{}
	recipients := Recipients{Emails: []string{"ops@example.com"}, Phones: []string{"+15551234567"}}

	b := NewBatcher(source, dispatcher, recipients, 2, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	source.msgs <- eventMessage(t, 1, &database.Alert{ID: 1, AlertType: "temperature", City: "Dubai", Message: "hot"})
	source.msgs <- eventMessage(t, 2, &database.Alert{ID: 2, AlertType: "aqi", City: "Delhi", Message: "smog"})

	waitFor(t, func() bool { return source.committedCount() == 2 })

	batches := dispatcher.snapshot()
	if len(batches) != 1 {
		t.Fatalf("Expected 1 batch, got %d", len(batches))
	}
	reqs := batches[0]
	if len(reqs) != 4 {
		t.Fatalf("Expected 4 requests (2 alerts x 2 recipients), got %d", len(reqs))
	}
	if reqs[0].Channel != ChannelEmail || reqs[0].Subject != "Weather Alert: temperature in Dubai" || reqs[0].Message != "hot" {
		t.Errorf("Unexpected email request: %+v", reqs[0])
	}
	if reqs[1].Channel != ChannelSMS || reqs[1].Recipient != "+15551234567" {
		t.Errorf("Unexpected sms request: %+v", reqs[1])
	}

	cancel()
	<-done
}

func TestBatcher_FlushOnIntervalAndCommitsBadMessages(t *testing.T) {
	source := &fakeSource{msgs: make(chan kafka.Message, 10)}
	dispatcher := &recordingDispatcher{}

	b := NewBatcher(source, dispatcher, Recipients{Emails: []string{"ops@example.com"}}, 100, 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	source.msgs <- kafka.Message{Offset: 1, Value: []byte("garbage")}
	source.msgs <- eventMessage(t, 2, &database.Alert{ID: 3, AlertType: "humidity", City: "Lagos", Message: "muggy"})

	waitFor(t, func() bool { return source.committedCount() == 2 })

	total := 0
	for _, batch := range dispatcher.snapshot() {
		total += len(batch)
	}
	if total != 1 {
		t.Errorf("Expected 1 request dispatched, got %d", total)
	}
}

func TestBatcher_FlushesPendingOnShutdown(t *testing.T) {
	source := &fakeSource{msgs: make(chan kafka.Message, 10)}
	dispatcher := &recordingDispatcher{}

	b := NewBatcher(source, dispatcher, Recipients{Phones: []string{"+1"}}, 100, time.Hour, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	source.msgs <- eventMessage(t, 1, &database.Alert{ID: 4, AlertType: "aqi", City: "Beijing", Message: "haze"})
	waitFor(t, func() bool { return len(source.msgs) == 0 })
	time.Sleep(20 * time.Millisecond)

	cancel()
	<-done

	if source.committedCount() != 1 {
		t.Errorf("Expected pending message committed on shutdown, got %d", source.committedCount())
	}
	if len(dispatcher.snapshot()) != 1 {
		t.Error("Expected pending batch dispatched on shutdown")
	}
}
