package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFanout(t *testing.T) {
	var a, b Recorder
	f := Fanout{&a, nil, &b}

	f.Emit(Event{Type: CheckedIn, Name: "Alice"})

	assert.Len(t, a.Events(), 1)
	assert.Len(t, b.Events(), 1)
	assert.Equal(t, "Alice", b.Events()[0].Name)
}

func TestRecorder_OfType(t *testing.T) {
	var r Recorder
	r.Emit(Event{Type: Status})
	r.Emit(Event{Type: RoomCleared})
	r.Emit(Event{Type: Status})

	assert.Len(t, r.OfType(Status), 2)
	assert.Len(t, r.OfType(RoomCleared), 1)
	assert.Empty(t, r.OfType(CheckedOut))
}

func TestBroadcaster(t *testing.T) {
	b := NewBroadcaster()
	ch1 := b.AddListener()
	ch2 := b.AddListener()
	require.Equal(t, 2, b.ListenerCount())

	b.Emit(Event{Type: EntryObserved, IdentityID: "u1"})

	assert.Equal(t, "u1", (<-ch1).IdentityID)
	assert.Equal(t, "u1", (<-ch2).IdentityID)

	b.RemoveListener(ch1)
	assert.Equal(t, 1, b.ListenerCount())
	_, open := <-ch1
	assert.False(t, open, "removed listener is closed")
}

func TestBroadcaster_FullBufferDoesNotBlock(t *testing.T) {
	b := NewBroadcaster()
	ch := b.AddListener()
	defer b.RemoveListener(ch)

	done := make(chan struct{})
	go func() {
		for range cap(ch) + 10 {
			b.Emit(Event{Type: Status})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full listener")
	}
	assert.Len(t, ch, cap(ch))
}

func TestLogSink(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))
	s := NewLogSink(logger)

	s.Emit(Event{Type: AttendanceFailed, IdentityID: "u1", Name: "Alice", Message: "check-in failed"})
	s.Emit(Event{Type: Status, Message: "hidden at info level"})

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	assert.Equal(t, "ERROR", rec["level"])
	assert.Equal(t, "check-in failed", rec["msg"])
	assert.Equal(t, "attendance_failed", rec["event"])
	assert.Equal(t, "u1", rec["identity"])
	assert.Equal(t, "monitor", rec["component"])
}

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	connected bool
	err       error
	msgs      []published
}

func (p *fakePublisher) IsConnected() bool { return p.connected }

func (p *fakePublisher) Publish(topic string, _ byte, _ bool, payload interface{}) mqtt.Token {
	p.msgs = append(p.msgs, published{topic: topic, payload: payload.([]byte)})
	return &fakeToken{err: p.err}
}

func TestMQTTSink(t *testing.T) {
	pub := &fakePublisher{connected: true}
	s := NewMQTTSink(pub, "gatewatch/", slog.New(slog.DiscardHandler))

	s.Emit(Event{Type: CheckedIn, IdentityID: "u1", Name: "Alice"})
	s.Emit(Event{Type: Status, Message: "1 face"})

	require.Len(t, pub.msgs, 1, "status events are not published")
	assert.Equal(t, "gatewatch/checked_in", pub.msgs[0].topic)

	var e Event
	require.NoError(t, json.Unmarshal(pub.msgs[0].payload, &e))
	assert.Equal(t, CheckedIn, e.Type)
	assert.Equal(t, "Alice", e.Name)
}

func TestMQTTSink_DisconnectedOrFailing(t *testing.T) {
	pub := &fakePublisher{connected: false}
	s := NewMQTTSink(pub, "gatewatch", slog.New(slog.DiscardHandler))
	s.Emit(Event{Type: RoomCleared})
	assert.Empty(t, pub.msgs)

	pub.connected = true
	pub.err = errors.New("broker gone")
	assert.NotPanics(t, func() { s.Emit(Event{Type: RoomCleared}) })
	assert.Len(t, pub.msgs, 1)
}
