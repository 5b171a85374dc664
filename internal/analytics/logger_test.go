package analytics

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/AaronLay10/AdventureEngine/internal/bus"
	"github.com/AaronLay10/AdventureEngine/internal/step"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu      sync.Mutex
	records []Record
	err     error
}

func (m *memorySink) Publish(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return m.err
}

func (m *memorySink) all() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}

func TestStepShownAndFinal(t *testing.T) {
	b := bus.New()
	sink := &memorySink{}
	l := NewLogger(b, sink)

	b.Publish(bus.StepChangedEvent(step.State{Name: "first", HasNextStep: true}))
	b.Publish(bus.StepChangedEvent(step.State{Name: "end", CanStartOver: true}))
	l.Close()

	assert.Equal(t, []Record{
		{EventType: StepShown, Step: "first"},
		{EventType: StepShown, Step: "end"},
		{EventType: FinalStepShown, Step: "end"},
	}, sink.all())
}

func TestChoiceAndIntents(t *testing.T) {
	b := bus.New()
	sink := &memorySink{}
	l := NewLogger(b, sink)

	b.Publish(bus.StepChangedEvent(step.State{Name: "step2", HasChoices: true}))
	b.Publish(bus.ChoiceSelectedEvent("kill", "step2"))
	b.Publish(bus.Intent(bus.RequestNext))
	b.Publish(bus.Intent(bus.RequestPrevious))
	b.Publish(bus.Intent(bus.RequestStartOver))
	l.Close()

	assert.Equal(t, []Record{
		{EventType: StepShown, Step: "step2"},
		{EventType: ChoiceSelected, Step: "step2", Choice: "kill"},
		{EventType: WentForward, Step: "step2"},
		{EventType: WentBackward, Step: "step2"},
		{EventType: StartedOver, Step: "step2"},
	}, sink.all())
}

func TestFetchFailedNotReported(t *testing.T) {
	b := bus.New()
	sink := &memorySink{}
	l := NewLogger(b, sink)

	b.Publish(bus.FetchFailedEvent(step.NewServerError(step.OpFetchNext, "boom")))
	l.Close()

	assert.Empty(t, sink.all())
}

func TestSinkErrorsAreSwallowed(t *testing.T) {
	b := bus.New()
	sink := &memorySink{err: errors.New("sink down")}
	l := NewLogger(b, sink)

	b.Publish(bus.Intent(bus.RequestNext))
	b.Publish(bus.Intent(bus.RequestNext))
	l.Close()

	assert.Len(t, sink.all(), 2, "delivery continues after a failure")
}

type blockingSink struct {
	release chan struct{}
}

func (s *blockingSink) Publish(context.Context, Record) error {
	<-s.release
	return nil
}

func TestFullQueueDrops(t *testing.T) {
	b := bus.New()
	sink := &blockingSink{release: make(chan struct{})}
	l := NewLogger(b, sink)

	for i := 0; i < queueSize*2+1; i++ {
		b.Publish(bus.Intent(bus.RequestNext))
	}
	close(sink.release)
	l.Close()

	assert.Greater(t, l.Dropped(), int64(0))
}

func TestCloseIsIdempotent(t *testing.T) {
	b := bus.New()
	l := NewLogger(b, Discard)
	l.Close()
	l.Close()

	b.Publish(bus.Intent(bus.RequestNext))
}

func TestFanoutJoinsErrors(t *testing.T) {
	ok := &memorySink{}
	bad := &memorySink{err: errors.New("bad")}

	err := Fanout{ok, bad}.Publish(context.Background(), Record{EventType: WentForward})
	require.Error(t, err)
	assert.Len(t, ok.all(), 1)
	assert.Len(t, bad.all(), 1)
}

func TestJSONLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONLines(&buf)

	require.NoError(t, sink.Publish(context.Background(), Record{EventType: ChoiceSelected, Step: "step2", Choice: "leave"}))

	assert.Equal(t, `{"event_type":"adventure.choice-selected","step":"step2","choice":"leave"}`, strings.TrimSpace(buf.String()))
}

func TestCloseGivesUpOnHungSink(t *testing.T) {
	var calls sync.WaitGroup
	calls.Add(1)
	var once sync.Once
	hung := SinkFunc(func(ctx context.Context, r Record) error {
		once.Do(calls.Done)
		<-ctx.Done()
		return ctx.Err()
	})

	b := bus.New()
	l := NewLogger(b, hung)
	l.drain = 50 * time.Millisecond

	b.Publish(bus.StepChangedEvent(step.State{Name: "first", HasNextStep: true}))
	for i := 0; i < 10; i++ {
		b.Publish(bus.Intent(bus.RequestNext))
	}
	calls.Wait()

	start := time.Now()
	l.Close()
	assert.Less(t, time.Since(start), 2*time.Second, "close must not wait on every record")
}
