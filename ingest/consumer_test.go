package ingest

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/targodan/UberSpatchBoard/data"
	"github.com/targodan/UberSpatchBoard/message"
	"github.com/targodan/UberSpatchBoard/parse"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// countingHandler records the jump counts of every call event, which
// is enough to observe ordering through the pipeline.
type countingHandler struct {
	mu    sync.Mutex
	jumps []int
}

func (h *countingHandler) HandleNewCase(*data.Case)                       {}
func (h *countingHandler) HandleCommand(*parse.Command)                   {}
func (h *countingHandler) HandleReport(string, data.Report, string)       {}
func (h *countingHandler) HandleCall(rat *data.Rat, caseIdentifier string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jumps = append(h.jumps, rat.Jumps())
}

func (h *countingHandler) Jumps() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.jumps...)
}

// stubSource emits a fixed list of messages and then waits for Stop.
type stubSource struct {
	name     string
	msgs     []*message.Message
	stop     chan struct{}
	stopOnce sync.Once
}

func newStubSource(name string, msgs ...*message.Message) *stubSource {
	return &stubSource{name: name, msgs: msgs, stop: make(chan struct{})}
}

func (s *stubSource) Listen(queue chan<- *message.Message) error {
	for _, msg := range s.msgs {
		select {
		case queue <- msg:
		case <-s.stop:
			return nil
		}
	}
	<-s.stop
	return nil
}

func (s *stubSource) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *stubSource) Name() string      { return s.name }
func (s *stubSource) ShortName() string { return "stub" }

func callMsg(content string) *message.Message {
	return message.New(time.Now(), "Kies", "#fuelrats", content)
}

func newTestConsumer(t *testing.T) (*Consumer, *countingHandler) {
	t.Helper()

	handler := &countingHandler{}
	parser := parse.NewParser(testLogger())
	parser.RegisterHandler(handler)

	consumer := NewConsumer(ConsumerDeps{
		Parser: parser,
		Logger: testLogger(),
	})
	require.NoError(t, consumer.Initialize())
	return consumer, handler
}

func TestConsumerPreservesSourceOrder(t *testing.T) {
	consumer, handler := newTestConsumer(t)
	require.NoError(t, consumer.Start(context.Background()))
	defer func() { _ = consumer.Stop(time.Second) }()

	src := newStubSource("ordered",
		callMsg("1j"), callMsg("2j"), callMsg("3j"), callMsg("4j"), callMsg("5j"))
	require.NoError(t, consumer.AddSource(src))

	require.Eventually(t, func() bool {
		return len(handler.Jumps()) == 5
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, handler.Jumps())
}

func TestConsumerInject(t *testing.T) {
	consumer, handler := newTestConsumer(t)
	require.NoError(t, consumer.Start(context.Background()))
	defer func() { _ = consumer.Stop(time.Second) }()

	require.NoError(t, consumer.Inject(callMsg("7j")))

	require.Eventually(t, func() bool {
		return len(handler.Jumps()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []int{7}, handler.Jumps())
}

func TestConsumerInjectBeforeStartFails(t *testing.T) {
	consumer, _ := newTestConsumer(t)

	assert.Error(t, consumer.Inject(callMsg("7j")))
}

func TestConsumerAddSourceBeforeStartFails(t *testing.T) {
	consumer, _ := newTestConsumer(t)

	assert.Error(t, consumer.AddSource(newStubSource("early")))
}

func TestConsumerAddSourceTwiceFails(t *testing.T) {
	consumer, _ := newTestConsumer(t)
	require.NoError(t, consumer.Start(context.Background()))
	defer func() { _ = consumer.Stop(time.Second) }()

	src := newStubSource("dup")
	require.NoError(t, consumer.AddSource(src))
	assert.Error(t, consumer.AddSource(src))
}

func TestConsumerRemoveSourceLeavesOthersRunning(t *testing.T) {
	consumer, handler := newTestConsumer(t)
	require.NoError(t, consumer.Start(context.Background()))
	defer func() { _ = consumer.Stop(time.Second) }()

	first := newStubSource("first")
	second := newStubSource("second", callMsg("1j"))
	require.NoError(t, consumer.AddSource(first))
	require.NoError(t, consumer.AddSource(second))

	require.NoError(t, consumer.RemoveSource(first))

	// The remaining source still delivers.
	require.Eventually(t, func() bool {
		return len(handler.Jumps()) == 1
	}, time.Second, 10*time.Millisecond)

	assert.Error(t, consumer.RemoveSource(first), "already removed")
}

func TestConsumerGracefulShutdown(t *testing.T) {
	consumer, _ := newTestConsumer(t)
	require.NoError(t, consumer.Start(context.Background()))

	require.NoError(t, consumer.AddSource(newStubSource("a")))
	require.NoError(t, consumer.AddSource(newStubSource("b")))

	assert.NoError(t, consumer.Stop(time.Second))
	assert.NoError(t, consumer.Stop(time.Second), "second stop is a no-op")
}

func TestConsumerConcurrentStops(t *testing.T) {
	consumer, _ := newTestConsumer(t)
	require.NoError(t, consumer.Start(context.Background()))
	require.NoError(t, consumer.AddSource(newStubSource("a")))

	// Racing Stops must not both win the guard; a double close of the
	// shutdown channel would panic.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NotPanics(t, func() {
				_ = consumer.Stop(time.Second)
			})
		}()
	}
	wg.Wait()
}

func TestConsumerStopInterruptsBlockedSource(t *testing.T) {
	consumer, _ := newTestConsumer(t)
	require.NoError(t, consumer.Start(context.Background()))

	// More messages than the queue holds; the source will be blocked
	// mid-send once the dispatcher is gone.
	msgs := make([]*message.Message, DefaultQueueCapacity*3)
	for i := range msgs {
		msgs[i] = callMsg("1j")
	}
	require.NoError(t, consumer.AddSource(newStubSource("flood", msgs...)))

	assert.NoError(t, consumer.Stop(time.Second))
}
