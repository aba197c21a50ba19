package ingest

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/targodan/UberSpatchBoard/marshal"
	"github.com/targodan/UberSpatchBoard/message"
)

// startNATSPump runs the source's pump loop against a hand-fed inbox,
// standing in for the subscription channel.
func startNATSPump(t *testing.T, channel string) (*NATSSource, chan *nats.Msg, chan *message.Message, chan error) {
	t.Helper()

	src := NewNATSSource(NATSDeps{
		URL:        "nats://localhost:4222",
		Subject:    "irc.fuelrats",
		Channel:    channel,
		Marshaller: marshal.NewHexchat(),
		Logger:     testLogger(),
	})

	inbox := make(chan *nats.Msg, 16)
	queue := make(chan *message.Message, 16)
	pumpErr := make(chan error, 1)
	go func() { pumpErr <- src.pump(inbox, queue) }()
	t.Cleanup(src.Stop)

	return src, inbox, queue, pumpErr
}

func TestNATSSourceDecodesPayloads(t *testing.T) {
	src, inbox, queue, pumpErr := startNATSPump(t, "")

	inbox <- &nats.Msg{Data: []byte("Aug 17 18:22:18 Kies\tno")}

	select {
	case msg := <-queue:
		assert.Equal(t, "Kies", msg.Sender)
		assert.Equal(t, "no", msg.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("no message arrived")
	}

	src.Stop()
	require.NoError(t, <-pumpErr)
}

func TestNATSSourceSkipsUnmarshallablePayloads(t *testing.T) {
	src, inbox, queue, pumpErr := startNATSPump(t, "")

	inbox <- &nats.Msg{Data: []byte("garbage")}
	inbox <- &nats.Msg{Data: []byte("Aug 17 18:22:18 Kies\t5j #2")}

	select {
	case msg := <-queue:
		assert.Equal(t, "5j #2", msg.Content)
	case <-time.After(2 * time.Second):
		t.Fatal("no message arrived")
	}

	src.Stop()
	require.NoError(t, <-pumpErr)
}

func TestNATSSourceChannelOverride(t *testing.T) {
	_, inbox, queue, _ := startNATSPump(t, "#drillrats")

	inbox <- &nats.Msg{Data: []byte("Aug 17 18:22:18 Kies\tno")}

	select {
	case msg := <-queue:
		assert.Equal(t, "#drillrats", msg.Channel)
	case <-time.After(2 * time.Second):
		t.Fatal("no message arrived")
	}
}

func TestNATSSourceStopDuringPush(t *testing.T) {
	src := NewNATSSource(NATSDeps{
		URL:        "nats://localhost:4222",
		Subject:    "irc.fuelrats",
		Marshaller: marshal.NewHexchat(),
		Logger:     testLogger(),
	})

	inbox := make(chan *nats.Msg, 1)
	// Nobody drains the queue, so the push blocks until Stop.
	queue := make(chan *message.Message)
	pumpErr := make(chan error, 1)
	go func() { pumpErr <- src.pump(inbox, queue) }()

	inbox <- &nats.Msg{Data: []byte("Aug 17 18:22:18 Kies\tno")}
	time.Sleep(50 * time.Millisecond)
	src.Stop()

	select {
	case err := <-pumpErr:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("pump did not return after Stop")
	}
}

func TestNATSSourceRequiresSubject(t *testing.T) {
	src := NewNATSSource(NATSDeps{
		URL:        "nats://localhost:4222",
		Marshaller: marshal.NewHexchat(),
		Logger:     testLogger(),
	})
	assert.Error(t, src.Listen(make(chan *message.Message)))
}

func TestNATSSourceRequiresMarshaller(t *testing.T) {
	src := NewNATSSource(NATSDeps{URL: "nats://localhost:4222", Subject: "irc.fuelrats", Logger: testLogger()})
	assert.Error(t, src.Listen(make(chan *message.Message)))
}
