package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/targodan/UberSpatchBoard/data"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newCase(number int, clientName string) *data.Case {
	return data.NewCase(
		number,
		data.NewClient(clientName, clientName, data.PlatformPC, "en"),
		data.NewSystem("Fuelum"),
		false,
		time.Now(),
	)
}

func startGateway(t *testing.T) (*Gateway, *data.CaseManager) {
	t.Helper()

	cm := data.NewCaseManager()
	g := New(Deps{
		Addr:        "127.0.0.1:0",
		CaseManager: cm,
		Logger:      testLogger(),
	})
	require.NoError(t, g.Initialize())
	require.NoError(t, g.Start(context.Background()))
	t.Cleanup(func() { _ = g.Stop(time.Second) })

	return g, cm
}

func getJSON(t *testing.T, url string, target any) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func TestInitializeValidation(t *testing.T) {
	assert.Error(t, New(Deps{CaseManager: data.NewCaseManager(), Logger: testLogger()}).Initialize(),
		"empty address")
	assert.Error(t, New(Deps{Addr: ":0", Logger: testLogger()}).Initialize(),
		"nil case manager")
}

func TestOpenCasesEndpoint(t *testing.T) {
	g, cm := startGateway(t)

	require.NoError(t, cm.AddCase(newCase(2, "Filip")))

	var cases []caseView
	getJSON(t, fmt.Sprintf("http://%s/api/cases", g.Address()), &cases)

	require.Len(t, cases, 1)
	assert.Equal(t, 2, cases[0].Number)
	assert.Equal(t, "Filip", cases[0].Client.IRCName)
	assert.Equal(t, "PC", cases[0].Client.Platform)
	assert.Equal(t, "Fuelum", cases[0].System)
	assert.False(t, cases[0].Closed)
	assert.Nil(t, cases[0].CloseTime)
}

func TestClosedCasesEndpoint(t *testing.T) {
	g, cm := startGateway(t)

	c := newCase(2, "Filip")
	require.NoError(t, cm.AddCase(c))
	c.Close()

	var open, closed []caseView
	getJSON(t, fmt.Sprintf("http://%s/api/cases", g.Address()), &open)
	getJSON(t, fmt.Sprintf("http://%s/api/cases/closed", g.Address()), &closed)

	assert.Empty(t, open)
	require.Len(t, closed, 1)
	assert.True(t, closed[0].Closed)
	require.NotNil(t, closed[0].CloseTime)
}

func TestWebSocketSnapshotAndEvents(t *testing.T) {
	g, cm := startGateway(t)

	require.NoError(t, cm.AddCase(newCase(1, "Early")))

	conn, resp, err := websocket.DefaultDialer.Dial(
		fmt.Sprintf("ws://%s/ws", g.Address()), nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	defer func() { _ = conn.Close() }()

	// First frame: the full open-case snapshot.
	var snapshot snapshotEnvelope
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.Equal(t, "snapshot", snapshot.Kind)
	require.Len(t, snapshot.Cases, 1)
	assert.Equal(t, 1, snapshot.Cases[0].Number)

	// A new case pushes an "opened" event.
	require.NoError(t, cm.AddCase(newCase(2, "Filip")))

	var opened eventView
	require.NoError(t, conn.ReadJSON(&opened))
	assert.Equal(t, "opened", opened.Kind)
	assert.Equal(t, 2, opened.Case.Number)

	// Closing pushes a "closed" event.
	cm.Get(2).Close()

	var closed eventView
	require.NoError(t, conn.ReadJSON(&closed))
	assert.Equal(t, "closed", closed.Kind)
	assert.Equal(t, 2, closed.Case.Number)
	assert.True(t, closed.Case.Closed)
}

func TestStopIsIdempotent(t *testing.T) {
	cm := data.NewCaseManager()
	g := New(Deps{Addr: "127.0.0.1:0", CaseManager: cm, Logger: testLogger()})
	require.NoError(t, g.Start(context.Background()))

	assert.NoError(t, g.Stop(time.Second))
	assert.NoError(t, g.Stop(time.Second))
}

func TestWebSocketRejectedAfterStop(t *testing.T) {
	cm := data.NewCaseManager()
	g := New(Deps{Addr: "127.0.0.1:0", CaseManager: cm, Logger: testLogger()})
	require.NoError(t, g.Start(context.Background()))
	require.NoError(t, g.Stop(time.Second))

	// Hit the handler directly; a stopped gateway must close the
	// upgraded connection without registering the client.
	srv := httptest.NewServer(http.HandlerFunc(g.handleWebSocket))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "no snapshot after shutdown")

	g.clientsMu.RLock()
	defer g.clientsMu.RUnlock()
	assert.Empty(t, g.clients)
}
