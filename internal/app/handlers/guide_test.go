package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialGuide(t *testing.T, srv *httptest.Server, cookie *http.Cookie) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("Cookie", cookie.Name+"="+cookie.Value)
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/guide"
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) guideMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg guideMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestGuideSocketSendsCurrentGuideFirst(t *testing.T) {
	h := newHarness(t, &scriptedBackend{}, serverKey, nil)
	cookie := h.session(t)
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	conn := dialGuide(t, srv, cookie)
	first := readFrame(t, conn)
	assert.Equal(t, messageGuide, first.Type)
	require.NotNil(t, first.Guide)
	assert.Empty(t, first.Guide.Key)
}

func TestGuideSocketRadiusFrames(t *testing.T) {
	h := newHarness(t, &scriptedBackend{}, serverKey, nil)
	cookie := h.session(t)
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	conn := dialGuide(t, srv, cookie)
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(guideMessage{Type: messageRadius, RadiusKm: 80}))
	ack := readFrame(t, conn)
	assert.Equal(t, messageRadius, ack.Type)
	assert.Equal(t, 50, ack.RadiusKm)

	require.NoError(t, conn.WriteJSON(guideMessage{Type: "zoom"}))
	reply := readFrame(t, conn)
	assert.Equal(t, messageError, reply.Type)
	assert.Contains(t, reply.Error, "zoom")
}

func TestGuideSocketPushesUpdatesAfterSearch(t *testing.T) {
	h := newHarness(t, &scriptedBackend{museums: museumsReply}, serverKey, nil)
	cookie := h.session(t)
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	conn := dialGuide(t, srv, cookie)
	readFrame(t, conn)

	rec := h.do(http.MethodPost, "/api/search", `{"place":"Amsterdam"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	update := readFrame(t, conn)
	assert.Equal(t, messageGuide, update.Type)
	require.NotNil(t, update.Guide)
	assert.Equal(t, "Amsterdam", update.Guide.Area)
	assert.Equal(t, "Amsterdam|52.360|4.885|10", update.Guide.Key)
	assert.Empty(t, update.Guide.Snapshot.FullText)
}

func TestGuideSocketClosesWhenSessionEnds(t *testing.T) {
	h := newHarness(t, &scriptedBackend{}, serverKey, nil)
	cookie := h.session(t)
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	conn := dialGuide(t, srv, cookie)
	readFrame(t, conn)

	h.sessions.Close(cookie.Value)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
}
