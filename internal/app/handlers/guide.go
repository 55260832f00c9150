package handlers

import (
	"html/template"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/FACorreiaa/go-museumradar/internal/app/domain/guide"
	"github.com/FACorreiaa/go-museumradar/internal/app/domain/search"
	"github.com/FACorreiaa/go-museumradar/internal/app/models"
	"github.com/FACorreiaa/go-museumradar/internal/app/render"
	"github.com/FACorreiaa/go-museumradar/internal/app/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The session cookie is SameSite=Lax and CORS already echoes the origin
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const (
	messageGuide  = "guide"
	messageRadius = "radius"
	messageError  = "error"
)

// guideMessage is the frame exchanged on the guide socket. Clients send
// radius frames; the server sends guide frames, radius acknowledgements and
// errors.
type guideMessage struct {
	Type     string              `json:"type"`
	RadiusKm int                 `json:"radius_km,omitempty"`
	Guide    *search.GuideUpdate `json:"guide,omitempty"`
	Error    string              `json:"error,omitempty"`
}

type GuideHandlers struct {
	*BaseHandler
}

func NewGuideHandlers(base *BaseHandler) *GuideHandlers {
	return &GuideHandlers{BaseHandler: base}
}

// GuideSocket pushes guide panel updates of the session and accepts radius
// changes, so slider drags go through the guide debounce. One socket per
// session is expected; concurrent sockets share the update feed.
func (h *GuideHandlers) GuideSocket(c *gin.Context) {
	s, ok := h.Session(c)
	if !ok {
		return
	}
	l := h.Logger.With(zap.String("method", "GuideSocket"), zap.String("session_id", s.ID))

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		l.Warn("Failed to upgrade to WebSocket", zap.Error(err))
		return
	}
	defer ws.Close()

	writerDone := make(chan struct{})
	defer close(writerDone)
	replies := make(chan guideMessage)
	readDone := make(chan struct{})
	go h.readGuideMessages(ws, s, replies, readDone, writerDone, l)

	current := s.Orchestrator.Guide()
	if err := writeFrame(ws, guideMessage{Type: messageGuide, Guide: &current}); err != nil {
		l.Debug("Initial guide frame failed", zap.Error(err))
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case update := <-s.Updates():
			if err := writeFrame(ws, guideMessage{Type: messageGuide, Guide: &update}); err != nil {
				l.Debug("Guide frame failed", zap.Error(err))
				return
			}
		case reply := <-replies:
			if err := writeFrame(ws, reply); err != nil {
				l.Debug("Reply frame failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.Done():
			_ = ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "session ended"),
				time.Now().Add(writeWait))
			return
		case <-readDone:
			return
		}
	}
}

func (h *GuideHandlers) readGuideMessages(ws *websocket.Conn, s *session.Session, replies chan<- guideMessage, readDone chan<- struct{}, writerDone <-chan struct{}, l *zap.Logger) {
	defer close(readDone)
	ws.SetReadLimit(maxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg guideMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				l.Debug("Guide socket closed", zap.Error(err))
			}
			return
		}

		var reply guideMessage
		switch msg.Type {
		case messageRadius:
			reply = guideMessage{Type: messageRadius, RadiusKm: s.Orchestrator.SetRadius(msg.RadiusKm)}
		default:
			reply = guideMessage{Type: messageError, Error: "unknown message type " + msg.Type}
		}
		select {
		case replies <- reply:
		case <-writerDone:
			return
		}
	}
}

func writeFrame(ws *websocket.Conn, msg guideMessage) error {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	return ws.WriteJSON(msg)
}

// answerEvent is one SSE frame of a free-text answer.
type answerEvent struct {
	FullText string                   `json:"full_text"`
	Sources  []models.GroundingSource `json:"sources"`
	HTML     template.HTML            `json:"html"`
	Error    string                   `json:"error,omitempty"`
}

func newAnswerEvent(snap guide.Snapshot) answerEvent {
	return answerEvent{
		FullText: snap.FullText,
		Sources:  snap.Sources,
		HTML:     render.FormattedText(snap.FullText),
	}
}

// Ask streams the answer to ?q= as server-sent events. Each snapshot event
// carries the full answer so far; a failure ends the stream with an error
// event holding the partial answer.
func (h *GuideHandlers) Ask(c *gin.Context) {
	s, ok := h.Session(c)
	if !ok {
		return
	}
	l := h.Logger.With(zap.String("method", "Ask"), zap.String("session_id", s.ID))

	ctx := c.Request.Context()
	events, err := s.Orchestrator.Ask(ctx, strings.TrimSpace(c.Query("q")))
	if err != nil {
		h.Fail(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	frames := 0
	for ev := range events {
		if ctx.Err() != nil {
			l.Debug("Client left, abandoning answer", zap.Int("frames", frames))
			return
		}
		frame := newAnswerEvent(ev.Snapshot)
		if ev.Err != nil {
			l.Warn("Answer stream failed", zap.Error(ev.Err))
			frame.Error = models.UserMessage(ev.Err)
			c.SSEvent(messageError, frame)
			c.Writer.Flush()
			return
		}
		c.SSEvent("snapshot", frame)
		c.Writer.Flush()
		frames++
	}
	c.SSEvent("done", gin.H{"frames": frames})
	c.Writer.Flush()
}
