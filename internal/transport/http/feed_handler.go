package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-portal-service/internal/app"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// FeedHandler streams new submissions of a quiz to admin dashboards.
type FeedHandler struct {
	service  *app.SubmissionService
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

func NewFeedHandler(service *app.SubmissionService, logger *zap.Logger) *FeedHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type subscribedPayload struct {
	QuizID string `json:"quiz_id"`
}

// ServeLive upgrades the request and pushes a "submission" message for every
// submission of the quiz until the client disconnects.
func (h *FeedHandler) ServeLive(c *gin.Context) {
	quizID := c.Param("id")

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	updates, cancel, err := h.service.Subscribe(c.Request.Context(), quizID)
	if err != nil {
		h.write(conn, outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	if err := h.write(conn, outboundMessage[subscribedPayload]{Type: "subscribed", Payload: subscribedPayload{QuizID: quizID}}); err != nil {
		return
	}

	// The reader only services control frames and notices the client leaving.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case submission, ok := <-updates:
			if !ok {
				return
			}
			if err := h.write(conn, outboundMessage[any]{Type: "submission", Payload: submission}); err != nil {
				h.logger.Debug("ws write error", zap.String("quiz_id", quizID), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-readerDone:
			return
		}
	}
}

func (h *FeedHandler) write(conn *websocket.Conn, msg interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}
