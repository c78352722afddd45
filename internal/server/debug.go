package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"chatwindow/internal/services"
	chatwindow_errors "chatwindow/pkg/errors"
	"chatwindow/pkg/logger"
)

// DebugServer exposes the reconciled client state over a local HTTP port for
// inspection and driving the client by hand.
type DebugServer struct {
	session *services.ChatSession
	log     *logger.Logger
	addr    string
}

func NewDebugServer(session *services.ChatSession, log *logger.Logger, addr string) *DebugServer {
	return &DebugServer{session: session, log: log, addr: addr}
}

func (s *DebugServer) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/messages", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"messages": s.session.Messages()})
	})

	r.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"loading":  s.session.Loading(),
			"has_more": s.session.HasMore(),
			"unread":   s.session.UnreadCount(),
		})
	})

	r.POST("/messages", func(c *gin.Context) {
		var body struct {
			Text string `json:"text"`
		}
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		// The send outlives the HTTP request.
		attempt, err := s.session.Submit(context.WithoutCancel(c.Request.Context()), body.Text)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, chatwindow_errors.ErrEmptyMessage) {
				status = http.StatusBadRequest
			}
			c.JSON(status, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"temp_id": attempt.TempID()})
	})

	return r
}

func (s *DebugServer) Run() error {
	s.log.Infof("debug server listening addr=%s", s.addr)
	return s.Router().Run(s.addr)
}
