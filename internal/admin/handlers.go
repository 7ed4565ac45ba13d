package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"guidelight-panel/internal/engine"
	"guidelight-panel/internal/errcode"
)

type commandRequest struct {
	Command string `json:"command" binding:"required"`
}

func (s *Server) index(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", s.eng.Snapshot())
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) state(c *gin.Context) {
	c.JSON(http.StatusOK, s.eng.Snapshot())
}

func (s *Server) pending(c *gin.Context) {
	c.JSON(http.StatusOK, s.eng.Snapshot().Pending)
}

func (s *Server) dispatch(c *gin.Context) {
	var req commandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.jsonError(c, http.StatusBadRequest, errcode.InvalidParams, "invalid body: "+err.Error())
		return
	}
	p, err := s.eng.Dispatch(req.Command)
	if err != nil {
		s.log.Warn("dispatch rejected", "command", req.Command, "err", err)
		s.jsonError(c, statusFor(err), errcode.Of(err), err.Error())
		return
	}
	c.JSON(http.StatusAccepted, p)
}

func (s *Server) toggleStream(c *gin.Context) {
	st := s.eng.ToggleStream()
	c.JSON(http.StatusOK, gin.H{"streaming": st == engine.Streaming, "state": st.String()})
}

func (s *Server) testAlert(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alert": s.eng.TriggerTestAlert()})
}

func (s *Server) reshuffle(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"mood": s.eng.Reshuffle()})
}

func (s *Server) jsonError(c *gin.Context, status int, code errcode.Code, msg string) {
	c.JSON(status, gin.H{"error": msg, "code": code})
}

// statusFor maps an engine error to an HTTP status.
func statusFor(err error) int {
	switch errcode.Of(err) {
	case errcode.InvalidParams:
		return http.StatusBadRequest
	case errcode.EngineClosed, errcode.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
