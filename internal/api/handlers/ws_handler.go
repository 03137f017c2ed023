package handlers

import (
	"rony-server/internal/realtime"

	"github.com/gin-gonic/gin"
)

type WSHandler struct {
	gateway *realtime.Gateway
}

func NewWSHandler(gateway *realtime.Gateway) *WSHandler {
	return &WSHandler{gateway: gateway}
}

// HandleWebSocket godoc
// @Summary Open the realtime connection
// @Description Upgrades to WebSocket. The client must send an authenticate frame before any other frame is processed.
// @Tags websocket
// @Router /ws [get]
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	h.gateway.ServeWS(c.Writer, c.Request)
}
