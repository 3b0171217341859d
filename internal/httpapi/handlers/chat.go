package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/calegrette/leaseguard/internal/common"
)

type sendMessageReq struct {
	Message string `json:"message" binding:"required"`
}

func (h *Handler) SendChatMessage(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	id, err := incidentIDParam(c)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid incident id")
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	reply, logID, err := h.ChatSvc.SendMessage(c.Request.Context(), uid, id, req.Message)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40403, "incident not found")
			return
		}
		common.Fail(c, http.StatusBadRequest, 40001, "failed to send message")
		return
	}

	common.OK(c, gin.H{
		"incident_id": id,
		"reply":       reply,
		"log_id":      logID,
	})
}

func (h *Handler) SendChatMessageStream(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	id, err := incidentIDParam(c)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid incident id")
		return
	}

	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	// SSE headers
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // helpful if behind nginx

	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	chunks, done, logIDCh, errs := h.ChatSvc.SendMessageStream(ctx, uid, id, req.Message)

	// heartbeat ticker (keeps connections alive)
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		fmt.Fprintf(c.Writer, "event: error\ndata: flusher not supported\n\n")
		return
	}

	writeJSON := func(event string, payload any) {
		b, err := json.Marshal(payload)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"message\":\"json marshal failed\"}\n\n")
			flusher.Flush()
			return
		}
		if event != "" {
			fmt.Fprintf(c.Writer, "event: %s\n", event)
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", string(b))
		flusher.Flush()
	}

	for {
		select {
		case ch, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			writeJSON("chunk", gin.H{
				"type":  "chunk",
				"delta": ch,
			})

		case <-ticker.C:
			writeJSON("ping", gin.H{
				"type": "ping",
				"ts":   time.Now().Unix(),
			})

		case err := <-errs:
			if err == nil {
				continue
			}
			if err == gorm.ErrRecordNotFound {
				writeJSON("error", gin.H{
					"type":    "error",
					"message": "incident not found",
				})
				return
			}
			writeJSON("error", gin.H{
				"type":    "error",
				"message": err.Error(),
			})
			return

		case <-done:
			// all service channels close together; surface a pending error
			// instead of a clean done
			select {
			case err := <-errs:
				if err != nil {
					msg := err.Error()
					if err == gorm.ErrRecordNotFound {
						msg = "incident not found"
					}
					writeJSON("error", gin.H{
						"type":    "error",
						"message": msg,
					})
					return
				}
			default:
			}
			var lid uint64
			select {
			case lid = <-logIDCh:
			default:
			}
			writeJSON("done", gin.H{
				"type":   "done",
				"log_id": lid,
			})
			return

		case <-ctx.Done():
			return
		}
	}
}
