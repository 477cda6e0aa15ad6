package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Router builds the gin engine for the standalone HTTP server.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(correlationID())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, healthResponse())
	})
	r.POST("/chat", h.chat)
	return r
}

func (h *Handler) chat(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	body, err := c.GetRawData()
	if err != nil {
		status, msg := http.StatusBadRequest, msgInvalidBody
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status, msg = http.StatusRequestEntityTooLarge, msgTooLarge
		}
		status, payload := h.fail(c.Request.Context(), c.GetString(correlationHeader), status, msg, err)
		c.JSON(status, payload)
		return
	}
	status, payload := h.process(c.Request.Context(), c.GetString(correlationHeader), body)
	c.JSON(status, payload)
}

func correlationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(correlationHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(correlationHeader, id)
		c.Header(correlationHeader, id)
		c.Next()
	}
}
