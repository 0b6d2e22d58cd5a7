package webhook

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"slotkeeper/internal/pkg/response"
	"slotkeeper/internal/scheduling"
)

type Handler struct {
	reconciler *Reconciler
	secret     string
	log        logrus.FieldLogger
}

func NewHandler(reconciler *Reconciler, secret string, log logrus.FieldLogger) *Handler {
	return &Handler{reconciler: reconciler, secret: secret, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/scheduling", h.Receive)
}

func firstHeader(c *gin.Context, names ...string) string {
	for _, n := range names {
		if v := c.GetHeader(n); v != "" {
			return v
		}
	}
	return ""
}

func (h *Handler) Receive(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to read body")
		return
	}

	sig := firstHeader(c, "X-Hapio-Signature", "X-Signature")
	ts := firstHeader(c, "X-Hapio-Timestamp", "X-Timestamp")
	if !scheduling.VerifySignature(h.secret, body, sig, ts) {
		h.log.WithFields(logrus.Fields{
			"ip":            c.ClientIP(),
			"has_signature": sig != "",
			"has_timestamp": ts != "",
			"body_bytes":    len(body),
		}).Error("webhook signature rejected")
		response.Error(c, http.StatusUnauthorized, "SIGNATURE_INVALID", "Invalid webhook signature")
		return
	}

	ev, err := scheduling.ParseEvent(body)
	if err != nil {
		if errors.Is(err, scheduling.ErrMalformedEvent) {
			response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", err.Error())
			return
		}
		response.FromError(c, err)
		return
	}

	outcome, err := h.reconciler.Apply(c.Request.Context(), ev)
	if err != nil {
		h.log.WithError(err).WithField("event_type", ev.Type()).Error("webhook reconciliation failed")
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"received": true, "outcome": outcome})
}
