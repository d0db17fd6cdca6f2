package notify

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fermaport/notifier/internal/middleware"
	"github.com/fermaport/notifier/internal/model"
	"github.com/fermaport/notifier/internal/notifier"
	"github.com/fermaport/notifier/pkg/logger"
)

// Handler exposes the three notification entry points: the batch
// trigger, the direct notification endpoint, and the database-webhook
// endpoint. All three funnel into the same processor.
type Handler struct {
	processor *notifier.Processor
	logger    *logger.Logger
}

func NewHandler(processor *notifier.Processor, lg *logger.Logger) *Handler {
	return &Handler{processor: processor, logger: lg}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	r.POST("/process", auth.Authenticate(), h.ProcessPending)
	r.POST("/notify", auth.Authenticate(), h.Notify)
	// The webhook is called by the database platform with a payload we
	// validate structurally; it carries no bearer credential.
	r.POST("/webhook", h.Webhook)
}

// ProcessPending runs one batch pass over the content-update log.
func (h *Handler) ProcessPending(c *gin.Context) {
	sum, err := h.processor.Run(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if sum.Fetched == 0 {
		c.JSON(http.StatusOK, gin.H{
			"message": "No pending notifications",
			"debug": gin.H{
				"window_hours": 24,
				"batch_limit":  50,
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Processed %d updates", sum.Processed),
		"sent":    sum.Sent,
		"failed":  sum.Failed,
	})
}

type notifyRequest struct {
	Type       string `json:"type" binding:"required,oneof=common producer"`
	ProducerID string `json:"producerId"`
	Title      string `json:"title" binding:"required"`
	Message    string `json:"message" binding:"required"`
	EntityID   string `json:"entityId"`
	EntityType string `json:"entityType"`
	Link       string `json:"link"`
}

// Notify sends a pre-composed notification to the common audience or
// one producer's followers, bypassing the update log.
func (h *Handler) Notify(c *gin.Context) {
	var req notifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Type == "producer" && req.ProducerID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "producerId is required for producer notifications"})
		return
	}

	logType := req.Type
	if req.EntityType != "" {
		logType = req.EntityType
	}

	n := notifier.DirectNotification{
		Type:    logType,
		Title:   req.Title,
		Message: req.Message,
		Link:    req.Link,
	}
	if req.Type == "producer" {
		n.ProducerID = req.ProducerID
	}
	if req.EntityID != "" {
		n.EntityID = &req.EntityID
	}

	res, err := h.processor.Notify(c.Request.Context(), n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"message": "Notification dispatched",
		"sent":    res.Sent,
		"failed":  res.Failed,
		"total":   res.Sent + res.Failed,
	}
	if len(res.Errors) > 0 {
		resp["errors"] = res.Errors
	}
	c.JSON(http.StatusOK, resp)
}

// webhookPayload covers both accepted trigger shapes: the direct one
// and the database-webhook one. Which shape applies is decided by
// which required fields are present.
type webhookPayload struct {
	// Direct shape.
	ProducerID string `json:"producerId"`
	UpdateType string `json:"updateType"`
	Title      string `json:"title"`
	Message    string `json:"message"`
	EntityID   string `json:"entityId"`
	Link       string `json:"link"`

	// Database-webhook shape.
	Type      string                 `json:"type"`
	Table     string                 `json:"table"`
	Record    map[string]interface{} `json:"record"`
	OldRecord map[string]interface{} `json:"old_record"`
}

// producerUpdate is the normalized internal shape both webhook
// payload variants reduce to.
type producerUpdate struct {
	ProducerID string
	UpdateType string
	Title      string
	Message    string
	EntityID   string
	Link       string
}

// Webhook accepts either payload shape, normalizes it, and dispatches.
func (h *Handler) Webhook(c *gin.Context) {
	var payload webhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload format"})
		return
	}

	u, ok := normalizeWebhook(payload, h.processor.BaseURL())
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payload format"})
		return
	}

	n := notifier.DirectNotification{
		Type:       u.UpdateType,
		ProducerID: u.ProducerID,
		Title:      u.Title,
		Message:    u.Message,
		Link:       u.Link,
	}
	if u.EntityID != "" {
		n.EntityID = &u.EntityID
	}

	res, err := h.processor.Notify(c.Request.Context(), n)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":    "Notification dispatched",
		"producer":   u.ProducerID,
		"updateType": u.UpdateType,
		"sent":       res.Sent,
		"failed":     res.Failed,
		"total":      res.Sent + res.Failed,
	})
}

func normalizeWebhook(p webhookPayload, baseURL string) (producerUpdate, bool) {
	// Direct shape wins when its required fields are present.
	if p.UpdateType != "" && p.Title != "" {
		if p.Message == "" {
			return producerUpdate{}, false
		}
		return producerUpdate{
			ProducerID: p.ProducerID,
			UpdateType: p.UpdateType,
			Title:      p.Title,
			Message:    p.Message,
			EntityID:   p.EntityID,
			Link:       p.Link,
		}, true
	}

	if p.Type == "" || p.Table == "" || p.Record == nil {
		return producerUpdate{}, false
	}
	return normalizeDBEvent(p, baseURL)
}

func normalizeDBEvent(p webhookPayload, baseURL string) (producerUpdate, bool) {
	id, _ := p.Record["id"].(string)
	producerID, _ := p.Record["producer_id"].(string)

	switch p.Table {
	case "products":
		name, _ := p.Record["name"].(string)
		u := producerUpdate{
			ProducerID: producerID,
			Message:    name,
			EntityID:   id,
			Link:       notifier.DeepLink(baseURL, model.EntityProduct, id),
		}
		price, hasPrice := p.Record["price"].(float64)
		if p.Type == "UPDATE" && hasPrice {
			u.UpdateType = "price_change"
			u.Title = "Изменение цены"
			u.Message = fmt.Sprintf("%s: %s ₽", name, notifier.FormatPrice(price))
		} else {
			u.UpdateType = "new_product"
			u.Title = "Новый товар"
		}
		return u, true

	case "news":
		title, _ := p.Record["title"].(string)
		return producerUpdate{
			ProducerID: producerID,
			UpdateType: "news",
			Title:      "Новость",
			Message:    title,
			EntityID:   id,
			Link:       notifier.DeepLink(baseURL, model.EntityNews, id),
		}, true

	case "promotions":
		title, _ := p.Record["title"].(string)
		return producerUpdate{
			ProducerID: producerID,
			UpdateType: "promotion",
			Title:      "Акция",
			Message:    title,
			EntityID:   id,
			Link:       notifier.DeepLink(baseURL, model.EntityPromotion, id),
		}, true
	}

	return producerUpdate{}, false
}
