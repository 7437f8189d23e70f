package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/treerootboy/airflow-notification-plugin/internal/db"
	"github.com/treerootboy/airflow-notification-plugin/internal/models"
)

// Administrative CRUD over channels, subscriptions and templates. These
// endpoints persist what they are given; channel config documents are
// not validated against the handler's required keys here, problems
// surface at send time.

type channelRequest struct {
	Name   string             `json:"name" binding:"required"`
	Kind   models.ChannelKind `json:"channel_type" binding:"required"`
	Config json.RawMessage    `json:"config" binding:"required"`
	Active *bool              `json:"is_active"`
}

func (h *Handler) CreateChannel(c *gin.Context) {
	var req channelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel_type"})
		return
	}

	ch := models.Channel{
		Name:   req.Name,
		Kind:   req.Kind,
		Config: string(req.Config),
		Active: true,
	}
	if req.Active != nil {
		ch.Active = *req.Active
	}

	created, err := h.store.CreateChannel(c.Request.Context(), ch)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create channel")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create channel"})
		return
	}
	h.logger.Infof("Created channel %d (%s)", created.ID, created.Name)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetChannel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ch, err := h.store.GetChannel(c.Request.Context(), id)
	if err != nil {
		h.respondLookupError(c, err, "channel")
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (h *Handler) ListChannels(c *gin.Context) {
	channels, err := h.store.ListChannels(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list channels")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list channels"})
		return
	}
	c.JSON(http.StatusOK, channels)
}

func (h *Handler) UpdateChannel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req channelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel_type"})
		return
	}

	ch := models.Channel{
		ID:     id,
		Name:   req.Name,
		Kind:   req.Kind,
		Config: string(req.Config),
		Active: true,
	}
	if req.Active != nil {
		ch.Active = *req.Active
	}

	if err := h.store.UpdateChannel(c.Request.Context(), ch); err != nil {
		h.respondLookupError(c, err, "channel")
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (h *Handler) DeleteChannel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteChannel(c.Request.Context(), id); err != nil {
		h.respondLookupError(c, err, "channel")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Channel deactivated"})
}

type subscriptionRequest struct {
	UserID    string           `json:"user_id" binding:"required"`
	DagID     string           `json:"dag_id" binding:"required"`
	EventType models.EventType `json:"event_type" binding:"required"`
	ChannelID int64            `json:"channel_id" binding:"required"`
	Active    *bool            `json:"is_active"`
}

func (h *Handler) CreateSubscription(c *gin.Context) {
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.EventType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event_type"})
		return
	}

	sub := models.Subscription{
		UserID:    req.UserID,
		DagID:     req.DagID,
		EventType: req.EventType,
		ChannelID: req.ChannelID,
		Active:    true,
	}
	if req.Active != nil {
		sub.Active = *req.Active
	}

	created, err := h.store.CreateSubscription(c.Request.Context(), sub)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create subscription")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create subscription"})
		return
	}
	h.logger.Infof("Created subscription %d (%s/%s)", created.ID, created.DagID, created.EventType)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetSubscription(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sub, err := h.store.GetSubscription(c.Request.Context(), id)
	if err != nil {
		h.respondLookupError(c, err, "subscription")
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *Handler) GetSubscriptionsByUser(c *gin.Context) {
	userID := c.Param("user_id")
	subs, err := h.store.GetSubscriptionsByUser(c.Request.Context(), userID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list subscriptions")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list subscriptions"})
		return
	}
	c.JSON(http.StatusOK, subs)
}

func (h *Handler) UpdateSubscription(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req subscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.EventType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event_type"})
		return
	}

	sub := models.Subscription{
		ID:        id,
		UserID:    req.UserID,
		DagID:     req.DagID,
		EventType: req.EventType,
		ChannelID: req.ChannelID,
		Active:    true,
	}
	if req.Active != nil {
		sub.Active = *req.Active
	}

	if err := h.store.UpdateSubscription(c.Request.Context(), sub); err != nil {
		h.respondLookupError(c, err, "subscription")
		return
	}
	c.JSON(http.StatusOK, sub)
}

func (h *Handler) DeleteSubscription(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteSubscription(c.Request.Context(), id); err != nil {
		h.respondLookupError(c, err, "subscription")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Subscription deactivated"})
}

type templateRequest struct {
	Name        string             `json:"name" binding:"required"`
	EventType   models.EventType   `json:"event_type" binding:"required"`
	Kind        models.ChannelKind `json:"channel_type"`
	Body        string             `json:"template_content" binding:"required"`
	Description string             `json:"description"`
	Active      *bool              `json:"is_active"`
}

func (h *Handler) CreateTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.EventType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event_type"})
		return
	}
	if req.Kind != "" && !req.Kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid channel_type"})
		return
	}

	tmpl := models.Template{
		Name:        req.Name,
		EventType:   req.EventType,
		Kind:        req.Kind,
		Body:        req.Body,
		Description: req.Description,
		Active:      true,
	}
	if req.Active != nil {
		tmpl.Active = *req.Active
	}

	created, err := h.store.CreateTemplate(c.Request.Context(), tmpl)
	if err != nil {
		h.logger.WithError(err).Error("Failed to create template")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create template"})
		return
	}
	h.logger.Infof("Created template %d (%s)", created.ID, created.Name)
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) GetTemplate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tmpl, err := h.store.GetTemplateByID(c.Request.Context(), id)
	if err != nil {
		h.respondLookupError(c, err, "template")
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func (h *Handler) ListTemplates(c *gin.Context) {
	templates, err := h.store.ListTemplates(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list templates")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list templates"})
		return
	}
	c.JSON(http.StatusOK, templates)
}

func (h *Handler) UpdateTemplate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.EventType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event_type"})
		return
	}

	tmpl := models.Template{
		ID:          id,
		Name:        req.Name,
		EventType:   req.EventType,
		Kind:        req.Kind,
		Body:        req.Body,
		Description: req.Description,
		Active:      true,
	}
	if req.Active != nil {
		tmpl.Active = *req.Active
	}

	if err := h.store.UpdateTemplate(c.Request.Context(), tmpl); err != nil {
		h.respondLookupError(c, err, "template")
		return
	}
	c.JSON(http.StatusOK, tmpl)
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.store.DeleteTemplate(c.Request.Context(), id); err != nil {
		h.respondLookupError(c, err, "template")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Template deactivated"})
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) respondLookupError(c *gin.Context, err error, entity string) {
	if errors.Is(err, db.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": entity + " not found"})
		return
	}
	h.logger.WithError(err).Errorf("Storage error on %s", entity)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Storage error"})
}
