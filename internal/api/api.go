package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/treerootboy/airflow-notification-plugin/internal/db"
	"github.com/treerootboy/airflow-notification-plugin/internal/models"
)

// Store is the storage surface the HTTP handlers need.
type Store interface {
	UpsertDevice(ctx context.Context, token string, platform models.PlatformKind, userID string) (models.Device, bool, error)
	DeactivateDevice(ctx context.Context, token string) error

	CreateChannel(ctx context.Context, ch models.Channel) (models.Channel, error)
	GetChannel(ctx context.Context, id int64) (models.Channel, error)
	ListChannels(ctx context.Context) ([]models.Channel, error)
	UpdateChannel(ctx context.Context, ch models.Channel) error
	DeleteChannel(ctx context.Context, id int64) error

	CreateSubscription(ctx context.Context, s models.Subscription) (models.Subscription, error)
	GetSubscription(ctx context.Context, id int64) (models.Subscription, error)
	GetSubscriptionsByUser(ctx context.Context, userID string) ([]models.Subscription, error)
	UpdateSubscription(ctx context.Context, s models.Subscription) error
	DeleteSubscription(ctx context.Context, id int64) error

	CreateTemplate(ctx context.Context, t models.Template) (models.Template, error)
	GetTemplateByID(ctx context.Context, id int64) (models.Template, error)
	ListTemplates(ctx context.Context) ([]models.Template, error)
	UpdateTemplate(ctx context.Context, t models.Template) error
	DeleteTemplate(ctx context.Context, id int64) error
}

type Handler struct {
	store  Store
	logger *logrus.Logger
}

func NewHandler(store Store, logger *logrus.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

type registerDeviceRequest struct {
	DeviceToken  string `json:"device_token"`
	PlatformType string `json:"platform_type"`
	UserID       string `json:"user_id"`
}

// RegisterDevice creates or refreshes a device registration. Idempotent
// by token: a known token updates the existing row and answers 200, a
// new token answers 201.
func (h *Handler) RegisterDevice(c *gin.Context) {
	var req registerDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid JSON body"})
		return
	}

	if req.DeviceToken == "" || req.PlatformType == "" || req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Missing required fields: device_token, platform_type, user_id",
		})
		return
	}

	platform := models.PlatformKind(req.PlatformType)
	if !platform.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   fmt.Sprintf("Invalid platform_type. Must be one of: %v", models.PlatformKinds),
		})
		return
	}

	device, created, err := h.store.UpsertDevice(c.Request.Context(), req.DeviceToken, platform, req.UserID)
	if err != nil {
		h.logger.WithError(err).Error("Failed to register device")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error"})
		return
	}

	status := http.StatusOK
	message := "Device updated successfully"
	if created {
		status = http.StatusCreated
		message = "Device registered successfully"
	}
	h.logger.Infof("Registered device %d for user %s (%s)", device.ID, device.UserID, device.Platform)
	c.JSON(status, gin.H{
		"success":   true,
		"message":   message,
		"device_id": device.ID,
	})
}

type unregisterDeviceRequest struct {
	DeviceToken string `json:"device_token"`
}

// UnregisterDevice soft-deactivates a device registration.
func (h *Handler) UnregisterDevice(c *gin.Context) {
	var req unregisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.DeviceToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Missing device_token"})
		return
	}

	if err := h.store.DeactivateDevice(c.Request.Context(), req.DeviceToken); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Device not found"})
			return
		}
		h.logger.WithError(err).Error("Failed to unregister device")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Database error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Device unregistered successfully"})
}
