package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/treerootboy/airflow-notification-plugin/internal/config"
	"github.com/treerootboy/airflow-notification-plugin/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

func NewRouter(store Store, logger *logrus.Logger, cfg config.Config, hub *ws.Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLoggingMiddleware(logger))

	h := NewHandler(store, logger)
	api := r.Group(cfg.API.BasePath)
	{
		// Device registration
		api.POST("/register-device", h.RegisterDevice)
		api.POST("/unregister-device", h.UnregisterDevice)

		// Channels
		api.POST("/channels", h.CreateChannel)
		api.GET("/channels", h.ListChannels)
		api.GET("/channels/:id", h.GetChannel)
		api.PUT("/channels/:id", h.UpdateChannel)
		api.DELETE("/channels/:id", h.DeleteChannel)

		// Subscriptions
		api.POST("/subscriptions", h.CreateSubscription)
		api.GET("/subscriptions/:id", h.GetSubscription)
		api.GET("/subscriptions/user/:user_id", h.GetSubscriptionsByUser)
		api.PUT("/subscriptions/:id", h.UpdateSubscription)
		api.DELETE("/subscriptions/:id", h.DeleteSubscription)

		// Templates
		api.POST("/templates", h.CreateTemplate)
		api.GET("/templates", h.ListTemplates)
		api.GET("/templates/:id", h.GetTemplate)
		api.PUT("/templates/:id", h.UpdateTemplate)
		api.DELETE("/templates/:id", h.DeleteTemplate)
	}

	// Live notification feed
	r.GET("/ws/:user_id", func(c *gin.Context) {
		userID := c.Param("user_id")
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.WithError(err).Error("WebSocket upgrade failed")
			return
		}
		if !hub.Add(userID, conn) {
			conn.Close()
			return
		}
		go func() {
			defer func() {
				hub.Remove(userID, conn)
				conn.Close()
			}()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}
