package gateway

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/saransh1220/ev-notify/internal/gateway/middleware"
	notification_http "github.com/saransh1220/ev-notify/internal/modules/notification/interfaces/http"
)

// RouterConfig holds all the handlers and middleware needed for routing
type RouterConfig struct {
	AuthMiddleware      *middleware.AuthMiddleWare
	NotificationHandler *notification_http.NotificationHandler
}

// SetupRoutes creates and configures all application routes
func SetupRoutes(config RouterConfig) *http.ServeMux {
	router := NewRouter()

	// Health Check
	router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Prometheus Metrics Endpoint
	router.Handle("GET /metrics", promhttp.Handler())

	n := config.NotificationHandler

	// Notification Routes
	user := router.Group("/api/notifications", config.AuthMiddleware.RequireAuth)
	user.HandleFunc("GET /prefs", n.GetPrefs)
	user.HandleFunc("PATCH /prefs", n.SetPrefs)
	user.HandleFunc("GET /stream", n.Stream)
	user.HandleFunc("GET /ws", n.Subscribe)
	user.HandleFunc("GET /pull", n.Pull)
	user.HandleFunc("POST /push", n.Push)

	admin := user.Group("", middleware.RequireRole(middleware.RoleAdmin))
	admin.HandleFunc("POST /emit", n.Emit)
	admin.HandleFunc("POST /broadcast", n.Broadcast)

	return router.Mux()
}
