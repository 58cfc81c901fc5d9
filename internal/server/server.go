package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/juanlo017/cerves-app/internal/auth"
	"github.com/juanlo017/cerves-app/internal/backup"
	"github.com/juanlo017/cerves-app/internal/config"
	"github.com/juanlo017/cerves-app/internal/handler"
	"github.com/juanlo017/cerves-app/internal/middleware"
	"github.com/juanlo017/cerves-app/internal/push"
	"github.com/juanlo017/cerves-app/internal/stats"
	"github.com/juanlo017/cerves-app/internal/store"
	ws "github.com/juanlo017/cerves-app/internal/websocket"
)

const (
	authRateLimit  = 10
	authRateWindow = time.Minute
)

type Server struct {
	hub      *ws.Hub
	tokens   *auth.TokenManager
	limiter  *middleware.RateLimiter
	registry *prometheus.Registry
	metrics  *middleware.Metrics

	playerStore     *store.PlayerStore
	invitationStore *store.InvitationStore

	authH        *handler.AuthHandler
	drinkH       *handler.DrinkHandler
	consumptionH *handler.ConsumptionHandler
	groupH       *handler.GroupHandler
	invitationH  *handler.InvitationHandler
	statsH       *handler.StatsHandler
	pushH        *handler.PushHandler
	backupH      *handler.BackupHandler

	statsService  *stats.Service
	pushNotifier  *push.Notifier
	backupManager *backup.Manager

	adminToken     string
	allowedOrigins []string
	logger         *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	playerStore := store.NewPlayerStore(db)
	drinkStore := store.NewDrinkStore(db)
	consumptionStore := store.NewConsumptionStore(db)
	groupStore := store.NewGroupStore(db)
	invitationStore := store.NewInvitationStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	devices := auth.NewDeviceAuthenticator(playerStore)
	statsSvc := stats.NewService(consumptionStore, playerStore, cfg.WeeklyGoalLiters)

	var pushNotifier *push.Notifier
	var publicKey string
	if cfg.PushEnabled() {
		svc := push.NewService(cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey, cfg.VAPIDSubscriber)
		pushNotifier = push.NewNotifier(svc, pushStore, logger.With("component", "push"))
		publicKey = svc.VAPIDPublicKey()
	}

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.S3Endpoint,
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		},
		Passphrase:    cfg.BackupPassphrase,
		RetentionDays: cfg.BackupRetentionDays,
	}, db, backupStore, logger.With("component", "backup"))

	notifier := handler.NewNotifier(hub, pushNotifier, invitationStore, logger.With("component", "notify"))

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "cerves",
			Name:      "websocket_clients",
			Help:      "Connected websocket clients.",
		}, func() float64 { return float64(hub.ClientCount()) }),
	)

	return &Server{
		hub:      hub,
		tokens:   tokens,
		limiter:  middleware.NewRateLimiter(),
		registry: registry,
		metrics:  middleware.NewMetrics(registry),

		playerStore:     playerStore,
		invitationStore: invitationStore,

		authH:        handler.NewAuthHandler(devices, tokens, playerStore, consumptionStore, logger.With("component", "auth")),
		drinkH:       handler.NewDrinkHandler(drinkStore, hub, logger.With("component", "drink")),
		consumptionH: handler.NewConsumptionHandler(consumptionStore, drinkStore, groupStore, notifier, logger.With("component", "consumption")),
		groupH:       handler.NewGroupHandler(groupStore, playerStore, consumptionStore, notifier, logger.With("component", "group")),
		invitationH:  handler.NewInvitationHandler(invitationStore, groupStore, playerStore, notifier, logger.With("component", "invitation")),
		statsH:       handler.NewStatsHandler(statsSvc, logger.With("component", "stats")),
		pushH:        handler.NewPushHandler(pushStore, publicKey, logger.With("component", "push_handler")),
		backupH:      handler.NewBackupHandler(backupMgr, backupStore, logger.With("component", "backup_handler")),

		statsService:  statsSvc,
		pushNotifier:  pushNotifier,
		backupManager: backupMgr,

		adminToken:     cfg.AdminToken,
		allowedOrigins: cfg.AllowedOrigins,
		logger:         logger,
	}
}

// Hub returns the websocket hub for background jobs.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.limiter
}

// InvitationStore returns the invitation store for expiry tasks.
func (s *Server) InvitationStore() *store.InvitationStore {
	return s.invitationStore
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// PushNotifier returns the push notifier, nil when push is not configured.
func (s *Server) PushNotifier() *push.Notifier {
	return s.pushNotifier
}

// Stats returns the dashboard service used by the weekly recap.
func (s *Server) Stats() *stats.Service {
	return s.statsService
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	// Public routes
	mux.HandleFunc("GET /health", s.healthHandler)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.Handle("POST /api/auth/sign-in", s.rateLimited(s.authH.SignIn))
	mux.Handle("POST /api/auth/onboarding", s.rateLimited(s.authH.CompleteOnboarding))

	s.registerProtectedRoutes(mux)
	s.registerAdminRoutes(mux)

	// The metrics wrapper sits directly on the mux so it sees r.Pattern.
	return middleware.RequestLogger(s.logger.With("component", "http"))(s.metrics.Instrument(mux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"status": "ok", "clients": s.hub.ClientCount()})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.Handler {
	return middleware.RateLimit(s.limiter, middleware.RealIP, authRateLimit, authRateWindow)(h)
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	requireAuth := middleware.RequireAuth(s.tokens, s.playerStore)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, requireAuth(h))
	}
	requireAdmin := middleware.RequireAdmin(s.adminToken)
	handleAdmin := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, requireAuth(requireAdmin(h)))
	}

	// Session and profile
	handle("POST /api/auth/sign-out", s.authH.SignOut)
	handle("GET /api/me", s.authH.Me)
	handle("PUT /api/me", s.authH.UpdateMe)
	handle("DELETE /api/me", s.authH.DeleteMe)
	handle("GET /api/me/groups", s.authH.MyGroups)
	handle("GET /api/me/stats", s.authH.MyStats)
	handle("GET /api/players/search", s.authH.SearchPlayers)

	// Drink catalog
	handle("GET /api/drinks", s.drinkH.List)
	handle("GET /api/drinks/categories/{category}", s.drinkH.ListByCategory)
	handle("GET /api/drinks/{id}", s.drinkH.Get)
	handleAdmin("POST /api/drinks", s.drinkH.Create)
	handleAdmin("PUT /api/drinks/{id}", s.drinkH.Update)
	handleAdmin("POST /api/drinks/{id}/deactivate", s.drinkH.Deactivate)
	handleAdmin("DELETE /api/drinks/{id}", s.drinkH.Delete)

	// Consumptions
	handle("GET /api/consumptions", s.consumptionH.List)
	handle("POST /api/consumptions", s.consumptionH.Create)
	handle("PUT /api/consumptions/{id}", s.consumptionH.Update)
	handle("DELETE /api/consumptions/{id}", s.consumptionH.Delete)

	// Groups
	handle("POST /api/groups", s.groupH.Create)
	handle("POST /api/groups/join", s.groupH.Join)
	handle("GET /api/group-codes/{code}", s.groupH.GetByCode)
	handle("GET /api/groups/{id}", s.groupH.Get)
	handle("PUT /api/groups/{id}", s.groupH.Update)
	handle("DELETE /api/groups/{id}", s.groupH.Delete)
	handle("GET /api/groups/{id}/members", s.groupH.Members)
	handle("DELETE /api/groups/{id}/members/{user_id}", s.groupH.RemoveMember)
	handle("GET /api/groups/{id}/leaderboard", s.groupH.Leaderboard)
	handle("GET /api/groups/{id}/consumptions", s.groupH.Consumptions)

	// Invitations
	handle("POST /api/groups/{id}/invitations", s.invitationH.Create)
	handle("GET /api/groups/{id}/invitations/candidates", s.invitationH.Candidates)
	handle("GET /api/invitations", s.invitationH.List)
	handle("GET /api/invitations/count", s.invitationH.Count)
	handle("POST /api/invitations/{id}/accept", s.invitationH.Accept)
	handle("POST /api/invitations/{id}/decline", s.invitationH.Decline)

	// Dashboards and rankings
	handle("GET /api/stats/weekly", s.statsH.Weekly)
	handle("GET /api/stats/monthly", s.statsH.Monthly)
	handle("GET /api/stats/streak", s.statsH.Streak)
	handle("GET /api/stats/last-update", s.statsH.LastUpdate)
	handle("GET /api/rankings", s.statsH.Rankings)

	// Push notifications
	handle("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
	handle("POST /api/push/subscribe", s.pushH.Subscribe)
	handle("GET /api/push/subscriptions", s.pushH.ListSubscriptions)
	handle("DELETE /api/push/subscriptions/{id}", s.pushH.Unsubscribe)

	// WebSocket
	handle("GET /ws", ws.HandleWebSocket(s.hub, s.allowedOrigins, s.logger.With("component", "websocket")))
}

// registerAdminRoutes mounts operator endpoints that need only the admin token.
func (s *Server) registerAdminRoutes(mux *http.ServeMux) {
	requireAdmin := middleware.RequireAdmin(s.adminToken)
	mux.Handle("POST /api/admin/backups", requireAdmin(http.HandlerFunc(s.backupH.Run)))
	mux.Handle("GET /api/admin/backups", requireAdmin(http.HandlerFunc(s.backupH.List)))
	mux.Handle("GET /api/admin/backups/{id}/download", requireAdmin(http.HandlerFunc(s.backupH.Download)))
}
