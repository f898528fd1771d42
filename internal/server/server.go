package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dstclair/fanpulse/internal/backup"
	"github.com/dstclair/fanpulse/internal/handler"
	"github.com/dstclair/fanpulse/internal/middleware"
	"github.com/dstclair/fanpulse/internal/push"
	"github.com/dstclair/fanpulse/internal/scoring"
	"github.com/dstclair/fanpulse/internal/store"
	ws "github.com/dstclair/fanpulse/internal/websocket"
)

// Config holds the server-level knobs main reads from the environment.
type Config struct {
	AdminToken   string
	ReminderHour int
	Backup       backup.Config
	Push         push.Config
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	awardH        *handler.AwardHandler
	leaderboardH  *handler.LeaderboardHandler
	userH         *handler.UserHandler
	ruleH         *handler.RuleHandler
	achievementH  *handler.AchievementHandler
	pushH         *handler.PushHandler
	adminToken    string
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	pushScheduler *push.Scheduler
	logger        *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) (*Server, error) {
	hub := ws.NewHub(logger.With("component", "websocket"))

	ruleStore := store.NewScoringRuleStore(db)
	eventStore := store.NewScoreEventStore(db)
	scoreStore := store.NewUserScoreStore(db)
	achievementStore := store.NewAchievementStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)

	pushLogger := logger.With("component", "push")

	var pushSvc *push.Service
	var pushH *handler.PushHandler
	var notifier *push.Notifier
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc = push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey)
		pushH = handler.NewPushHandler(pushStore, pushSvc, pushLogger)
		notifier = push.NewNotifier(pushSvc, pushStore, hub, pushLogger)
	}

	// notifier may be a typed nil; the scoring service checks for nil through
	// the interface, so only hand it a non-nil implementation
	var scoringNotifier scoring.Notifier
	if notifier != nil {
		scoringNotifier = notifier
	}

	scoringSvc := scoring.New(db, ruleStore, eventStore, scoreStore, achievementStore,
		scoringNotifier, logger.With("component", "scoring"))

	var pushSched *push.Scheduler
	if notifier != nil {
		pushSched = push.NewScheduler(notifier, pushStore, eventStore,
			scoringSvc.Streaks(), cfg.ReminderHour, pushLogger)
	}

	backupMgr, err := backup.NewManager(cfg.Backup, db, backupStore, func(s backup.Status) {
		hub.Broadcast(ws.Message{
			Type:   "backup_status",
			Entity: "backup",
			Action: string(s.State),
			Extra: map[string]any{
				"in_progress": s.InProgress,
				"error":       s.Error,
			},
		})
	}, logger.With("component", "backup"))
	if err != nil {
		return nil, err
	}

	leaderboard := scoring.NewLeaderboardService(scoreStore)

	return &Server{
		db:            db,
		hub:           hub,
		awardH:        handler.NewAwardHandler(scoringSvc, logger.With("component", "award")),
		leaderboardH:  handler.NewLeaderboardHandler(leaderboard, logger.With("component", "leaderboard")),
		userH:         handler.NewUserHandler(scoreStore, achievementStore, scoringSvc.Streaks(), logger.With("component", "user")),
		ruleH:         handler.NewRuleHandler(ruleStore, logger.With("component", "rule")),
		achievementH:  handler.NewAchievementHandler(achievementStore, logger.With("component", "achievement")),
		pushH:         pushH,
		adminToken:    cfg.AdminToken,
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		pushScheduler: pushSched,
		logger:        logger,
	}, nil
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// BackupManager returns the backup manager.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// PushScheduler returns the streak reminder scheduler, or nil when push is
// not configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushScheduler
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)

	// Award pipeline
	mux.HandleFunc("POST /api/awards", s.rateLimitedHandler(s.awardH.Award))

	// Read API
	mux.HandleFunc("GET /api/leaderboard", s.leaderboardH.Get)
	mux.HandleFunc("GET /api/users/{id}/score", s.userH.Score)
	mux.HandleFunc("GET /api/users/{id}/achievements", s.userH.Achievements)
	mux.HandleFunc("GET /api/users/{id}/streaks", s.userH.Streaks)

	// Push subscription API
	if s.pushH != nil {
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
	}

	// Admin API — rule and achievement catalog management
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("POST /api/admin/rules", s.ruleH.Create)
	adminMux.HandleFunc("GET /api/admin/rules", s.ruleH.List)
	adminMux.HandleFunc("GET /api/admin/rules/{id}", s.ruleH.Get)
	adminMux.HandleFunc("DELETE /api/admin/rules/{id}", s.ruleH.Deactivate)
	adminMux.HandleFunc("POST /api/admin/achievements", s.achievementH.Create)
	adminMux.HandleFunc("GET /api/admin/achievements", s.achievementH.List)
	adminMux.HandleFunc("DELETE /api/admin/achievements/{id}", s.achievementH.Deactivate)
	mux.Handle("/api/admin/", middleware.RequireAdmin(s.adminToken)(adminMux))

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	return middleware.RequestLogger(s.logger.With("component", "http"))(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 60, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}
