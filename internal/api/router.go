package api

import (
	"context"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"edclub/internal/attendance"
	"edclub/internal/auth"
	"edclub/internal/badges"
	"edclub/internal/cloudinary"
	"edclub/internal/config"
	"edclub/internal/events"
	"edclub/internal/httpmiddleware"
	"edclub/internal/posts"
	"edclub/internal/queue"
)

// AuthService is the account surface the handlers need.
type AuthService interface {
	Register(ctx context.Context, email, password, role string) (auth.User, *auth.Session, error)
	Login(ctx context.Context, email, password string) (auth.User, auth.Session, error)
	Refresh(ctx context.Context, refreshToken string) (auth.Session, error)
	UserByID(ctx context.Context, id string) (auth.User, error)
}

// EventService is the agenda surface the handlers need.
type EventService interface {
	List(ctx context.Context, teamID string) ([]events.Event, error)
	Upcoming(ctx context.Context, limit int) ([]events.Event, error)
	Create(ctx context.Context, teamID, title string, startsAt, endsAt time.Time) (events.Event, error)
}

// AttendanceService is the attendance/engagement surface the handlers need.
type AttendanceService interface {
	Submit(ctx context.Context, userID, eventID, status string) (attendance.Attendance, error)
	List(ctx context.Context, userID, eventID string) ([]attendance.Attendance, error)
	Progress(ctx context.Context, userID string) (attendance.Progress, error)
	Rank(ctx context.Context) ([]attendance.RankRow, error)
}

// BadgeService is the badge surface the handlers need.
type BadgeService interface {
	ListForUser(ctx context.Context, userID string) ([]badges.Badge, error)
	Grant(ctx context.Context, userID, badgeID string) (badges.Assignment, error)
	CountAwarded(ctx context.Context, userID string) (int, error)
	SetIcon(ctx context.Context, badgeID, iconURL string) error
}

// PostService is the feed surface the handlers need.
type PostService interface {
	Feed(ctx context.Context) ([]posts.Post, error)
	Create(ctx context.Context, userID, content string) (posts.Post, error)
}

// Handlers bundles the services behind the HTTP surface. Uploader and
// Queue may be nil; the dependent endpoints degrade gracefully.
type Handlers struct {
	Auth       AuthService
	Events     EventService
	Attendance AttendanceService
	Badges     BadgeService
	Posts      PostService
	Queue      queue.Queue
	Uploader   *cloudinary.Client
}

// Setup builds the Gin engine with the full middleware stack and routes.
// health may be nil when no backing stores are wired (tests).
func Setup(cfg config.App, h *Handlers, health gin.HandlerFunc) *gin.Engine {
	useJSONFieldNames()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if health != nil {
		r.GET("/healthz", health)
	}

	api := r.Group("/api")
	api.POST("/auth/register", h.register)
	api.POST("/auth/login", h.login)
	api.POST("/auth/refresh", h.refresh)

	authed := api.Group("", auth.RequireAuth(cfg.JWTSigningKey, cfg.JWTIssuer))
	authed.GET("/auth/profile", h.profile)
	authed.GET("/events", h.listEvents)
	authed.GET("/attendance", h.listAttendance)
	authed.POST("/attendance", h.submitAttendance)
	authed.GET("/badges", h.listBadges)
	authed.GET("/posts", h.listPosts)
	authed.POST("/posts", h.createPost)
	authed.GET("/engagement/progress", h.progress)
	authed.GET("/engagement/rank", h.rank)

	teacher := authed.Group("", auth.RequireTeacher())
	teacher.POST("/events", h.createEvent)
	teacher.POST("/badges", h.grantBadge)
	teacher.POST("/badges/:id/icon", h.uploadBadgeIcon)

	return r
}

// useJSONFieldNames makes validator report json tag names in field errors.
func useJSONFieldNames() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}
