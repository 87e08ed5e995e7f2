// Package httpserver exposes the REST API on fiber.
package httpserver

import (
	"fmt"
	"strings"
	"time"

	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlimiter "github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"go.uber.org/zap"

	"github.com/and161185/spell-keeper/internal/errs"
	"github.com/and161185/spell-keeper/internal/service"
)

// Deps carries everything the API needs.
type Deps struct {
	Auth      service.AuthService
	Spells    Spells
	Completer Completer
	Stats     Stats
	DB        Pinger

	Log         *zap.Logger
	JWTKey      []byte
	CORSOrigins []string
	// RateLimit is requests per minute per client IP on /api; 0 disables it.
	RateLimit int
	Sentry    bool
	Now       func() time.Time
}

// New builds the fiber app with middleware and routes.
func New(d Deps) *fiber.App {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	log := d.Log.Named("http")

	app := fiber.New(fiber.Config{
		AppName:               "spell-keeper",
		ErrorHandler:          errorHandler(log),
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		IdleTimeout:           120 * time.Second,
	})

	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			log.Error("panic", zap.String("path", c.Path()), zap.Any("panic", e), zap.Stack("stack"))
		},
	}))
	if d.Sentry {
		app.Use(sentryfiber.New(sentryfiber.Options{Repanic: true, WaitForDelivery: false}))
	}
	app.Use(requestid.New())
	app.Use(accessLog(log))

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(origins, ","),
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization,X-Request-ID",
	}))

	h := &handlers{
		auth:     d.Auth,
		spells:   d.Spells,
		complete: d.Completer,
		stats:    d.Stats,
		db:       d.DB,
		now:      d.Now,
	}

	api := app.Group("/api")
	if d.RateLimit > 0 {
		api.Use(fiberlimiter.New(fiberlimiter.Config{
			Max:               d.RateLimit,
			Expiration:        time.Minute,
			LimiterMiddleware: fiberlimiter.SlidingWindow{},
			KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
			LimitReached: func(c *fiber.Ctx) error {
				return fmt.Errorf("%w: too many requests", errs.ErrRateLimited)
			},
		}))
	}

	api.Get("/health", h.health)
	api.Post("/auth/register", h.register)
	api.Post("/auth/login", h.login)
	api.Get("/talismans", h.catalog)
	api.Get("/leaderboard", h.leaderboard)

	auth := authRequired(d.JWTKey)

	user := api.Group("/user", auth...)
	user.Get("/profile", h.profile)
	user.Get("/stats", h.userStats)
	user.Get("/talismans", h.userTalismans)

	spells := api.Group("/spells", auth...)
	spells.Post("/", h.createSpell)
	spells.Get("/", h.listSpells)
	spells.Get("/:id", h.getSpell)
	spells.Put("/:id", h.updateSpell)
	spells.Delete("/:id", h.deleteSpell)
	spells.Post("/:id/complete", h.completeSpell)

	return app
}
