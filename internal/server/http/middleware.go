package httpserver

import (
	"fmt"
	"time"

	jwtware "github.com/gofiber/contrib/jwt"
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid/v5"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/and161185/spell-keeper/internal/errs"
)

// accessLog logs request metadata only, never payloads. Errors are rendered here
// so the logged status is the one the client sees.
func accessLog(log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		if err := c.Next(); err != nil {
			if herr := c.App().Config().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		log.Info("http",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("dur", time.Since(start)),
			zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
			zap.String("peer", c.IP()),
		)
		return nil
	}
}

// authRequired verifies the bearer JWT and puts the subject into the user context.
func authRequired(signKey []byte) []fiber.Handler {
	verify := jwtware.New(jwtware.Config{
		SigningKey: jwtware.SigningKey{JWTAlg: jwt.SigningMethodHS256.Alg(), Key: signKey},
		ErrorHandler: func(_ *fiber.Ctx, err error) error {
			return fmt.Errorf("%w: %v", errs.ErrUnauthorized, err)
		},
	})
	subject := func(c *fiber.Ctx) error {
		tok, ok := c.Locals("user").(*jwt.Token)
		if !ok {
			return errs.ErrUnauthorized
		}
		if tok.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return fmt.Errorf("%w: unexpected signing method", errs.ErrUnauthorized)
		}
		sub, err := tok.Claims.GetSubject()
		if err != nil {
			return fmt.Errorf("%w: bad subject", errs.ErrUnauthorized)
		}
		id, err := uuid.FromString(sub)
		if err != nil || id == uuid.Nil {
			return fmt.Errorf("%w: bad subject", errs.ErrUnauthorized)
		}
		c.SetUserContext(WithUserID(c.UserContext(), id))
		return c.Next()
	}
	return []fiber.Handler{verify, subject}
}

func currentUser(c *fiber.Ctx) (uuid.UUID, error) {
	id, ok := UserIDFromCtx(c.UserContext())
	if !ok {
		return uuid.Nil, errs.ErrUnauthorized
	}
	return id, nil
}
