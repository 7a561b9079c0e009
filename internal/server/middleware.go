package server

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ferrolab/certline/internal/actorcontext"
	"github.com/ferrolab/certline/internal/seed"
	"github.com/ferrolab/certline/internal/workflow"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	HeaderRequestID = "X-Request-Id"
	HeaderActorID   = "X-Actor-Id"
	HeaderActorRole = "X-Actor-Role"
	HeaderActorName = "X-Actor-Name"
)

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		c.Set("request_id", id)
		c.Next()
	}
}

func AccessLog(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http.access")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
		}
		if actor, ok := actorcontext.FromContext(c.Request.Context()); ok {
			fields = append(fields, zap.String("actor_id", actor.ID.String()))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("error", c.Errors.Last().Error()))
		}

		if c.Writer.Status() >= http.StatusInternalServerError {
			log.Error("request", fields...)
			return
		}
		log.Info("request", fields...)
	}
}

// ActorRequired resolves the caller identity from the trusted gateway headers.
// The role header is optional for registered actors: when absent the role is
// looked up in the actors registry.
func (s *Server) ActorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		actorID, ok := actorcontext.ParseActorID(c.GetHeader(HeaderActorID))
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		actor := actorcontext.Actor{
			ID:   actorID,
			Name: strings.TrimSpace(c.GetHeader(HeaderActorName)),
		}

		if raw := strings.TrimSpace(c.GetHeader(HeaderActorRole)); raw != "" {
			role, valid := workflow.ParseRole(raw)
			if !valid {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			actor.Role = role
		} else {
			registered, err := seed.LookupActor(c.Request.Context(), s.db, actorID)
			if err != nil {
				AbortWithError(c, err)
				return
			}
			if registered == nil {
				AbortWithError(c, ErrUnauthorized)
				return
			}
			actor.Role = registered.Role
			if actor.Name == "" {
				actor.Name = registered.Name
			}
		}

		c.Request = c.Request.WithContext(actorcontext.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func (s *Server) authorizeAction(object, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := actorcontext.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if err := s.authzSvc.Authorize(c.Request.Context(), actor, object, action); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}

// TransitionRateLimit throttles status transitions per actor. With no limiter
// configured every request passes.
func (s *Server) TransitionRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.transitionLimiter.Enabled() {
			c.Next()
			return
		}

		actor, ok := actorcontext.FromContext(c.Request.Context())
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		result, err := s.transitionLimiter.AllowActor(c.Request.Context(), actor.ID.String())
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if !result.Allowed {
			retryAfter := int(math.Ceil(result.RetryAfter.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorPayload{
				Type:    "rate_limited",
				Message: "too many transition requests",
			}})
			return
		}
		c.Next()
	}
}
