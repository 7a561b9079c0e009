package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/ferrolab/certline/internal/audit/domain"
	"github.com/gin-gonic/gin"
)

type listAuditLogsQuery struct {
	ActorID  string `form:"actor_id"`
	EntityID string `form:"entity_id"`
	Search   string `form:"search"`
	Limit    int    `form:"limit"`
}

// ListAuditLogs serves the trail in four modes: by actor, by entity, by text
// search, or most recent. The modes are mutually exclusive; actor wins over
// entity, entity over search.
func (s *Server) ListAuditLogs(c *gin.Context) {
	var query listAuditLogsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ctx := c.Request.Context()

	var (
		entries []auditdomain.AuditEntry
		err     error
	)
	switch {
	case strings.TrimSpace(query.ActorID) != "":
		var actorID snowflake.ID
		actorID, err = snowflake.ParseString(strings.TrimSpace(query.ActorID))
		if err != nil {
			AbortWithError(c, newValidationError("actor_id", "invalid_actor_id", "invalid actor id"))
			return
		}
		entries, err = s.auditSvc.ByActor(ctx, actorID, query.Limit)
	case strings.TrimSpace(query.EntityID) != "":
		entries, err = s.auditSvc.ByEntity(ctx, strings.TrimSpace(query.EntityID), query.Limit)
	case strings.TrimSpace(query.Search) != "":
		entries, err = s.auditSvc.Search(ctx, strings.TrimSpace(query.Search), query.Limit)
	default:
		entries, err = s.auditSvc.Recent(ctx, query.Limit)
	}
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
