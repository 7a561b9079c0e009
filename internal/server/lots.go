package server

import (
	"net/http"
	"strings"

	lotdomain "github.com/ferrolab/certline/internal/lot/domain"
	"github.com/ferrolab/certline/internal/workflow"
	"github.com/ferrolab/certline/pkg/db/pagination"
	"github.com/gin-gonic/gin"
)

func (s *Server) CreateLot(c *gin.Context) {
	var req lotdomain.CreateLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	lot, err := s.lotSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": lot})
}

type listLotsQuery struct {
	PageToken   string `form:"page_token"`
	PageSize    int32  `form:"page_size"`
	Status      string `form:"status"`
	Grade       string `form:"grade"`
	MeltNumber  string `form:"melt_number"`
	Supplier    string `form:"supplier"`
	OrderNumber string `form:"order_number"`
}

func (s *Server) ListLots(c *gin.Context) {
	var query listLotsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	status := strings.TrimSpace(query.Status)
	if status != "" {
		if _, ok := workflow.ParseStatus(status); !ok {
			AbortWithError(c, newValidationError("status", "invalid_status", "invalid status"))
			return
		}
	}

	resp, err := s.lotSvc.List(c.Request.Context(), lotdomain.ListLotsRequest{
		Status:      status,
		Grade:       strings.TrimSpace(query.Grade),
		MeltNumber:  strings.TrimSpace(query.MeltNumber),
		Supplier:    strings.TrimSpace(query.Supplier),
		OrderNumber: strings.TrimSpace(query.OrderNumber),
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Lots, "page_info": resp.PageInfo})
}

func (s *Server) GetLotByID(c *gin.Context) {
	lot, err := s.lotSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": lot})
}

type transitionLotRequest struct {
	Target           string   `json:"target"`
	ExpectedStatus   string   `json:"expected_status"`
	Comment          string   `json:"comment"`
	RejectionReasons []string `json:"rejection_reasons"`
	LabIssues        []string `json:"lab_issues"`
	LabOutcome       string   `json:"lab_outcome"`
}

func (s *Server) TransitionLot(c *gin.Context) {
	var body transitionLotRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	target, ok := workflow.ParseStatus(body.Target)
	if !ok {
		AbortWithError(c, newValidationError("target", "invalid_target", "invalid target status"))
		return
	}

	var expected workflow.Status
	if raw := strings.TrimSpace(body.ExpectedStatus); raw != "" {
		parsed, valid := workflow.ParseStatus(raw)
		if !valid {
			AbortWithError(c, newValidationError("expected_status", "invalid_expected_status", "invalid expected status"))
			return
		}
		expected = parsed
	}

	outcome := lotdomain.LabOutcome(strings.ToLower(strings.TrimSpace(body.LabOutcome)))
	switch outcome {
	case lotdomain.LabOutcomeNone, lotdomain.LabOutcomePassed, lotdomain.LabOutcomeFailed:
	default:
		AbortWithError(c, newValidationError("lab_outcome", "invalid_lab_outcome", "invalid lab outcome"))
		return
	}

	result, err := s.lotSvc.Transition(c.Request.Context(), lotdomain.TransitionRequest{
		LotID:            c.Param("id"),
		Target:           target,
		ExpectedStatus:   expected,
		Comment:          body.Comment,
		RejectionReasons: body.RejectionReasons,
		LabIssues:        body.LabIssues,
		LabOutcome:       outcome,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result.Lot, "warnings": result.Warnings})
}

func (s *Server) RequestLotEdit(c *gin.Context) {
	var body lotdomain.RequestEditRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	body.LotID = c.Param("id")

	lot, err := s.lotSvc.RequestEdit(c.Request.Context(), body)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": lot})
}

func (s *Server) DeleteLot(c *gin.Context) {
	if err := s.lotSvc.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
