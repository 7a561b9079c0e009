package server

import (
	"net/http"

	lotdomain "github.com/ferrolab/certline/internal/lot/domain"
	"github.com/gin-gonic/gin"
)

func (s *Server) SubmitQCCheck(c *gin.Context) {
	var body lotdomain.SubmitQCCheckRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	body.LotID = c.Param("id")

	check, err := s.lotSvc.SubmitQCCheck(c.Request.Context(), body)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": check})
}

func (s *Server) GetQCCheck(c *gin.Context) {
	check, err := s.lotSvc.GetQCCheck(c.Request.Context(), c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": check})
}
