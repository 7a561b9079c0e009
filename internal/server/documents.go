package server

import (
	"net/http"
	"strings"

	"github.com/ferrolab/certline/internal/document"
	"github.com/gin-gonic/gin"
)

type searchDocumentsQuery struct {
	Text        string `form:"q"`
	Grade       string `form:"grade"`
	Melt        string `form:"melt"`
	Shape       string `form:"shape"`
	OrderNumber string `form:"order_number"`
}

func (s *Server) SearchDocuments(c *gin.Context) {
	var query searchDocumentsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	paths, err := s.docs.Search(c.Request.Context(), document.SearchCriteria{
		Text:        strings.TrimSpace(query.Text),
		Grade:       strings.TrimSpace(query.Grade),
		Melt:        strings.TrimSpace(query.Melt),
		Shape:       strings.TrimSpace(query.Shape),
		OrderNumber: strings.TrimSpace(query.OrderNumber),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": paths})
}
