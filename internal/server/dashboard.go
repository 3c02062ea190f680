package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	recorddomain "github.com/stayops/revaudit/internal/auditrecord/domain"
	dashboarddomain "github.com/stayops/revaudit/internal/dashboard/domain"
)

type dashboardMetricsQuery struct {
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	EntityID  string `form:"entityId"`
}

func (s *Server) DashboardMetrics(c *gin.Context) {
	rc, ok := roleFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query dashboardMetricsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	startDate, err := parseOptionalTime(query.StartDate, false)
	if err != nil {
		AbortWithError(c, recorddomain.ErrInvalidDateRange)
		return
	}
	endDate, err := parseOptionalTime(query.EndDate, true)
	if err != nil {
		AbortWithError(c, recorddomain.ErrInvalidDateRange)
		return
	}

	result, err := s.dashboardSvc.Metrics(c.Request.Context(), rc, dashboarddomain.MetricsRequest{
		StartDate: startDate,
		EndDate:   endDate,
		EntityID:  strings.TrimSpace(query.EntityID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}
