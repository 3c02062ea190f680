package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	recorddomain "github.com/stayops/revaudit/internal/auditrecord/domain"
)

type listRecordsQuery struct {
	Page           int    `form:"page"`
	Limit          int    `form:"limit"`
	Search         string `form:"search"`
	SortBy         string `form:"sortBy"`
	SortOrder      string `form:"sortOrder"`
	PortfolioID    string `form:"portfolioId"`
	SubPortfolioID string `form:"subPortfolioId"`
	PropertyID     string `form:"propertyId"`
	PostingType    string `form:"postingType"`
	StartDate      string `form:"startDate"`
	EndDate        string `form:"endDate"`
}

func (q listRecordsQuery) toListRequest() (recorddomain.ListRequest, error) {
	startDate, err := parseOptionalTime(q.StartDate, false)
	if err != nil {
		return recorddomain.ListRequest{}, recorddomain.ErrInvalidDateRange
	}
	endDate, err := parseOptionalTime(q.EndDate, true)
	if err != nil {
		return recorddomain.ListRequest{}, recorddomain.ErrInvalidDateRange
	}

	return recorddomain.ListRequest{
		Page:           q.Page,
		Limit:          q.Limit,
		Search:         strings.TrimSpace(q.Search),
		SortBy:         strings.TrimSpace(q.SortBy),
		SortOrder:      strings.TrimSpace(q.SortOrder),
		PortfolioID:    strings.TrimSpace(q.PortfolioID),
		SubPortfolioID: strings.TrimSpace(q.SubPortfolioID),
		PropertyID:     strings.TrimSpace(q.PropertyID),
		PostingType:    strings.TrimSpace(q.PostingType),
		StartDate:      startDate,
		EndDate:        endDate,
	}, nil
}

func (s *Server) ListRecords(c *gin.Context) {
	rc, ok := roleFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query listRecordsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	req, err := query.toListRequest()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp, err := s.recordSvc.List(c.Request.Context(), rc, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) GetRecord(c *gin.Context) {
	rc, ok := roleFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	record, err := s.recordSvc.Get(c.Request.Context(), rc, c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (s *Server) UpdateRecord(c *gin.Context) {
	rc, ok := roleFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var patch map[string]any
	if err := c.ShouldBindJSON(&patch); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	record, err := s.recordSvc.Update(c.Request.Context(), rc, c.Param("id"), patch)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": record})
}

func (s *Server) DeleteRecord(c *gin.Context) {
	rc, ok := roleFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.recordSvc.Delete(c.Request.Context(), rc, c.Param("id")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

type updateRecordFilesRequest struct {
	Updates []recorddomain.FileUpdate `json:"updates"`
}

func (s *Server) UpdateRecordFiles(c *gin.Context) {
	rc, ok := roleFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var body updateRecordFilesRequest
	if err := c.ShouldBindJSON(&body); err != nil || len(body.Updates) == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	results, err := s.recordSvc.UpdateFiles(c.Request.Context(), rc, body.Updates)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (s *Server) ExportRecords(c *gin.Context) {
	rc, ok := roleFromRequest(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var query listRecordsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	req, err := query.toListRequest()
	if err != nil {
		AbortWithError(c, err)
		return
	}

	workbook, err := s.recordSvc.Export(c.Request.Context(), rc, req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	filename := fmt.Sprintf("audit-records-%s.xlsx", time.Now().UTC().Format(dateOnlyLayout))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", workbook)
}
