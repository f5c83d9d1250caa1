package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/pillarworks/meridian/internal/audit/domain"
	organizationdomain "github.com/pillarworks/meridian/internal/organization/domain"
)

func (s *Server) GetOrganization(c *gin.Context) {
	id, err := parseOrgID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	org, err := s.orgSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": org})
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (s *Server) UpdateOrganizationStatus(c *gin.Context) {
	id, err := parseOrgID(c.Param("id"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	status := organizationdomain.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		AbortWithError(c, newValidationError("status", "invalid_status", "unknown organization status"))
		return
	}

	ctx := c.Request.Context()
	changed, err := s.orgSvc.UpdateStatus(ctx, nil, id, status, strings.TrimSpace(req.Reason))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit.LogEvent(ctx, nil, &id, auditdomain.CategoryAdmin, "admin_status_update", map[string]any{
		"status":  string(status),
		"reason":  req.Reason,
		"changed": changed,
	})
	c.JSON(http.StatusOK, gin.H{"changed": changed})
}

type bulkStatusRequest struct {
	OrganizationIDs []string `json:"organization_ids"`
	Status          string   `json:"status"`
	Reason          string   `json:"reason"`
}

func (s *Server) BulkUpdateStatus(c *gin.Context) {
	var req bulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ids, err := parseOrgIDs(req.OrganizationIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := organizationdomain.Status(strings.ToLower(strings.TrimSpace(req.Status)))
	if !status.Valid() {
		AbortWithError(c, newValidationError("status", "invalid_status", "unknown organization status"))
		return
	}

	ctx := c.Request.Context()
	result, err := s.orgSvc.BulkUpdateStatus(ctx, ids, status, strings.TrimSpace(req.Reason))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit.LogEvent(ctx, nil, nil, auditdomain.CategoryAdmin, "admin_bulk_status_update", map[string]any{
		"status":  string(status),
		"reason":  req.Reason,
		"updated": len(result.Updated),
		"skipped": len(result.Skipped),
	})
	c.JSON(http.StatusOK, gin.H{"data": result})
}

type bulkExtendTrialRequest struct {
	OrganizationIDs []string `json:"organization_ids"`
	Days            int      `json:"days"`
}

func (s *Server) BulkExtendTrial(c *gin.Context) {
	var req bulkExtendTrialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ids, err := parseOrgIDs(req.OrganizationIDs)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	result, err := s.orgSvc.BulkExtendTrial(ctx, ids, req.Days)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.audit.LogEvent(ctx, nil, nil, auditdomain.CategoryAdmin, "admin_bulk_extend_trial", map[string]any{
		"days":    req.Days,
		"updated": len(result.Updated),
		"skipped": len(result.Skipped),
	})
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	filter := auditdomain.ListFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Action:   strings.TrimSpace(c.Query("action")),
	}

	if raw := strings.TrimSpace(c.Query("org_id")); raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("org_id", "invalid_id", "invalid organization id"))
			return
		}
		filter.OrgID = id
	}
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "invalid limit"))
			return
		}
		filter.Limit = limit
	}

	var err error
	if filter.StartAt, err = parseTimeQuery(c.Query("start")); err != nil {
		AbortWithError(c, newValidationError("start", "invalid_time", "invalid start time"))
		return
	}
	if filter.EndAt, err = parseTimeQuery(c.Query("end")); err != nil {
		AbortWithError(c, newValidationError("end", "invalid_time", "invalid end time"))
		return
	}

	entries, err := s.auditRepo.List(c.Request.Context(), s.db, filter)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func parseOrgID(raw string) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, newValidationError("id", "missing_id", "org id is required")
	}
	id, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, newValidationError("id", "invalid_id", "invalid organization id")
	}
	return id, nil
}

func parseOrgIDs(raw []string) ([]snowflake.ID, error) {
	if len(raw) == 0 {
		return nil, newValidationError("organization_ids", "required", "organization_ids is required")
	}
	ids := make([]snowflake.ID, 0, len(raw))
	for _, value := range raw {
		id, err := parseOrgID(value)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseTimeQuery(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	at, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &at, nil
}
