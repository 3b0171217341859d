package handlers

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/calegrette/leaseguard/internal/analysis"
	"github.com/calegrette/leaseguard/internal/common"
	"github.com/calegrette/leaseguard/internal/notify"
)

// ExportReportPDF renders the full case report and streams it back as a
// download. A per-incident lock rejects a second export while one is
// running; the lock is always released, success or failure.
func (h *Handler) ExportReportPDF(c *gin.Context) {
	inc, logs, ok := h.loadIncidentAndLogs(c)
	if !ok {
		return
	}

	acquired, err := h.Redis.AcquireExportLock(c.Request.Context(), inc.ID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "redis error")
		return
	}
	if !acquired {
		common.Fail(c, http.StatusConflict, 40901, "an export for this incident is already running")
		return
	}
	defer func() {
		if err := h.Redis.ReleaseExportLock(c.Request.Context(), inc.ID); err != nil {
			log.Printf("export lock release failed incident=%d err=%v", inc.ID, err)
		}
	}()

	var buf bytes.Buffer
	if err := h.Generator.RenderIncidentReport(c.Request.Context(), inc, logs, &buf); err != nil {
		log.Printf("report export failed incident=%d err=%v", inc.ID, err)
		h.Notifier.Notify("Export failed", "The case report could not be generated.", notify.VariantError)
		common.Fail(c, http.StatusInternalServerError, 50006, "failed to generate report")
		return
	}

	// Analytics is best effort: a failed counter bump never fails the export.
	if err := h.Redis.TrackPDFExport(c.Request.Context()); err != nil {
		log.Printf("pdf export tracking failed incident=%d err=%v", inc.ID, err)
	}
	h.Notifier.Notify("Report exported", "Your case report PDF is ready.", notify.VariantSuccess)

	filename := fmt.Sprintf("case-report-%d.pdf", inc.ID)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}

// CreateAnalysisJob enqueues an async AI case analysis for the worker. An
// Idempotency-Key header makes retries safe: the same key returns the
// existing job instead of queueing a duplicate.
func (h *Handler) CreateAnalysisJob(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	id, err := incidentIDParam(c)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid incident id")
		return
	}
	if _, err := h.Incidents.GetOwned(c.Request.Context(), uid, id); err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40403, "incident not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	idempoKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	if len(idempoKey) > 128 {
		common.Fail(c, http.StatusBadRequest, 10003, "idempotency key too long")
		return
	}
	var idempoKeyPtr *string
	if idempoKey != "" {
		idempoKeyPtr = &idempoKey
	}

	jobID, err := common.NewULID()
	if err != nil {
		log.Printf("[CreateAnalysisJob] NewULID failed uid=%d incident=%d err=%v", uid, id, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	j := &analysis.Job{
		ID:             jobID,
		UserID:         uid,
		IncidentID:     id,
		IdempotencyKey: idempoKeyPtr,
		Status:         analysis.JobQueued,
	}

	job, created, err := h.AnalysisRepo.CreateJobOrGetExisting(c.Request.Context(), j)
	if err != nil {
		log.Printf("[CreateAnalysisJob] CreateJobOrGetExisting failed uid=%d incident=%d err=%v", uid, id, err)
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	// Enqueue only when a new job was created
	if created {
		if err := h.Rabbit.PublishJob(c.Request.Context(), job.ID); err != nil {
			log.Printf("[CreateAnalysisJob] PublishJob failed uid=%d incident=%d job=%s err=%v", uid, id, job.ID, err)
			common.Fail(c, http.StatusInternalServerError, 50002, "enqueue failed")
			return
		}
	}

	common.OK(c, gin.H{"job_id": job.ID})
}

func (h *Handler) GetAnalysisJob(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}
	jobID := c.Param("job_id")
	if jobID == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "job_id required")
		return
	}

	j, err := h.AnalysisRepo.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40402, "job not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	if j.UserID != uid {
		// hide existence
		common.Fail(c, http.StatusNotFound, 40402, "job not found")
		return
	}

	common.OK(c, gin.H{
		"job": gin.H{
			"id":            j.ID,
			"incident_id":   j.IncidentID,
			"status":        j.Status,
			"result_log_id": j.ResultLogID,
			"error":         j.Error,
			"created_at":    j.CreatedAt,
			"updated_at":    j.UpdatedAt,
		},
	})
}
