package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/calegrette/leaseguard/internal/common"
	"github.com/calegrette/leaseguard/internal/incident"
)

type createIncidentReq struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (h *Handler) CreateIncident(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	var req createIncidentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	inc, err := h.Incidents.Create(c.Request.Context(), uid, req.Title, req.Description)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "failed to create incident")
		return
	}
	common.OK(c, inc)
}

func (h *Handler) ListIncidents(c *gin.Context) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return
	}

	incs, err := h.Incidents.ListByUser(c.Request.Context(), uid)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list incidents")
		return
	}
	common.OK(c, gin.H{"incidents": incs})
}

func (h *Handler) GetIncident(c *gin.Context) {
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

	inc, err := h.Incidents.GetOwned(c.Request.Context(), uid, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40403, "incident not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.OK(c, inc)
}

type updateStatusReq struct {
	Status string `json:"status" binding:"required"`
}

func (h *Handler) UpdateIncidentStatus(c *gin.Context) {
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

	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	if err := h.Incidents.UpdateStatus(c.Request.Context(), uid, id, incident.IncidentStatus(req.Status)); err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40403, "incident not found")
			return
		}
		common.Fail(c, http.StatusBadRequest, 10005, "failed to update status")
		return
	}
	common.OK(c, gin.H{"status": req.Status})
}
