package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/calegrette/leaseguard/internal/common"
	"github.com/calegrette/leaseguard/internal/evidence"
	"github.com/calegrette/leaseguard/internal/incident"
)

// loadIncidentAndLogs resolves the owned incident and its ordered log list,
// writing the error response itself when something is off.
func (h *Handler) loadIncidentAndLogs(c *gin.Context) (*incident.Incident, []incident.Log, bool) {
	uid, okk := userIDFromContext(c)
	if !okk {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return nil, nil, false
	}
	id, err := incidentIDParam(c)
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid incident id")
		return nil, nil, false
	}

	inc, err := h.Incidents.GetOwned(c.Request.Context(), uid, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40403, "incident not found")
			return nil, nil, false
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return nil, nil, false
	}

	logs, err := h.Incidents.Logs(c.Request.Context(), id)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to load logs")
		return nil, nil, false
	}
	return inc, logs, true
}

func (h *Handler) GetTimeline(c *gin.Context) {
	_, logs, ok := h.loadIncidentAndLogs(c)
	if !ok {
		return
	}
	common.OK(c, gin.H{"items": evidence.BuildTimeline(logs)})
}

func (h *Handler) GetFileGroups(c *gin.Context) {
	inc, logs, ok := h.loadIncidentAndLogs(c)
	if !ok {
		return
	}
	common.OK(c, gin.H{"groups": evidence.BuildFileGroups(logs, inc)})
}
