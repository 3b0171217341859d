package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/calegrette/leaseguard/internal/common"
	"github.com/calegrette/leaseguard/internal/incident"
)

func validManualLogType(t incident.LogType) bool {
	switch t {
	case incident.LogCall, incident.LogText, incident.LogEmail, incident.LogService,
		incident.LogNote, incident.LogPhoto, incident.LogDocument:
		return true
	default:
		// chat logs are created through the chat endpoints only
		return false
	}
}

// parentInIncident verifies the attachment target exists and belongs to the
// same incident; attachments never cross case boundaries.
func (h *Handler) parentInIncident(c *gin.Context, incidentID, parentID uint64) bool {
	logs, err := h.Incidents.Logs(c.Request.Context(), incidentID)
	if err != nil {
		return false
	}
	for _, l := range logs {
		if l.ID == parentID {
			return true
		}
	}
	return false
}

type createLogReq struct {
	Type        string  `json:"type" binding:"required"`
	Title       string  `json:"title"`
	Content     string  `json:"content"`
	FileURL     string  `json:"file_url"`
	Category    string  `json:"category"`
	ParentLogID *uint64 `json:"parent_log_id"`
}

func (h *Handler) CreateLog(c *gin.Context) {
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

	var req createLogReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	logType := incident.LogType(req.Type)
	if !validManualLogType(logType) {
		common.Fail(c, http.StatusBadRequest, 10006, "invalid log type")
		return
	}
	if req.Content == "" && logType != incident.LogPhoto && logType != incident.LogDocument {
		common.Fail(c, http.StatusBadRequest, 10007, "content required for this log type")
		return
	}
	if req.ParentLogID != nil && !h.parentInIncident(c, id, *req.ParentLogID) {
		common.Fail(c, http.StatusBadRequest, 10008, "parent log not found in this incident")
		return
	}

	l := &incident.Log{
		IncidentID: id,
		Type:       logType,
		Title:      req.Title,
		Content:    req.Content,
		FileURL:    req.FileURL,
	}
	if req.Category != "" || req.ParentLogID != nil {
		meta := map[string]interface{}{}
		if req.Category != "" {
			meta[incident.MetaCategory] = req.Category
		}
		if req.ParentLogID != nil {
			meta[incident.MetaParentLogID] = float64(*req.ParentLogID)
		}
		l.Metadata = meta
	}

	if err := h.Incidents.AddLog(c.Request.Context(), l); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to create log")
		return
	}
	common.OK(c, l)
}

func (h *Handler) ListLogs(c *gin.Context) {
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

	logs, err := h.Incidents.Logs(c.Request.Context(), id)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to list logs")
		return
	}
	common.OK(c, gin.H{"logs": logs})
}

const maxUploadBytes = 16 << 20

// UploadFile accepts a multipart evidence file, stores it in object storage
// and files it as a photo or document log. Optional form fields: title,
// category, parent_log_id.
func (h *Handler) UploadFile(c *gin.Context) {
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

	logType := incident.LogType(c.PostForm("type"))
	if logType != incident.LogPhoto && logType != incident.LogDocument {
		common.Fail(c, http.StatusBadRequest, 10006, "type must be photo or document")
		return
	}

	fh, err := c.FormFile("file")
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10009, "file required")
		return
	}
	if fh.Size > maxUploadBytes {
		common.Fail(c, http.StatusBadRequest, 10010, "file too large")
		return
	}

	f, err := fh.Open()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to read file")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to read file")
		return
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	var parentID *uint64
	if v := c.PostForm("parent_log_id"); v != "" {
		pid, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			common.Fail(c, http.StatusBadRequest, 10008, "invalid parent_log_id")
			return
		}
		if !h.parentInIncident(c, id, pid) {
			common.Fail(c, http.StatusBadRequest, 10008, "parent log not found in this incident")
			return
		}
		parentID = &pid
	}

	key := fmt.Sprintf("incidents/%d/uploads/%s%s", id, uuid.NewString(), path.Ext(fh.Filename))
	url, err := h.Uploader.Upload(c.Request.Context(), key, data, contentType)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50005, "upload failed")
		return
	}

	l := &incident.Log{
		IncidentID: id,
		Type:       logType,
		Title:      c.PostForm("title"),
		Content:    c.PostForm("content"),
		FileURL:    url,
	}
	category := c.PostForm("category")
	if category != "" || parentID != nil {
		meta := map[string]interface{}{}
		if category != "" {
			meta[incident.MetaCategory] = category
		}
		if parentID != nil {
			meta[incident.MetaParentLogID] = float64(*parentID)
		}
		l.Metadata = meta
	}

	if err := h.Incidents.AddLog(c.Request.Context(), l); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to create log")
		return
	}
	common.OK(c, l)
}
