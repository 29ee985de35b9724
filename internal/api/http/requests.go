package http

import (
	"net/http"

	"rentops-backend/internal/domain"
	"rentops-backend/internal/service"
)

func (h *handler) submitRequest(w http.ResponseWriter, r *http.Request) {
	var in service.SubmitRequestInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := h.svc.Maintenance.SubmitRequest(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *handler) listRequests(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt32(r, "page")
	if err != nil {
		writeError(w, r, err)
		return
	}
	pageSize, err := queryInt32(r, "page_size")
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter := domain.RequestFilter{
		Status:         domain.RequestStatus(r.URL.Query().Get("status")),
		IncludeDeleted: queryBool(r, "include_deleted"),
		OnlyDeleted:    queryBool(r, "only_deleted"),
		Page:           page,
		PageSize:       pageSize,
	}
	items, total, err := h.svc.Maintenance.ListRequests(r.Context(), actor(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.MaintenanceRequest]{Items: items, Total: total})
}

func (h *handler) getRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	view, err := h.svc.Maintenance.GetRequest(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *handler) updateRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var upd domain.RequestUpdate
	if err := decode(w, r, &upd); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := h.svc.Maintenance.UpdateRequest(r.Context(), actor(r), id, upd)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type photoUploadBody struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

func (h *handler) requestPhotoUpload(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in photoUploadBody
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	upload, err := h.svc.Maintenance.RequestPhotoUpload(r.Context(), actor(r), id, in.Filename, in.ContentType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, upload)
}

func (h *handler) setCosts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var entry domain.CostEntry
	if err := decode(w, r, &entry); err != nil {
		writeError(w, r, err)
		return
	}
	result, err := h.svc.Invoices.SetCosts(r.Context(), actor(r), id, entry)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *handler) softDeleteRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := h.svc.Maintenance.SoftDelete(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *handler) recoverRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := h.svc.Maintenance.Recover(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *handler) hardDeleteRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.svc.Maintenance.HardDelete(r.Context(), actor(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type approvalBody struct {
	Decision domain.ApprovalDecision `json:"decision"`
}

func (h *handler) decideApproval(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in approvalBody
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := h.svc.Maintenance.DecideApproval(r.Context(), actor(r), id, in.Decision)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

type messageBody struct {
	Text       string `json:"text"`
	IsInternal bool   `json:"is_internal"`
}

func (h *handler) appendMessage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in messageBody
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	msg, err := h.svc.Maintenance.AppendMessage(r.Context(), actor(r), id, in.Text, in.IsInternal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

func (h *handler) listMessages(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	msgs, err := h.svc.Maintenance.ListMessages(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.ConversationMessage]{Items: msgs, Total: int32(len(msgs))})
}
