package http

import (
	"net/http"

	"rentops-backend/internal/domain"

	"github.com/shopspring/decimal"
)

func (h *handler) listPaymentRequests(w http.ResponseWriter, r *http.Request) {
	ownerID, err := queryInt32(r, "owner_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
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
	filter := domain.PaymentRequestFilter{
		Status:   domain.PaymentRequestStatus(r.URL.Query().Get("status")),
		OwnerID:  ownerID,
		Page:     page,
		PageSize: pageSize,
	}
	items, total, err := h.svc.Invoices.ListPaymentRequests(r.Context(), actor(r), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.PaymentRequest]{Items: items, Total: total})
}

func (h *handler) getPaymentRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pr, err := h.svc.Invoices.GetPaymentRequest(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pr)
}

func (h *handler) listPaymentActions(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	actions, err := h.svc.Invoices.ListActions(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse[domain.PaymentRequestAction]{Items: actions, Total: int32(len(actions))})
}

type markPaidBody struct {
	PaidAmount decimal.Decimal `json:"paid_amount"`
	PaidDate   string          `json:"paid_date"`
}

func (h *handler) markPaid(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in markPaidBody
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	paidDate, err := parseDate("paid_date", in.PaidDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	pr, err := h.svc.Invoices.MarkPaid(r.Context(), actor(r), id, in.PaidAmount, paidDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pr)
}

type reasonBody struct {
	Reason string `json:"reason"`
}

func (h *handler) cancelPaymentRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in reasonBody
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	pr, err := h.svc.Invoices.Cancel(r.Context(), actor(r), id, in.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pr)
}

func (h *handler) disputePaymentRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in reasonBody
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	pr, err := h.svc.Invoices.Dispute(r.Context(), actor(r), id, in.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pr)
}
