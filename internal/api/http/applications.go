package http

import (
	"net/http"

	"rentops-backend/internal/domain"
	"rentops-backend/internal/service"

	"github.com/shopspring/decimal"
)

func (h *handler) submitApplication(w http.ResponseWriter, r *http.Request) {
	var in service.SubmitApplicationInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	app, err := h.svc.Billing.SubmitApplication(r.Context(), actor(r), in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, app)
}

func (h *handler) getApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	app, err := h.svc.Billing.GetApplication(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

type approveBody struct {
	MonthlyRent    decimal.Decimal `json:"monthly_rent"`
	LeaseStartDate string          `json:"lease_start_date"`
	LeaseEndDate   string          `json:"lease_end_date"`
}

func (h *handler) approveApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in approveBody
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	start, err := parseDate("lease_start_date", in.LeaseStartDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	end, err := parseDate("lease_end_date", in.LeaseEndDate)
	if err != nil {
		writeError(w, r, err)
		return
	}
	approval := service.ApproveApplicationInput{MonthlyRent: in.MonthlyRent}
	if start != nil {
		approval.LeaseStartDate = *start
	}
	if end != nil {
		approval.LeaseEndDate = *end
	}
	app, err := h.svc.Billing.ApproveApplication(r.Context(), actor(r), id, approval)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *handler) rejectApplication(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	app, err := h.svc.Billing.RejectApplication(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

type fundingSourceBody struct {
	Kind  domain.FundingSourceKind `json:"kind"`
	Token string                   `json:"token"`
}

func (h *handler) attachFundingSource(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in fundingSourceBody
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	app, err := h.svc.Funding.AttachFundingSource(r.Context(), actor(r), id, in.Kind, in.Token)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

type depositBody struct {
	Amount decimal.Decimal `json:"amount"`
	Note   string          `json:"note"`
}

func (h *handler) chargeDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in depositBody
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	app, err := h.svc.Funding.ChargeDeposit(r.Context(), actor(r), id, in.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *handler) recordDeposit(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in depositBody
	if err := decode(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	app, err := h.svc.Funding.RecordDeposit(r.Context(), actor(r), id, in.Amount, in.Note)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *handler) enableAutoPay(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	app, err := h.svc.Billing.EnableAutoPay(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *handler) getRentStanding(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	standing, err := h.svc.Billing.GetRentStanding(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, standing)
}

func (h *handler) recordRentPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	app, err := h.svc.Billing.RecordRentPayment(r.Context(), actor(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}
