package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"rentops-backend/internal/domain"
	"rentops-backend/internal/security"
	"rentops-backend/internal/service"
	"rentops-backend/internal/storage"

	"github.com/gorilla/mux"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Services struct {
	Maintenance service.MaintenanceService
	Invoices    service.InvoiceService
	Billing     service.BillingService
	Funding     service.FundingService
	Owners      service.OwnerService
}

// RouterDeps are the collaborators of the HTTP API. Files is only set for the
// local mock photo store.
type RouterDeps struct {
	Services     Services
	TokenManager security.TokenManager
	Store        Pinger
	Files        storage.LocalFileStore
}

type handler struct {
	svc   Services
	store Pinger
}

// NewRouter builds the /api/v1 router with auth and request logging.
func NewRouter(deps RouterDeps) *mux.Router {
	h := &handler{svc: deps.Services, store: deps.Store}
	r := mux.NewRouter()
	r.Use(LoggingMiddleware)
	r.Use(NewAuthMiddleware(deps.TokenManager).Middleware)

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet).Name("Healthz")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Maintenance requests
	api.HandleFunc("/requests", h.submitRequest).Methods(http.MethodPost).Name("SubmitRequest")
	api.HandleFunc("/requests", h.listRequests).Methods(http.MethodGet).Name("ListRequests")
	api.HandleFunc("/requests/{id:[0-9]+}", h.getRequest).Methods(http.MethodGet).Name("GetRequest")
	api.HandleFunc("/requests/{id:[0-9]+}", h.updateRequest).Methods(http.MethodPatch).Name("UpdateRequest")
	api.HandleFunc("/requests/{id:[0-9]+}", h.softDeleteRequest).Methods(http.MethodDelete).Name("SoftDeleteRequest")
	api.HandleFunc("/requests/{id:[0-9]+}/recover", h.recoverRequest).Methods(http.MethodPost).Name("RecoverRequest")
	api.HandleFunc("/requests/{id:[0-9]+}/permanent", h.hardDeleteRequest).Methods(http.MethodDelete).Name("HardDeleteRequest")
	api.HandleFunc("/requests/{id:[0-9]+}/photo", h.requestPhotoUpload).Methods(http.MethodPost).Name("RequestPhotoUpload")
	api.HandleFunc("/requests/{id:[0-9]+}/costs", h.setCosts).Methods(http.MethodPut).Name("SetCosts")
	api.HandleFunc("/requests/{id:[0-9]+}/approval", h.decideApproval).Methods(http.MethodPost).Name("DecideApproval")
	api.HandleFunc("/requests/{id:[0-9]+}/messages", h.appendMessage).Methods(http.MethodPost).Name("AppendMessage")
	api.HandleFunc("/requests/{id:[0-9]+}/messages", h.listMessages).Methods(http.MethodGet).Name("ListMessages")

	// Payment requests
	api.HandleFunc("/payment-requests", h.listPaymentRequests).Methods(http.MethodGet).Name("ListPaymentRequests")
	api.HandleFunc("/payment-requests/{id:[0-9]+}", h.getPaymentRequest).Methods(http.MethodGet).Name("GetPaymentRequest")
	api.HandleFunc("/payment-requests/{id:[0-9]+}/actions", h.listPaymentActions).Methods(http.MethodGet).Name("ListPaymentActions")
	api.HandleFunc("/payment-requests/{id:[0-9]+}/pay", h.markPaid).Methods(http.MethodPost).Name("MarkPaymentPaid")
	api.HandleFunc("/payment-requests/{id:[0-9]+}/cancel", h.cancelPaymentRequest).Methods(http.MethodPost).Name("CancelPaymentRequest")
	api.HandleFunc("/payment-requests/{id:[0-9]+}/dispute", h.disputePaymentRequest).Methods(http.MethodPost).Name("DisputePaymentRequest")

	// Rental applications
	api.HandleFunc("/applications", h.submitApplication).Methods(http.MethodPost).Name("SubmitApplication")
	api.HandleFunc("/applications/{id:[0-9]+}", h.getApplication).Methods(http.MethodGet).Name("GetApplication")
	api.HandleFunc("/applications/{id:[0-9]+}/approve", h.approveApplication).Methods(http.MethodPost).Name("ApproveApplication")
	api.HandleFunc("/applications/{id:[0-9]+}/reject", h.rejectApplication).Methods(http.MethodPost).Name("RejectApplication")
	api.HandleFunc("/applications/{id:[0-9]+}/funding-sources", h.attachFundingSource).Methods(http.MethodPost).Name("AttachFundingSource")
	api.HandleFunc("/applications/{id:[0-9]+}/deposit/charge", h.chargeDeposit).Methods(http.MethodPost).Name("ChargeDeposit")
	api.HandleFunc("/applications/{id:[0-9]+}/deposit/record", h.recordDeposit).Methods(http.MethodPost).Name("RecordDeposit")
	api.HandleFunc("/applications/{id:[0-9]+}/autopay", h.enableAutoPay).Methods(http.MethodPost).Name("EnableAutoPay")
	api.HandleFunc("/applications/{id:[0-9]+}/standing", h.getRentStanding).Methods(http.MethodGet).Name("GetRentStanding")
	api.HandleFunc("/applications/{id:[0-9]+}/rent-payments", h.recordRentPayment).Methods(http.MethodPost).Name("RecordRentPayment")

	// Owners
	api.HandleFunc("/owners", h.createOwner).Methods(http.MethodPost).Name("CreateOwner")
	api.HandleFunc("/owners/{id:[0-9]+}", h.getOwner).Methods(http.MethodGet).Name("GetOwner")
	api.HandleFunc("/owners/{id:[0-9]+}", h.deleteOwner).Methods(http.MethodDelete).Name("DeleteOwner")
	api.HandleFunc("/owners/{id:[0-9]+}/properties", h.addProperty).Methods(http.MethodPost).Name("AddProperty")

	if deps.Files != nil {
		RegisterMockStorageRoutes(api, deps.Files)
	}

	return r
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// actor returns the authenticated caller. Routes behind the auth middleware
// always carry one.
func actor(r *http.Request) domain.Actor {
	a, _ := ActorFromContext(r.Context())
	return a
}

func pathID(r *http.Request) (int32, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 32)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", "must be a positive integer")
	}
	return int32(id), nil
}

func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	return nil
}

func queryInt32(r *http.Request, name string) (int32, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || v < 0 {
		return 0, domain.NewValidationError(name, "must be a non-negative integer")
	}
	return int32(v), nil
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}

// parseDate accepts YYYY-MM-DD or RFC 3339.
func parseDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, domain.NewValidationError(field, "must be a date (YYYY-MM-DD)")
	}
	t = t.UTC()
	return &t, nil
}

type listResponse[T any] struct {
	Items []T   `json:"items"`
	Total int32 `json:"total"`
}
