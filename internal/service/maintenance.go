package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"rentops-backend/internal/domain"
	"rentops-backend/internal/logger"
	"rentops-backend/internal/repository"
	"rentops-backend/internal/storage"
	"rentops-backend/internal/utils"

	"github.com/google/uuid"
)

type maintenanceService struct {
	requestRepo repository.MaintenanceRequestRepository
	ownerRepo   repository.OwnerRepository
	tx          repository.TxManager
	photos      storage.PhotoStorage
	emailSvc    EmailService
	opts        Options
}

func NewMaintenanceService(
	requestRepo repository.MaintenanceRequestRepository,
	ownerRepo repository.OwnerRepository,
	tx repository.TxManager,
	photos storage.PhotoStorage,
	emailSvc EmailService,
	opts Options,
) MaintenanceService {
	return &maintenanceService{
		requestRepo: requestRepo,
		ownerRepo:   ownerRepo,
		tx:          tx,
		photos:      photos,
		emailSvc:    emailSvc,
		opts:        opts.withDefaults(),
	}
}

func sameEmail(a, b string) bool {
	return a != "" && strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// canSee reports whether actor may read req: admins and the requester.
func canSee(actor domain.Actor, req *domain.MaintenanceRequest) bool {
	return actor.IsAdmin() || sameEmail(actor.Email, req.RequesterEmail)
}

func (s *maintenanceService) SubmitRequest(ctx context.Context, actor domain.Actor, in SubmitRequestInput) (*domain.MaintenanceRequest, error) {
	logger.EnterMethod("maintenanceService.SubmitRequest", "actor", actor.Email)

	in.RequesterName = strings.TrimSpace(in.RequesterName)
	in.RequesterEmail = strings.TrimSpace(in.RequesterEmail)
	in.Issue = strings.TrimSpace(in.Issue)
	if in.RequesterEmail == "" && !actor.IsAdmin() {
		in.RequesterEmail = actor.Email
	}
	if in.UserType == "" {
		in.UserType = domain.UserTypeTenant
	}

	switch {
	case in.RequesterName == "":
		return nil, domain.NewValidationError("requester_name", "is required")
	case in.RequesterEmail == "":
		return nil, domain.NewValidationError("requester_email", "is required")
	case in.Issue == "":
		return nil, domain.NewValidationError("issue", "is required")
	case !in.UserType.Valid():
		return nil, domain.NewValidationError("user_type", fmt.Sprintf("unknown user type %q", in.UserType))
	case in.ProposedBudget != nil && in.ProposedBudget.IsNegative():
		return nil, domain.NewValidationError("proposed_budget", "must not be negative")
	}

	if in.PropertyID != nil {
		prop, err := s.ownerRepo.GetProperty(ctx, *in.PropertyID)
		if err != nil {
			logger.ExitMethodWithError("maintenanceService.SubmitRequest", err)
			return nil, err
		}
		if in.PropertyAddress == "" {
			in.PropertyAddress = prop.Address
		}
	}
	if strings.TrimSpace(in.PropertyAddress) == "" {
		return nil, domain.NewValidationError("property_address", "is required")
	}

	now := s.opts.Now()
	req := &domain.MaintenanceRequest{
		RequesterName:    in.RequesterName,
		RequesterEmail:   in.RequesterEmail,
		RequesterPhone:   in.RequesterPhone,
		Issue:            in.Issue,
		PropertyID:       in.PropertyID,
		PropertyAddress:  in.PropertyAddress,
		Status:           domain.RequestStatusPending,
		UserType:         in.UserType,
		SubmittedBy:      domain.SubmittedByUser,
		RequiresApproval: in.RequiresApproval,
		ProposedBudget:   utils.NullFrom(in.ProposedBudget),
		CreatedBy:        actor.Email,
		CreatedAt:        now,
	}
	if actor.IsAdmin() {
		req.SubmittedBy = domain.SubmittedByAdmin
	}
	if in.RequiresApproval {
		req.ApprovalStatus = domain.ApprovalStatusPendingApproval
	}

	if err := s.requestRepo.Create(ctx, req); err != nil {
		logger.ExitMethodWithError("maintenanceService.SubmitRequest", err)
		return nil, err
	}

	logger.Info("Maintenance request submitted", "requestID", req.ID, "userType", req.UserType, "requiresApproval", req.RequiresApproval)
	logger.ExitMethod("maintenanceService.SubmitRequest", "requestID", req.ID)
	return req, nil
}

func (s *maintenanceService) GetRequest(ctx context.Context, actor domain.Actor, id int32) (*RequestView, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, req) {
		return nil, fmt.Errorf("%w: request %d belongs to another requester", domain.ErrForbidden, id)
	}

	view := &RequestView{MaintenanceRequest: req}
	if req.IsDeleted && req.DeletedAt != nil {
		view.PermanentRemovalDate = req.PermanentRemovalDate()
		left := utils.GraceDaysLeft(*req.DeletedAt, s.opts.Now(), s.opts.graceDays())
		view.GraceDaysLeft = &left
	}
	if req.PhotoKey != "" && s.photos != nil {
		url, err := s.photos.GeneratePresignedDownloadURL(ctx, req.PhotoKey, s.opts.PhotoURLExpiry)
		if err != nil {
			// the request is still useful without its photo
			logger.Warn("Failed to sign photo URL", "requestID", id, "error", err)
		} else {
			view.PhotoURL = url
		}
	}
	return view, nil
}

func (s *maintenanceService) ListRequests(ctx context.Context, actor domain.Actor, filter domain.RequestFilter) ([]domain.MaintenanceRequest, int32, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", filter.Status))
	}
	return s.requestRepo.List(ctx, filter)
}

func (s *maintenanceService) UpdateRequest(ctx context.Context, actor domain.Actor, id int32, upd domain.RequestUpdate) (*domain.MaintenanceRequest, error) {
	logger.EnterMethod("maintenanceService.UpdateRequest", "requestID", id)

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, domain.NewValidationError("status", fmt.Sprintf("unknown status %q", *upd.Status))
	}

	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsDeleted {
		return nil, domain.NewPreconditionError(domain.PreconditionRequestDeleted, "recover the request before editing it")
	}

	ok, err := s.requestRepo.UpdateDetails(ctx, id, upd, s.opts.Now())
	if err != nil {
		logger.ExitMethodWithError("maintenanceService.UpdateRequest", err)
		return nil, err
	}
	if !ok {
		return nil, domain.NewPreconditionError(domain.PreconditionRequestDeleted, "request was deleted")
	}

	logger.ExitMethod("maintenanceService.UpdateRequest", "requestID", id)
	return s.requestRepo.GetByID(ctx, id)
}

// RequestPhotoUpload reserves a storage key for the request's photo and
// returns a URL the client uploads it to. The key replaces any previous photo.
func (s *maintenanceService) RequestPhotoUpload(ctx context.Context, actor domain.Actor, id int32, filename, contentType string) (*PhotoUpload, error) {
	if s.photos == nil {
		return nil, fmt.Errorf("photo storage is not configured")
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, domain.NewValidationError("content_type", "must be an image type")
	}
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return nil, domain.NewValidationError("filename", "is required")
	}

	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, req) {
		return nil, fmt.Errorf("%w: request %d belongs to another requester", domain.ErrForbidden, id)
	}
	if req.IsDeleted {
		return nil, domain.NewPreconditionError(domain.PreconditionRequestDeleted, "request is deleted")
	}

	key := fmt.Sprintf("requests/%d/%s-%s", id, uuid.NewString(), name)
	url, err := s.photos.GeneratePresignedUploadURL(ctx, key, contentType, s.opts.PhotoURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("failed to sign upload URL: %w", err)
	}

	ok, err := s.requestRepo.UpdateDetails(ctx, id, domain.RequestUpdate{PhotoKey: &key}, s.opts.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.NewPreconditionError(domain.PreconditionRequestDeleted, "request was deleted")
	}

	return &PhotoUpload{
		Key:       key,
		UploadURL: url,
		ExpiresAt: s.opts.Now().Add(s.opts.PhotoURLExpiry),
	}, nil
}

func (s *maintenanceService) SoftDelete(ctx context.Context, actor domain.Actor, id int32) (*domain.MaintenanceRequest, error) {
	logger.EnterMethod("maintenanceService.SoftDelete", "requestID", id, "actor", actor.Email)

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.IsDeleted {
		return nil, domain.NewPreconditionError(domain.PreconditionAlreadyDeleted, "request is already deleted")
	}

	now := s.opts.Now()
	removal := now.Add(s.opts.GracePeriod)
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.requestRepo.MarkDeleted(ctx, id, actor.Email, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewPreconditionError(domain.PreconditionAlreadyDeleted, "request is already deleted")
		}
		return s.requestRepo.AppendMessage(ctx, &domain.ConversationMessage{
			RequestID:   id,
			SenderEmail: actor.Email,
			SenderRole:  actor.Role,
			IsInternal:  true,
			Text: fmt.Sprintf("Request deleted by %s. It can be recovered until %s, when it will be permanently removed.",
				actor.Email, removal.Format(utils.DateLayout)),
			CreatedAt: now,
		})
	})
	if err != nil {
		logger.ExitMethodWithError("maintenanceService.SoftDelete", err)
		return nil, err
	}

	logger.Info("Maintenance request soft-deleted", "requestID", id, "by", actor.Email, "removal", removal)
	logger.ExitMethod("maintenanceService.SoftDelete", "requestID", id)
	return s.requestRepo.GetByID(ctx, id)
}

func (s *maintenanceService) Recover(ctx context.Context, actor domain.Actor, id int32) (*domain.MaintenanceRequest, error) {
	logger.EnterMethod("maintenanceService.Recover", "requestID", id, "actor", actor.Email)

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.IsDeleted {
		return nil, domain.NewPreconditionError(domain.PreconditionNotDeleted, "request is not deleted")
	}

	now := s.opts.Now()
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		ok, err := s.requestRepo.ClearDeleted(ctx, id, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NewPreconditionError(domain.PreconditionNotDeleted, "request is not deleted")
		}
		return s.requestRepo.AppendMessage(ctx, &domain.ConversationMessage{
			RequestID:   id,
			SenderEmail: actor.Email,
			SenderRole:  actor.Role,
			IsInternal:  true,
			Text:        fmt.Sprintf("Request recovered by %s.", actor.Email),
			CreatedAt:   now,
		})
	})
	if err != nil {
		logger.ExitMethodWithError("maintenanceService.Recover", err)
		return nil, err
	}

	logger.Info("Maintenance request recovered", "requestID", id, "by", actor.Email)
	logger.ExitMethod("maintenanceService.Recover", "requestID", id)
	return s.requestRepo.GetByID(ctx, id)
}

// HardDelete removes a request immediately, skipping the grace period.
func (s *maintenanceService) HardDelete(ctx context.Context, actor domain.Actor, id int32) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.requestRepo.HardDelete(ctx, id); err != nil {
		return err
	}
	s.deletePhoto(ctx, req)
	logger.Warn("Maintenance request permanently deleted", "requestID", id, "by", actor.Email)
	return nil
}

// PurgeExpired hard-deletes requests whose grace period has run out and
// returns how many were removed.
func (s *maintenanceService) PurgeExpired(ctx context.Context, batchSize int32) (int, error) {
	logger.EnterMethod("maintenanceService.PurgeExpired", "batchSize", batchSize)

	cutoff := s.opts.Now().Add(-s.opts.GracePeriod)
	purged := 0
	for {
		expired, err := s.requestRepo.ListExpiredDeleted(ctx, cutoff, batchSize)
		if err != nil {
			logger.ExitMethodWithError("maintenanceService.PurgeExpired", err)
			return purged, err
		}
		for i := range expired {
			req := &expired[i]
			if err := s.requestRepo.HardDelete(ctx, req.ID); err != nil {
				logger.ExitMethodWithError("maintenanceService.PurgeExpired", err, "requestID", req.ID)
				return purged, err
			}
			s.deletePhoto(ctx, req)
			purged++
			logger.Info("Purged expired maintenance request", "requestID", req.ID, "deletedAt", req.DeletedAt)
		}
		if batchSize <= 0 || len(expired) < int(batchSize) {
			break
		}
	}

	logger.ExitMethod("maintenanceService.PurgeExpired", "purged", purged)
	return purged, nil
}

func (s *maintenanceService) deletePhoto(ctx context.Context, req *domain.MaintenanceRequest) {
	if req.PhotoKey == "" || s.photos == nil {
		return
	}
	if err := s.photos.DeleteFile(ctx, req.PhotoKey); err != nil {
		logger.Warn("Failed to delete request photo", "requestID", req.ID, "key", req.PhotoKey, "error", err)
	}
}

func (s *maintenanceService) DecideApproval(ctx context.Context, actor domain.Actor, id int32, decision domain.ApprovalDecision) (*domain.MaintenanceRequest, error) {
	logger.EnterMethod("maintenanceService.DecideApproval", "requestID", id, "decision", decision)

	status, valid := decision.Status()
	if !valid {
		return nil, domain.NewValidationError("decision", fmt.Sprintf("unknown decision %q", decision))
	}

	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeApprover(ctx, actor, req); err != nil {
		return nil, err
	}

	switch {
	case req.IsDeleted:
		return nil, domain.NewPreconditionError(domain.PreconditionRequestDeleted, "request is deleted")
	case !req.RequiresApproval:
		return nil, domain.NewPreconditionError(domain.PreconditionApprovalNotRequired, "request does not require approval")
	case req.ApprovalStatus != domain.ApprovalStatusPendingApproval:
		return nil, domain.NewPreconditionError(domain.PreconditionAlreadyDecided, fmt.Sprintf("request was already %s", req.ApprovalStatus))
	}

	ok, err := s.requestRepo.DecideApproval(ctx, id, status, actor.Email, s.opts.Now())
	if err != nil {
		logger.ExitMethodWithError("maintenanceService.DecideApproval", err)
		return nil, err
	}
	if !ok {
		return nil, domain.NewPreconditionError(domain.PreconditionAlreadyDecided, "request was decided concurrently")
	}

	logger.Info("Approval decided", "requestID", id, "status", status, "by", actor.Email)
	logger.ExitMethod("maintenanceService.DecideApproval", "requestID", id)
	return s.requestRepo.GetByID(ctx, id)
}

// authorizeApprover admits admins and the owner of the request's property.
func (s *maintenanceService) authorizeApprover(ctx context.Context, actor domain.Actor, req *domain.MaintenanceRequest) error {
	if actor.IsAdmin() {
		return nil
	}
	if req.PropertyID != nil {
		prop, err := s.ownerRepo.GetProperty(ctx, *req.PropertyID)
		if err != nil {
			return err
		}
		owner, err := s.ownerRepo.GetByID(ctx, prop.OwnerID)
		if err != nil {
			return err
		}
		if sameEmail(actor.Email, owner.Email) {
			return nil
		}
	}
	return fmt.Errorf("%w: only an admin or the property owner can decide approval", domain.ErrForbidden)
}

func (s *maintenanceService) AppendMessage(ctx context.Context, actor domain.Actor, id int32, text string, isInternal bool) (*domain.ConversationMessage, error) {
	logger.EnterMethod("maintenanceService.AppendMessage", "requestID", id, "internal", isInternal)

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.NewValidationError("text", "is required")
	}

	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, req) {
		return nil, fmt.Errorf("%w: request %d belongs to another requester", domain.ErrForbidden, id)
	}
	if isInternal && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: internal notes are admin-only", domain.ErrForbidden)
	}

	msg := &domain.ConversationMessage{
		RequestID:   id,
		SenderEmail: actor.Email,
		SenderRole:  actor.Role,
		IsInternal:  isInternal,
		Text:        text,
		CreatedAt:   s.opts.Now(),
	}
	if err := s.requestRepo.AppendMessage(ctx, msg); err != nil {
		logger.ExitMethodWithError("maintenanceService.AppendMessage", err)
		return nil, err
	}

	if !isInternal {
		to := req.RequesterEmail
		if sameEmail(actor.Email, req.RequesterEmail) {
			to = s.opts.AdminEmail
		}
		if to != "" {
			if err := s.emailSvc.SendRequestMessageNotification(ctx, to, req, msg); err != nil {
				logger.Warn("Failed to send message notification", "requestID", id, "to", to, "error", err)
			}
		}
	}

	logger.ExitMethod("maintenanceService.AppendMessage", "messageID", msg.ID)
	return msg, nil
}

func (s *maintenanceService) ListMessages(ctx context.Context, actor domain.Actor, id int32) ([]domain.ConversationMessage, error) {
	req, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSee(actor, req) {
		return nil, fmt.Errorf("%w: request %d belongs to another requester", domain.ErrForbidden, id)
	}
	return s.requestRepo.ListMessages(ctx, id, actor.IsAdmin())
}
