package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/ecowaste-cert/internal/apperr"
	"github.com/iliyamo/ecowaste-cert/internal/model"
	"github.com/iliyamo/ecowaste-cert/internal/repository"
	"github.com/iliyamo/ecowaste-cert/internal/statemachine"
)

// ApproachService runs the recycler -> collector contact workflow.
type ApproachService struct {
	requests ApproachStore
	dir      DirectoryStore
	notify   *NotificationService
	activity *ActivityLogger
}

func NewApproachService(requests ApproachStore, dir DirectoryStore, notify *NotificationService, activity *ActivityLogger) *ApproachService {
	return &ApproachService{requests: requests, dir: dir, notify: notify, activity: activity}
}

type CreateApproachInput struct {
	CollectorID   uint64     `json:"collectorId"`
	Message       string     `json:"message"`
	WasteType     *string    `json:"wasteType"`
	Quantity      *string    `json:"quantity"`
	Urgency       *string    `json:"urgency"`
	PreferredDate *time.Time `json:"preferredDate"`
}

// Create sends a request to a collector profile and notifies the profile's
// owner.  An unknown collector fails before anything is written.
func (s *ApproachService) Create(ctx context.Context, sender *model.User, in CreateApproachInput, meta RequestMeta) (*model.ApproachRequest, error) {
	if !model.Can(sender.Role, model.CapApproachCollector) {
		return nil, apperr.Authorization("Insufficient permissions")
	}
	in.Message = strings.TrimSpace(in.Message)
	if in.CollectorID == 0 || in.Message == "" {
		return nil, apperr.Validation("Collector ID and message are required")
	}
	collector, err := s.dir.GetCollector(ctx, in.CollectorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Waste collector not found")
		}
		return nil, apperr.Dependency("load collector", err)
	}

	req := &model.ApproachRequest{
		RecyclerID:      sender.ID,
		CollectorID:     collector.ID,
		CollectorUserID: collector.UserID,
		Message:         in.Message,
		Status:          model.ApproachPending,
		WasteType:       in.WasteType,
		Quantity:        in.Quantity,
		Urgency:         in.Urgency,
		PreferredDate:   in.PreferredDate,
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, apperr.Dependency("create approach request", err)
	}

	s.notify.Push(ctx, model.Notification{
		UserID:    collector.UserID,
		Title:     "New Approach Request",
		Message:   sender.Name + " has sent you a new approach request for waste collection.",
		Type:      model.NotifyInfo,
		ActionURL: strPtr("/wastecollector-dashboard"),
	})
	details := map[string]any{"collectorId": collector.ID, "requestId": req.ID}
	if in.WasteType != nil {
		details["wasteType"] = *in.WasteType
	}
	if in.Quantity != nil {
		details["quantity"] = *in.Quantity
	}
	s.activity.Log(ctx, sender.ID, model.ActionApproachCollector, details, meta)
	return req, nil
}

// List is role scoped: recyclers see what they sent, collectors what they
// received.  Other roles see nothing.
func (s *ApproachService) List(ctx context.Context, user *model.User) ([]model.ApproachRequest, error) {
	var (
		out []model.ApproachRequest
		err error
	)
	switch user.Role {
	case model.RoleRecycler:
		out, err = s.requests.ListBySender(ctx, user.ID)
	case model.RoleWasteCollector:
		out, err = s.requests.ListByRecipient(ctx, user.ID)
	default:
		return []model.ApproachRequest{}, nil
	}
	if err != nil {
		return nil, apperr.Dependency("list approach requests", err)
	}
	return out, nil
}

type RespondInput struct {
	Status   string  `json:"status"`
	Response *string `json:"response"`
}

// Respond moves a received request along its lifecycle and notifies the
// sender.  Requests addressed to someone else are reported as not found.
func (s *ApproachService) Respond(ctx context.Context, collector *model.User, id uint64, in RespondInput, meta RequestMeta) (*model.ApproachRequest, error) {
	to := model.ApproachStatus(strings.ToLower(strings.TrimSpace(in.Status)))
	req, err := s.requests.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Approach request not found")
		}
		return nil, apperr.Dependency("load approach request", err)
	}
	if req.CollectorUserID != collector.ID {
		return nil, apperr.NotFound("Approach request not found")
	}
	if err := statemachine.CanTransitionApproach(req.Status, to, collector.Role); err != nil {
		return nil, apperr.Validation(err.Error())
	}
	from := req.Status
	if err := s.requests.UpdateStatus(ctx, id, from, to, in.Response); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("Approach request was updated concurrently")
		}
		return nil, apperr.Dependency("update approach request", err)
	}
	req.Status = to
	if in.Response != nil {
		req.Response = in.Response
	}

	ntype := model.NotifyInfo
	switch to {
	case model.ApproachAccepted, model.ApproachCompleted:
		ntype = model.NotifySuccess
	case model.ApproachRejected:
		ntype = model.NotifyWarning
	}
	s.notify.Push(ctx, model.Notification{
		UserID:    req.RecyclerID,
		Title:     "Approach Request " + strings.ToUpper(string(to[:1])) + string(to[1:]),
		Message:   collector.Name + " marked your approach request as " + string(to) + ".",
		Type:      ntype,
		ActionURL: strPtr("/recycler-dashboard"),
	})
	s.activity.Log(ctx, collector.ID, model.ActionRespondApproach, map[string]any{
		"requestId": id,
		"from":      string(from),
		"to":        string(to),
	}, meta)
	return req, nil
}
