package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/ecowaste-cert/internal/apperr"
	"github.com/iliyamo/ecowaste-cert/internal/logger"
	"github.com/iliyamo/ecowaste-cert/internal/mail"
	"github.com/iliyamo/ecowaste-cert/internal/metrics"
	"github.com/iliyamo/ecowaste-cert/internal/model"
	"github.com/iliyamo/ecowaste-cert/internal/repository"
	"github.com/iliyamo/ecowaste-cert/internal/statemachine"
)

const noDocument = "No document uploaded"

// CertificationService runs the certification lifecycle.  Every transition
// persists first; audit, notification, email and directory sync follow as
// best-effort side effects.
type CertificationService struct {
	certs    CertificationStore
	users    UserStore
	dir      DirectoryStore
	notify   *NotificationService
	activity *ActivityLogger
	cache    DirectoryCache
	now      func() time.Time
}

func NewCertificationService(certs CertificationStore, users UserStore, dir DirectoryStore, notify *NotificationService, activity *ActivityLogger) *CertificationService {
	return &CertificationService{certs: certs, users: users, dir: dir, notify: notify, activity: activity, now: time.Now}
}

// WithCache makes directory sync purge cache.
func (s *CertificationService) WithCache(cache DirectoryCache) *CertificationService {
	s.cache = cache
	return s
}

type ApplyInput struct {
	BusinessName string `json:"businessName"`
	ActivityType string `json:"activityType"`
	DocumentName string `json:"documentName"`
}

// Apply files a new application for a recycler.  It always starts Pending
// and Under Review.
func (s *CertificationService) Apply(ctx context.Context, recycler *model.User, in ApplyInput, meta RequestMeta) (*model.Certification, error) {
	if !model.Can(recycler.Role, model.CapApplyCertification) {
		return nil, apperr.Authorization("Only recyclers can apply for certification")
	}
	in.BusinessName = strings.TrimSpace(in.BusinessName)
	in.ActivityType = strings.TrimSpace(in.ActivityType)
	if in.BusinessName == "" || in.ActivityType == "" {
		return nil, apperr.Validation("Business name and activity type are required")
	}
	doc := strings.TrimSpace(in.DocumentName)
	if doc == "" {
		doc = noDocument
	}
	now := s.now().UTC()
	c := &model.Certification{
		RecyclerEmail:      recycler.Email,
		RecyclerName:       recycler.Name,
		BusinessName:       in.BusinessName,
		ActivityType:       in.ActivityType,
		DocumentName:       doc,
		Status:             model.CertPending,
		ComplianceStatus:   model.ComplianceUnderReview,
		AppliedAt:          now,
		LastEvaluationDate: now,
	}
	if err := s.certs.Create(ctx, c); err != nil {
		return nil, apperr.Dependency("create certification", err)
	}
	s.activity.Log(ctx, recycler.ID, model.ActionApplyCertification, map[string]any{
		"certificationId": c.ID,
		"businessName":    c.BusinessName,
		"activityType":    c.ActivityType,
	}, meta)
	return c, nil
}

// ListMine returns the applications filed under the recycler's email.
func (s *CertificationService) ListMine(ctx context.Context, recycler *model.User) ([]model.Certification, error) {
	out, err := s.certs.ListByRecycler(ctx, recycler.Email)
	if err != nil {
		return nil, apperr.Dependency("list certifications", err)
	}
	return out, nil
}

// AdminCertification is the evaluator's table row.  Dates are rendered as
// YYYY-MM-DD and a missing validity as "N/A".
type AdminCertification struct {
	ID                  uint64                    `json:"id"`
	RecyclerName        string                    `json:"recyclerName"`
	RecyclerEmail       string                    `json:"recyclerEmail"`
	BusinessName        string                    `json:"businessName"`
	CertificationStatus model.CertificationStatus `json:"certificationStatus"`
	ComplianceStatus    model.ComplianceStatus    `json:"complianceStatus"`
	LastEvaluationDate  string                    `json:"lastEvaluationDate"`
	ActivityType        string                    `json:"activityType"`
	ValidUntil          string                    `json:"validUntil"`
}

const dateLayout = "2006-01-02"

func (s *CertificationService) ListAll(ctx context.Context) ([]AdminCertification, error) {
	certs, err := s.certs.ListAll(ctx, 0)
	if err != nil {
		return nil, apperr.Dependency("list certifications", err)
	}
	out := make([]AdminCertification, 0, len(certs))
	for _, c := range certs {
		row := AdminCertification{
			ID:                  c.ID,
			RecyclerName:        c.RecyclerName,
			RecyclerEmail:       c.RecyclerEmail,
			BusinessName:        c.BusinessName,
			CertificationStatus: c.Status,
			ComplianceStatus:    c.ComplianceStatus,
			LastEvaluationDate:  c.LastEvaluationDate.UTC().Format(dateLayout),
			ActivityType:        c.ActivityType,
			ValidUntil:          "N/A",
		}
		if c.ValidUntil != nil {
			row.ValidUntil = c.ValidUntil.UTC().Format(dateLayout)
		}
		out = append(out, row)
	}
	return out, nil
}

type TransitionInput struct {
	Status           string  `json:"status"`
	ComplianceStatus string  `json:"complianceStatus"` // ignored for Certified
	Notes            *string `json:"evaluatorNotes"`
}

// Transition applies an evaluator decision.
func (s *CertificationService) Transition(ctx context.Context, evaluator *model.User, id uint64, in TransitionInput, meta RequestMeta) (*model.Certification, error) {
	to, ok := model.ParseCertificationStatus(in.Status)
	if !ok {
		return nil, apperr.Validation("Invalid certification status")
	}
	var compliance *model.ComplianceStatus
	if in.ComplianceStatus != "" {
		cs, ok := model.ParseComplianceStatus(in.ComplianceStatus)
		if !ok {
			return nil, apperr.Validation("Invalid compliance status")
		}
		compliance = &cs
	}
	return s.transition(ctx, evaluator, id, to, compliance, in.Notes, meta)
}

// Revoke withdraws a certification with a reason.  The reason becomes the
// evaluator notes and compliance is set to Non-Compliant; the recycler is
// notified as part of the same operation.
func (s *CertificationService) Revoke(ctx context.Context, evaluator *model.User, id uint64, reason string, meta RequestMeta) (*model.Certification, error) {
	reason = strings.TrimSpace(reason)
	if id == 0 || reason == "" {
		return nil, apperr.Validation("Certification ID and reason are required")
	}
	nc := model.ComplianceNonCompliant
	return s.transition(ctx, evaluator, id, model.CertRevoked, &nc, &reason, meta)
}

func (s *CertificationService) transition(ctx context.Context, evaluator *model.User, id uint64, to model.CertificationStatus, compliance *model.ComplianceStatus, notes *string, meta RequestMeta) (*model.Certification, error) {
	c, err := s.certs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Certification not found")
		}
		return nil, apperr.Dependency("load certification", err)
	}
	from := c.Status
	if err := statemachine.CanTransitionCertification(from, to, evaluator.Role); err != nil {
		if !model.Can(evaluator.Role, model.CapEvaluateCertification) {
			return nil, apperr.Authorization("Insufficient permissions")
		}
		return nil, apperr.Validation(err.Error())
	}

	now := s.now().UTC()
	applyTransition(c, to, compliance, notes, evaluator.ID, now)

	if err := s.certs.UpdateEvaluation(ctx, c, from); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, apperr.Conflict("Certification was modified by another evaluator; reload and retry")
		}
		return nil, apperr.Dependency("update certification", err)
	}
	metrics.CertificationTransition(string(from), string(to))

	details := map[string]any{
		"certificationId":  c.ID,
		"from":             string(from),
		"to":               string(to),
		"complianceStatus": string(c.ComplianceStatus),
	}
	if notes != nil {
		details["notes"] = *notes
	}
	s.activity.Log(ctx, evaluator.ID, model.ActionEvaluateCert, details, meta)
	s.afterTransition(ctx, c, notesOrEmpty(notes))
	return c, nil
}

// applyTransition mutates c for a transition already known to be legal.
// Certified always implies Compliant and a fresh validity window; other
// targets take the evaluator's compliance verdict when one is given.
// validUntil is historical and never cleared.
func applyTransition(c *model.Certification, to model.CertificationStatus, compliance *model.ComplianceStatus, notes *string, evaluatorID uint64, now time.Time) {
	c.Status = to
	c.LastEvaluationDate = now
	c.EvaluatorID = &evaluatorID
	if notes != nil {
		c.EvaluatorNotes = notes
	}
	if to == model.CertCertified {
		until := now.Add(model.CertificationValidity)
		c.CertifiedAt = &now
		c.ValidUntil = &until
		c.ComplianceStatus = model.ComplianceCompliant
		return
	}
	if compliance != nil {
		c.ComplianceStatus = *compliance
	}
}

// afterTransition informs the recycler and keeps the public directory in
// step with the certification.
func (s *CertificationService) afterTransition(ctx context.Context, c *model.Certification, reason string) {
	recycler, err := s.users.GetByEmail(ctx, c.RecyclerEmail)
	if err != nil {
		logger.WithContext(ctx).Warn("recycler lookup for certification update failed",
			zap.Uint64("certification_id", c.ID), zap.Error(err))
		return
	}

	ntype := model.NotifyInfo
	switch c.Status {
	case model.CertCertified:
		ntype = model.NotifySuccess
	case model.CertRevoked, model.CertRejected:
		ntype = model.NotifyError
	}
	msg := "Your certification application for " + c.BusinessName + " is now " + string(c.Status) + "."
	if reason != "" {
		msg += " Reason: " + reason
	}
	s.notify.Push(ctx, model.Notification{
		UserID:    recycler.ID,
		Title:     "Certification " + string(c.Status),
		Message:   msg,
		Type:      ntype,
		ActionURL: strPtr("/recycler-dashboard"),
	})
	if em, err := mail.CertificationStatusEmail(recycler.Email, recycler.Name, c.BusinessName, string(c.Status), reason, c.ValidUntil); err == nil {
		s.notify.Email(ctx, em)
	}

	switch c.Status {
	case model.CertCertified:
		sideEffect(ctx, "directory", func(ctx context.Context) error {
			return s.dir.UpsertHandler(ctx, &model.Handler{
				UserID:              recycler.ID,
				Name:                recycler.Name,
				BusinessName:        c.BusinessName,
				Email:               recycler.Email,
				Phone:               recycler.Phone,
				Region:              recycler.Region,
				ActivityType:        c.ActivityType,
				CertificationStatus: string(model.CertCertified),
				ValidUntil:          c.ValidUntil,
				ServicesOffered:     []string{},
				IsVerified:          true,
			})
		})
		purgeDirectory(ctx, s.cache)
	case model.CertRevoked:
		sideEffect(ctx, "directory", func(ctx context.Context) error {
			err := s.dir.SetHandlerStatus(ctx, recycler.ID, false, string(model.CertRevoked))
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return err
		})
		purgeDirectory(ctx, s.cache)
	}
}

// NoticeReceipt is returned by Notify.
type NoticeReceipt struct {
	CertificationID uint64    `json:"certificationId"`
	Reason          string    `json:"reason"`
	SentAt          time.Time `json:"sentAt"`
}

// Notify sends an evaluator's notice about a certification to its
// recycler without changing the certification.
func (s *CertificationService) Notify(ctx context.Context, evaluator *model.User, id uint64, reason string, meta RequestMeta) (*NoticeReceipt, error) {
	if !model.Can(evaluator.Role, model.CapNotifyRecyclers) {
		return nil, apperr.Authorization("Insufficient permissions")
	}
	reason = strings.TrimSpace(reason)
	if id == 0 || reason == "" {
		return nil, apperr.Validation("Certification ID and reason are required")
	}
	c, err := s.certs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Certification not found")
		}
		return nil, apperr.Dependency("load certification", err)
	}
	recycler, err := s.users.GetByEmail(ctx, c.RecyclerEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Recycler account not found")
		}
		return nil, apperr.Dependency("load recycler", err)
	}

	if err := s.notify.Create(ctx, &model.Notification{
		UserID:    recycler.ID,
		Title:     "Certification Notice",
		Message:   "Regarding " + c.BusinessName + ": " + reason,
		Type:      model.NotifyWarning,
		ActionURL: strPtr("/recycler-dashboard"),
	}); err != nil {
		return nil, apperr.Dependency("create notification", err)
	}
	if em, err := mail.CertificationStatusEmail(recycler.Email, recycler.Name, c.BusinessName, string(c.Status), reason, c.ValidUntil); err == nil {
		s.notify.Email(ctx, em)
	}
	s.activity.Log(ctx, evaluator.ID, model.ActionNotifyRecycler, map[string]any{
		"certificationId": c.ID,
		"reason":          reason,
	}, meta)
	return &NoticeReceipt{CertificationID: c.ID, Reason: reason, SentAt: s.now().UTC()}, nil
}

func notesOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
