package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/ecowaste-cert/internal/apperr"
	"github.com/iliyamo/ecowaste-cert/internal/model"
	"github.com/iliyamo/ecowaste-cert/internal/repository"
)

// DirectoryService serves the public handler and collector directories,
// collector profiles, feedback and collector statistics.
type DirectoryService struct {
	dir      DirectoryStore
	approach ApproachStore
	activity *ActivityLogger
	cache    DirectoryCache
	now      func() time.Time
}

func NewDirectoryService(dir DirectoryStore, approach ApproachStore, activity *ActivityLogger) *DirectoryService {
	return &DirectoryService{dir: dir, approach: approach, activity: activity, now: time.Now}
}

// WithCache makes listing changes purge cache.
func (s *DirectoryService) WithCache(cache DirectoryCache) *DirectoryService {
	s.cache = cache
	return s
}

// purgeDirectory drops cached directory pages after a listing changed.
func purgeDirectory(ctx context.Context, cache DirectoryCache) {
	if cache == nil {
		return
	}
	sideEffect(ctx, "directory-cache", cache.Purge)
}

// HandlerQuery is the raw query string of the handler search.
type HandlerQuery struct {
	Rating       string
	ActivityType string
	Region       string
	Validity     string // "valid" restricts to unexpired listings
}

// ParseHandlerQuery validates the raw search parameters.
func ParseHandlerQuery(q HandlerQuery) (model.HandlerFilter, error) {
	f := model.HandlerFilter{
		ActivityType: strings.TrimSpace(q.ActivityType),
		Region:       strings.TrimSpace(q.Region),
		ValidOnly:    strings.EqualFold(strings.TrimSpace(q.Validity), "valid"),
	}
	if r := strings.TrimSpace(q.Rating); r != "" {
		v, err := strconv.ParseFloat(r, 64)
		if err != nil || v < 0 || v > 5 {
			return f, apperr.Validation("rating must be a number between 0 and 5")
		}
		f.MinRating = &v
	}
	return f, nil
}

func (s *DirectoryService) ListHandlers(ctx context.Context, q HandlerQuery) ([]model.Handler, error) {
	f, err := ParseHandlerQuery(q)
	if err != nil {
		return nil, err
	}
	out, err := s.dir.ListHandlers(ctx, f, s.now())
	if err != nil {
		return nil, apperr.Dependency("list handlers", err)
	}
	return out, nil
}

func (s *DirectoryService) ListCollectors(ctx context.Context) ([]model.WasteCollector, error) {
	out, err := s.dir.ListVerifiedCollectors(ctx)
	if err != nil {
		return nil, apperr.Dependency("list collectors", err)
	}
	return out, nil
}

type CollectorProfileInput struct {
	Phone           string   `json:"phone"`
	Region          string   `json:"region"`
	Specialization  string   `json:"specialization"`
	Availability    string   `json:"availability"`
	PriceRange      string   `json:"priceRange"`
	Experience      string   `json:"experience"`
	ServicesOffered []string `json:"servicesOffered"`
	VehicleTypes    []string `json:"vehicleTypes"`
	OperatingHours  string   `json:"operatingHours"`
}

// SaveCollectorProfile creates or updates the caller's collector profile.
// New profiles stay hidden until an admin verifies them.
func (s *DirectoryService) SaveCollectorProfile(ctx context.Context, user *model.User, in CollectorProfileInput, meta RequestMeta) (*model.WasteCollector, error) {
	if !model.Can(user.Role, model.CapManageCollectorProf) {
		return nil, apperr.Authorization("Insufficient permissions")
	}
	wc := &model.WasteCollector{
		UserID:          user.ID,
		Name:            user.Name,
		Email:           user.Email,
		Phone:           firstNonBlank(in.Phone, user.Phone),
		Region:          firstNonBlank(in.Region, user.Region),
		Specialization:  strings.TrimSpace(in.Specialization),
		Availability:    strings.TrimSpace(in.Availability),
		PriceRange:      strings.TrimSpace(in.PriceRange),
		Experience:      strings.TrimSpace(in.Experience),
		ServicesOffered: compact(in.ServicesOffered),
		VehicleTypes:    compact(in.VehicleTypes),
		OperatingHours:  strings.TrimSpace(in.OperatingHours),
	}
	saved, err := s.dir.UpsertCollector(ctx, wc)
	if err != nil {
		return nil, apperr.Dependency("save collector profile", err)
	}
	purgeDirectory(ctx, s.cache)
	s.activity.Log(ctx, user.ID, model.ActionUpdateProfile, map[string]any{"collectorId": saved.ID}, meta)
	return saved, nil
}

// SetCollectorVerified is the admin switch for public visibility.
func (s *DirectoryService) SetCollectorVerified(ctx context.Context, admin *model.User, id uint64, verified bool, meta RequestMeta) (*model.WasteCollector, error) {
	if !model.Can(admin.Role, model.CapVerifyCollectors) {
		return nil, apperr.Authorization("Insufficient permissions")
	}
	wc, err := s.dir.SetCollectorVerified(ctx, id, verified)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Waste collector not found")
		}
		return nil, apperr.Dependency("verify collector", err)
	}
	purgeDirectory(ctx, s.cache)
	s.activity.Log(ctx, admin.ID, model.ActionVerifyCollector, map[string]any{
		"collectorId": id,
		"isVerified":  verified,
	}, meta)
	return wc, nil
}

type FeedbackInput struct {
	Rating      int    `json:"rating"`
	Comment     string `json:"comment"`
	ProjectType string `json:"projectType"`
}

// SubmitFeedback records a recycler's rating of a collector.  Feedback is
// marked verified when the recycler has a completed request with that
// collector.
func (s *DirectoryService) SubmitFeedback(ctx context.Context, recycler *model.User, collectorID uint64, in FeedbackInput, meta RequestMeta) (*model.Feedback, error) {
	if !model.Can(recycler.Role, model.CapSubmitFeedback) {
		return nil, apperr.Authorization("Insufficient permissions")
	}
	in.Comment = strings.TrimSpace(in.Comment)
	if in.Rating < 1 || in.Rating > 5 {
		return nil, apperr.Validation("Rating must be between 1 and 5")
	}
	if in.Comment == "" {
		return nil, apperr.Validation("Comment is required")
	}
	if _, err := s.dir.GetCollector(ctx, collectorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Waste collector not found")
		}
		return nil, apperr.Dependency("load collector", err)
	}

	verified := false
	sent, err := s.approach.ListBySender(ctx, recycler.ID)
	if err != nil {
		return nil, apperr.Dependency("list approach requests", err)
	}
	for _, a := range sent {
		if a.CollectorID == collectorID && a.Status == model.ApproachCompleted {
			verified = true
			break
		}
	}

	f := &model.Feedback{
		CollectorID:  collectorID,
		RecyclerID:   recycler.ID,
		RecyclerName: recycler.Name,
		Rating:       in.Rating,
		Comment:      in.Comment,
		ProjectType:  strings.TrimSpace(in.ProjectType),
		IsVerified:   verified,
	}
	if err := s.dir.CreateFeedback(ctx, f); err != nil {
		return nil, apperr.Dependency("create feedback", err)
	}
	purgeDirectory(ctx, s.cache)
	s.activity.Log(ctx, recycler.ID, model.ActionSubmitFeedback, map[string]any{
		"collectorId": collectorID,
		"rating":      in.Rating,
	}, meta)
	return f, nil
}

func (s *DirectoryService) profileOf(ctx context.Context, user *model.User) (*model.WasteCollector, error) {
	wc, err := s.dir.GetCollectorByUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Collector profile not found")
		}
		return nil, apperr.Dependency("load collector profile", err)
	}
	return wc, nil
}

// MyFeedback lists the feedback received by the caller's collector profile.
func (s *DirectoryService) MyFeedback(ctx context.Context, user *model.User) ([]model.Feedback, error) {
	wc, err := s.profileOf(ctx, user)
	if err != nil {
		return nil, err
	}
	out, err := s.dir.ListFeedback(ctx, wc.ID)
	if err != nil {
		return nil, apperr.Dependency("list feedback", err)
	}
	return out, nil
}

// CollectorStats summarises the caller's requests and ratings.
// CompletionRate is a percentage of all received requests.
func (s *DirectoryService) CollectorStats(ctx context.Context, user *model.User) (*model.CollectorStats, error) {
	if !model.Can(user.Role, model.CapViewCollectorStats) {
		return nil, apperr.Authorization("Insufficient permissions")
	}
	wc, err := s.profileOf(ctx, user)
	if err != nil {
		return nil, err
	}
	feedback, err := s.dir.ListFeedback(ctx, wc.ID)
	if err != nil {
		return nil, apperr.Dependency("list feedback", err)
	}
	requests, err := s.approach.ListByRecipient(ctx, user.ID)
	if err != nil {
		return nil, apperr.Dependency("list approach requests", err)
	}
	return computeStats(requests, feedback), nil
}

func computeStats(requests []model.ApproachRequest, feedback []model.Feedback) *model.CollectorStats {
	st := &model.CollectorStats{TotalFeedbacks: len(feedback)}
	for _, r := range requests {
		switch r.Status {
		case model.ApproachCompleted:
			st.TotalProjects++
		case model.ApproachPending:
			st.ActiveRequests++
		}
	}
	if len(feedback) > 0 {
		sum := 0
		for _, f := range feedback {
			sum += f.Rating
		}
		st.AverageRating = float64(sum) / float64(len(feedback))
	}
	if len(requests) > 0 {
		st.CompletionRate = float64(st.TotalProjects) / float64(len(requests)) * 100
	}
	return st
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
