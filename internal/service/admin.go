package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/iliyamo/ecowaste-cert/internal/apperr"
	"github.com/iliyamo/ecowaste-cert/internal/model"
	"github.com/iliyamo/ecowaste-cert/internal/repository"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	recentLogs      = 10
	recentCerts     = 5
)

// AdminService backs the admin dashboard and user management.
type AdminService struct {
	users    UserStore
	certs    CertificationStore
	audit    AuditStore
	activity *ActivityLogger
}

func NewAdminService(users UserStore, certs CertificationStore, audit AuditStore, activity *ActivityLogger) *AdminService {
	return &AdminService{users: users, certs: certs, audit: audit, activity: activity}
}

type RecentCertification struct {
	ID           uint64                    `json:"id"`
	RecyclerName string                    `json:"recyclerName"`
	BusinessName string                    `json:"businessName"`
	Status       model.CertificationStatus `json:"status"`
	AppliedAt    time.Time                 `json:"appliedAt"`
}

type Dashboard struct {
	Stats                model.DashboardStats  `json:"stats"`
	RecentActivity       []model.AuditLog      `json:"recentActivity"`
	RecentCertifications []RecentCertification `json:"recentCertifications"`
}

func (s *AdminService) Dashboard(ctx context.Context, admin *model.User, meta RequestMeta) (*Dashboard, error) {
	if !model.Can(admin.Role, model.CapViewAdminDashboard) {
		return nil, apperr.Authorization("Insufficient permissions")
	}
	stats, err := s.audit.DashboardStats(ctx)
	if err != nil {
		return nil, apperr.Dependency("dashboard stats", err)
	}
	logs, err := s.audit.Recent(ctx, recentLogs)
	if err != nil {
		return nil, apperr.Dependency("recent audit logs", err)
	}
	certs, err := s.certs.ListAll(ctx, recentCerts)
	if err != nil {
		return nil, apperr.Dependency("recent certifications", err)
	}
	recent := make([]RecentCertification, 0, len(certs))
	for _, c := range certs {
		recent = append(recent, RecentCertification{
			ID:           c.ID,
			RecyclerName: c.RecyclerName,
			BusinessName: c.BusinessName,
			Status:       c.Status,
			AppliedAt:    c.AppliedAt,
		})
	}
	s.activity.Log(ctx, admin.ID, model.ActionViewAdminDashboard, nil, meta)
	return &Dashboard{Stats: stats, RecentActivity: logs, RecentCertifications: recent}, nil
}

// UserQuery is the raw query string of the user listing.
type UserQuery struct {
	Role     string
	IsActive string
	Page     string
	Limit    string
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type UserPage struct {
	Users      []model.PublicUser `json:"users"`
	Pagination Pagination         `json:"pagination"`
}

func (s *AdminService) ListUsers(ctx context.Context, admin *model.User, q UserQuery, meta RequestMeta) (*UserPage, error) {
	if !model.Can(admin.Role, model.CapManageUsers) {
		return nil, apperr.Authorization("Insufficient permissions")
	}
	var f model.UserFilter
	if q.Role != "" {
		r, err := model.ParseRole(q.Role)
		if err != nil {
			return nil, apperr.Validation("Invalid role")
		}
		f.Role = &r
	}
	if q.IsActive != "" {
		v, err := strconv.ParseBool(q.IsActive)
		if err != nil {
			return nil, apperr.Validation("isActive must be true or false")
		}
		f.IsActive = &v
	}
	page := parsePositive(q.Page, 1)
	limit := parsePositive(q.Limit, defaultPageSize)
	if limit > maxPageSize {
		limit = maxPageSize
	}

	users, total, err := s.users.List(ctx, f, limit, (page-1)*limit)
	if err != nil {
		return nil, apperr.Dependency("list users", err)
	}
	out := make([]model.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}

	filters := map[string]any{}
	if f.Role != nil {
		filters["role"] = string(*f.Role)
	}
	if f.IsActive != nil {
		filters["isActive"] = *f.IsActive
	}
	s.activity.Log(ctx, admin.ID, model.ActionViewUsers, map[string]any{
		"filters": filters, "page": page, "limit": limit,
	}, meta)

	return &UserPage{
		Users: out,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	}, nil
}

type UpdateUserInput struct {
	UserID  uint64 `json:"userId"`
	Updates struct {
		IsActive *bool   `json:"isActive"`
		Role     *string `json:"role"`
	} `json:"updates"`
}

// UpdateUser is the admin override.  Only isActive and role can change.
func (s *AdminService) UpdateUser(ctx context.Context, admin *model.User, in UpdateUserInput, meta RequestMeta) (*model.User, error) {
	if !model.Can(admin.Role, model.CapManageUsers) {
		return nil, apperr.Authorization("Insufficient permissions")
	}
	if in.UserID == 0 {
		return nil, apperr.Validation("User ID and updates are required")
	}
	upd := model.UserUpdate{IsActive: in.Updates.IsActive}
	if in.Updates.Role != nil {
		r, err := model.ParseRole(*in.Updates.Role)
		if err != nil {
			return nil, apperr.Validation("Invalid role")
		}
		upd.Role = &r
	}
	if upd.Empty() {
		return nil, apperr.Validation("User ID and updates are required")
	}

	u, err := s.users.Update(ctx, in.UserID, upd)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("User not found")
		}
		return nil, apperr.Dependency("update user", err)
	}

	applied := map[string]any{}
	if upd.IsActive != nil {
		applied["isActive"] = *upd.IsActive
	}
	if upd.Role != nil {
		applied["role"] = string(*upd.Role)
	}
	s.activity.Log(ctx, admin.ID, model.ActionUpdateUser, map[string]any{
		"targetUserId": in.UserID, "updates": applied,
	}, meta)
	return u, nil
}

func parsePositive(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	return n
}
