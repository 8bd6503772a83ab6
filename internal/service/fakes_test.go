package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/ecowaste-cert/internal/mail"
	"github.com/iliyamo/ecowaste-cert/internal/model"
	"github.com/iliyamo/ecowaste-cert/internal/repository"
)

type memUsers struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]*model.User
}

func newMemUsers() *memUsers { return &memUsers{byID: map[uint64]*model.User{}} }

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.byID {
		if x.Email == u.Email {
			return repository.ErrEmailExists
		}
	}
	m.nextID++
	u.ID = m.nextID
	u.CreatedAt = time.Now()
	cp := *u
	m.byID[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == strings.TrimSpace(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) SetPasswordResetToken(_ context.Context, id uint64, hash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordResetToken, u.PasswordResetExpires = &hash, &exp
	return nil
}

func (m *memUsers) RedeemVerificationToken(_ context.Context, hash string, now time.Time) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.EmailVerificationToken != nil && *u.EmailVerificationToken == hash {
			if u.EmailVerificationExpires != nil && !u.EmailVerificationExpires.After(now) {
				return nil, repository.ErrNotFound
			}
			u.IsEmailVerified = true
			u.EmailVerificationToken, u.EmailVerificationExpires = nil, nil
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memUsers) RedeemPasswordResetToken(_ context.Context, hash, newHash string, now time.Time) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.PasswordResetToken != nil && *u.PasswordResetToken == hash && u.PasswordResetExpires.After(now) {
			u.PasswordHash = newHash
			u.PasswordResetToken, u.PasswordResetExpires = nil, nil
			return u.ID, nil
		}
	}
	return 0, repository.ErrNotFound
}

func (m *memUsers) TouchLastLogin(_ context.Context, id uint64, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.byID[id]; ok {
		u.LastLoginAt = &at
	}
	return nil
}

func (m *memUsers) List(_ context.Context, f model.UserFilter, limit, offset int) ([]model.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []model.User
	for _, u := range m.byID {
		if f.Role != nil && u.Role != *f.Role {
			continue
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := len(all)
	if offset >= total {
		return []model.User{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *memUsers) Update(_ context.Context, id uint64, upd model.UserUpdate) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	cp := *u
	return &cp, nil
}

// add inserts a ready-made user, bypassing registration.
func (m *memUsers) add(u model.User) *model.User {
	_ = m.Create(context.Background(), &u)
	return &u
}

type memCerts struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*model.Certification
}

func newMemCerts() *memCerts { return &memCerts{rows: map[uint64]*model.Certification{}} }

func (m *memCerts) Create(_ context.Context, c *model.Certification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *memCerts) GetByID(_ context.Context, id uint64) (*model.Certification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCerts) ListByRecycler(_ context.Context, email string) ([]model.Certification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Certification{}
	for _, c := range m.sorted() {
		if c.RecyclerEmail == email {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memCerts) ListAll(_ context.Context, limit int) ([]model.Certification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted()
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memCerts) sorted() []model.Certification {
	out := make([]model.Certification, 0, len(m.rows))
	for _, c := range m.rows {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memCerts) UpdateEvaluation(_ context.Context, c *model.Certification, from model.CertificationStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.rows[c.ID]
	if !ok || cur.Status != from {
		return repository.ErrConflict
	}
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

type memDirectory struct {
	mu         sync.Mutex
	handlers   map[uint64]*model.Handler // by user id
	collectors map[uint64]*model.WasteCollector
	feedback   []model.Feedback
	nextID     uint64
	failWrites bool
}

func newMemDirectory() *memDirectory {
	return &memDirectory{handlers: map[uint64]*model.Handler{}, collectors: map[uint64]*model.WasteCollector{}}
}

var errStoreDown = errors.New("store unavailable")

func (m *memDirectory) ListHandlers(_ context.Context, f model.HandlerFilter, now time.Time) ([]model.Handler, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Handler{}
	for _, h := range m.handlers {
		if !h.IsVerified {
			continue
		}
		if f.MinRating != nil && h.Rating < *f.MinRating {
			continue
		}
		if f.ActivityType != "" && h.ActivityType != f.ActivityType {
			continue
		}
		if f.Region != "" && !strings.Contains(strings.ToLower(h.Region), strings.ToLower(f.Region)) {
			continue
		}
		if f.ValidOnly && (h.ValidUntil == nil || !h.ValidUntil.After(now)) {
			continue
		}
		out = append(out, *h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return out, nil
}

func (m *memDirectory) UpsertHandler(_ context.Context, h *model.Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrites {
		return errStoreDown
	}
	if cur, ok := m.handlers[h.UserID]; ok {
		cur.BusinessName, cur.ActivityType = h.BusinessName, h.ActivityType
		cur.CertificationStatus, cur.ValidUntil, cur.IsVerified = h.CertificationStatus, h.ValidUntil, h.IsVerified
		return nil
	}
	m.nextID++
	cp := *h
	cp.ID = m.nextID
	m.handlers[h.UserID] = &cp
	return nil
}

func (m *memDirectory) SetHandlerStatus(_ context.Context, userID uint64, verified bool, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.handlers[userID]
	if !ok {
		return repository.ErrNotFound
	}
	h.IsVerified, h.CertificationStatus = verified, status
	return nil
}

func (m *memDirectory) ListVerifiedCollectors(_ context.Context) ([]model.WasteCollector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.WasteCollector{}
	for _, c := range m.collectors {
		if c.IsVerified {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return out, nil
}

func (m *memDirectory) GetCollector(_ context.Context, id uint64) (*model.WasteCollector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.collectors[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memDirectory) GetCollectorByUser(_ context.Context, userID uint64) (*model.WasteCollector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.collectors {
		if c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memDirectory) UpsertCollector(ctx context.Context, wc *model.WasteCollector) (*model.WasteCollector, error) {
	m.mu.Lock()
	for _, c := range m.collectors {
		if c.UserID == wc.UserID {
			verified, rating, id := c.IsVerified, c.Rating, c.ID
			*c = *wc
			c.ID, c.IsVerified, c.Rating = id, verified, rating
			m.mu.Unlock()
			return m.GetCollector(ctx, id)
		}
	}
	m.nextID++
	cp := *wc
	cp.ID = m.nextID
	cp.IsVerified = false
	m.collectors[cp.ID] = &cp
	m.mu.Unlock()
	return m.GetCollector(ctx, cp.ID)
}

func (m *memDirectory) SetCollectorVerified(ctx context.Context, id uint64, verified bool) (*model.WasteCollector, error) {
	m.mu.Lock()
	c, ok := m.collectors[id]
	if ok {
		c.IsVerified = verified
	}
	m.mu.Unlock()
	if !ok {
		return nil, repository.ErrNotFound
	}
	return m.GetCollector(ctx, id)
}

func (m *memDirectory) CreateFeedback(_ context.Context, f *model.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	f.ID = m.nextID
	m.feedback = append(m.feedback, *f)
	return nil
}

func (m *memDirectory) ListFeedback(_ context.Context, collectorID uint64) ([]model.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Feedback{}
	for _, f := range m.feedback {
		if f.CollectorID == collectorID {
			out = append(out, f)
		}
	}
	return out, nil
}

// addCollector registers a profile directly.
func (m *memDirectory) addCollector(wc model.WasteCollector) *model.WasteCollector {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	wc.ID = m.nextID
	m.collectors[wc.ID] = &wc
	return &wc
}

type memApproach struct {
	mu     sync.Mutex
	nextID uint64
	rows   map[uint64]*model.ApproachRequest
}

func newMemApproach() *memApproach { return &memApproach{rows: map[uint64]*model.ApproachRequest{}} }

func (m *memApproach) Create(_ context.Context, a *model.ApproachRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	cp := *a
	m.rows[a.ID] = &cp
	return nil
}

func (m *memApproach) GetByID(_ context.Context, id uint64) (*model.ApproachRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memApproach) list(keep func(*model.ApproachRequest) bool) []model.ApproachRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.ApproachRequest{}
	for _, a := range m.rows {
		if keep(a) {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memApproach) ListBySender(_ context.Context, id uint64) ([]model.ApproachRequest, error) {
	return m.list(func(a *model.ApproachRequest) bool { return a.RecyclerID == id }), nil
}

func (m *memApproach) ListByRecipient(_ context.Context, id uint64) ([]model.ApproachRequest, error) {
	return m.list(func(a *model.ApproachRequest) bool { return a.CollectorUserID == id }), nil
}

func (m *memApproach) UpdateStatus(_ context.Context, id uint64, from, to model.ApproachStatus, resp *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.rows[id]
	if !ok || a.Status != from {
		return repository.ErrConflict
	}
	a.Status = to
	if resp != nil {
		a.Response = resp
	}
	return nil
}

type memNotifications struct {
	mu       sync.Mutex
	nextID   uint64
	rows     []*model.Notification
	failures int // number of Create calls to fail before succeeding
	lostAcks int // number of Create calls that store the row and still fail
}

// Create mirrors the unique idempotency key of the notifications table.
func (m *memNotifications) Create(_ context.Context, n *model.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errStoreDown
	}
	if n.IdempotencyKey != "" {
		for _, r := range m.rows {
			if r.IdempotencyKey == n.IdempotencyKey {
				n.ID = r.ID
				return nil
			}
		}
	}
	m.nextID++
	n.ID = m.nextID
	cp := *n
	m.rows = append(m.rows, &cp)
	if m.lostAcks > 0 {
		m.lostAcks--
		return errStoreDown
	}
	return nil
}

func (m *memNotifications) ListByUser(_ context.Context, userID uint64) ([]model.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Notification{}
	for _, n := range m.rows {
		if n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (m *memNotifications) MarkRead(_ context.Context, id, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.rows {
		if n.ID == id && n.UserID == userID {
			n.IsRead = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memNotifications) all() []model.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Notification, 0, len(m.rows))
	for _, n := range m.rows {
		out = append(out, *n)
	}
	return out
}

type memAudit struct {
	mu       sync.Mutex
	logs     []model.AuditLog
	fail     bool
	lostAcks int
}

func (m *memAudit) Insert(_ context.Context, l *model.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errStoreDown
	}
	if l.IdempotencyKey != "" {
		for _, existing := range m.logs {
			if existing.IdempotencyKey == l.IdempotencyKey {
				l.ID = existing.ID
				return nil
			}
		}
	}
	l.ID = uint64(len(m.logs) + 1)
	m.logs = append(m.logs, *l)
	if m.lostAcks > 0 {
		m.lostAcks--
		return errStoreDown
	}
	return nil
}

func (m *memAudit) Recent(_ context.Context, limit int) ([]model.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.AuditLog{}
	for i := len(m.logs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.logs[i])
	}
	return out, nil
}

func (m *memAudit) DashboardStats(_ context.Context) (model.DashboardStats, error) {
	return model.DashboardStats{TotalUsers: 3}, nil
}

func (m *memAudit) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.logs))
	for _, l := range m.logs {
		out = append(out, l.Action)
	}
	return out
}

type countingCache struct {
	mu     sync.Mutex
	purges int
}

func (c *countingCache) Purge(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purges++
	return nil
}

func (c *countingCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.purges
}

type memMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	fail bool
}

func (m *memMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *memMailer) last() mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return mail.Message{}
	}
	return m.sent[len(m.sent)-1]
}

// tokenFrom extracts the raw one-time token from an emailed link.
func tokenFrom(msg mail.Message) string {
	parts := strings.SplitN(msg.Text, "token=", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// env wires every service over in-memory stores.
type env struct {
	users    *memUsers
	certs    *memCerts
	dir      *memDirectory
	approach *memApproach
	notes    *memNotifications
	audit    *memAudit
	mailer   *memMailer

	notify   *NotificationService
	activity *ActivityLogger
}

func newEnv() *env {
	e := &env{
		users:    newMemUsers(),
		certs:    newMemCerts(),
		dir:      newMemDirectory(),
		approach: newMemApproach(),
		notes:    &memNotifications{},
		audit:    &memAudit{},
		mailer:   &memMailer{},
	}
	e.notify = NewNotificationService(e.notes, e.mailer)
	e.activity = NewActivityLogger(e.audit)
	return e
}
