package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"trekko-booking/internal/data/entity"
	"trekko-booking/internal/data/repository"
	"trekko-booking/internal/queue"
	"trekko-booking/pkg/gateway"
	"trekko-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// In-memory stores implementing the repository interfaces, with the same
// guarded-transition semantics as the SQL layer.

type memReservationRepo struct {
	mu    sync.Mutex
	rows  map[uuid.UUID]*entity.Reservation
	audit *memAuditRepo
}

func newMemReservationRepo(audit *memAuditRepo) *memReservationRepo {
	return &memReservationRepo{rows: make(map[uuid.UUID]*entity.Reservation), audit: audit}
}

func (m *memReservationRepo) Create(ctx context.Context, r *entity.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.rows[r.ID] = &cp
	return nil
}

func (m *memReservationRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *memReservationRepo) FindByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*entity.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Reservation
	for _, r := range m.rows {
		if r.UserID == userID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memReservationRepo) CountByUserID(ctx context.Context, userID uuid.UUID) (int64, error) {
	rows, _ := m.FindByUserID(ctx, userID, 0, 0)
	return int64(len(rows)), nil
}

func (m *memReservationRepo) FindByExpeditionID(ctx context.Context, expeditionID uuid.UUID) ([]*entity.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Reservation
	for _, r := range m.rows {
		if r.ExpeditionID == expeditionID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memReservationRepo) FindByMPPaymentID(ctx context.Context, mpPaymentID string) (*entity.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.MPPaymentID != nil && *r.MPPaymentID == mpPaymentID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memReservationRepo) SetCheckoutArtifacts(ctx context.Context, id uuid.UUID, preferenceID, externalReference string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return fmt.Errorf("reservation %s not found", id)
	}
	r.MPPreferenceID = &preferenceID
	r.MPExternalReference = &externalReference
	return nil
}

func (m *memReservationRepo) SumPaidQuantity(ctx context.Context, expeditionID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := 0
	for _, r := range m.rows {
		if r.ExpeditionID == expeditionID && r.Status == entity.ReservationStatusPaid {
			sum += r.Quantity
		}
	}
	return sum, nil
}

func (m *memReservationRepo) FindPaidByExpeditionID(ctx context.Context, expeditionID uuid.UUID) ([]*entity.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Reservation
	for _, r := range m.rows {
		if r.ExpeditionID == expeditionID && r.Status == entity.ReservationStatusPaid {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memReservationRepo) FindExpiredPending(ctx context.Context, now time.Time, limit int) ([]*entity.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Reservation
	for _, r := range m.rows {
		if r.Status == entity.ReservationStatusPendingPayment && r.ExpiresAt.Before(now) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memReservationRepo) FindPastContestationWindow(ctx context.Context, now time.Time, limit int) ([]*entity.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Reservation
	for _, r := range m.rows {
		if r.Status == entity.ReservationStatusAwaitingContestation &&
			r.ContestationEndsAt != nil && r.ContestationEndsAt.Before(now) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memReservationRepo) TransitionStatus(ctx context.Context, t *entity.StatusTransition) error {
	if !entity.CanTransition(t.From, t.To) {
		return fmt.Errorf("transition %s -> %s: %w", t.From, t.To, repository.ErrInvalidTransition)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[t.ReservationID]
	if !ok || r.Status != t.From {
		return repository.ErrStaleTransition
	}

	r.Status = t.To
	applyUpdate(r, t.Set)
	m.audit.record(t.ReservationID, t.Action)
	return nil
}

func (m *memReservationRepo) TransitionAllPaidByExpedition(ctx context.Context, expeditionID uuid.UUID, to entity.ReservationStatus, set entity.ReservationUpdate, action string, actorID *uuid.UUID, actorType entity.ActorType) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	moved := 0
	for _, r := range m.rows {
		if r.ExpeditionID == expeditionID && r.Status == entity.ReservationStatusPaid {
			r.Status = to
			applyUpdate(r, set)
			m.audit.record(r.ID, action)
			moved++
		}
	}
	return moved, nil
}

func applyUpdate(r *entity.Reservation, u entity.ReservationUpdate) {
	if u.MPPaymentID != nil {
		r.MPPaymentID = u.MPPaymentID
	}
	if u.MPPreferenceID != nil {
		r.MPPreferenceID = u.MPPreferenceID
	}
	if u.MPExternalReference != nil {
		r.MPExternalReference = u.MPExternalReference
	}
	if u.MPRefundID != nil {
		r.MPRefundID = u.MPRefundID
	}
	if u.PaymentMethod != nil {
		r.PaymentMethod = u.PaymentMethod
	}
	if u.PaidAt != nil {
		r.PaidAt = u.PaidAt
	}
	if u.ExpeditionCompletedAt != nil {
		r.ExpeditionCompletedAt = u.ExpeditionCompletedAt
	}
	if u.ContestationEndsAt != nil {
		r.ContestationEndsAt = u.ContestationEndsAt
	}
	if u.PayoutScheduledAt != nil {
		r.PayoutScheduledAt = u.PayoutScheduledAt
	}
	if u.PayoutCompletedAt != nil {
		r.PayoutCompletedAt = u.PayoutCompletedAt
	}
	if u.CancelledAt != nil {
		r.CancelledAt = u.CancelledAt
	}
	if u.CancellationReason != nil {
		r.CancellationReason = u.CancellationReason
	}
	if u.CancelledBy != nil {
		r.CancelledBy = u.CancelledBy
	}
	if u.RefundedAt != nil {
		r.RefundedAt = u.RefundedAt
	}
	if u.RefundAmount != nil {
		r.RefundAmount = u.RefundAmount
	}
}

type memPaymentRepo struct {
	mu   sync.Mutex
	rows map[string]*entity.Payment
}

func newMemPaymentRepo() *memPaymentRepo {
	return &memPaymentRepo{rows: make(map[string]*entity.Payment)}
}

func (m *memPaymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	if err := p.Reconcile(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.MPPaymentID]; ok {
		return fmt.Errorf("payment %s: %w", p.MPPaymentID, repository.ErrDuplicatePayment)
	}
	cp := *p
	m.rows[p.MPPaymentID] = &cp
	return nil
}

func (m *memPaymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.rows {
		if p.ID == id {
			cp := *p
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memPaymentRepo) FindByMPPaymentID(ctx context.Context, mpPaymentID string) (*entity.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[mpPaymentID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memPaymentRepo) FindByReservationID(ctx context.Context, reservationID uuid.UUID) ([]*entity.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Payment
	for _, p := range m.rows {
		if p.ReservationID == reservationID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPaymentRepo) UpdateStatusByMPPaymentID(ctx context.Context, mpPaymentID string, status entity.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[mpPaymentID]
	if !ok {
		return fmt.Errorf("payment %s not found", mpPaymentID)
	}
	p.Status = status
	return nil
}

type memPayoutRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*entity.Payout
}

func newMemPayoutRepo() *memPayoutRepo {
	return &memPayoutRepo{rows: make(map[uuid.UUID]*entity.Payout)}
}

func (m *memPayoutRepo) Create(ctx context.Context, p *entity.Payout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.rows[p.ID] = &cp
	return nil
}

func (m *memPayoutRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (m *memPayoutRepo) FindCurrentByReservationID(ctx context.Context, reservationID uuid.UUID) (*entity.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *entity.Payout
	for _, p := range m.rows {
		if p.ReservationID == reservationID && p.Status != entity.PayoutStatusFailed {
			if latest == nil || p.CreatedAt.After(latest.CreatedAt) {
				latest = p
			}
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *memPayoutRepo) FindDue(ctx context.Context, now time.Time, limit int) ([]*entity.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Payout
	for _, p := range m.rows {
		if p.Status == entity.PayoutStatusScheduled && !p.ScheduledDate.After(now) {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPayoutRepo) FindByGuideID(ctx context.Context, guideID uuid.UUID, limit, offset int) ([]*entity.Payout, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Payout
	for _, p := range m.rows {
		if p.GuideID == guideID {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memPayoutRepo) guarded(id uuid.UUID, from []entity.PayoutStatus, apply func(*entity.Payout)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return repository.ErrStaleTransition
	}
	for _, s := range from {
		if p.Status == s {
			apply(p)
			return nil
		}
	}
	return repository.ErrStaleTransition
}

func (m *memPayoutRepo) MarkProcessing(ctx context.Context, id uuid.UUID) error {
	return m.guarded(id, []entity.PayoutStatus{entity.PayoutStatusScheduled}, func(p *entity.Payout) {
		p.Status = entity.PayoutStatusProcessing
	})
}

func (m *memPayoutRepo) MarkSent(ctx context.Context, id uuid.UUID, txID, e2eID string, receiptURL *string) error {
	return m.guarded(id, []entity.PayoutStatus{entity.PayoutStatusProcessing}, func(p *entity.Payout) {
		p.Status = entity.PayoutStatusSent
		p.PixTransactionID = &txID
		p.PixEndToEndID = &e2eID
		p.PixReceiptURL = receiptURL
	})
}

func (m *memPayoutRepo) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	return m.guarded(id, []entity.PayoutStatus{entity.PayoutStatusSent}, func(p *entity.Payout) {
		p.Status = entity.PayoutStatusCompleted
	})
}

func (m *memPayoutRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return m.guarded(id, []entity.PayoutStatus{entity.PayoutStatusScheduled, entity.PayoutStatusProcessing}, func(p *entity.Payout) {
		p.Status = entity.PayoutStatusFailed
		p.FailureReason = &reason
		p.RetryCount++
	})
}

func (m *memPayoutRepo) Reschedule(ctx context.Context, id uuid.UUID, newDate time.Time) error {
	return m.guarded(id, []entity.PayoutStatus{entity.PayoutStatusFailed}, func(p *entity.Payout) {
		p.Status = entity.PayoutStatusScheduled
		p.ScheduledDate = newDate
		p.FailureReason = nil
	})
}

func (m *memPayoutRepo) Block(ctx context.Context, id uuid.UUID, reason string) error {
	return m.guarded(id, []entity.PayoutStatus{entity.PayoutStatusScheduled, entity.PayoutStatusProcessing}, func(p *entity.Payout) {
		p.Status = entity.PayoutStatusBlocked
		p.FailureReason = &reason
	})
}

func (m *memPayoutRepo) Unblock(ctx context.Context, id uuid.UUID, newDate time.Time) error {
	return m.guarded(id, []entity.PayoutStatus{entity.PayoutStatusBlocked}, func(p *entity.Payout) {
		p.Status = entity.PayoutStatusScheduled
		p.ScheduledDate = newDate
		p.FailureReason = nil
	})
}

type memContestationRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*entity.Contestation
}

func newMemContestationRepo() *memContestationRepo {
	return &memContestationRepo{rows: make(map[uuid.UUID]*entity.Contestation)}
}

func (m *memContestationRepo) Create(ctx context.Context, c *entity.Contestation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *c
	m.rows[c.ID] = &cp
	return nil
}

func (m *memContestationRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Contestation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (m *memContestationRepo) FindOpenByReservationID(ctx context.Context, reservationID uuid.UUID) (*entity.Contestation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if c.ReservationID == reservationID && c.Open() {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *memContestationRepo) FindByGuideID(ctx context.Context, guideID uuid.UUID, limit, offset int) ([]*entity.Contestation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Contestation
	for _, c := range m.rows {
		if c.GuideID == guideID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memContestationRepo) ListUnresolved(ctx context.Context, limit, offset int) ([]*entity.Contestation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*entity.Contestation
	for _, c := range m.rows {
		if c.Open() {
			cp := *c
			all = append(all, &cp)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

func (m *memContestationRepo) SetGuideResponse(ctx context.Context, id uuid.UUID, resp string, urls []string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok || c.Status != entity.ContestationStatusOpen {
		return repository.ErrStaleTransition
	}
	c.Status = entity.ContestationStatusUnderReview
	c.GuideResponse = &resp
	c.GuideEvidenceURLs = urls
	c.GuideResponseAt = &at
	return nil
}

func (m *memContestationRepo) Resolve(ctx context.Context, id uuid.UUID, status entity.ContestationStatus, resolution string, resolvedBy uuid.UUID, refundAmount *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.rows[id]
	if !ok || !c.Open() {
		return repository.ErrStaleTransition
	}
	now := time.Now()
	c.Status = status
	c.Resolution = &resolution
	c.ResolvedBy = &resolvedBy
	c.ResolvedAt = &now
	c.RefundAmount = refundAmount
	return nil
}

type memExpeditionRepo struct {
	mu           sync.Mutex
	rows         map[uuid.UUID]*entity.Expedition
	reservations *memReservationRepo
}

func newMemExpeditionRepo(reservations *memReservationRepo) *memExpeditionRepo {
	return &memExpeditionRepo{rows: make(map[uuid.UUID]*entity.Expedition), reservations: reservations}
}

func (m *memExpeditionRepo) Create(ctx context.Context, e *entity.Expedition) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *e
	m.rows[e.ID] = &cp
	return nil
}

func (m *memExpeditionRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Expedition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (m *memExpeditionRepo) FindByGuideID(ctx context.Context, guideID uuid.UUID, limit, offset int) ([]*entity.Expedition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.Expedition
	for _, e := range m.rows {
		if e.GuideID == guideID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memExpeditionRepo) RecalcEnrollment(ctx context.Context, id uuid.UUID) (int, error) {
	sum, _ := m.reservations.SumPaidQuantity(ctx, id)
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok {
		return 0, fmt.Errorf("expedition %s not found", id)
	}
	e.EnrolledCount = sum
	if e.Status == entity.ExpeditionStatusActive || e.Status == entity.ExpeditionStatusFull {
		if sum >= e.Capacity {
			e.Status = entity.ExpeditionStatusFull
		} else {
			e.Status = entity.ExpeditionStatusActive
		}
	}
	return sum, nil
}

func (m *memExpeditionRepo) MarkCompleted(ctx context.Context, id uuid.UUID, completedAt, windowEnd time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[id]
	if !ok || (e.Status != entity.ExpeditionStatusActive && e.Status != entity.ExpeditionStatusFull) {
		return repository.ErrStaleTransition
	}
	e.Status = entity.ExpeditionStatusCompleted
	e.CompletedAt = &completedAt
	e.ContestationEndDate = &windowEnd
	return nil
}

type memAuditRepo struct {
	mu      sync.Mutex
	entries []*entity.AuditLogEntry
	actions map[uuid.UUID][]string
}

func newMemAuditRepo() *memAuditRepo {
	return &memAuditRepo{actions: make(map[uuid.UUID][]string)}
}

func (m *memAuditRepo) record(entityID uuid.UUID, action string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actions[entityID] = append(m.actions[entityID], action)
}

func (m *memAuditRepo) Create(ctx context.Context, e *entity.AuditLogEntry) error {
	m.mu.Lock()
	m.entries = append(m.entries, e)
	m.mu.Unlock()
	m.record(e.EntityID, e.Action)
	return nil
}

func (m *memAuditRepo) FindByEntity(ctx context.Context, entityType entity.AuditEntityType, entityID uuid.UUID) ([]*entity.AuditLogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.AuditLogEntry
	for _, e := range m.entries {
		if e.EntityType == entityType && e.EntityID == entityID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memSettingRepo struct {
	mu     sync.Mutex
	values map[string]string
	ids    map[string]uuid.UUID
}

func newMemSettingRepo() *memSettingRepo {
	return &memSettingRepo{values: make(map[string]string), ids: make(map[string]uuid.UUID)}
}

func (m *memSettingRepo) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *memSettingRepo) Set(ctx context.Context, key, value string, updatedBy uuid.UUID) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	if _, ok := m.ids[key]; !ok {
		m.ids[key] = uuid.New()
	}
	return m.ids[key], nil
}

func (m *memSettingRepo) List(ctx context.Context) ([]*entity.PlatformSetting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.PlatformSetting
	for k, v := range m.values {
		out = append(out, &entity.PlatformSetting{Key: k, Value: v})
	}
	return out, nil
}

type memPolicyRepo struct {
	policy *entity.CancellationPolicy
}

func (m *memPolicyRepo) FindDefault(ctx context.Context) (*entity.CancellationPolicy, error) {
	return m.policy, nil
}

type memVerificationRepo struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*entity.GuideVerification
}

func newMemVerificationRepo() *memVerificationRepo {
	return &memVerificationRepo{rows: make(map[uuid.UUID]*entity.GuideVerification)}
}

func (m *memVerificationRepo) Upsert(ctx context.Context, v *entity.GuideVerification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *v
	m.rows[v.UserID] = &cp
	return nil
}

func (m *memVerificationRepo) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.GuideVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[userID]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

func (m *memVerificationRepo) ListByStatus(ctx context.Context, status entity.VerificationStatus, limit, offset int) ([]*entity.GuideVerification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*entity.GuideVerification
	for _, v := range m.rows {
		if v.Status == status {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memVerificationRepo) Review(ctx context.Context, userID uuid.UUID, status entity.VerificationStatus, reviewedBy uuid.UUID, rejectionReason, notes *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[userID]
	if !ok || v.Status != entity.VerificationStatusPending {
		return repository.ErrStaleTransition
	}
	now := time.Now()
	v.Status = status
	v.ReviewedBy = &reviewedBy
	v.ReviewedAt = &now
	v.RejectionReason = rejectionReason
	return nil
}

func (m *memVerificationRepo) SetDocumentURLs(ctx context.Context, userID uuid.UUID, documentURL, bankProofURL *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[userID]
	if !ok {
		return fmt.Errorf("verification for user %s not found", userID)
	}
	if documentURL != nil {
		v.DocumentURL = documentURL
	}
	if bankProofURL != nil {
		v.BankProofURL = bankProofURL
	}
	return nil
}

type memUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uuid.UUID]*entity.User)}
}

func (m *memUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (m *memUserRepo) FindValidSession(ctx context.Context, token string) (*entity.Session, *entity.User, error) {
	return nil, nil, nil
}

// stubGateway counts calls and lets tests inspect what was sent.

type stubGateway struct {
	mu sync.Mutex

	payments map[string]*gateway.Payment

	preferences int
	refunds     []string
	transfers   []*gateway.PixTransferRequest

	transferErr error
}

func newStubGateway() *stubGateway {
	return &stubGateway{payments: make(map[string]*gateway.Payment)}
}

func (g *stubGateway) CreatePreference(ctx context.Context, req *gateway.PreferenceRequest) (*gateway.Preference, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.preferences++
	return &gateway.Preference{
		ID:        fmt.Sprintf("pref-%d", g.preferences),
		InitPoint: "https://mp.example/checkout",
	}, nil
}

func (g *stubGateway) GetPayment(ctx context.Context, paymentID string) (*gateway.Payment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.payments[paymentID]
	if !ok {
		return nil, fmt.Errorf("payment %s not found", paymentID)
	}
	cp := *p
	return &cp, nil
}

func (g *stubGateway) CreateRefund(ctx context.Context, paymentID string, amountCents int64) (*gateway.Refund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refunds = append(g.refunds, paymentID)
	return &gateway.Refund{ID: "refund-1", Status: "approved", Amount: amountCents}, nil
}

func (g *stubGateway) CreatePixTransfer(ctx context.Context, req *gateway.PixTransferRequest) (*gateway.PixTransfer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.transferErr != nil {
		return nil, g.transferErr
	}
	g.transfers = append(g.transfers, req)
	return &gateway.PixTransfer{
		TransactionID: fmt.Sprintf("tx-%d", len(g.transfers)),
		EndToEndID:    fmt.Sprintf("E%d", len(g.transfers)),
		Status:        "sent",
	}, nil
}

func (g *stubGateway) refundCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.refunds)
}

func (g *stubGateway) transferCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.transfers)
}

// testEnv bundles everything a service test needs.

type testEnv struct {
	repo         *repository.Repository
	reservations *memReservationRepo
	payments     *memPaymentRepo
	payouts      *memPayoutRepo
	expeditions  *memExpeditionRepo
	audit        *memAuditRepo
	settings     *memSettingRepo
	verification *memVerificationRepo
	gateway      *stubGateway
	cfg          utils.PaymentsConfig
	publisher    *queue.Publisher
}

func newTestEnv() *testEnv {
	audit := newMemAuditRepo()
	reservations := newMemReservationRepo(audit)
	payments := newMemPaymentRepo()
	payouts := newMemPayoutRepo()
	expeditions := newMemExpeditionRepo(reservations)
	settings := newMemSettingRepo()
	verification := newMemVerificationRepo()

	repo := &repository.Repository{
		Reservation:       reservations,
		Payment:           payments,
		Payout:            payouts,
		Contestation:      newMemContestationRepo(),
		Expedition:        expeditions,
		AuditLog:          audit,
		PlatformSetting:   settings,
		Policy:            &memPolicyRepo{},
		GuideVerification: verification,
		User:              newMemUserRepo(),
	}

	return &testEnv{
		repo:         repo,
		reservations: reservations,
		payments:     payments,
		payouts:      payouts,
		expeditions:  expeditions,
		audit:        audit,
		settings:     settings,
		verification: verification,
		gateway:      newStubGateway(),
		cfg: utils.PaymentsConfig{
			PlatformFeePercent:   10.0,
			PayoutDelayDays:      2,
			ReservationExpiryMin: 30,
		},
		publisher: queue.NewPublisher("amqp://127.0.0.1:1/", zap.NewNop()),
	}
}

func (e *testEnv) addExpedition(guideID uuid.UUID, capacity int, price int64, startDate time.Time) *entity.Expedition {
	now := time.Now()
	exp := &entity.Expedition{
		Base:      entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		GuideID:   guideID,
		TrailID:   uuid.New(),
		Title:     "Travessia Serra Fina",
		StartDate: startDate,
		Capacity:  capacity,
		Price:     price,
		Status:    entity.ExpeditionStatusActive,
	}
	e.expeditions.Create(context.Background(), exp)
	return exp
}

func (e *testEnv) addReservation(userID uuid.UUID, exp *entity.Expedition, quantity int, status entity.ReservationStatus) *entity.Reservation {
	now := time.Now()
	r := &entity.Reservation{
		Base:         entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		ExpeditionID: exp.ID,
		UserID:       userID,
		Quantity:     quantity,
		UnitPrice:    exp.Price,
		TotalAmount:  exp.Price * int64(quantity),
		Status:       status,
		ExpiresAt:    now.Add(30 * time.Minute),
	}
	ref := utils.GenerateExternalReference(r.ID)
	r.MPExternalReference = &ref
	e.reservations.Create(context.Background(), r)
	return r
}

func (e *testEnv) addApprovedGatewayPayment(r *entity.Reservation, mpPaymentID string, feeCents int64) *gateway.Payment {
	p := &gateway.Payment{
		ID:                mpPaymentID,
		Status:            "approved",
		ExternalReference: *r.MPExternalReference,
		TransactionAmount: r.TotalAmount,
		FeeAmount:         feeCents,
		PaymentMethodID:   "pix",
		PaymentTypeID:     "bank_transfer",
		CurrencyID:        "BRL",
	}
	e.gateway.payments[mpPaymentID] = p
	return p
}

func (e *testEnv) approvedGuide(guideID uuid.UUID) {
	now := time.Now()
	e.verification.Upsert(context.Background(), &entity.GuideVerification{
		Base:             entity.Base{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		UserID:           guideID,
		Status:           entity.VerificationStatusApproved,
		DocumentType:     "cpf",
		DocumentNumber:   "12345678901",
		PixKeyType:       entity.PixKeyEmail,
		PixKey:           "guide@example.com",
		PixKeyHolderName: "Guia Teste",
		PixKeyDocument:   "12345678901",
	})
}
