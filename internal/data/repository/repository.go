package repository

import (
	"trekko-booking/pkg/cache"
	"trekko-booking/pkg/database"

	"go.uber.org/zap"
)

// Repository bundles every store behind one constructor so wiring stays in
// one place.
type Repository struct {
	Reservation       ReservationRepository
	Payment           PaymentRepository
	Payout            PayoutRepository
	Contestation      ContestationRepository
	Expedition        ExpeditionRepository
	AuditLog          AuditLogRepository
	PlatformSetting   PlatformSettingRepository
	Policy            CancellationPolicyRepository
	GuideVerification GuideVerificationRepository
	User              UserRepository
}

func NewRepository(db database.PgxIface, cacheClient *cache.Client, log *zap.Logger) *Repository {
	return &Repository{
		Reservation:       NewReservationRepository(db, log),
		Payment:           NewPaymentRepository(db, log),
		Payout:            NewPayoutRepository(db, log),
		Contestation:      NewContestationRepository(db, log),
		Expedition:        NewExpeditionRepository(db, log),
		AuditLog:          NewAuditLogRepository(db, log),
		PlatformSetting:   NewPlatformSettingRepository(db, cacheClient, log),
		Policy:            NewCancellationPolicyRepository(db, log),
		GuideVerification: NewGuideVerificationRepository(db, log),
		User:              NewUserRepository(db, log),
	}
}
