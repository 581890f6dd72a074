package usecase

import (
	"context"
	"fmt"
	"time"

	"trekko-booking/internal/data/entity"
	"trekko-booking/internal/data/repository"
	"trekko-booking/internal/dto/request"
	"trekko-booking/internal/dto/response"
	"trekko-booking/pkg/gateway"
	"trekko-booking/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type CheckoutService interface {
	Checkout(ctx context.Context, userID uuid.UUID, req *request.CheckoutRequest) (*response.CheckoutResponse, error)
}

type checkoutService struct {
	repo     *repository.Repository
	gateway  gateway.Gateway
	settings *settingsReader
	cfg      utils.PaymentsConfig
	log      *zap.Logger
}

func NewCheckoutService(repo *repository.Repository, gw gateway.Gateway, cfg utils.PaymentsConfig, log *zap.Logger) CheckoutService {
	return &checkoutService{
		repo:     repo,
		gateway:  gw,
		settings: newSettingsReader(repo, cfg, log),
		cfg:      cfg,
		log:      log.With(zap.String("service", "checkout")),
	}
}

// Checkout reserves spots and opens a payment preference. The reservation is
// written before the gateway call so a webhook arriving early still finds its
// row; price and fee are frozen at this moment.
func (s *checkoutService) Checkout(ctx context.Context, userID uuid.UUID, req *request.CheckoutRequest) (*response.CheckoutResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Checkout validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	expeditionID, err := uuid.Parse(req.ExpeditionID)
	if err != nil {
		return nil, fmt.Errorf("invalid expedition ID format %s: %w", req.ExpeditionID, err)
	}

	expedition, err := s.repo.Expedition.FindByID(ctx, expeditionID)
	if err != nil {
		return nil, err
	}
	if expedition == nil {
		return nil, fmt.Errorf("expedition %s: %w", req.ExpeditionID, ErrNotFound)
	}

	if !expedition.Bookable() {
		return nil, fmt.Errorf("expedition %s is %s: %w", req.ExpeditionID, expedition.Status, ErrNotBookable)
	}
	if !expedition.StartDate.After(time.Now()) {
		return nil, fmt.Errorf("expedition %s already started: %w", req.ExpeditionID, ErrNotBookable)
	}

	// Capacity counts only paid spots; pending checkouts do not hold seats.
	paidQuantity, err := s.repo.Reservation.SumPaidQuantity(ctx, expeditionID)
	if err != nil {
		return nil, err
	}
	available := expedition.Capacity - paidQuantity
	if available < 0 {
		available = 0
	}
	if req.Quantity > available {
		return nil, &CapacityError{Available: available}
	}

	expiryMinutes := s.settings.ReservationExpiryMinutes(ctx)
	now := time.Now()
	expiresAt := now.Add(time.Duration(expiryMinutes) * time.Minute)

	reservation := &entity.Reservation{
		Base: entity.Base{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		ExpeditionID: expeditionID,
		UserID:       userID,
		Quantity:     req.Quantity,
		UnitPrice:    expedition.Price,
		TotalAmount:  expedition.Price * int64(req.Quantity),
		Status:       entity.ReservationStatusPendingPayment,
		ExpiresAt:    expiresAt,
	}

	if err := s.repo.Reservation.Create(ctx, reservation); err != nil {
		return nil, err
	}

	externalReference := utils.GenerateExternalReference(reservation.ID)

	pref, err := s.gateway.CreatePreference(ctx, &gateway.PreferenceRequest{
		Items: []gateway.PreferenceItem{{
			Title:      expedition.Title,
			Quantity:   req.Quantity,
			UnitPrice:  gateway.CentsToReais(expedition.Price),
			CurrencyID: "BRL",
		}},
		ExternalReference: externalReference,
		NotificationURL:   s.cfg.WebhookURL,
		Expires:           true,
		ExpirationDateTo:  &expiresAt,
	})
	if err != nil {
		s.log.Error("Failed to create checkout preference",
			zap.Error(err),
			zap.String("reservation_id", reservation.ID.String()),
		)
		return nil, fmt.Errorf("create checkout preference: %w", err)
	}

	if err := s.repo.Reservation.SetCheckoutArtifacts(ctx, reservation.ID, pref.ID, externalReference); err != nil {
		return nil, err
	}
	reservation.MPPreferenceID = &pref.ID
	reservation.MPExternalReference = &externalReference

	s.log.Info("Checkout created",
		zap.String("reservation_id", reservation.ID.String()),
		zap.String("expedition_id", expeditionID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("quantity", req.Quantity),
		zap.Int64("total_amount", reservation.TotalAmount),
		zap.Time("expires_at", expiresAt),
	)

	return &response.CheckoutResponse{
		Reservation:  response.ReservationToResponse(reservation),
		PreferenceID: pref.ID,
		InitPoint:    pref.InitPoint,
		ExpiresAt:    expiresAt,
	}, nil
}
