package service

import (
	"context"
	"strings"

	"github.com/smallbiznis/bookingrelay/internal/clock"
	"github.com/smallbiznis/bookingrelay/internal/observability/logger"
	"github.com/smallbiznis/bookingrelay/internal/partner/domain"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type service struct {
	repo  domain.Repository
	clock clock.Clock
	log   *zap.Logger
}

func NewService(repo domain.Repository, clk clock.Clock, log *zap.Logger) domain.Service {
	return &service{
		repo:  repo,
		clock: clk,
		log:   log.Named("partner.service"),
	}
}

func (s *service) ResolvePartnerConfig(ctx context.Context, partnerID string) domain.PartnerConfig {
	partnerID = strings.TrimSpace(partnerID)
	if partnerID == "" {
		return domain.DefaultPartnerConfig()
	}

	partner, err := s.repo.FindByID(ctx, partnerID)
	if err != nil {
		logger.WithContext(ctx, s.log).Warn("partner lookup failed, using defaults",
			zap.String("partner_id", partnerID),
			zap.Error(err),
		)
		return domain.DefaultPartnerConfig()
	}
	if partner == nil {
		logger.WithContext(ctx, s.log).Warn("partner not found, using defaults",
			zap.String("partner_id", partnerID),
		)
		return domain.DefaultPartnerConfig()
	}
	return domain.ConfigFromPartner(partner)
}

func (s *service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.Partner, error) {
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return nil, domain.ErrInvalidID
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	now := s.clock.Now()
	partner := &domain.Partner{
		ID:                     id,
		Name:                   name,
		CancelRedirectURL:      req.CancelRedirectURL,
		RescheduleRedirectURL:  req.RescheduleRedirectURL,
		BookingRedirectURL:     req.BookingRedirectURL,
		EmailsEnabled:          req.EmailsEnabled,
		DefaultBookingLocation: req.DefaultBookingLocation,
		Metadata:               datatypes.JSONMap(req.Metadata),
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	if err := s.repo.Upsert(ctx, partner); err != nil {
		return nil, err
	}

	s.log.Info("partner registered", zap.String("partner_id", id))
	return partner, nil
}
