package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/emergencyclick/internal/models"
	"github.com/mmynk/emergencyclick/internal/storage"
	"github.com/mmynk/emergencyclick/pkg/api"
)

// ClickService records emergency button presses.
type ClickService struct {
	clicks storage.ClickStore
	logger *slog.Logger
	now    func() time.Time
}

// NewClickService creates a ClickService over clicks.
func NewClickService(clicks storage.ClickStore, logger *slog.Logger) *ClickService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClickService{clicks: clicks, logger: logger, now: time.Now}
}

// RecordClick stores one click for the caller. A zero CapturedAt means now.
func (s *ClickService) RecordClick(ctx context.Context, req *connect.Request[api.RecordClickRequest]) (*connect.Response[api.RecordClickResponse], error) {
	email, err := callerEmail(ctx)
	if err != nil {
		return nil, err
	}
	lat, lon := req.Msg.Latitude, req.Msg.Longitude
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("coordinates out of range"))
	}

	captured := s.now()
	if req.Msg.CapturedAt != 0 {
		captured = time.UnixMilli(req.Msg.CapturedAt)
	}

	click := &models.Click{
		UserEmail:  email,
		Latitude:   lat,
		Longitude:  lon,
		CapturedAt: captured,
	}
	if err := s.clicks.CreateClick(ctx, click); err != nil {
		s.logger.Error("RecordClick failed", "email", email, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Click recorded", "click_id", click.ID, "email", email, "location", click.LocationText())
	return connect.NewResponse(&api.RecordClickResponse{Click: toAPIClick(click)}), nil
}

// ListClicks returns the caller's clicks, newest first.
func (s *ClickService) ListClicks(ctx context.Context, req *connect.Request[api.ListClicksRequest]) (*connect.Response[api.ListClicksResponse], error) {
	email, err := callerEmail(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.Limit < 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("limit must not be negative"))
	}

	clicks, err := s.clicks.ListClicks(ctx, email, req.Msg.Limit)
	if err != nil {
		s.logger.Error("ListClicks failed", "email", email, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	out := make([]*api.Click, 0, len(clicks))
	for _, c := range clicks {
		out = append(out, toAPIClick(c))
	}
	return connect.NewResponse(&api.ListClicksResponse{Clicks: out}), nil
}

func toAPIClick(c *models.Click) *api.Click {
	return &api.Click{
		ID:         c.ID,
		Latitude:   c.Latitude,
		Longitude:  c.Longitude,
		CapturedAt: c.CapturedAt.UnixMilli(),
	}
}
