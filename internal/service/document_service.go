package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/emergencyclick/internal/auth"
	"github.com/mmynk/emergencyclick/internal/metrics"
	"github.com/mmynk/emergencyclick/internal/middleware"
	"github.com/mmynk/emergencyclick/internal/registry"
	"github.com/mmynk/emergencyclick/internal/storage"
	"github.com/mmynk/emergencyclick/pkg/api"
)

// DocumentService exposes the caller's own user document. There is no way to
// address another user's document.
type DocumentService struct {
	docs    storage.DocumentStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewDocumentService creates a DocumentService over docs.
func NewDocumentService(docs storage.DocumentStore, logger *slog.Logger) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{docs: docs, logger: logger}
}

// WithMetrics counts contact field writes on m.
func (s *DocumentService) WithMetrics(m *metrics.Metrics) *DocumentService {
	s.metrics = m
	return s
}

// GetDocument returns the caller's document, or Found=false when none exists.
func (s *DocumentService) GetDocument(ctx context.Context, _ *connect.Request[api.GetDocumentRequest]) (*connect.Response[api.GetDocumentResponse], error) {
	email, err := callerEmail(ctx)
	if err != nil {
		return nil, err
	}

	record, err := s.docs.GetUserRecord(ctx, email)
	if err != nil {
		s.logger.Error("GetDocument failed", "email", email, "error", err)
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	if record == nil {
		return connect.NewResponse(&api.GetDocumentResponse{}), nil
	}

	resp := &api.GetDocumentResponse{
		Found:    true,
		Email:    record.Email,
		Username: record.Username,
		Emails:   make([]api.ContactEntry, 0, len(record.Emails)),
	}
	for _, e := range record.Emails {
		resp.Emails = append(resp.Emails, api.ContactEntry{Key: e.Key, Email: e.Email})
	}
	return connect.NewResponse(resp), nil
}

// SetContactField upserts emails.<key> on the caller's document.
func (s *DocumentService) SetContactField(ctx context.Context, req *connect.Request[api.SetContactFieldRequest]) (*connect.Response[api.SetContactFieldResponse], error) {
	email, err := callerEmail(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.Key == "" || req.Msg.Email == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("key and email are required"))
	}

	err = s.docs.SetContactField(ctx, email, req.Msg.Key, req.Msg.Email)
	s.metrics.ObserveStoreWrite(registry.StoreDocument, registry.OpAdd, err)
	if err != nil {
		s.logger.Error("SetContactField failed", "email", email, "key", req.Msg.Key, "error", err)
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}

	s.logger.Info("Contact field set", "email", email, "key", req.Msg.Key)
	return connect.NewResponse(&api.SetContactFieldResponse{}), nil
}

// DeleteContactField removes emails.<key> from the caller's document.
func (s *DocumentService) DeleteContactField(ctx context.Context, req *connect.Request[api.DeleteContactFieldRequest]) (*connect.Response[api.DeleteContactFieldResponse], error) {
	email, err := callerEmail(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.Key == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("key is required"))
	}

	err = s.docs.DeleteContactField(ctx, email, req.Msg.Key)
	s.metrics.ObserveStoreWrite(registry.StoreDocument, registry.OpRemove, err)
	if err != nil {
		s.logger.Error("DeleteContactField failed", "email", email, "key", req.Msg.Key, "error", err)
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}

	s.logger.Info("Contact field deleted", "email", email, "key", req.Msg.Key)
	return connect.NewResponse(&api.DeleteContactFieldResponse{}), nil
}

func callerEmail(ctx context.Context) (string, error) {
	email := middleware.GetEmail(ctx)
	if email == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return email, nil
}
