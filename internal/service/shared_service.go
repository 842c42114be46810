package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/emergencyclick/internal/metrics"
	"github.com/mmynk/emergencyclick/internal/registry"
	"github.com/mmynk/emergencyclick/internal/storage"
	"github.com/mmynk/emergencyclick/pkg/api"
)

// SharedService exposes the shared key-value table.
//
// Any signed-in user may write the global node. A node below
// "users/<encoded email>" is writable only by that user.
type SharedService struct {
	table    storage.SharedTable
	snapshot storage.SharedSnapshotter
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewSharedService creates a SharedService. snapshot may be nil when the
// backend cannot read nodes back; GetFields then reports Unimplemented.
func NewSharedService(table storage.SharedTable, snapshot storage.SharedSnapshotter, logger *slog.Logger) *SharedService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SharedService{table: table, snapshot: snapshot, logger: logger}
}

// WithMetrics counts field writes on m. A field set to a value counts as an
// add and a nil field as a remove.
func (s *SharedService) WithMetrics(m *metrics.Metrics) *SharedService {
	s.metrics = m
	return s
}

// UpdateFields applies a multi-field update to one node.
func (s *SharedService) UpdateFields(ctx context.Context, req *connect.Request[api.UpdateFieldsRequest]) (*connect.Response[api.UpdateFieldsResponse], error) {
	email, err := callerEmail(ctx)
	if err != nil {
		return nil, err
	}
	p, err := checkPath(req.Msg.Path, email)
	if err != nil {
		return nil, err
	}
	if len(req.Msg.Fields) == 0 {
		return connect.NewResponse(&api.UpdateFieldsResponse{}), nil
	}
	for k := range req.Msg.Fields {
		if k == "" {
			return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("empty field name"))
		}
	}

	err = s.table.UpdateFields(ctx, p, req.Msg.Fields)
	for _, v := range req.Msg.Fields {
		op := registry.OpAdd
		if v == nil {
			op = registry.OpRemove
		}
		s.metrics.ObserveStoreWrite(registry.StoreShared, op, err)
	}
	if err != nil {
		s.logger.Error("UpdateFields failed", "path", p, "error", err)
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}

	s.logger.Info("Shared fields updated", "path", p, "fields", len(req.Msg.Fields), "email", email)
	return connect.NewResponse(&api.UpdateFieldsResponse{}), nil
}

// GetFields reads a whole node.
func (s *SharedService) GetFields(ctx context.Context, req *connect.Request[api.GetFieldsRequest]) (*connect.Response[api.GetFieldsResponse], error) {
	email, err := callerEmail(ctx)
	if err != nil {
		return nil, err
	}
	if s.snapshot == nil {
		return nil, connect.NewError(connect.CodeUnimplemented, errors.New("shared backend is write-only"))
	}
	p, err := checkPath(req.Msg.Path, email)
	if err != nil {
		return nil, err
	}

	fields, err := s.snapshot.GetFields(ctx, p)
	if err != nil {
		s.logger.Error("GetFields failed", "path", p, "error", err)
		return nil, connect.NewError(connect.CodeUnavailable, err)
	}
	return connect.NewResponse(&api.GetFieldsResponse{Fields: fields}), nil
}

// checkPath normalizes p and rejects paths that escape the tree or address
// another user's node.
func checkPath(p, email string) (string, error) {
	if p == "" {
		return "", connect.NewError(connect.CodeInvalidArgument, errors.New("path is required"))
	}
	clean := strings.Trim(path.Clean("/"+p), "/")
	if clean == "" || clean != strings.Trim(p, "/") {
		return "", connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid path %q", p))
	}

	own := registry.ContactKey(email, registry.KeyEncoded)
	segs := strings.Split(clean, "/")
	for i, seg := range segs {
		if seg == "users" && i+1 < len(segs) && segs[i+1] != own {
			return "", connect.NewError(connect.CodePermissionDenied, fmt.Errorf("path %q belongs to another user", p))
		}
	}
	return clean, nil
}
