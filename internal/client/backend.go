// Package client talks to the emergencyclick server over Connect and adapts
// it to the registry's store and identity interfaces.
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/emergencyclick/internal/models"
	"github.com/mmynk/emergencyclick/internal/registry"
	"github.com/mmynk/emergencyclick/pkg/api"
)

// Compile-time interface checks.
var (
	_ registry.Identity      = (*Backend)(nil)
	_ registry.DocumentStore = (*Backend)(nil)
	_ registry.SharedTable   = (*Backend)(nil)
)

// ErrOtherUser is returned when a document call names someone other than
// the signed-in user. The server only ever serves the caller's document.
var ErrOtherUser = errors.New("document belongs to another user")

// Backend is a remote identity provider, document store, shared table and
// click recorder.
type Backend struct {
	baseURL string
	auth    api.AuthServiceClient
	docs    api.DocumentServiceClient
	shared  api.SharedServiceClient
	clicks  api.ClickServiceClient
	log     *slog.Logger
	now     func() time.Time

	mu      sync.RWMutex
	session *Session
}

// New creates a Backend for the server at baseURL. session may be nil.
// A nil httpClient uses http.DefaultClient.
func New(baseURL string, httpClient connect.HTTPClient, session *Session, logger *slog.Logger) *Backend {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	b := &Backend{
		baseURL: baseURL,
		log:     logger.WithGroup("client"),
		now:     time.Now,
		session: session,
	}
	opts := connect.WithInterceptors(b.bearer())
	b.auth = api.NewAuthServiceClient(httpClient, baseURL, opts)
	b.docs = api.NewDocumentServiceClient(httpClient, baseURL, opts)
	b.shared = api.NewSharedServiceClient(httpClient, baseURL, opts)
	b.clicks = api.NewClickServiceClient(httpClient, baseURL, opts)
	return b
}

// bearer attaches the session token to every outgoing request.
func (b *Backend) bearer() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if s := b.Session(); s != nil && s.Token != "" {
				req.Header().Set("Authorization", "Bearer "+s.Token)
			}
			return next(ctx, req)
		}
	}
}

// Session returns the current session, or nil when signed out.
func (b *Backend) Session() *Session {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.session
}

func (b *Backend) setSession(s *Session) {
	b.mu.Lock()
	b.session = s
	b.mu.Unlock()
}

// Signup creates an account and signs in as it.
func (b *Backend) Signup(ctx context.Context, email, username, password string) (*Session, error) {
	resp, err := b.auth.Signup(ctx, connect.NewRequest(&api.SignupRequest{
		Email:    email,
		Username: username,
		Password: password,
	}))
	if err != nil {
		return nil, fmt.Errorf("signup: %w", err)
	}
	return b.signedIn(resp.Msg.User, resp.Msg.Token, resp.Msg.ExpiresAt), nil
}

// Login signs in with an existing account.
func (b *Backend) Login(ctx context.Context, email, password string) (*Session, error) {
	resp, err := b.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{
		Email:    email,
		Password: password,
	}))
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	return b.signedIn(resp.Msg.User, resp.Msg.Token, resp.Msg.ExpiresAt), nil
}

func (b *Backend) signedIn(u *api.User, token string, expiresAt int64) *Session {
	s := &Session{
		Server:    b.baseURL,
		Token:     token,
		ExpiresAt: time.Unix(expiresAt, 0),
		User:      SessionUser{ID: u.ID, Email: u.Email, Username: u.Username},
	}
	b.setSession(s)
	b.log.Info("signed in", "email", u.Email)
	return s
}

// Logout forgets the session. Tokens are stateless so the server is not told.
func (b *Backend) Logout() {
	b.setSession(nil)
}

// CurrentUser returns the signed-in user, or nil when there is no unexpired
// session.
func (b *Backend) CurrentUser(_ context.Context) *models.User {
	s := b.Session()
	if !s.Valid(b.now()) {
		return nil
	}
	return s.AsUser()
}

// Whoami asks the server who the token belongs to.
func (b *Backend) Whoami(ctx context.Context) (*models.User, error) {
	resp, err := b.auth.GetCurrentUser(ctx, connect.NewRequest(&api.GetCurrentUserRequest{}))
	if err != nil {
		return nil, fmt.Errorf("get current user: %w", err)
	}
	u := resp.Msg.User
	return &models.User{ID: u.ID, Email: u.Email, Username: u.Username, CreatedAt: u.CreatedAt}, nil
}

func (b *Backend) checkOwner(userEmail string) error {
	s := b.Session()
	if s == nil || s.User.Email != userEmail {
		return fmt.Errorf("%w: %s", ErrOtherUser, userEmail)
	}
	return nil
}

// GetUserRecord reads the signed-in user's document.
func (b *Backend) GetUserRecord(ctx context.Context, userEmail string) (*models.UserRecord, error) {
	if err := b.checkOwner(userEmail); err != nil {
		return nil, err
	}
	resp, err := b.docs.GetDocument(ctx, connect.NewRequest(&api.GetDocumentRequest{}))
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if !resp.Msg.Found {
		return nil, nil
	}

	record := &models.UserRecord{
		Email:    resp.Msg.Email,
		Username: resp.Msg.Username,
		Emails:   make([]models.ContactEntry, 0, len(resp.Msg.Emails)),
	}
	for _, e := range resp.Msg.Emails {
		record.Emails = append(record.Emails, models.ContactEntry{Key: e.Key, Email: e.Email})
	}
	return record, nil
}

// SetContactField writes emails.<key> on the signed-in user's document.
func (b *Backend) SetContactField(ctx context.Context, userEmail, key, email string) error {
	if err := b.checkOwner(userEmail); err != nil {
		return err
	}
	_, err := b.docs.SetContactField(ctx, connect.NewRequest(&api.SetContactFieldRequest{Key: key, Email: email}))
	if err != nil {
		return fmt.Errorf("set contact field: %w", err)
	}
	return nil
}

// DeleteContactField removes emails.<key> from the signed-in user's document.
func (b *Backend) DeleteContactField(ctx context.Context, userEmail, key string) error {
	if err := b.checkOwner(userEmail); err != nil {
		return err
	}
	_, err := b.docs.DeleteContactField(ctx, connect.NewRequest(&api.DeleteContactFieldRequest{Key: key}))
	if err != nil {
		return fmt.Errorf("delete contact field: %w", err)
	}
	return nil
}

// UpdateFields applies a multi-field update to a shared node.
func (b *Backend) UpdateFields(ctx context.Context, path string, fields map[string]*string) error {
	_, err := b.shared.UpdateFields(ctx, connect.NewRequest(&api.UpdateFieldsRequest{Path: path, Fields: fields}))
	if err != nil {
		return fmt.Errorf("update shared fields: %w", err)
	}
	return nil
}

// GetFields reads a whole shared node.
func (b *Backend) GetFields(ctx context.Context, path string) (map[string]string, error) {
	resp, err := b.shared.GetFields(ctx, connect.NewRequest(&api.GetFieldsRequest{Path: path}))
	if err != nil {
		return nil, fmt.Errorf("get shared fields: %w", err)
	}
	return resp.Msg.Fields, nil
}

// RecordClick reports an emergency click and fills in its server ID.
func (b *Backend) RecordClick(ctx context.Context, click *models.Click) error {
	resp, err := b.clicks.RecordClick(ctx, connect.NewRequest(&api.RecordClickRequest{
		Latitude:   click.Latitude,
		Longitude:  click.Longitude,
		CapturedAt: click.CapturedAt.UnixMilli(),
	}))
	if err != nil {
		return fmt.Errorf("record click: %w", err)
	}
	click.ID = resp.Msg.Click.ID
	return nil
}

// ListClicks returns the signed-in user's clicks, newest first.
func (b *Backend) ListClicks(ctx context.Context, limit int) ([]*models.Click, error) {
	resp, err := b.clicks.ListClicks(ctx, connect.NewRequest(&api.ListClicksRequest{Limit: limit}))
	if err != nil {
		return nil, fmt.Errorf("list clicks: %w", err)
	}
	out := make([]*models.Click, 0, len(resp.Msg.Clicks))
	for _, c := range resp.Msg.Clicks {
		out = append(out, &models.Click{
			ID:         c.ID,
			Latitude:   c.Latitude,
			Longitude:  c.Longitude,
			CapturedAt: time.UnixMilli(c.CapturedAt),
		})
	}
	return out, nil
}
