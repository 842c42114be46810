package registry

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/mmynk/emergencyclick/internal/models"
)

// Operation names used in logs and StoreError.Op.
const (
	OpLoad   = "load"
	OpAdd    = "add"
	OpRemove = "remove"
)

// Identity yields the signed-in user, or nil when nobody is signed in.
type Identity interface {
	CurrentUser(ctx context.Context) *models.User
}

// DocumentStore holds one record per user in the "users" collection.
type DocumentStore interface {
	// GetUserRecord returns nil and no error when the document does not exist.
	GetUserRecord(ctx context.Context, userEmail string) (*models.UserRecord, error)

	// SetContactField upserts emails.<key> = email, creating the document if needed.
	SetContactField(ctx context.Context, userEmail, key, email string) error

	// DeleteContactField removes emails.<key> and leaves sibling keys alone.
	DeleteContactField(ctx context.Context, userEmail, key string) error
}

// SharedTable is a key-value node addressed by path.
type SharedTable interface {
	// UpdateFields upserts every field of fields at path. A nil value deletes
	// that field. Fields not named are untouched.
	UpdateFields(ctx context.Context, path string, fields map[string]*string) error
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(ctx context.Context, title, message string) bool
}

// Notifier shows a blocking message to the user.
type Notifier interface {
	Alert(title, message string)
}

// Config tunes a Registry. The zero value reproduces the original behaviour:
// global shared path, local-part keys, no compensation, no in-flight guard.
type Config struct {
	// SharedPath is the base shared node (default DefaultSharedPath).
	SharedPath string
	// Scope partitions the shared node per user when ScopePerUser.
	Scope SharedScope
	// Keys selects how field names are derived from emails.
	Keys KeyStrategy
	// Compensate undoes the shared-table write when the document write fails.
	Compensate bool
	// InFlightGuard rejects a second add or remove while one is pending.
	InFlightGuard bool
	// Logger is the logger to use. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Registry performs contact operations against the two backing stores.
// It holds no contact state of its own.
type Registry struct {
	identity Identity
	docs     DocumentStore
	shared   SharedTable
	cfg      Config
	log      *slog.Logger

	mu       sync.Mutex
	inflight map[string]bool
}

// New creates a Registry over the given collaborators.
func New(identity Identity, docs DocumentStore, shared SharedTable, cfg Config) *Registry {
	if cfg.SharedPath == "" {
		cfg.SharedPath = DefaultSharedPath
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Registry{
		identity: identity,
		docs:     docs,
		shared:   shared,
		cfg:      cfg,
		log:      cfg.Logger.WithGroup("registry"),
		inflight: make(map[string]bool),
	}
}

// Load reads the signed-in user's contacts from the document store.
// With nobody signed in it returns an empty list and no error. A read failure
// is logged and returned with an empty list; callers are expected to carry on.
func (r *Registry) Load(ctx context.Context) ([]string, error) {
	user := r.identity.CurrentUser(ctx)
	if user == nil {
		r.log.Debug("load skipped, no user")
		return []string{}, nil
	}

	record, err := r.docs.GetUserRecord(ctx, user.Email)
	if err != nil {
		r.log.Error("fetching emails failed", "user", user.Email, "error", err)
		return []string{}, &StoreError{Op: OpLoad, Store: StoreDocument, Kind: ErrStoreRead, Err: err}
	}
	if record == nil {
		return []string{}, nil
	}
	return record.ContactEmails(), nil
}

// Add validates rawInput and writes it to the shared table, then to the
// user's document. The returned list is current with the email appended only
// when both writes succeed; otherwise current is returned as is.
func (r *Registry) Add(ctx context.Context, current []string, rawInput string) ([]string, error) {
	user := r.identity.CurrentUser(ctx)
	if user == nil {
		return current, r.reject(OpAdd, ErrNotAuthenticated)
	}

	email := strings.TrimSpace(rawInput)
	if email == "" {
		return current, r.reject(OpAdd, ErrInvalidInput)
	}
	if slices.Contains(current, email) {
		return current, r.reject(OpAdd, ErrDuplicateEntry)
	}
	if len(strings.Split(email, "@")) < 2 {
		return current, r.reject(OpAdd, ErrInvalidInput)
	}

	release, ok := r.enter(OpAdd)
	if !ok {
		return current, r.reject(OpAdd, ErrInFlight)
	}
	defer release()

	key := ContactKey(email, r.cfg.Keys)
	sharedPath := SharedPath(r.cfg.SharedPath, r.cfg.Scope, user.Email)

	if err := r.shared.UpdateFields(ctx, sharedPath, map[string]*string{key: &email}); err != nil {
		return current, r.writeFailed(OpAdd, StoreShared, key, err)
	}
	if err := r.docs.SetContactField(ctx, user.Email, key, email); err != nil {
		if r.cfg.Compensate {
			r.undoShared(ctx, sharedPath, key, nil)
		}
		return current, r.writeFailed(OpAdd, StoreDocument, key, err)
	}

	r.log.Info("email added", "email", email, "key", key, "user", user.Email)
	return append(slices.Clip(current), email), nil
}

// Remove asks confirm before deleting target from both stores. Cancelling
// returns current untouched without touching the stores. With nobody signed
// in it returns ErrNotAuthenticated after the prompt and makes no store call.
func (r *Registry) Remove(ctx context.Context, current []string, target string, confirm Confirmer) ([]string, error) {
	if confirm != nil && !confirm.Confirm(ctx, "Remove Email", fmt.Sprintf("Remove %s?", target)) {
		r.log.Debug("remove cancelled", "email", target)
		return current, nil
	}

	user := r.identity.CurrentUser(ctx)
	if user == nil {
		return current, r.reject(OpRemove, ErrNotAuthenticated)
	}

	release, ok := r.enter(OpRemove)
	if !ok {
		return current, r.reject(OpRemove, ErrInFlight)
	}
	defer release()

	key := ContactKey(target, r.cfg.Keys)
	sharedPath := SharedPath(r.cfg.SharedPath, r.cfg.Scope, user.Email)

	if err := r.shared.UpdateFields(ctx, sharedPath, map[string]*string{key: nil}); err != nil {
		return current, r.writeFailed(OpRemove, StoreShared, key, err)
	}
	if err := r.docs.DeleteContactField(ctx, user.Email, key); err != nil {
		if r.cfg.Compensate {
			r.undoShared(ctx, sharedPath, key, &target)
		}
		return current, r.writeFailed(OpRemove, StoreDocument, key, err)
	}

	r.log.Info("email removed", "email", target, "key", key, "user", user.Email)
	return slices.DeleteFunc(slices.Clone(current), func(e string) bool { return e == target }), nil
}

// Search returns the entries of list containing query, ignoring case.
// An empty query returns list itself.
func Search(list []string, query string) []string {
	if query == "" {
		return list
	}
	q := strings.ToLower(query)
	out := make([]string, 0, len(list))
	for _, e := range list {
		if strings.Contains(strings.ToLower(e), q) {
			out = append(out, e)
		}
	}
	return out
}

func (r *Registry) reject(op string, kind error) error {
	r.log.Warn("operation rejected", "op", op, "reason", kind)
	return kind
}

func (r *Registry) writeFailed(op, store, key string, err error) error {
	r.log.Error("updating store failed", "op", op, "store", store, "key", key, "error", err)
	return &StoreError{Op: op, Store: store, Key: key, Kind: ErrStoreWrite, Err: err}
}

// undoShared restores one shared field after the document write failed.
// A failure here is only logged; the stores are then out of step.
func (r *Registry) undoShared(ctx context.Context, path, key string, value *string) {
	if err := r.shared.UpdateFields(ctx, path, map[string]*string{key: value}); err != nil {
		r.log.Error("compensating shared write failed", "path", path, "key", key, "error", err)
		return
	}
	r.log.Warn("shared write compensated", "path", path, "key", key)
}

// enter marks op as in flight when the guard is enabled.
func (r *Registry) enter(op string) (release func(), ok bool) {
	if !r.cfg.InFlightGuard {
		return func() {}, true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inflight[op] {
		return nil, false
	}
	r.inflight[op] = true
	return func() {
		r.mu.Lock()
		delete(r.inflight, op)
		r.mu.Unlock()
	}, true
}
