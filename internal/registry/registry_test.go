package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"

	"github.com/mmynk/emergencyclick/internal/models"
)

type fakeIdentity struct {
	user *models.User
}

func (f fakeIdentity) CurrentUser(context.Context) *models.User {
	return f.user
}

// fakeDocs is an in-memory document store that records every call.
type fakeDocs struct {
	mu      sync.Mutex
	records map[string]*models.UserRecord
	calls   []string

	getErr error
	setErr error
	delErr error

	// block, when set, holds SetContactField until it is closed.
	block chan struct{}
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{records: make(map[string]*models.UserRecord)}
}

func (f *fakeDocs) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeDocs) GetUserRecord(_ context.Context, userEmail string) (*models.UserRecord, error) {
	f.record("get:" + userEmail)
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[userEmail]
	if !ok {
		return nil, nil
	}
	cp := *rec
	cp.Emails = slices.Clone(rec.Emails)
	return &cp, nil
}

func (f *fakeDocs) SetContactField(_ context.Context, userEmail, key, email string) error {
	f.record("set:" + key)
	if f.block != nil {
		<-f.block
	}
	if f.setErr != nil {
		return f.setErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[userEmail]
	if !ok {
		rec = &models.UserRecord{Email: userEmail}
		f.records[userEmail] = rec
	}
	for i := range rec.Emails {
		if rec.Emails[i].Key == key {
			rec.Emails[i].Email = email
			return nil
		}
	}
	rec.Emails = append(rec.Emails, models.ContactEntry{Key: key, Email: email})
	return nil
}

func (f *fakeDocs) DeleteContactField(_ context.Context, userEmail, key string) error {
	f.record("delete:" + key)
	if f.delErr != nil {
		return f.delErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if rec, ok := f.records[userEmail]; ok {
		rec.Emails = slices.DeleteFunc(rec.Emails, func(e models.ContactEntry) bool { return e.Key == key })
	}
	return nil
}

func (f *fakeDocs) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// fakeShared is an in-memory shared table that records every call.
type fakeShared struct {
	mu      sync.Mutex
	nodes   map[string]map[string]string
	calls   []string
	err     error
	updated chan struct{}
}

func newFakeShared() *fakeShared {
	return &fakeShared{nodes: make(map[string]map[string]string)}
}

func (f *fakeShared) UpdateFields(_ context.Context, path string, fields map[string]*string) error {
	f.mu.Lock()
	f.calls = append(f.calls, "update:"+path)
	f.mu.Unlock()
	if f.updated != nil {
		f.updated <- struct{}{}
	}
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	node, ok := f.nodes[path]
	if !ok {
		node = make(map[string]string)
		f.nodes[path] = node
	}
	for k, v := range fields {
		if v == nil {
			delete(node, k)
			continue
		}
		node[k] = *v
	}
	return nil
}

func (f *fakeShared) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeShared) Node(path string) map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string)
	for k, v := range f.nodes[path] {
		out[k] = v
	}
	return out
}

type confirmFunc func(ctx context.Context, title, message string) bool

func (f confirmFunc) Confirm(ctx context.Context, title, message string) bool {
	return f(ctx, title, message)
}

var (
	confirmYes = confirmFunc(func(context.Context, string, string) bool { return true })
	confirmNo  = confirmFunc(func(context.Context, string, string) bool { return false })
)

var alice = &models.User{ID: "u1", Email: "alice@example.com"}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistry(user *models.User, cfg Config) (*Registry, *fakeDocs, *fakeShared) {
	docs := newFakeDocs()
	shared := newFakeShared()
	cfg.Logger = quietLogger()
	return New(fakeIdentity{user: user}, docs, shared, cfg), docs, shared
}

func TestAddThenLoad(t *testing.T) {
	reg, docs, shared := newTestRegistry(alice, Config{})
	ctx := context.Background()

	list, err := reg.Add(ctx, nil, "  bob@example.com ")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !slices.Equal(list, []string{"bob@example.com"}) {
		t.Errorf("list = %v, want [bob@example.com]", list)
	}

	loaded, err := reg.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !slices.Equal(loaded, []string{"bob@example.com"}) {
		t.Errorf("loaded = %v, want [bob@example.com]", loaded)
	}

	if got := shared.Node(DefaultSharedPath)["bob"]; got != "bob@example.com" {
		t.Errorf("shared[bob] = %q, want bob@example.com", got)
	}
	if got := shared.Calls(); !slices.Equal(got, []string{"update:" + DefaultSharedPath}) {
		t.Errorf("shared calls = %v", got)
	}
	if got := docs.Calls(); !slices.Equal(got, []string{"set:bob", "get:alice@example.com"}) {
		t.Errorf("doc calls = %v", got)
	}
}

func TestAddRejections(t *testing.T) {
	tests := []struct {
		name    string
		user    *models.User
		current []string
		input   string
		wantErr error
	}{
		{"no user", nil, nil, "bob@example.com", ErrNotAuthenticated},
		{"empty input", alice, nil, "", ErrInvalidInput},
		{"whitespace input", alice, nil, "   ", ErrInvalidInput},
		{"duplicate", alice, []string{"bob@example.com"}, "bob@example.com", ErrDuplicateEntry},
		{"duplicate after trim", alice, []string{"bob@example.com"}, " bob@example.com\t", ErrDuplicateEntry},
		{"missing at", alice, nil, "not-an-email", ErrInvalidInput},
		{"no user beats bad input", nil, nil, "not-an-email", ErrNotAuthenticated},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, docs, shared := newTestRegistry(tt.user, Config{})

			list, err := reg.Add(context.Background(), tt.current, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if !slices.Equal(list, tt.current) {
				t.Errorf("list = %v, want %v", list, tt.current)
			}
			if n := len(docs.Calls()) + len(shared.Calls()); n != 0 {
				t.Errorf("expected zero store calls, got %d", n)
			}
		})
	}
}

func TestAddDuplicateKeepsLength(t *testing.T) {
	reg, _, _ := newTestRegistry(alice, Config{})
	ctx := context.Background()

	list, err := reg.Add(ctx, nil, "bob@example.com")
	if err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	again, err := reg.Add(ctx, list, "bob@example.com")
	if !errors.Is(err, ErrDuplicateEntry) {
		t.Fatalf("second Add err = %v, want ErrDuplicateEntry", err)
	}
	if len(again) != len(list) {
		t.Errorf("length changed: %d -> %d", len(list), len(again))
	}
}

func TestAddDoesNotAliasCurrent(t *testing.T) {
	reg, _, _ := newTestRegistry(alice, Config{})
	current := make([]string, 1, 4)
	current[0] = "a@x.com"

	next, err := reg.Add(context.Background(), current, "b@x.com")
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	next[0] = "changed"
	if current[0] != "a@x.com" {
		t.Error("Add mutated the caller's slice")
	}
}

func TestAddStoreFailures(t *testing.T) {
	boom := errors.New("boom")

	t.Run("shared table fails first", func(t *testing.T) {
		reg, docs, shared := newTestRegistry(alice, Config{})
		shared.err = boom

		list, err := reg.Add(context.Background(), nil, "bob@example.com")
		if !errors.Is(err, ErrStoreWrite) || !errors.Is(err, boom) {
			t.Fatalf("err = %v, want ErrStoreWrite wrapping boom", err)
		}
		var se *StoreError
		if !errors.As(err, &se) || se.Store != StoreShared {
			t.Errorf("expected StoreError for shared store, got %#v", err)
		}
		if len(list) != 0 {
			t.Errorf("list = %v, want empty", list)
		}
		if n := len(docs.Calls()); n != 0 {
			t.Errorf("document store called %d times after shared failure", n)
		}
	})

	t.Run("document store fails after shared commit", func(t *testing.T) {
		reg, docs, shared := newTestRegistry(alice, Config{})
		docs.setErr = boom

		list, err := reg.Add(context.Background(), nil, "bob@example.com")
		if !errors.Is(err, ErrStoreWrite) {
			t.Fatalf("err = %v, want ErrStoreWrite", err)
		}
		if len(list) != 0 {
			t.Errorf("list = %v, want empty", list)
		}
		// The shared write stays committed: no rollback by default.
		if got := shared.Node(DefaultSharedPath)["bob"]; got != "bob@example.com" {
			t.Errorf("shared[bob] = %q, want committed value", got)
		}
	})

	t.Run("compensation undoes the shared write", func(t *testing.T) {
		reg, docs, shared := newTestRegistry(alice, Config{Compensate: true})
		docs.setErr = boom

		if _, err := reg.Add(context.Background(), nil, "bob@example.com"); !errors.Is(err, ErrStoreWrite) {
			t.Fatalf("err = %v, want ErrStoreWrite", err)
		}
		if _, ok := shared.Node(DefaultSharedPath)["bob"]; ok {
			t.Error("shared[bob] still set after compensation")
		}
		if n := len(shared.Calls()); n != 2 {
			t.Errorf("shared calls = %d, want 2", n)
		}
	})
}

func TestRemove(t *testing.T) {
	ctx := context.Background()

	t.Run("confirmed removal", func(t *testing.T) {
		reg, docs, shared := newTestRegistry(alice, Config{})
		list, _ := reg.Add(ctx, nil, "bob@example.com")
		list, _ = reg.Add(ctx, list, "carol@example.com")

		var prompt string
		confirm := confirmFunc(func(_ context.Context, _, message string) bool {
			prompt = message
			return true
		})

		next, err := reg.Remove(ctx, list, "bob@example.com", confirm)
		if err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		if prompt != "Remove bob@example.com?" {
			t.Errorf("prompt = %q", prompt)
		}
		if !slices.Equal(next, []string{"carol@example.com"}) {
			t.Errorf("next = %v, want [carol@example.com]", next)
		}
		if len(next) != len(list)-1 {
			t.Errorf("length = %d, want %d", len(next), len(list)-1)
		}
		node := shared.Node(DefaultSharedPath)
		if _, ok := node["bob"]; ok {
			t.Error("shared[bob] not cleared")
		}
		if node["carol"] != "carol@example.com" {
			t.Error("sibling key carol was touched")
		}
		loaded, _ := reg.Load(ctx)
		if !slices.Equal(loaded, []string{"carol@example.com"}) {
			t.Errorf("loaded = %v", loaded)
		}
		if !slices.Contains(docs.Calls(), "delete:bob") {
			t.Errorf("doc calls = %v, want delete:bob", docs.Calls())
		}
	})

	t.Run("cancel makes no store calls", func(t *testing.T) {
		reg, docs, shared := newTestRegistry(alice, Config{})
		list := []string{"bob@example.com"}

		next, err := reg.Remove(ctx, list, "bob@example.com", confirmNo)
		if err != nil {
			t.Fatalf("Remove failed: %v", err)
		}
		if !slices.Equal(next, list) {
			t.Errorf("next = %v, want %v", next, list)
		}
		if n := len(docs.Calls()) + len(shared.Calls()); n != 0 {
			t.Errorf("expected zero store calls, got %d", n)
		}
	})

	t.Run("no user aborts after confirm", func(t *testing.T) {
		reg, docs, shared := newTestRegistry(nil, Config{})
		list := []string{"bob@example.com"}

		next, err := reg.Remove(ctx, list, "bob@example.com", confirmYes)
		if !errors.Is(err, ErrNotAuthenticated) {
			t.Fatalf("err = %v, want ErrNotAuthenticated", err)
		}
		if !slices.Equal(next, list) {
			t.Errorf("next = %v, want %v", next, list)
		}
		if n := len(docs.Calls()) + len(shared.Calls()); n != 0 {
			t.Errorf("expected zero store calls, got %d", n)
		}
	})

	t.Run("document failure leaves list", func(t *testing.T) {
		reg, docs, _ := newTestRegistry(alice, Config{})
		docs.delErr = errors.New("offline")
		list := []string{"bob@example.com"}

		next, err := reg.Remove(ctx, list, "bob@example.com", confirmYes)
		if !errors.Is(err, ErrStoreWrite) {
			t.Fatalf("err = %v, want ErrStoreWrite", err)
		}
		if !slices.Equal(next, list) {
			t.Errorf("next = %v, want %v", next, list)
		}
	})

	t.Run("compensation restores the shared field", func(t *testing.T) {
		reg, docs, shared := newTestRegistry(alice, Config{Compensate: true})
		list, _ := reg.Add(ctx, nil, "bob@example.com")
		docs.delErr = errors.New("offline")

		if _, err := reg.Remove(ctx, list, "bob@example.com", confirmYes); !errors.Is(err, ErrStoreWrite) {
			t.Fatalf("err = %v, want ErrStoreWrite", err)
		}
		if got := shared.Node(DefaultSharedPath)["bob"]; got != "bob@example.com" {
			t.Errorf("shared[bob] = %q, want restored value", got)
		}
	})
}

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("no user is a silent skip", func(t *testing.T) {
		reg, docs, _ := newTestRegistry(nil, Config{})
		list, err := reg.Load(ctx)
		if err != nil || len(list) != 0 {
			t.Errorf("Load = %v, %v; want empty, nil", list, err)
		}
		if n := len(docs.Calls()); n != 0 {
			t.Errorf("expected no document reads, got %d", n)
		}
	})

	t.Run("missing document is empty", func(t *testing.T) {
		reg, _, _ := newTestRegistry(alice, Config{})
		list, err := reg.Load(ctx)
		if err != nil || len(list) != 0 {
			t.Errorf("Load = %v, %v; want empty, nil", list, err)
		}
	})

	t.Run("insertion order", func(t *testing.T) {
		reg, docs, _ := newTestRegistry(alice, Config{})
		docs.records[alice.Email] = &models.UserRecord{
			Email: alice.Email,
			Emails: []models.ContactEntry{
				{Key: "zed", Email: "zed@example.com"},
				{Key: "amy", Email: "amy@example.com"},
			},
		}
		list, err := reg.Load(ctx)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if !slices.Equal(list, []string{"zed@example.com", "amy@example.com"}) {
			t.Errorf("list = %v, want insertion order", list)
		}
	})

	t.Run("read failure", func(t *testing.T) {
		reg, docs, _ := newTestRegistry(alice, Config{})
		docs.getErr = errors.New("unavailable")
		list, err := reg.Load(ctx)
		if !errors.Is(err, ErrStoreRead) {
			t.Errorf("err = %v, want ErrStoreRead", err)
		}
		if len(list) != 0 {
			t.Errorf("list = %v, want empty", list)
		}
	})
}

func TestSearch(t *testing.T) {
	list := []string{"Bob@Example.com", "carol@work.org", "dave@example.com"}

	tests := []struct {
		query string
		want  []string
	}{
		{"", list},
		{"EXAMPLE", []string{"Bob@Example.com", "dave@example.com"}},
		{"work", []string{"carol@work.org"}},
		{"ob@ex", []string{"Bob@Example.com"}},
		{"zzz", []string{}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("query %q", tt.query), func(t *testing.T) {
			got := Search(list, tt.query)
			if !slices.Equal(got, tt.want) {
				t.Errorf("Search(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

// Two addresses with the same local part share a key. Both stores end up
// holding only the second address while the in-memory list holds both.
func TestLocalPartCollision(t *testing.T) {
	reg, docs, shared := newTestRegistry(alice, Config{})
	ctx := context.Background()

	if k1, k2 := ContactKey("a@x.com", KeyLocalPart), ContactKey("a@y.com", KeyLocalPart); k1 != "a" || k2 != "a" {
		t.Fatalf("keys = %q, %q; want a, a", k1, k2)
	}

	list, err := reg.Add(ctx, nil, "a@x.com")
	if err != nil {
		t.Fatalf("Add a@x.com failed: %v", err)
	}
	list, err = reg.Add(ctx, list, "a@y.com")
	if err != nil {
		t.Fatalf("Add a@y.com failed: %v", err)
	}

	if !slices.Equal(list, []string{"a@x.com", "a@y.com"}) {
		t.Errorf("in-memory list = %v, want both addresses", list)
	}
	if got := shared.Node(DefaultSharedPath); len(got) != 1 || got["a"] != "a@y.com" {
		t.Errorf("shared node = %v, want {a: a@y.com}", got)
	}
	loaded, _ := reg.Load(ctx)
	if !slices.Equal(loaded, []string{"a@y.com"}) {
		t.Errorf("stored list = %v, want [a@y.com]", loaded)
	}
	if len(docs.records[alice.Email].Emails) != 1 {
		t.Errorf("document holds %d entries, want 1", len(docs.records[alice.Email].Emails))
	}
}

func TestEncodedKeysAvoidCollision(t *testing.T) {
	reg, _, _ := newTestRegistry(alice, Config{Keys: KeyEncoded})
	ctx := context.Background()

	list, _ := reg.Add(ctx, nil, "a@x.com")
	list, _ = reg.Add(ctx, list, "a@y.com")

	loaded, err := reg.Load(ctx)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !slices.Equal(loaded, list) {
		t.Errorf("stored = %v, in-memory = %v; want equal", loaded, list)
	}
}

func TestPerUserSharedScope(t *testing.T) {
	reg, _, shared := newTestRegistry(alice, Config{Scope: ScopePerUser})

	if _, err := reg.Add(context.Background(), nil, "bob@example.com"); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	want := SharedPath(DefaultSharedPath, ScopePerUser, alice.Email)
	if want == DefaultSharedPath {
		t.Fatal("per-user path equals the global path")
	}
	if got := shared.Node(want)["bob"]; got != "bob@example.com" {
		t.Errorf("shared[%s][bob] = %q", want, got)
	}
	if len(shared.Node(DefaultSharedPath)) != 0 {
		t.Error("global node was written in per-user scope")
	}
}

func TestInFlightGuard(t *testing.T) {
	docs := newFakeDocs()
	docs.block = make(chan struct{})
	shared := newFakeShared()
	shared.updated = make(chan struct{}, 4)
	reg := New(fakeIdentity{user: alice}, docs, shared, Config{InFlightGuard: true, Logger: quietLogger()})
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := reg.Add(ctx, nil, "bob@example.com")
		done <- err
	}()
	<-shared.updated

	if _, err := reg.Add(ctx, nil, "carol@example.com"); !errors.Is(err, ErrInFlight) {
		t.Errorf("second Add err = %v, want ErrInFlight", err)
	}

	close(docs.block)
	if err := <-done; err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	if _, err := reg.Add(ctx, []string{"bob@example.com"}, "carol@example.com"); err != nil {
		t.Errorf("Add after settle failed: %v", err)
	}
}

func TestAlertMessages(t *testing.T) {
	tests := []struct {
		op        string
		err       error
		wantTitle string
	}{
		{OpAdd, ErrNotAuthenticated, "Not logged in"},
		{OpAdd, ErrInvalidInput, "Invalid Input"},
		{OpAdd, ErrDuplicateEntry, "Duplicate"},
		{OpAdd, &StoreError{Op: OpAdd, Store: StoreShared, Kind: ErrStoreWrite, Err: io.EOF}, "Error"},
		{OpRemove, &StoreError{Op: OpRemove, Store: StoreDocument, Kind: ErrStoreWrite, Err: io.EOF}, "Error"},
	}
	for _, tt := range tests {
		title, msg := Alert(tt.op, tt.err)
		if title != tt.wantTitle || msg == "" {
			t.Errorf("Alert(%s, %v) = %q, %q", tt.op, tt.err, title, msg)
		}
	}

	_, shared := Alert(OpAdd, &StoreError{Store: StoreShared, Kind: ErrStoreWrite, Err: io.EOF})
	_, doc := Alert(OpAdd, &StoreError{Store: StoreDocument, Kind: ErrStoreWrite, Err: io.EOF})
	if shared != doc {
		t.Errorf("store failures should share one message: %q vs %q", shared, doc)
	}
}
