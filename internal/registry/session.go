package registry

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// Session is the state of one contacts screen: the in-memory list, the
// input field and the search query. It is created on mount and discarded on
// navigation away; nothing about a failed operation outlives it.
type Session struct {
	reg     *Registry
	notify  Notifier
	confirm Confirmer

	mu       sync.Mutex
	contacts []string
	input    string
	query    string
}

// NewSession creates an empty session. Call Mount to populate it.
func NewSession(reg *Registry, notify Notifier, confirm Confirmer) *Session {
	return &Session{
		reg:      reg,
		notify:   notify,
		confirm:  confirm,
		contacts: []string{},
	}
}

// Mount loads the contact list once. A read failure leaves the list empty
// and is only logged.
func (s *Session) Mount(ctx context.Context) {
	list, err := s.reg.Load(ctx)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.contacts = list
	s.mu.Unlock()
}

// SetInput replaces the contents of the email input field.
func (s *Session) SetInput(v string) {
	s.mu.Lock()
	s.input = v
	s.mu.Unlock()
}

// Input returns the contents of the email input field.
func (s *Session) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// SetQuery replaces the search query.
func (s *Session) SetQuery(q string) {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()
}

// Contacts returns a copy of the in-memory list.
func (s *Session) Contacts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.contacts)
}

// Visible returns the contacts matching the current search query.
func (s *Session) Visible() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(Search(s.contacts, s.query))
}

// Submit adds the current input. On success the email is appended to the
// list as it stands when the writes finish and the input is cleared. Any
// failure is shown to the user and returned.
func (s *Session) Submit(ctx context.Context) error {
	s.mu.Lock()
	snapshot := slices.Clone(s.contacts)
	raw := s.input
	s.mu.Unlock()

	next, err := s.reg.Add(ctx, snapshot, raw)
	if err != nil {
		s.alert(OpAdd, err)
		return err
	}

	added := next[len(next)-1]
	s.mu.Lock()
	s.contacts = append(s.contacts, added)
	s.input = ""
	s.mu.Unlock()
	return nil
}

// Remove deletes email after confirmation. A cancelled prompt and a missing
// user are both silent.
func (s *Session) Remove(ctx context.Context, email string) error {
	s.mu.Lock()
	snapshot := slices.Clone(s.contacts)
	s.mu.Unlock()

	next, err := s.reg.Remove(ctx, snapshot, email, s.confirm)
	if errors.Is(err, ErrNotAuthenticated) {
		return err
	}
	if err != nil {
		s.alert(OpRemove, err)
		return err
	}
	if len(next) == len(snapshot) {
		return nil
	}

	s.mu.Lock()
	s.contacts = slices.DeleteFunc(s.contacts, func(e string) bool { return e == email })
	s.mu.Unlock()
	return nil
}

func (s *Session) alert(op string, err error) {
	if s.notify == nil {
		return
	}
	title, msg := Alert(op, err)
	s.notify.Alert(title, msg)
}
