package models

// UsersCollection is the document collection holding one record per user.
const UsersCollection = "users"

// ContactEntry is one field of a user's emails mapping.
type ContactEntry struct {
	// Key is the field name the email is stored under.
	Key string

	// Email is the stored contact address.
	Email string
}

// UserRecord is the per-user document of the document store.
// It is keyed by the user's email and created on first write.
type UserRecord struct {
	// Email is the document key.
	Email string

	// Username is copied from the account at sign-up. Empty when the
	// document was created implicitly by a contact write.
	Username string

	// Emails holds the contact mapping in field insertion order.
	// Overwriting an existing key keeps its original position.
	Emails []ContactEntry
}

// ContactEmails returns the values of the emails mapping in order.
func (r *UserRecord) ContactEmails() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Emails))
	for _, e := range r.Emails {
		out = append(out, e.Email)
	}
	return out
}

// Lookup returns the email stored under key.
func (r *UserRecord) Lookup(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, e := range r.Emails {
		if e.Key == key {
			return e.Email, true
		}
	}
	return "", false
}
