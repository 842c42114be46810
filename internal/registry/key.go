package registry

import (
	"encoding/base64"
	"fmt"
	"path"
	"strings"
)

// KeyStrategy selects how a contact email becomes a storage field name.
type KeyStrategy int

const (
	// KeyLocalPart uses the text before the first "@". Different emails with
	// the same local part share a key and overwrite each other.
	KeyLocalPart KeyStrategy = iota
	// KeyEncoded uses the unpadded URL-safe base64 of the whole address.
	KeyEncoded
)

// ParseKeyStrategy accepts "local-part" (or "") and "encoded".
func ParseKeyStrategy(s string) (KeyStrategy, error) {
	switch strings.ToLower(s) {
	case "", "local-part", "localpart":
		return KeyLocalPart, nil
	case "encoded":
		return KeyEncoded, nil
	}
	return 0, fmt.Errorf("unknown key strategy %q", s)
}

func (k KeyStrategy) String() string {
	if k == KeyEncoded {
		return "encoded"
	}
	return "local-part"
}

// ContactKey derives the field name an email is stored under.
func ContactKey(email string, strategy KeyStrategy) string {
	if strategy == KeyEncoded {
		return base64.RawURLEncoding.EncodeToString([]byte(email))
	}
	local, _, _ := strings.Cut(email, "@")
	return local
}

// SharedScope selects whether the shared node is one global path or one
// path per user.
type SharedScope int

const (
	ScopeGlobal SharedScope = iota
	ScopePerUser
)

// ParseSharedScope accepts "global" (or "") and "per-user".
func ParseSharedScope(s string) (SharedScope, error) {
	switch strings.ToLower(s) {
	case "", "global":
		return ScopeGlobal, nil
	case "per-user", "peruser", "user":
		return ScopePerUser, nil
	}
	return 0, fmt.Errorf("unknown shared scope %q", s)
}

func (s SharedScope) String() string {
	if s == ScopePerUser {
		return "per-user"
	}
	return "global"
}

// DefaultSharedPath is the fixed node every user writes to in global scope.
const DefaultSharedPath = "202004/emails"

// SharedPath returns the node a user's contacts are mirrored to.
// In per-user scope "202004/emails" becomes "202004/users/<encoded email>/emails".
func SharedPath(base string, scope SharedScope, userEmail string) string {
	if scope != ScopePerUser {
		return base
	}
	user := ContactKey(userEmail, KeyEncoded)
	return path.Join(path.Dir(base), "users", user, path.Base(base))
}
