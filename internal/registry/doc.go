// Package registry keeps a signed-in user's emergency contacts in sync with
// the two backing stores: the user's document in the "users" collection and
// the shared key-value node.
//
// A Registry performs the store calls. A Session is the screen-level state
// built on top of it: the in-memory contact list, the input field and the
// search query, with every failure surfaced through a Notifier.
//
// Writes go to the shared table first and the document store second. There
// is no transaction between them; see Config.Compensate.
package registry
