// Package models defines the core domain models for Emergency Click.
//
// # Models
//
//   - User: an account of the identity provider (email + password hash)
//   - UserRecord: the per-user document holding the emails mapping
//   - ContactEntry: one ContactKey → ContactEmail field of that mapping
//   - Click: a single emergency click (location fix and capture time)
//
// # Design Principles
//
// 1. **Storage agnostic**: models carry no database tags; each store maps them
// 2. **Ordered mappings**: the emails mapping is a slice so insertion order survives
// 3. **Emails as keys**: users and documents are addressed by email, not by ID,
//    matching how the document store is keyed
package models
