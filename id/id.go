// Package id defines identity types for Escrow entities.
//
// Plans and subscriptions use dense monotonic identifiers allocated by the
// catalog counters, starting at 1 and never reused — the zero value always
// means "no such entity". Journal entries use TypeID: K-sortable, globally
// unique, URL-safe identifiers in the format "prefix_suffix".
package id

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

// PlanID identifies a billing plan. Allocated from 1, strictly increasing.
type PlanID uint64

// String returns the canonical string form, e.g. "plan/42".
func (p PlanID) String() string { return fmt.Sprintf("plan/%d", uint64(p)) }

// IsZero reports whether the ID is unallocated.
func (p PlanID) IsZero() bool { return p == 0 }

// SubscriptionID identifies a subscription. Allocated from 1, strictly increasing.
type SubscriptionID uint64

// String returns the canonical string form, e.g. "sub/7".
func (s SubscriptionID) String() string { return fmt.Sprintf("sub/%d", uint64(s)) }

// IsZero reports whether the ID is unallocated.
func (s SubscriptionID) IsZero() bool { return s == 0 }

// journalPrefix is the TypeID prefix for journal entries.
const journalPrefix = "jrnl"

// JournalID identifies an entry in the notification journal.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receiver for UnmarshalText.
type JournalID struct {
	inner typeid.TypeID
	valid bool
}

// NewJournalID generates a new globally unique journal entry ID.
func NewJournalID() JournalID {
	tid, err := typeid.Generate(journalPrefix)
	if err != nil {
		// The prefix is a compile-time constant; failure is a programming error.
		panic(fmt.Sprintf("id: generate journal id: %v", err))
	}
	return JournalID{inner: tid, valid: true}
}

// ParseJournalID parses a TypeID string (e.g. "jrnl_01h2xcejqtf2nbrexx3vqjhp41").
func ParseJournalID(s string) (JournalID, error) {
	tid, err := typeid.Parse(s)
	if err != nil {
		return JournalID{}, fmt.Errorf("id: parse journal id %q: %w", s, err)
	}
	if tid.Prefix() != journalPrefix {
		return JournalID{}, fmt.Errorf("id: parse journal id %q: wrong prefix %q", s, tid.Prefix())
	}
	return JournalID{inner: tid, valid: true}, nil
}

// String returns the "jrnl_..." form; empty for the zero value.
func (j JournalID) String() string {
	if !j.valid {
		return ""
	}
	return j.inner.String()
}

// IsZero reports whether this is the zero JournalID.
func (j JournalID) IsZero() bool { return !j.valid }

// MarshalText implements encoding.TextMarshaler.
func (j JournalID) MarshalText() ([]byte, error) {
	if !j.valid {
		return []byte{}, nil
	}
	return []byte(j.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (j *JournalID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*j = JournalID{}
		return nil
	}
	parsed, err := ParseJournalID(string(data))
	if err != nil {
		return err
	}
	*j = parsed
	return nil
}
