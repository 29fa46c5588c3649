// Package id defines the TypeID identifiers used by launchpad records.
//
// Schedules are keyed by beneficiary address and presales by their sequential
// number, so only append-only records (journal events, reconciliation reports)
// carry a TypeID. IDs are K-sortable (UUIDv7) and render as "prefix_suffix".
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the record type encoded in a TypeID.
type Prefix string

const (
	PrefixEvent  Prefix = "evt" // Journal event record
	PrefixReport Prefix = "rcn" // Reconciliation report
)

// ID wraps a TypeID. The zero value is Nil.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// EventID identifies a journal event (prefix "evt").
type EventID = ID

// ReportID identifies a reconciliation report (prefix "rcn").
type ReportID = ID

// New generates an ID with the given prefix. It panics on an invalid prefix.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{inner: tid, valid: true}
}

// NewEventID generates a journal event ID.
func NewEventID() EventID { return New(PrefixEvent) }

// NewReportID generates a reconciliation report ID.
func NewReportID() ReportID { return New(PrefixReport) }

// Parse parses any "prefix_suffix" TypeID string.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses s and rejects it unless its prefix is expected.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if got := parsed.Prefix(); got != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, got)
	}
	return parsed, nil
}

// ParseEventID parses an "evt" ID.
func ParseEventID(s string) (EventID, error) { return ParseWithPrefix(s, PrefixEvent) }

// ParseReportID parses an "rcn" ID.
func ParseReportID(s string) (ReportID, error) { return ParseWithPrefix(s, PrefixReport) }

// MustParse is like Parse but panics on error.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}
	return parsed
}

// String returns "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.inner.String()
}

// Prefix returns the prefix component, or "" for Nil.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.inner.Prefix())
}

// IsNil reports whether i is the zero value.
func (i ID) IsNil() bool { return !i.valid }

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty input yields Nil.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Value implements driver.Valuer; Nil is stored as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}
	return i.inner.String(), nil
}

// Scan implements sql.Scanner.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
