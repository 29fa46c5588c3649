package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/launchpad/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		newFn  func() id.ID
		prefix string
	}{
		{"EventID", id.NewEventID, "evt_"},
		{"ReportID", id.NewReportID, "rcn_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.newFn().String()
			if !strings.HasPrefix(got, tt.prefix) {
				t.Errorf("expected prefix %q, got %q", tt.prefix, got)
			}
		})
	}
}

func TestParseRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
	}{
		{"EventID", id.NewEventID, id.ParseEventID},
		{"ReportID", id.NewReportID, id.ParseReportID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		parseFn func(string) (id.ID, error)
	}{
		{"event parser rejects report", id.NewReportID().String(), id.ParseEventID},
		{"report parser rejects event", id.NewEventID().String(), id.ParseReportID},
		{"empty", "", id.Parse},
		{"garbage", "not an id", id.Parse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.parseFn(tt.input); err == nil {
				t.Errorf("expected error parsing %q", tt.input)
			}
		})
	}
}

func TestNilID(t *testing.T) {
	var i id.ID
	if !i.IsNil() {
		t.Error("zero-value ID should be nil")
	}
	if i.String() != "" || i.Prefix() != "" {
		t.Errorf("expected empty rendering, got %q / %q", i.String(), i.Prefix())
	}

	val, err := i.Value()
	if err != nil {
		t.Fatalf("Value(nil) failed: %v", err)
	}
	if val != nil {
		t.Errorf("expected NULL for nil ID, got %v", val)
	}
}

func TestTextAndSQLRoundTrip(t *testing.T) {
	original := id.NewEventID()

	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	var fromText id.ID
	if err := fromText.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if fromText.String() != original.String() {
		t.Errorf("text mismatch: %q != %q", fromText, original)
	}

	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}
	var fromSQL id.ID
	if err := fromSQL.Scan(val); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if fromSQL.String() != original.String() {
		t.Errorf("sql mismatch: %q != %q", fromSQL, original)
	}

	var fromNil id.ID
	if err := fromNil.Scan(nil); err != nil || !fromNil.IsNil() {
		t.Errorf("Scan(nil) = %v, nil=%v", err, fromNil.IsNil())
	}
	if err := fromNil.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

func TestUniqueness(t *testing.T) {
	a, b := id.NewEventID(), id.NewEventID()
	if a.String() == b.String() {
		t.Errorf("two consecutive NewEventID() calls returned the same ID: %q", a)
	}
}
