package audithook_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	audithook "github.com/xraph/launchpad/audit_hook"
	"github.com/xraph/launchpad/event"
	"github.com/xraph/launchpad/id"
	"github.com/xraph/launchpad/reconcile"
)

var (
	admin = common.HexToAddress("0x00000000000000000000000000000000000000a0")
	alice = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	at    = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
)

type captured struct{ events []*audithook.AuditEvent }

func (c *captured) recorder() audithook.Recorder {
	return audithook.RecorderFunc(func(_ context.Context, e *audithook.AuditEvent) error {
		c.events = append(c.events, e)
		return nil
	})
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestOnEventClassifiesRecords(t *testing.T) {
	tests := []struct {
		name         string
		rec          *event.Record
		wantResource string
		wantCategory string
		wantSeverity string
		wantID       string
	}{
		{
			name: "release",
			rec: event.New(event.KindReleased, event.LedgerVesting, alice, at).
				About(alice).With("amount", "42"),
			wantResource: audithook.ResourceSchedule,
			wantCategory: audithook.CategoryPayout,
			wantSeverity: audithook.SeverityInfo,
			wantID:       alice.Hex(),
		},
		{
			name: "emergency withdraw",
			rec: event.New(event.KindEmergencyWithdrawn, event.LedgerVesting, admin, at).
				With("amount", "1000"),
			wantResource: audithook.ResourceVesting,
			wantCategory: audithook.CategoryControl,
			wantSeverity: audithook.SeverityCritical,
		},
		{
			name: "purchase",
			rec: event.New(event.KindPurchased, event.LedgerPresale, alice, at).
				About(alice).ForPresale(3),
			wantResource: audithook.ResourcePresale,
			wantCategory: audithook.CategorySale,
			wantSeverity: audithook.SeverityInfo,
			wantID:       "3",
		},
		{
			name:         "unknown kind",
			rec:          event.New("vesting.something_new", event.LedgerVesting, admin, at),
			wantResource: "vesting",
			wantCategory: audithook.CategoryControl,
			wantSeverity: audithook.SeverityInfo,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &captured{}
			ext := audithook.New(c.recorder(), audithook.WithLogger(quiet()))

			if err := ext.OnEvent(context.Background(), tt.rec); err != nil {
				t.Fatalf("OnEvent: %v", err)
			}
			if len(c.events) != 1 {
				t.Fatalf("recorded %d events, want 1", len(c.events))
			}
			got := c.events[0]
			if got.Action != string(tt.rec.Kind) {
				t.Errorf("Action = %q, want %q", got.Action, tt.rec.Kind)
			}
			if got.Resource != tt.wantResource || got.Category != tt.wantCategory || got.Severity != tt.wantSeverity {
				t.Errorf("classification = %s/%s/%s, want %s/%s/%s",
					got.Resource, got.Category, got.Severity,
					tt.wantResource, tt.wantCategory, tt.wantSeverity)
			}
			if got.ResourceID != tt.wantID {
				t.Errorf("ResourceID = %q, want %q", got.ResourceID, tt.wantID)
			}
			if got.Outcome != audithook.OutcomeSuccess {
				t.Errorf("Outcome = %q, want success", got.Outcome)
			}
			if got.Metadata["actor"] != tt.rec.Actor.Hex() {
				t.Errorf("actor metadata = %v", got.Metadata["actor"])
			}
			for k, v := range tt.rec.Fields {
				if got.Metadata[k] != v {
					t.Errorf("metadata[%q] = %v, want %q", k, got.Metadata[k], v)
				}
			}
		})
	}
}

func TestOnReconciled(t *testing.T) {
	clean := &reconcile.Report{
		ID:              id.NewReportID(),
		GlobalAllocated: uint256.NewInt(10),
		GlobalClaimed:   uint256.NewInt(0),
	}
	dirty := &reconcile.Report{
		ID:              id.NewReportID(),
		GlobalAllocated: uint256.NewInt(10),
		Findings: []reconcile.Finding{
			{Check: reconcile.CheckCustodyCoverage, Subject: "custody", Detail: "short"},
		},
	}

	c := &captured{}
	ext := audithook.New(c.recorder(), audithook.WithLogger(quiet()))
	ctx := context.Background()

	for _, r := range []*reconcile.Report{clean, dirty} {
		if err := ext.OnReconciled(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if err := ext.OnReconciled(ctx, "not a report"); err != nil {
		t.Fatal(err)
	}

	if len(c.events) != 2 {
		t.Fatalf("recorded %d events, want 2", len(c.events))
	}
	ok, bad := c.events[0], c.events[1]
	if ok.Outcome != audithook.OutcomeSuccess || ok.Severity != audithook.SeverityInfo {
		t.Errorf("clean report recorded as %s/%s", ok.Outcome, ok.Severity)
	}
	if ok.ResourceID != clean.ID.String() {
		t.Errorf("ResourceID = %q, want %q", ok.ResourceID, clean.ID.String())
	}
	if bad.Outcome != audithook.OutcomeFailure || bad.Severity != audithook.SeverityCritical {
		t.Errorf("dirty report recorded as %s/%s", bad.Outcome, bad.Severity)
	}
	if bad.Reason == "" {
		t.Error("dirty report has no reason")
	}
	if bad.Metadata["global_claimed"] != "0" {
		t.Errorf("global_claimed = %v, want \"0\"", bad.Metadata["global_claimed"])
	}
}

func TestActionFilters(t *testing.T) {
	rec := func(kind event.Kind) *event.Record { return event.New(kind, event.LedgerVesting, admin, at) }

	t.Run("enabled", func(t *testing.T) {
		c := &captured{}
		ext := audithook.New(c.recorder(), audithook.WithEnabledActions(audithook.Action(event.KindReleased)))
		_ = ext.OnEvent(context.Background(), rec(event.KindReleased))
		_ = ext.OnEvent(context.Background(), rec(event.KindTGEClaimed))
		if len(c.events) != 1 || c.events[0].Action != string(event.KindReleased) {
			t.Errorf("events = %+v, want only released", c.events)
		}
	})

	t.Run("disabled", func(t *testing.T) {
		c := &captured{}
		ext := audithook.New(c.recorder(), audithook.WithDisabledActions(audithook.Action(event.KindReleased)))
		_ = ext.OnEvent(context.Background(), rec(event.KindReleased))
		_ = ext.OnEvent(context.Background(), rec(event.KindTGEClaimed))
		if len(c.events) != 1 || c.events[0].Action != string(event.KindTGEClaimed) {
			t.Errorf("events = %+v, want only tge claimed", c.events)
		}
	})
}

func TestAllActionsSortedAndComplete(t *testing.T) {
	all := audithook.AllActions()
	if !slices.IsSorted(all) {
		t.Error("AllActions is not sorted")
	}
	for _, want := range []string{audithook.ActionReconciled, string(event.KindPurchased), string(event.KindScheduleCreated)} {
		if !slices.Contains(all, want) {
			t.Errorf("AllActions missing %q", want)
		}
	}
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	}), audithook.WithLogger(quiet()))

	if err := ext.OnEvent(context.Background(), event.New(event.KindReleased, event.LedgerVesting, alice, at)); err != nil {
		t.Errorf("OnEvent = %v, want nil", err)
	}
}
