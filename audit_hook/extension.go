// Package audithook bridges Launchpad journal records and reconciliation
// reports to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import any
// audit backend directly. Callers inject a RecorderFunc adapter at wiring
// time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/xraph/launchpad/event"
	"github.com/xraph/launchpad/plugin"
	"github.com/xraph/launchpad/reconcile"
	"github.com/xraph/launchpad/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin       = (*Extension)(nil)
	_ plugin.OnEvent      = (*Extension)(nil)
	_ plugin.OnReconciled = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension records every journal entry and reconciliation report.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// OnEvent implements plugin.OnEvent.
func (e *Extension) OnEvent(ctx context.Context, r *event.Record) error {
	c := classify(r.Kind, r.Ledger)

	kv := make([]any, 0, 2*len(r.Fields)+6)
	kv = append(kv, "event_id", r.ID.String(), "actor", r.Actor.Hex())
	if r.Subject != (common.Address{}) {
		kv = append(kv, "subject", r.Subject.Hex())
	}
	for k, v := range r.Fields {
		kv = append(kv, k, v)
	}

	return e.record(ctx, Action(r.Kind), c.severity, OutcomeSuccess,
		c.resource, resourceID(r), c.category, nil,
		kv...,
	)
}

// OnReconciled implements plugin.OnReconciled. A report with findings is
// recorded as a critical failure.
func (e *Extension) OnReconciled(ctx context.Context, report interface{}) error {
	r, ok := report.(*reconcile.Report)
	if !ok {
		return nil
	}

	severity, outcome := SeverityInfo, OutcomeSuccess
	var err error
	if !r.OK() {
		severity, outcome = SeverityCritical, OutcomeFailure
		err = fmt.Errorf("%d invariant violations, first %s: %s",
			len(r.Findings), r.Findings[0].Check, r.Findings[0].Detail)
	}

	checks := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		checks = append(checks, string(f.Check)+"@"+f.Subject)
	}

	return e.record(ctx, ActionReconciled, severity, outcome,
		ResourceLedger, r.ID.String(), CategoryIntegrity, err,
		"schedules", r.Schedules,
		"presales", r.Presales,
		"global_allocated", types.FormatAmount(r.GlobalAllocated),
		"global_claimed", types.FormatAmount(r.GlobalClaimed),
		"findings", checks,
	)
}

// resourceID names the audited resource: the beneficiary for schedule
// records, the presale id for presale records.
func resourceID(r *event.Record) string {
	switch {
	case r.Ledger == event.LedgerPresale && r.PresaleID != 0:
		return strconv.FormatUint(r.PresaleID, 10)
	case r.Subject != (common.Address{}):
		return r.Subject.Hex()
	default:
		return ""
	}
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
