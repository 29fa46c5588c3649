// Package reconcile audits the persisted ledgers against their invariants.
//
// An Auditor recomputes the vesting aggregates from the individual schedules
// and compares them with the stored globals, checks every schedule's payout
// bounds, verifies custody still covers the outstanding allocation once the
// TGE has unlocked, and checks presale supply. A Scheduler runs the audit on
// a cron spec.
package reconcile

import (
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/xraph/launchpad/id"
)

// Check names a reconciliation rule.
type Check string

const (
	CheckGlobalAllocated  Check = "global_allocated"
	CheckGlobalClaimed    Check = "global_claimed"
	CheckReleasedBound    Check = "released_exceeds_principal"
	CheckClaimedBound     Check = "claimed_exceeds_total"
	CheckEmptySchedule    Check = "zero_total_schedule"
	CheckCustodyCoverage  Check = "custody_shortfall"
	CheckPresaleSupply    Check = "remaining_exceeds_supply"
	CheckPresaleSequence  Check = "presale_id_beyond_last"
	CheckVestingStartTime Check = "start_time_missing"
)

// Finding is one violated rule.
type Finding struct {
	Check   Check  `json:"check"   yaml:"check"`
	Subject string `json:"subject" yaml:"subject"`
	Detail  string `json:"detail"  yaml:"detail"`
}

// Report is the outcome of one audit.
type Report struct {
	ID        id.ReportID `json:"id"         yaml:"id"`
	CheckedAt time.Time   `json:"checked_at" yaml:"checked_at"`
	Duration  string      `json:"duration"   yaml:"duration"`

	Schedules int `json:"schedules" yaml:"schedules"`
	Presales  int `json:"presales"  yaml:"presales"`

	GlobalAllocated *uint256.Int `json:"global_allocated" yaml:"global_allocated"`
	GlobalClaimed   *uint256.Int `json:"global_claimed"   yaml:"global_claimed"`
	SumAllocated    *uint256.Int `json:"sum_allocated"    yaml:"sum_allocated"`
	SumClaimed      *uint256.Int `json:"sum_claimed"      yaml:"sum_claimed"`
	// CustodyBalance is set only once the TGE has unlocked.
	CustodyBalance *uint256.Int `json:"custody_balance,omitempty" yaml:"custody_balance,omitempty"`

	Findings []Finding `json:"findings" yaml:"findings"`
}

// OK reports whether the audit found nothing.
func (r *Report) OK() bool { return len(r.Findings) == 0 }

// Has reports whether any finding matches c.
func (r *Report) Has(c Check) bool {
	for _, f := range r.Findings {
		if f.Check == c {
			return true
		}
	}
	return false
}

func (r *Report) add(c Check, subject, format string, args ...any) {
	r.Findings = append(r.Findings, Finding{Check: c, Subject: subject, Detail: fmt.Sprintf(format, args...)})
}
