package audithook

import "github.com/xraph/launchpad/event"

// ActionReconciled is recorded for every reconciliation report. Journal
// records are audited under their event kind.
const ActionReconciled = "ledger.reconciled"

// Resource constants for audit events.
const (
	ResourceSchedule = "schedule"
	ResourceVesting  = "vesting"
	ResourcePresale  = "presale"
	ResourceLedger   = "ledger"
)

// Category constants for audit events.
const (
	CategoryAllocation = "allocation"
	CategoryPayout     = "payout"
	CategorySale       = "sale"
	CategoryControl    = "control"
	CategoryIntegrity  = "integrity"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type classification struct {
	resource, category, severity string
}

// classifications maps each journal kind to how it is audited. Kinds not
// listed fall back to the ledger's resource at info severity.
var classifications = map[event.Kind]classification{
	event.KindScheduleCreated:      {ResourceSchedule, CategoryAllocation, SeverityInfo},
	event.KindVestingAmountUpdated: {ResourceSchedule, CategoryAllocation, SeverityWarning},
	event.KindVestingAmountAdded:   {ResourceSchedule, CategoryAllocation, SeverityInfo},
	event.KindVestingDatesUpdated:  {ResourceSchedule, CategoryAllocation, SeverityWarning},
	event.KindVestingGroupUpdated:  {ResourceSchedule, CategoryAllocation, SeverityInfo},
	event.KindBeneficiaryDeleted:   {ResourceSchedule, CategoryAllocation, SeverityWarning},
	event.KindVestingStarted:       {ResourceVesting, CategoryControl, SeverityInfo},
	event.KindTGEClaimed:           {ResourceSchedule, CategoryPayout, SeverityInfo},
	event.KindReleased:             {ResourceSchedule, CategoryPayout, SeverityInfo},
	event.KindVestingPaused:        {ResourceVesting, CategoryControl, SeverityWarning},
	event.KindVestingUnpaused:      {ResourceVesting, CategoryControl, SeverityInfo},
	event.KindEmergencyWithdrawn:   {ResourceVesting, CategoryControl, SeverityCritical},

	event.KindPresaleCreated:         {ResourcePresale, CategorySale, SeverityInfo},
	event.KindPresaleCancelled:       {ResourcePresale, CategorySale, SeverityWarning},
	event.KindSaleTimesChanged:       {ResourcePresale, CategorySale, SeverityInfo},
	event.KindSaleTokenChanged:       {ResourcePresale, CategorySale, SeverityWarning},
	event.KindPaymentTokenChanged:    {ResourcePresale, CategorySale, SeverityWarning},
	event.KindPriceChanged:           {ResourcePresale, CategorySale, SeverityWarning},
	event.KindWhitelistStatusChanged: {ResourcePresale, CategoryControl, SeverityInfo},
	event.KindWhitelistUpdated:       {ResourcePresale, CategoryControl, SeverityInfo},
	event.KindPresalePaused:          {ResourcePresale, CategoryControl, SeverityWarning},
	event.KindPresaleUnpaused:        {ResourcePresale, CategoryControl, SeverityInfo},
	event.KindSalesPaused:            {ResourcePresale, CategoryControl, SeverityWarning},
	event.KindSalesUnpaused:          {ResourcePresale, CategoryControl, SeverityInfo},
	event.KindPurchased:              {ResourcePresale, CategorySale, SeverityInfo},
}

func classify(kind event.Kind, ledger event.Ledger) classification {
	if c, ok := classifications[kind]; ok {
		return c
	}
	return classification{string(ledger), CategoryControl, SeverityInfo}
}
