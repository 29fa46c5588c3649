package event

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

func TestRecordBuilder(t *testing.T) {
	actor := common.HexToAddress("0x01")
	subject := common.HexToAddress("0x02")
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	r := New(KindPurchased, LedgerPresale, actor, at).
		About(subject).
		ForPresale(3).
		With("amount", "10")

	if r.ID.IsNil() || r.ID.Prefix() != "evt" {
		t.Errorf("ID = %q, want an evt id", r.ID)
	}
	if r.Subject != subject || r.PresaleID != 3 || r.Fields["amount"] != "10" {
		t.Errorf("unexpected record %+v", r)
	}
}

func TestListOptsMatch(t *testing.T) {
	at := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	r := New(KindReleased, LedgerVesting, common.HexToAddress("0x01"), at).About(common.HexToAddress("0x02"))

	tests := []struct {
		name string
		opts ListOpts
		want bool
	}{
		{"empty", ListOpts{}, true},
		{"ledger", ListOpts{Ledger: LedgerVesting}, true},
		{"other ledger", ListOpts{Ledger: LedgerPresale}, false},
		{"kind", ListOpts{Kind: KindTGEClaimed}, false},
		{"subject", ListOpts{Subject: common.HexToAddress("0x02")}, true},
		{"other subject", ListOpts{Subject: common.HexToAddress("0x03")}, false},
		{"presale", ListOpts{PresaleID: 1}, false},
		{"since before", ListOpts{Since: at.Add(-time.Second)}, true},
		{"since after", ListOpts{Since: at.Add(time.Second)}, false},
	}
	for _, tt := range tests {
		if got := tt.opts.Match(r); got != tt.want {
			t.Errorf("%s: Match = %v, want %v", tt.name, got, tt.want)
		}
	}
}
