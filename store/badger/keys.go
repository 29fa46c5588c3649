package badger

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
)

// Key layout. Fixed-width binary segments keep iteration order equal to
// address byte order and numeric id order.
var (
	keyVestingState  = []byte("vesting/state")
	prefixSchedule   = []byte("vesting/schedule/")
	keyPresaleState  = []byte("presale/state")
	prefixPresale    = []byte("presale/sale/")
	prefixWhitelist  = []byte("presale/whitelist/")
	prefixPurchase   = []byte("presale/purchase/")
	prefixSeq        = []byte("presale/seq/")
	prefixBuyer      = []byte("presale/buyer/")
	prefixBalance    = []byte("token/balance/")
	prefixAllowance  = []byte("token/allowance/")
	prefixEvent      = []byte("event/")
	keyEventSequence = []byte("meta/event_seq")
)

func key(prefix []byte, parts ...[]byte) []byte {
	n := len(prefix)
	for _, p := range parts {
		n += len(p)
	}
	k := make([]byte, 0, n)
	k = append(k, prefix...)
	for _, p := range parts {
		k = append(k, p...)
	}
	return k
}

func u64(v uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, v)
}

func decodeU64(b []byte) uint64 {
	if len(b) < 8 {
		return 0
	}
	return binary.BigEndian.Uint64(b)
}

func scheduleKey(b common.Address) []byte { return key(prefixSchedule, b.Bytes()) }

func presaleKey(id uint64) []byte { return key(prefixPresale, u64(id)) }

func whitelistKey(id uint64, a common.Address) []byte {
	return key(prefixWhitelist, u64(id), a.Bytes())
}

func purchaseKey(id uint64, buyer common.Address) []byte {
	return key(prefixPurchase, u64(id), buyer.Bytes())
}

// seqKey indexes participants of a presale by first-purchase order.
func seqKey(id uint64, seq int) []byte {
	return key(prefixSeq, u64(id), u64(uint64(seq)))
}

// buyerKey indexes a buyer's presales.
func buyerKey(buyer common.Address, id uint64) []byte {
	return key(prefixBuyer, buyer.Bytes(), u64(id))
}

func balanceKey(token, holder common.Address) []byte {
	return key(prefixBalance, token.Bytes(), holder.Bytes())
}

func allowanceKey(token, owner, spender common.Address) []byte {
	return key(prefixAllowance, token.Bytes(), owner.Bytes(), spender.Bytes())
}

func eventKey(seq uint64) []byte { return key(prefixEvent, u64(seq)) }
