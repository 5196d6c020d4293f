package spend

import (
	"sort"

	"github.com/btcsuite/btcd/btcutil"

	"github.com/delta1/liana/daemon"
)

// CoinEntry is a spendable coin annotated with its selection flag. Entries
// live only for the duration of a draft session and are rebuilt each time the
// spend flow starts.
type CoinEntry struct {
	// Coin is the underlying unspent output, consumed read-only.
	Coin daemon.Coin

	// Selected reports whether the user picked the coin as an input of
	// the transaction being drafted.
	Selected bool
}

// newCoinEntries builds the selectable coin set for a draft session. Coins
// already consumed elsewhere are excluded outright, never shown as
// selectable. The set is ordered once, at construction: ascending by the
// number of blocks remaining before the recovery path opens, so that funds
// approaching their timelock are offered first, with ties broken by
// descending amount so that fewer, larger coins keep the input count (and
// hence the fee) down within an unlock cohort. Toggling never re-sorts.
func newCoinEntries(coins []daemon.Coin, currentHeight uint32,
	timelock uint16) []CoinEntry {

	entries := make([]CoinEntry, 0, len(coins))
	for _, coin := range coins {
		if coin.SpendInfo != nil {
			continue
		}

		entries = append(entries, CoinEntry{Coin: coin})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		seqI := daemon.RemainingSequence(
			entries[i].Coin, currentHeight, timelock,
		)
		seqJ := daemon.RemainingSequence(
			entries[j].Coin, currentHeight, timelock,
		)

		if seqI == seqJ {
			// Bigger amount first.
			return entries[i].Coin.Amount > entries[j].Coin.Amount
		}

		// Soonest to mature first.
		return seqI < seqJ
	})

	return entries
}

// balanceAvailable sums the amounts of the coins not yet spoken for. It is an
// informational ceiling computed once at session start, not re-derived from
// the live selection.
func balanceAvailable(coins []daemon.Coin) btcutil.Amount {
	var balance btcutil.Amount
	for _, coin := range coins {
		if coin.SpendInfo != nil {
			continue
		}

		balance += coin.Amount
	}

	return balance
}
