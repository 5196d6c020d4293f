// Package daemon defines the boundary between the spend construction core
// and the wallet daemon: the read-only coin model exposed by the daemon and
// the interface of the transaction construction service it provides.
package daemon

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// SpendInfo describes how a coin was consumed by a spend transaction. It is
// set by the daemon once the coin is used, whether or not the spending
// transaction is confirmed yet.
type SpendInfo struct {
	// TxID is the id of the transaction spending the coin.
	TxID chainhash.Hash

	// Height is the block height at which the spending transaction
	// confirmed. It is None while the spend is unconfirmed.
	Height fn.Option[int32]
}

// Coin is an unspent transaction output tracked by the wallet daemon. The
// spend construction core consumes coins read-only; it never mutates them.
type Coin struct {
	// Amount is the value of the output.
	Amount btcutil.Amount

	// OutPoint uniquely identifies the output.
	OutPoint wire.OutPoint

	// BlockHeight is the confirmation height of the transaction creating
	// the coin. It is None while the coin is unconfirmed.
	BlockHeight fn.Option[int32]

	// SpendInfo is non-nil once the coin has been consumed by another
	// transaction. A coin with a non-nil SpendInfo must never be offered
	// for selection.
	SpendInfo *SpendInfo
}

// RemainingSequence returns the number of blocks left before the coin becomes
// spendable through the recovery path, given the current block height and the
// descriptor's relative timelock. An unconfirmed coin has the whole timelock
// remaining.
func RemainingSequence(coin Coin, currentHeight uint32, timelock uint16) uint32 {
	if coin.BlockHeight.IsNone() {
		return uint32(timelock)
	}

	confirmedAt := uint32(coin.BlockHeight.UnwrapOr(0))

	unlockAt := confirmedAt + uint32(timelock)
	if unlockAt <= currentHeight {
		return 0
	}

	return unlockAt - currentHeight
}
