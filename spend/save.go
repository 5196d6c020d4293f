package spend

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/psbt"

	"github.com/delta1/liana/daemon"
)

// ErrDraftNotGenerated is returned when the signing stage is entered from a
// draft that never produced a transaction.
var ErrDraftNotGenerated = errors.New(
	"transaction draft has no generated transaction",
)

// SpendTx bundles everything the signing stage needs to present a drafted
// transaction: the unsigned transaction itself, the coins it consumes and the
// current signature progress.
type SpendTx struct {
	// Psbt is the unsigned transaction produced by the construction
	// stage.
	Psbt *psbt.Packet

	// Coins are the wallet coins consumed as inputs.
	Coins []daemon.Coin

	// Progress is the signature count against the policy's requirement,
	// computed once when the stage loads.
	Progress SignatureProgress
}

// SaveSpend is the stage following construction: it holds the finalized draft
// while signatures are collected and the transaction is stored or broadcast.
type SaveSpend struct {
	descriptor Descriptor
	spend      *SpendTx
}

// NewSaveSpend returns an empty signing stage bound to the wallet's policy.
func NewSaveSpend(descriptor Descriptor) *SaveSpend {
	return &SaveSpend{
		descriptor: descriptor,
	}
}

// Load populates the stage from a finalized draft, snapshotting the
// transaction's signature progress against the policy. A draft that never
// generated a transaction is rejected.
func (s *SaveSpend) Load(draft *TransactionDraft) error {
	if draft == nil || draft.generated == nil {
		return ErrDraftNotGenerated
	}

	progress, err := s.descriptor.PartialSpendInfo(draft.generated)
	if err != nil {
		return fmt.Errorf("unable to compute signature progress: %w",
			err)
	}

	s.spend = &SpendTx{
		Psbt:     draft.generated,
		Coins:    draft.Inputs(),
		Progress: progress,
	}

	return nil
}

// Spend returns the loaded transaction bundle, or nil if the stage is empty.
func (s *SaveSpend) Spend() *SpendTx {
	return s.spend
}
