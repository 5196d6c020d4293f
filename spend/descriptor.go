package spend

import (
	"github.com/btcsuite/btcd/btcutil/psbt"
)

// Descriptor is the subset of the wallet's spending policy the draft flow
// consumes. Implementations are expected to be stateless and safe for
// concurrent use.
type Descriptor interface {
	// MaxSatisfactionWeight returns the worst-case weight, in weight
	// units, of the witness satisfying a single input spending through
	// the policy's primary path. The fee estimator relies on it to price
	// inputs before any witness exists.
	MaxSatisfactionWeight() uint32

	// PartialSpendInfo inspects the given unsigned transaction and
	// reports how far along its signature collection is under the
	// policy's primary path.
	PartialSpendInfo(packet *psbt.Packet) (SignatureProgress, error)
}

// SignatureProgress reports how many of the required signatures have been
// collected for a drafted transaction.
type SignatureProgress struct {
	// Signed is the number of signatures already present.
	Signed int

	// Required is the number of signatures the policy demands.
	Required int
}
