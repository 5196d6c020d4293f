package daemon

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
)

// Daemon is the subset of the wallet daemon's interface consumed by the spend
// construction core. The core treats any error returned by the daemon as
// opaque: it is surfaced verbatim to the user and never interpreted or
// retried.
type Daemon interface {
	// CreateSpendTx asks the daemon to construct an unsigned spend
	// transaction consuming exactly the given inputs and paying the given
	// outputs, keyed by their encoded destination address, at the given
	// fee rate in sat/vb. Any change output and its destination are the
	// daemon's responsibility.
	CreateSpendTx(ctx context.Context, inputs []wire.OutPoint,
		outputs map[string]btcutil.Amount,
		feerateVB uint64) (*psbt.Packet, error)
}
