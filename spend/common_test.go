package spend

import (
	"context"
	"errors"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/mock"

	"github.com/delta1/liana/daemon"
)

var (
	// chainParams is the network the tests run against. The fixture
	// addresses below are mainnet addresses.
	chainParams = &chaincfg.MainNetParams

	// errDaemonRejected is a stand-in for an opaque construction service
	// failure.
	errDaemonRejected = errors.New("daemon rejected the request")
)

const (
	// addrP2WPKH is a valid mainnet P2WPKH address.
	addrP2WPKH = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"

	// addrP2WSH is a valid mainnet P2WSH address.
	addrP2WSH = "bc1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3" +
		"qccfmv3"

	// addrP2PKH is a valid mainnet P2PKH address.
	addrP2PKH = "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"

	// addrTestnet is a valid address, but for the wrong network.
	addrTestnet = "tb1qw508d6qejxtdg4y5r3zarvary0c5xw7kxpjzsx"

	// testTimelock is the recovery timelock used by the fixture policy.
	testTimelock uint16 = 144

	// testMaxSatWeight is the worst-case satisfaction weight of the
	// fixture policy, in weight units.
	testMaxSatWeight uint32 = 1000
)

// mockDescriptor is a mock implementation of the Descriptor interface.
type mockDescriptor struct {
	mock.Mock
}

// A compile-time assertion to ensure mockDescriptor implements the Descriptor
// interface.
var _ Descriptor = (*mockDescriptor)(nil)

func (m *mockDescriptor) MaxSatisfactionWeight() uint32 {
	args := m.Called()

	return args.Get(0).(uint32)
}

func (m *mockDescriptor) PartialSpendInfo(packet *psbt.Packet) (
	SignatureProgress, error) {

	args := m.Called(packet)

	return args.Get(0).(SignatureProgress), args.Error(1)
}

// newMockDescriptor returns a descriptor mock preloaded with the fixture
// satisfaction weight.
func newMockDescriptor() *mockDescriptor {
	descriptor := &mockDescriptor{}
	descriptor.On("MaxSatisfactionWeight").Return(testMaxSatWeight).Maybe()

	return descriptor
}

// mockDaemon is a mock implementation of the daemon.Daemon interface.
type mockDaemon struct {
	mock.Mock
}

// A compile-time assertion to ensure mockDaemon implements the daemon.Daemon
// interface.
var _ daemon.Daemon = (*mockDaemon)(nil)

func (m *mockDaemon) CreateSpendTx(ctx context.Context,
	inputs []wire.OutPoint, outputs map[string]btcutil.Amount,
	feerateVB uint64) (*psbt.Packet, error) {

	args := m.Called(ctx, inputs, outputs, feerateVB)

	var packet *psbt.Packet
	if args.Get(0) != nil {
		packet = args.Get(0).(*psbt.Packet)
	}

	return packet, args.Error(1)
}

// newTestCoin returns a wallet coin with a unique outpoint derived from the
// given index.
func newTestCoin(index byte, amount btcutil.Amount,
	blockHeight fn.Option[int32]) daemon.Coin {

	return daemon.Coin{
		Amount: amount,
		OutPoint: wire.OutPoint{
			Hash:  chainhash.Hash{index},
			Index: uint32(index),
		},
		BlockHeight: blockHeight,
	}
}
