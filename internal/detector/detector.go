package detector

import (
	"context"
	"log"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// TransferTopic is the keccak hash of the canonical ERC-20 Transfer event
// signature, shared by every transfer-like event on chain.
var TransferTopic = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

var zeroAddress = common.Address{}

// resubscribeDelay is a variable so tests can shorten the recovery pause.
var resubscribeDelay = 3 * time.Second

// Transfer is a decoded ERC-20 transfer log.
type Transfer struct {
	Token common.Address // emitting contract
	From  common.Address
	To    common.Address
	Value *big.Int
}

// DecodeTransfer attempts to interpret a log as an ERC-20 Transfer. The
// Transfer topic is necessary but not sufficient: ERC-721 transfers and other
// unrelated event shapes share it, so a false return is the expected branch,
// not an error.
func DecodeTransfer(lg types.Log) (Transfer, bool) {
	if len(lg.Topics) != 3 || lg.Topics[0] != TransferTopic {
		return Transfer{}, false
	}
	if len(lg.Data) != 32 {
		return Transfer{}, false
	}
	return Transfer{
		Token: lg.Address,
		From:  common.BytesToAddress(lg.Topics[1].Bytes()[12:]),
		To:    common.BytesToAddress(lg.Topics[2].Bytes()[12:]),
		Value: new(big.Int).SetBytes(lg.Data),
	}, true
}

// LogSource is the subscription surface of the Ledger Client used by the
// detector.
type LogSource interface {
	SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error)
}

// Detector watches a single broad Transfer-topic feed and emits each token
// minted to the factory address exactly once per qualifying log. It never
// mutates persisted state itself; idempotence lives in the handler.
type Detector struct {
	source  LogSource
	factory common.Address
	handler func(ctx context.Context, token common.Address)
}

// New creates a detector dispatching qualifying tokens to handler.
func New(source LogSource, factory common.Address, handler func(ctx context.Context, token common.Address)) *Detector {
	return &Detector{source: source, factory: factory, handler: handler}
}

// qualifies reports whether a decoded transfer is a mint to the factory.
func (d *Detector) qualifies(t Transfer) bool {
	return t.From == zeroAddress && t.To == d.factory
}

// Run subscribes to the Transfer topic across all contracts and dispatches
// qualifying mints until ctx is canceled. A broken subscription is redialed
// after a short pause; one token's failure never stops the feed.
func (d *Detector) Run(ctx context.Context) error {
	query := ethereum.FilterQuery{
		Topics: [][]common.Hash{{TransferTopic}},
	}

	for {
		logs := make(chan types.Log, 256)
		sub, err := d.source.SubscribeFilterLogs(ctx, query, logs)
		if err != nil {
			log.Printf("[detector] subscribe failed: %v (retrying in %s)", err, resubscribeDelay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(resubscribeDelay):
				continue
			}
		}
		log.Printf("[detector] watching for mints to factory %s", d.factory.Hex())

		if err := d.consume(ctx, sub, logs); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[detector] subscription error: %v (resubscribing in %s)", err, resubscribeDelay)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(resubscribeDelay):
			}
		}
	}
}

// consume drains one subscription until it errors or ctx is canceled.
func (d *Detector) consume(ctx context.Context, sub ethereum.Subscription, logs <-chan types.Log) error {
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-sub.Err():
			return err
		case lg := <-logs:
			transfer, ok := DecodeTransfer(lg)
			if !ok {
				continue // expected: unrelated event shape
			}
			if !d.qualifies(transfer) {
				continue
			}
			log.Printf("[detector] mint detected: token %s minted %s to factory",
				transfer.Token.Hex(), transfer.Value.String())
			go d.handler(ctx, transfer.Token)
		}
	}
}
