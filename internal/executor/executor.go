// Package executor orchestrates the token lifecycle: an idempotent, guarded
// buy when a mint is detected, and a delayed sell of the full position.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dantezy/token-sniper/internal/config"
	"github.com/dantezy/token-sniper/internal/store"
	"github.com/dantezy/token-sniper/internal/telegram"
)

var (
	errApprovalReverted = errors.New("approval transaction reverted")
	errSellReverted     = errors.New("sell transaction reverted")
)

// Ledger is the transaction and query surface of the Ledger Client the
// executor depends on.
type Ledger interface {
	Buy(ctx context.Context, token common.Address, value, minTokens *big.Int) (common.Hash, error)
	Sell(ctx context.Context, token common.Address, amount, minWei *big.Int) (common.Hash, error)
	Approve(ctx context.Context, token common.Address, amount *big.Int) (common.Hash, error)
	WaitConfirmed(ctx context.Context, txHash common.Hash) (bool, error)
	BalanceOf(ctx context.Context, token common.Address) (*big.Int, error)
	Allowance(ctx context.Context, token common.Address) (*big.Int, error)
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// SellScheduler arms one future sell attempt for a token.
type SellScheduler interface {
	Arm(token string)
}

// Executor owns the store, the processing guard, and the trade flow for each
// token. Any token's failure is logged and contained; nothing here stops the
// event feed or the scheduler for other tokens.
type Executor struct {
	ledger Ledger
	store  *store.Store
	guard  *store.Guard
	sched  SellScheduler
	bot    *telegram.Bot

	buyAmount      *big.Int
	minTokensOut   *big.Int
	minWeiOut      *big.Int
	sellRetryLimit int
	dryRun         bool

	now func() time.Time

	mu          sync.Mutex
	sellRetries map[string]int
}

// New creates an Executor. The guard starts empty: in-flight markers never
// survive a restart.
func New(cfg *config.Config, ledger Ledger, st *store.Store, sched SellScheduler, bot *telegram.Bot) *Executor {
	return &Executor{
		ledger:         ledger,
		store:          st,
		guard:          store.NewGuard(),
		sched:          sched,
		bot:            bot,
		buyAmount:      cfg.BuyAmountWei,
		minTokensOut:   cfg.MinTokensOut,
		minWeiOut:      cfg.MinWeiOut,
		sellRetryLimit: cfg.SellRetryLimit,
		dryRun:         cfg.DryRun,
		now:            time.Now,
		sellRetries:    make(map[string]int),
	}
}

// HandleNewToken is the entry point for a detected mint. It skips tokens
// already bought in a prior run or already mid-flight in this one, then runs
// the buy with the guard held. The guard is released on every exit path.
func (e *Executor) HandleNewToken(ctx context.Context, token common.Address) {
	key := store.Normalize(token.Hex())

	if e.store.HasBought(key) {
		log.Printf("[executor] %s already bought, skipping", key)
		return
	}
	if !e.guard.TryAcquire(key) {
		log.Printf("[executor] %s already being handled, skipping", key)
		return
	}
	defer e.guard.Release(key)

	e.buy(ctx, token, key)
}

// buy submits the purchase, waits for confirmation, and on success records
// the buy and arms the delayed sell. Reverts and errors are logged and
// abandoned: a later qualifying event may retry, this attempt will not.
func (e *Executor) buy(ctx context.Context, token common.Address, key string) {
	if e.dryRun {
		log.Printf("[executor] dry run: would buy %s for %s wei", key, e.buyAmount)
		return
	}

	txHash, err := e.ledger.Buy(ctx, token, e.buyAmount, e.minTokensOut)
	if err != nil {
		log.Printf("[executor] buy submission for %s failed: %v", key, err)
		return
	}
	log.Printf("[executor] buy submitted for %s: %s", key, txHash.Hex())

	ok, err := e.ledger.WaitConfirmed(ctx, txHash)
	if err != nil {
		log.Printf("[executor] buy confirmation for %s failed: %v", key, err)
		return
	}
	if !ok {
		log.Printf("[executor] buy for %s reverted", key)
		return
	}

	if err := e.store.RecordBuy(key, txHash.Hex(), e.now()); err != nil {
		if errors.Is(err, store.ErrAlreadyBought) {
			log.Printf("[executor] buy for %s already on record, not arming again", key)
			return
		}
		// The buy is confirmed and the record is held in memory, so the
		// in-memory marker and the armed sell must both survive; only the
		// file write failed, and the next successful flush rewrites it.
		log.Printf("[executor] failed to persist buy for %s, arming sell anyway: %v", key, err)
	}
	log.Printf("[executor] bought %s (tx %s)", key, txHash.Hex())

	if err := e.bot.NotifyBuy(key, txHash.Hex(), e.buyAmount.String()); err != nil {
		log.Printf("[executor] buy notification failed: %v", err)
	}

	e.sched.Arm(key)
}

// Sell liquidates the full position for token. Invoked by the scheduler
// after the configured delay and, on failure, re-armed up to the retry
// budget; an exhausted budget leaves the token pending for the next
// restart's resume pass.
func (e *Executor) Sell(ctx context.Context, token string) {
	key := store.Normalize(token)

	rec, found := e.store.Get(key)
	if !found || rec.BuyTxHash == "" {
		log.Printf("[executor] no buy on record for %s, skipping sell", key)
		return
	}
	if rec.SellTxHash != "" {
		log.Printf("[executor] %s already sold, skipping", key)
		return
	}

	addr := common.HexToAddress(key)

	balance, err := e.ledger.BalanceOf(ctx, addr)
	if err != nil {
		e.sellFailed(key, fmt.Errorf("balance query failed: %w", err))
		return
	}
	if balance.Sign() == 0 {
		log.Printf("[executor] zero balance for %s, nothing to sell", key)
		return
	}

	decimals, err := e.ledger.Decimals(ctx, addr)
	if err != nil {
		log.Printf("[executor] decimals query for %s failed, assuming 18: %v", key, err)
		decimals = 18
	}

	allowance, err := e.ledger.Allowance(ctx, addr)
	if err != nil {
		e.sellFailed(key, fmt.Errorf("allowance query failed: %w", err))
		return
	}

	if e.dryRun {
		log.Printf("[executor] dry run: would sell %s of %s", formatUnits(balance, decimals), key)
		return
	}

	if allowance.Cmp(balance) < 0 {
		approveTx, err := e.ledger.Approve(ctx, addr, balance)
		if err != nil {
			e.sellFailed(key, fmt.Errorf("approval submission failed: %w", err))
			return
		}
		log.Printf("[executor] approval submitted for %s: %s", key, approveTx.Hex())

		ok, err := e.ledger.WaitConfirmed(ctx, approveTx)
		if err != nil {
			e.sellFailed(key, fmt.Errorf("approval confirmation failed: %w", err))
			return
		}
		if !ok {
			e.sellFailed(key, errApprovalReverted)
			return
		}
	}

	sellTx, err := e.ledger.Sell(ctx, addr, balance, e.minWeiOut)
	if err != nil {
		e.sellFailed(key, fmt.Errorf("sell submission failed: %w", err))
		return
	}
	log.Printf("[executor] sell submitted for %s: %s", key, sellTx.Hex())

	ok, err := e.ledger.WaitConfirmed(ctx, sellTx)
	if err != nil {
		e.sellFailed(key, fmt.Errorf("sell confirmation failed: %w", err))
		return
	}
	if !ok {
		e.sellFailed(key, errSellReverted)
		return
	}

	if err := e.store.RecordSell(key, sellTx.Hex(), e.now()); err != nil {
		log.Printf("[executor] failed to record sell for %s: %v", key, err)
		return
	}
	e.clearRetries(key)
	log.Printf("[executor] sold %s of %s (tx %s)", formatUnits(balance, decimals), key, sellTx.Hex())

	if err := e.bot.NotifySell(key, sellTx.Hex(), formatUnits(balance, decimals)); err != nil {
		log.Printf("[executor] sell notification failed: %v", err)
	}
}

// ResumePending re-arms a sell for every token bought but not yet sold. Run
// once at startup, after the store is loaded. It never re-triggers buys.
func (e *Executor) ResumePending() int {
	pending := e.store.PendingSells()
	for _, token := range pending {
		log.Printf("[executor] resuming pending sell for %s", token)
		e.sched.Arm(token)
	}
	return len(pending)
}

// sellFailed logs the failure and re-arms within the retry budget. The token
// stays in pending-sell state either way.
func (e *Executor) sellFailed(token string, cause error) {
	log.Printf("[executor] sell attempt for %s failed: %v", token, cause)

	e.mu.Lock()
	attempt := e.sellRetries[token]
	if attempt >= e.sellRetryLimit {
		e.mu.Unlock()
		log.Printf("[executor] retry budget for %s exhausted, pending until next restart", token)
		return
	}
	e.sellRetries[token] = attempt + 1
	e.mu.Unlock()

	log.Printf("[executor] re-arming sell for %s (retry %d/%d)", token, attempt+1, e.sellRetryLimit)
	e.sched.Arm(token)
}

func (e *Executor) clearRetries(token string) {
	e.mu.Lock()
	delete(e.sellRetries, token)
	e.mu.Unlock()
}

// formatUnits renders a raw token amount as a decimal string.
func formatUnits(amount *big.Int, decimals uint8) string {
	scale := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
	value := new(big.Float).Quo(new(big.Float).SetInt(amount), scale)
	return value.Text('f', 6)
}
