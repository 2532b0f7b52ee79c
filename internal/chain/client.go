// Package chain wraps go-ethereum's ethclient into the narrow ledger surface
// the bot needs: submit buy/sell/approve transactions against the exchange
// contract, wait out confirmations, and read ERC-20 state.
package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/dantezy/token-sniper/internal/wallet"
)

const receiptPollInterval = 2 * time.Second

const erc20ABIJSON = `[
	{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"},
	{"constant":true,"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"}
]`

const exchangeABIJSON = `[
	{"inputs":[{"name":"token","type":"address"},{"name":"minTokens","type":"uint256"}],"name":"buyTokens","outputs":[],"stateMutability":"payable","type":"function"},
	{"inputs":[{"name":"token","type":"address"},{"name":"amount","type":"uint256"},{"name":"minWei","type":"uint256"}],"name":"sellTokens","outputs":[],"stateMutability":"nonpayable","type":"function"}
]`

var (
	erc20ABI    = mustParseABI(erc20ABIJSON)
	exchangeABI = mustParseABI(exchangeABIJSON)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid ABI literal: %v", err))
	}
	return parsed
}

// Options carries the gas and confirmation policy for submitted transactions.
type Options struct {
	GasLimit        uint64
	ApproveGasLimit uint64
	Confirmations   uint64
}

// Client is the Ledger Client: one websocket connection serving log
// subscriptions, transaction submission, and contract reads.
type Client struct {
	eth      *ethclient.Client
	wallet   *wallet.Wallet
	chainID  *big.Int
	exchange common.Address
	opts     Options
}

// Dial connects to the RPC endpoint. A websocket URL is required because the
// detector's log subscription does not work over plain HTTP.
func Dial(ctx context.Context, rpcURL string, w *wallet.Wallet, chainID int64, exchange common.Address, opts Options) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcURL, err)
	}
	if opts.Confirmations == 0 {
		opts.Confirmations = 1
	}
	return &Client{
		eth:      eth,
		wallet:   w,
		chainID:  big.NewInt(chainID),
		exchange: exchange,
		opts:     opts,
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	c.eth.Close()
}

// SubscribeFilterLogs exposes the raw log subscription for the detector.
func (c *Client) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery, ch chan<- types.Log) (ethereum.Subscription, error) {
	return c.eth.SubscribeFilterLogs(ctx, q, ch)
}

// Buy submits a purchase of token through the exchange, funding it with
// value wei and requiring at least minTokens out.
func (c *Client) Buy(ctx context.Context, token common.Address, value, minTokens *big.Int) (common.Hash, error) {
	data, err := exchangeABI.Pack("buyTokens", token, minTokens)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack buy call: %w", err)
	}
	return c.sendTx(ctx, c.exchange, value, c.opts.GasLimit, data)
}

// Sell submits a sale of amount token units through the exchange, requiring
// at least minWei of funding back.
func (c *Client) Sell(ctx context.Context, token common.Address, amount, minWei *big.Int) (common.Hash, error) {
	data, err := exchangeABI.Pack("sellTokens", token, amount, minWei)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack sell call: %w", err)
	}
	return c.sendTx(ctx, c.exchange, nil, c.opts.GasLimit, data)
}

// Approve grants the exchange an allowance of amount token units.
func (c *Client) Approve(ctx context.Context, token common.Address, amount *big.Int) (common.Hash, error) {
	data, err := erc20ABI.Pack("approve", c.exchange, amount)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to pack approve call: %w", err)
	}
	return c.sendTx(ctx, token, nil, c.opts.ApproveGasLimit, data)
}

// WaitConfirmed blocks until the transaction is mined and the configured
// number of confirmations has passed, then reports whether it succeeded.
func (c *Client) WaitConfirmed(ctx context.Context, txHash common.Hash) (bool, error) {
	receipt, err := c.waitMined(ctx, txHash)
	if err != nil {
		return false, err
	}

	target := new(big.Int).Add(receipt.BlockNumber, big.NewInt(int64(c.opts.Confirmations-1)))
	for {
		head, err := c.eth.BlockNumber(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to read head block: %w", err)
		}
		if new(big.Int).SetUint64(head).Cmp(target) >= 0 {
			break
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(receiptPollInterval):
		}
	}

	return receipt.Status == types.ReceiptStatusSuccessful, nil
}

// BalanceOf reads the wallet's balance of token.
func (c *Client) BalanceOf(ctx context.Context, token common.Address) (*big.Int, error) {
	out, err := c.callContract(ctx, token, erc20ABI, "balanceOf", c.wallet.Address())
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// Allowance reads the exchange's spending allowance of token for the wallet.
func (c *Client) Allowance(ctx context.Context, token common.Address) (*big.Int, error) {
	out, err := c.callContract(ctx, token, erc20ABI, "allowance", c.wallet.Address(), c.exchange)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// Decimals reads the token's decimals.
func (c *Client) Decimals(ctx context.Context, token common.Address) (uint8, error) {
	out, err := c.callContract(ctx, token, erc20ABI, "decimals")
	if err != nil {
		return 0, err
	}
	return out[0].(uint8), nil
}

// NativeBalance reads the wallet's native coin balance.
func (c *Client) NativeBalance(ctx context.Context) (*big.Int, error) {
	return c.eth.BalanceAt(ctx, c.wallet.Address(), nil)
}

// callContract packs a read-only call, executes it at the latest block, and
// unpacks the outputs.
func (c *Client) callContract(ctx context.Context, to common.Address, contract abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contract.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to pack %s call: %w", method, err)
	}
	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s call failed: %w", method, err)
	}
	out, err := contract.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack %s result: %w", method, err)
	}
	return out, nil
}

// sendTx builds, signs, and broadcasts a legacy transaction.
func (c *Client) sendTx(ctx context.Context, to common.Address, value *big.Int, gasLimit uint64, data []byte) (common.Hash, error) {
	nonce, err := c.eth.PendingNonceAt(ctx, c.wallet.Address())
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to fetch nonce: %w", err)
	}
	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	if value == nil {
		value = new(big.Int)
	}
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := c.wallet.SignTx(tx, c.chainID)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, fmt.Errorf("failed to broadcast transaction: %w", err)
	}
	return signed.Hash(), nil
}

// waitMined polls for the transaction receipt until it exists.
func (c *Client) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	for {
		receipt, err := c.eth.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to fetch receipt for %s: %w", txHash.Hex(), err)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(receiptPollInterval):
		}
	}
}
