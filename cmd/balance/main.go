// Command balance prints the wallet's native balance and the balance of
// every token in the persisted store.
package main

import (
	"context"
	"fmt"
	"log"
	"math/big"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dantezy/token-sniper/internal/chain"
	"github.com/dantezy/token-sniper/internal/config"
	"github.com/dantezy/token-sniper/internal/store"
	"github.com/dantezy/token-sniper/internal/wallet"
)

func main() {
	log.SetFlags(0)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	w, err := wallet.NewWalletFromHex(cfg.PrivateKey)
	if err != nil {
		log.Fatalf("failed to create wallet: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := chain.Dial(ctx, cfg.RPCURL, w, cfg.ChainID, common.HexToAddress(cfg.ExchangeAddress), chain.Options{})
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", cfg.RPCURL, err)
	}
	defer client.Close()

	native, err := client.NativeBalance(ctx)
	if err != nil {
		log.Fatalf("failed to read native balance: %v", err)
	}

	fmt.Printf("wallet:  %s\n", w.AddressHex())
	fmt.Printf("native:  %s wei (%s)\n", native, formatEther(native))

	st := store.Load(cfg.StorePath)
	records := st.Records()
	if len(records) == 0 {
		fmt.Println("no tokens on record")
		return
	}

	tokens := make([]string, 0, len(records))
	for token := range records {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)

	fmt.Printf("\n%d token(s) on record:\n", len(tokens))
	for _, token := range tokens {
		rec := records[token]
		status := "pending sell"
		if rec.SellTxHash != "" {
			status = "sold"
		} else if rec.BuyTxHash == "" {
			status = "malformed"
		}

		balance, err := client.BalanceOf(ctx, common.HexToAddress(token))
		if err != nil {
			fmt.Printf("  %s  [%s]  balance: error (%v)\n", token, status, err)
			continue
		}
		fmt.Printf("  %s  [%s]  balance: %s\n", token, status, balance)
	}
}

func formatEther(wei *big.Int) string {
	ether := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18))
	return ether.Text('f', 6) + " ETH"
}
