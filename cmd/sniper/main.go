package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/dantezy/token-sniper/internal/chain"
	"github.com/dantezy/token-sniper/internal/config"
	"github.com/dantezy/token-sniper/internal/detector"
	"github.com/dantezy/token-sniper/internal/executor"
	"github.com/dantezy/token-sniper/internal/scheduler"
	"github.com/dantezy/token-sniper/internal/store"
	"github.com/dantezy/token-sniper/internal/telegram"
	"github.com/dantezy/token-sniper/internal/wallet"
)

const (
	version = "0.1.0"
	banner  = `
 _____ ___  _  _______ _   _   ____  _   _ ___ ____  _____ ____
|_   _/ _ \| |/ / ____| \ | | / ___|| \ | |_ _|  _ \| ____|  _ \
  | || | | | ' /|  _| |  \| | \___ \|  \| || || |_) |  _| | |_) |
  | || |_| | . \| |___| |\  |  ___) | |\  || ||  __/| |___|  _ <
  |_| \___/|_|\_\_____|_| \_| |____/|_| \_|___|_|   |_____|_| \_\

Token Sniper v%s
Buys factory mints, sells after a fixed delay
`
)

func main() {
	log.SetFlags(log.Ltime | log.Lmsgprefix)

	fmt.Printf(banner, version)
	fmt.Println(strings.Repeat("-", 60))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	printConfig(cfg)

	log.Println("initializing wallet...")
	w, err := wallet.NewWalletFromHex(cfg.PrivateKey)
	if err != nil {
		log.Fatalf("failed to create wallet: %v", err)
	}
	log.Printf("wallet address: %s", w.AddressHex())

	log.Println("initializing telegram bot...")
	bot, err := telegram.NewBot(cfg.TelegramBotToken, cfg.TelegramChatID)
	if err != nil {
		log.Fatalf("failed to create telegram bot: %v", err)
	}
	bot.SetDryRun(cfg.DryRun)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Println("connecting to chain...")
	client, err := chain.Dial(ctx, cfg.RPCURL, w, cfg.ChainID, common.HexToAddress(cfg.ExchangeAddress), chain.Options{
		GasLimit:        cfg.GasLimit,
		ApproveGasLimit: cfg.ApproveGasLimit,
		Confirmations:   cfg.Confirmations,
	})
	if err != nil {
		log.Fatalf("failed to connect to %s: %v", cfg.RPCURL, err)
	}
	defer client.Close()

	log.Printf("loading token store from %s...", cfg.StorePath)
	st := store.Load(cfg.StorePath)
	log.Printf("store holds %d token records", st.Len())

	sched := scheduler.New(scheduler.RealClock{}, cfg.SellDelay, nil)
	exec := executor.New(cfg, client, st, sched, bot)
	sched.Bind(func(token string) {
		exec.Sell(ctx, token)
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Printf("received signal: %v, initiating shutdown...", sig)
		cancel()
	}()

	pending := exec.ResumePending()
	log.Printf("resumed %d pending sell(s)", pending)

	if err := bot.NotifyStarted(pending); err != nil {
		log.Printf("warning: failed to send startup notification: %v", err)
	}

	log.Println("starting mint detector...")
	fmt.Println(strings.Repeat("-", 60))

	det := detector.New(client, common.HexToAddress(cfg.FactoryAddress), exec.HandleNewToken)
	if err := det.Run(ctx); err != nil && err != context.Canceled {
		log.Printf("detector error: %v", err)
		bot.NotifyError(err)
	}

	log.Println("shutting down...")

	if err := bot.NotifyStopped(); err != nil {
		log.Printf("warning: failed to send shutdown notification: %v", err)
	}

	log.Println("shutdown complete")
	os.Exit(0)
}

func printConfig(cfg *config.Config) {
	mode := "LIVE"
	if cfg.DryRun {
		mode = "DRY RUN"
	}

	telegramStatus := "disabled"
	if cfg.HasTelegram() {
		telegramStatus = "enabled"
	}

	log.Printf("mode:            %s", mode)
	log.Printf("chain ID:        %d", cfg.ChainID)
	log.Printf("factory:         %s", cfg.FactoryAddress)
	log.Printf("exchange:        %s", cfg.ExchangeAddress)
	log.Printf("buy amount:      %s wei", cfg.BuyAmountWei)
	log.Printf("sell delay:      %s", cfg.SellDelay)
	log.Printf("confirmations:   %d", cfg.Confirmations)
	log.Printf("store path:      %s", cfg.StorePath)
	log.Printf("telegram:        %s", telegramStatus)
	fmt.Println(strings.Repeat("-", 60))
}
