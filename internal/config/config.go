package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
)

type Config struct {
	// Chain connection
	RPCURL     string // websocket endpoint, log subscription requires it
	PrivateKey string
	ChainID    int64

	// Contracts
	FactoryAddress  string // newly created tokens are minted to this address
	ExchangeAddress string // sale mechanism: buy/sell/approval target

	// Persistence
	StorePath string

	// Trading parameters
	BuyAmountWei    *big.Int // fixed funding amount per buy
	MinTokensOut    *big.Int // minimum token output on buy (0 = no slippage bound)
	MinWeiOut       *big.Int // minimum funding output on sell (0 = no slippage bound)
	GasLimit        uint64
	ApproveGasLimit uint64
	Confirmations   uint64
	SellDelay       time.Duration
	SellRetryLimit  int
	DryRun          bool

	// Telegram notifications (optional)
	TelegramBotToken string
	TelegramChatID   string
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// .env file is optional if env vars are set directly
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	}

	cfg := &Config{
		ChainID:         getEnvInt64("CHAIN_ID", 1),
		StorePath:       getEnvString("STORE_PATH", "tokens.json"),
		GasLimit:        getEnvUint64("GAS_LIMIT", 500_000),
		ApproveGasLimit: getEnvUint64("APPROVE_GAS_LIMIT", 100_000),
		Confirmations:   getEnvUint64("CONFIRMATIONS", 1),
		SellDelay:       time.Duration(getEnvInt64("SELL_DELAY_SECONDS", 60)) * time.Second,
		SellRetryLimit:  int(getEnvInt64("SELL_RETRY_LIMIT", 1)),
		DryRun:          getEnvBool("DRY_RUN", true),
	}

	var err error
	if cfg.BuyAmountWei, err = getEnvBig("BUY_AMOUNT_WEI", "10000000000000000"); err != nil {
		return nil, err
	}
	if cfg.MinTokensOut, err = getEnvBig("MIN_TOKENS_OUT", "0"); err != nil {
		return nil, err
	}
	if cfg.MinWeiOut, err = getEnvBig("MIN_WEI_OUT", "0"); err != nil {
		return nil, err
	}

	var missingFields []string

	cfg.RPCURL = os.Getenv("RPC_URL")
	if cfg.RPCURL == "" {
		missingFields = append(missingFields, "RPC_URL")
	}

	cfg.PrivateKey = os.Getenv("PRIVATE_KEY")
	if cfg.PrivateKey == "" {
		missingFields = append(missingFields, "PRIVATE_KEY")
	}

	cfg.FactoryAddress = os.Getenv("FACTORY_ADDRESS")
	if cfg.FactoryAddress == "" {
		missingFields = append(missingFields, "FACTORY_ADDRESS")
	}

	cfg.ExchangeAddress = os.Getenv("EXCHANGE_ADDRESS")
	if cfg.ExchangeAddress == "" {
		missingFields = append(missingFields, "EXCHANGE_ADDRESS")
	}

	if len(missingFields) > 0 {
		return nil, fmt.Errorf("missing required config: %v", missingFields)
	}

	// Optional telegram config
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = os.Getenv("TELEGRAM_CHAT_ID")

	return cfg, nil
}

// HasTelegram returns true if Telegram notifications are configured
func (c *Config) HasTelegram() bool {
	return c.TelegramBotToken != "" && c.TelegramChatID != ""
}

// Validate performs runtime validation of config values
func (c *Config) Validate() error {
	if !common.IsHexAddress(c.FactoryAddress) {
		return errors.New("FACTORY_ADDRESS is not a valid address")
	}
	if !common.IsHexAddress(c.ExchangeAddress) {
		return errors.New("EXCHANGE_ADDRESS is not a valid address")
	}
	if c.BuyAmountWei.Sign() <= 0 {
		return errors.New("BUY_AMOUNT_WEI must be greater than 0")
	}
	if c.MinTokensOut.Sign() < 0 || c.MinWeiOut.Sign() < 0 {
		return errors.New("slippage bounds must be non-negative")
	}
	if c.Confirmations < 1 {
		return errors.New("CONFIRMATIONS must be at least 1")
	}
	if c.SellDelay <= 0 {
		return errors.New("SELL_DELAY_SECONDS must be greater than 0")
	}
	if c.SellRetryLimit < 0 {
		return errors.New("SELL_RETRY_LIMIT must be non-negative")
	}
	return nil
}

func getEnvInt64(key string, defaultVal int64) int64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func getEnvUint64(key string, defaultVal uint64) uint64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

func getEnvString(key string, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvBig parses a base-10 wei amount. Unlike the other getters a malformed
// value is an error, not a silent default: amounts control real funds.
func getEnvBig(key string, defaultVal string) (*big.Int, error) {
	val := os.Getenv(key)
	if val == "" {
		val = defaultVal
	}
	parsed, ok := new(big.Int).SetString(val, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %q is not a base-10 integer", key, val)
	}
	return parsed, nil
}
