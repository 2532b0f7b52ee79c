package config

import (
	"math/big"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		RPCURL:          "wss://example.invalid/ws",
		PrivateKey:      "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80",
		FactoryAddress:  "0x00000000000000000000000000000000000FAC70",
		ExchangeAddress: "0x0000000000000000000000000000000000005afe",
		BuyAmountWei:    big.NewInt(1),
		MinTokensOut:    big.NewInt(0),
		MinWeiOut:       big.NewInt(0),
		Confirmations:   1,
		SellDelay:       time.Minute,
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"bad factory address", func(c *Config) { c.FactoryAddress = "not-an-address" }, true},
		{"bad exchange address", func(c *Config) { c.ExchangeAddress = "0x123" }, true},
		{"zero buy amount", func(c *Config) { c.BuyAmountWei = big.NewInt(0) }, true},
		{"negative slippage bound", func(c *Config) { c.MinWeiOut = big.NewInt(-1) }, true},
		{"zero confirmations", func(c *Config) { c.Confirmations = 0 }, true},
		{"zero sell delay", func(c *Config) { c.SellDelay = 0 }, true},
		{"negative retry limit", func(c *Config) { c.SellRetryLimit = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnvBig(t *testing.T) {
	t.Setenv("TEST_WEI", "12345")
	got, err := getEnvBig("TEST_WEI", "0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Int64() != 12345 {
		t.Errorf("got %s, want 12345", got)
	}

	t.Setenv("TEST_WEI", "")
	got, err = getEnvBig("TEST_WEI", "777")
	if err != nil {
		t.Fatalf("unexpected error for default: %v", err)
	}
	if got.Int64() != 777 {
		t.Errorf("default: got %s, want 777", got)
	}

	t.Setenv("TEST_WEI", "0.5")
	if _, err := getEnvBig("TEST_WEI", "0"); err == nil {
		t.Error("malformed amount must be an error, not a default")
	}
}
