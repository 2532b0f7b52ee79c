package telegram

import (
	"testing"
)

func TestNewBot_EmptyToken(t *testing.T) {
	bot, err := NewBot("", "123456")
	if err != nil {
		t.Fatalf("expected no error for empty token, got: %v", err)
	}
	if bot == nil {
		t.Fatal("expected bot to be non-nil")
	}
	if !bot.disabled {
		t.Error("expected bot to be disabled when token is empty")
	}
}

func TestNewBot_InvalidChatID(t *testing.T) {
	_, err := NewBot("fake-token", "not-a-number")
	if err == nil {
		t.Fatal("expected error for invalid chat ID")
	}
}

func TestBot_DisabledMode_SendMessage(t *testing.T) {
	bot := &Bot{disabled: true}

	err := bot.SendMessage("test message")
	if err != nil {
		t.Errorf("expected no error from disabled bot, got: %v", err)
	}
}

func TestBot_DisabledMode_AllNotifications(t *testing.T) {
	bot := &Bot{disabled: true}

	tests := []struct {
		name string
		fn   func() error
	}{
		{"NotifyStarted", func() error { return bot.NotifyStarted(2) }},
		{"NotifyStopped", bot.NotifyStopped},
		{"NotifyBuy", func() error {
			return bot.NotifyBuy("0xtoken", "0xhash", "10000000000000000")
		}},
		{"NotifySell", func() error {
			return bot.NotifySell("0xtoken", "0xhash", "1.2345")
		}},
		{"NotifyError", func() error {
			return bot.NotifyError(errTest)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.fn(); err != nil {
				t.Errorf("expected no error, got: %v", err)
			}
		})
	}
}

var errTest = testError{}

type testError struct{}

func (testError) Error() string { return "test error" }

func TestBot_SetDryRun(t *testing.T) {
	bot := &Bot{disabled: true}

	bot.SetDryRun(true)
	if !bot.dryRun {
		t.Error("expected dryRun to be true")
	}

	bot.SetDryRun(false)
	if bot.dryRun {
		t.Error("expected dryRun to be false")
	}
}
