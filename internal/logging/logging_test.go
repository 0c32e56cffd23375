package logging

import (
	"testing"

	"github.com/sirupsen/logrus"

	"lume_casino_bot/internal/config"
)

func TestSetupAppliesLevelAndBaseFields(t *testing.T) {
	t.Cleanup(resetLogger)

	entry, err := Setup(config.Config{AppEnv: config.EnvProduction, LogLevel: "debug"})
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}

	if entry.Logger.GetLevel() != logrus.DebugLevel {
		t.Fatalf("expected debug level, got %v", entry.Logger.GetLevel())
	}
	if entry.Data["service"] != serviceName {
		t.Fatalf("expected service field %q, got %v", serviceName, entry.Data["service"])
	}
	if entry.Data["env"] != config.EnvProduction {
		t.Fatalf("expected env field %q, got %v", config.EnvProduction, entry.Data["env"])
	}

	if _, ok := entry.Logger.Formatter.(*logrus.JSONFormatter); !ok {
		t.Fatalf("expected JSON formatter in production, got %T", entry.Logger.Formatter)
	}
}

func TestSetupUsesTextFormatterInDevelopment(t *testing.T) {
	t.Cleanup(resetLogger)

	entry, err := Setup(config.Config{AppEnv: config.EnvDevelopment, LogLevel: "info"})
	if err != nil {
		t.Fatalf("Setup returned error: %v", err)
	}

	if _, ok := entry.Logger.Formatter.(*logrus.TextFormatter); !ok {
		t.Fatalf("expected text formatter in development, got %T", entry.Logger.Formatter)
	}
}

func TestSetupRejectsInvalidLevel(t *testing.T) {
	t.Cleanup(resetLogger)

	if _, err := Setup(config.Config{AppEnv: config.EnvProduction, LogLevel: "chatty"}); err == nil {
		t.Fatalf("expected error for invalid log level")
	}
}

func TestLoggerInitializesDefaultWithoutSetup(t *testing.T) {
	t.Cleanup(resetLogger)
	resetLogger()

	entry := Logger()
	if entry == nil {
		t.Fatalf("expected default logger")
	}
	if entry.Logger.GetLevel() != logrus.InfoLevel {
		t.Fatalf("expected default info level, got %v", entry.Logger.GetLevel())
	}
}

func TestWithContextAttachesOnlyPopulatedFields(t *testing.T) {
	t.Cleanup(resetLogger)

	entry := WithContext(Context{UserID: 7, Game: "roulette"})

	if entry.Data["user_id"] != int64(7) {
		t.Fatalf("expected user_id field, got %v", entry.Data["user_id"])
	}
	if entry.Data["game"] != "roulette" {
		t.Fatalf("expected game field, got %v", entry.Data["game"])
	}
	if _, ok := entry.Data["chat_id"]; ok {
		t.Fatalf("expected zero chat_id to be omitted")
	}
	if _, ok := entry.Data["event"]; ok {
		t.Fatalf("expected empty event to be omitted")
	}
}
