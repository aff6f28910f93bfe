package postgres

import (
	"log/slog"
	"os"

	"github.com/freight-commission-ledger/internal/domain/money"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func eur(s string) money.Money { return money.MustFromString(s) }
