package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/epsum/epsumstock/cmd/epsumctl/cli"
)

var (
	version = "dev"
	args    struct {
		RedisAddr       string                 `help:"Redis address used by the job queue." env:"REDIS_ADDR" default:"127.0.0.1:6379"`
		ImportCustomers cli.ImportCustomersCmd `cmd:"" help:"Queue a customer CSV for background import."`
		Queue           cli.QueueCmd           `cmd:"" help:"Show job queue statistics."`
		Migrate         cli.MigrateCmd         `cmd:"" help:"Apply database migrations."`
		Version         kong.VersionFlag
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd := kong.Parse(&args,
		kong.Name("epsumctl"),
		kong.Description("Operator tooling for epsumstock."),
		kong.Vars{"version": version},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	err := cmd.Run(&cli.Globals{RedisAddr: args.RedisAddr, Logger: logger})
	cmd.FatalIfErrorf(err)
}
