// Package cli implements the epsumctl operator commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/epsum/epsumstock/internal/platform/db"
	"github.com/epsum/epsumstock/internal/tenant/postgres"
)

// Globals carries flags shared by every command.
type Globals struct {
	RedisAddr string
	Logger    *slog.Logger
	Stdout    io.Writer
}

func (g *Globals) stdout() io.Writer {
	if g.Stdout != nil {
		return g.Stdout
	}
	return os.Stdout
}

func (g *Globals) logger() *slog.Logger {
	if g.Logger != nil {
		return g.Logger
	}
	return slog.Default()
}

// ImportCustomersCmd queues a customer CSV for background creation.
type ImportCustomersCmd struct {
	Owner int64  `help:"Owner id the customers belong to." required:""`
	File  string `arg:"" help:"CSV file with name, address and phone columns." type:"existingfile"`
}

// Run executes the command.
func (c *ImportCustomersCmd) Run(ctx context.Context, globals *Globals) error {
	f, err := os.Open(c.File)
	if err != nil {
		return fmt.Errorf("open %s: %w", c.File, err)
	}
	defer f.Close()

	jobsCLI := NewJobsCLI(globals.RedisAddr)
	defer func() {
		if err := jobsCLI.Close(); err != nil {
			globals.logger().Warn("close jobs cli", slog.Any("error", err))
		}
	}()
	return importCustomers(ctx, jobsCLI, c.Owner, f, globals.stdout())
}

func importCustomers(ctx context.Context, jobsCLI *JobsCLI, owner int64, r io.Reader, out io.Writer) error {
	id, count, err := jobsCLI.ImportCustomers(ctx, owner, r)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "queued %d customers for owner %d (task %s)\n", count, owner, id)
	return err
}

// QueueCmd prints the state of the default job queue.
type QueueCmd struct {
	JSON bool `help:"Print the stats as JSON."`
}

// Run executes the command.
func (c *QueueCmd) Run(ctx context.Context, globals *Globals) error {
	jobsCLI := NewJobsCLI(globals.RedisAddr)
	defer func() {
		if err := jobsCLI.Close(); err != nil {
			globals.logger().Warn("close jobs cli", slog.Any("error", err))
		}
	}()
	return printQueue(ctx, jobsCLI, c.JSON, globals.stdout())
}

func printQueue(ctx context.Context, jobsCLI *JobsCLI, asJSON bool, out io.Writer) error {
	stats, err := jobsCLI.InspectQueue(ctx)
	if err != nil {
		return err
	}
	if asJSON {
		return json.NewEncoder(out).Encode(stats)
	}
	_, err = fmt.Fprintf(out, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
		stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
	return err
}

// MigrateCmd applies the embedded schema migrations.
type MigrateCmd struct {
	DSN     string        `help:"PostgreSQL DSN." env:"PG_DSN" required:""`
	Timeout time.Duration `help:"Give up after this long." default:"1m"`
}

// Run executes the command.
func (c *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	pool, err := db.New(ctx, c.DSN, db.PoolOptions{MaxConns: 2})
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.Migrate(ctx, pool, globals.logger()); err != nil {
		return err
	}
	_, err = fmt.Fprintln(globals.stdout(), "migrations applied")
	return err
}
