// bilancio generates client financial reports from the command line.
package main

import (
	"context"
	"fmt"

	"github.com/alecthomas/kong"

	"bilancio/internal/amqp"
	"bilancio/internal/cli"
	"bilancio/internal/config"
	applog "bilancio/internal/log"
	"bilancio/internal/render"
	"bilancio/internal/services"
	"bilancio/internal/storage"
)

var root struct {
	Generate generateCmd `cmd:"" help:"Generate the report for one client."`
	Batch    batchCmd    `cmd:"" help:"Generate reports for every client folder."`
	Enqueue  enqueueCmd  `cmd:"" help:"Queue a report job for the worker."`
	Clients  clientsCmd  `cmd:"" help:"List configured client folders."`
}

// app carries initialized configuration into the command Run methods.
type app struct {
	logger *applog.Logger
	cfg    *config.Config
}

// service wires a report service for a command. Store and renderer are
// skipped for queue-only commands so they never touch the database.
func (a *app) service(ctx context.Context, withStore, withQueue bool) *services.ReportService {
	var (
		store    *storage.SQLiteRepository
		renderer render.ReportRenderer
		queue    *amqp.Client
	)
	if withStore {
		store = cli.InitSQLite(a.logger, a.cfg.SQLiteDBPath)
		renderer = cli.InitRenderer(ctx, a.logger, a.cfg)
	}
	if withQueue {
		queue = cli.InitAMQP(a.logger, a.cfg)
	}
	return services.NewReportService(a.cfg.ClientsDir, store, renderer, queue, a.cfg.BatchConcurrency)
}

type generateCmd struct {
	Client string `arg:"" help:"Client folder name under the clients directory."`
}

func (c *generateCmd) Run(a *app) error {
	ctx := context.Background()
	svc := a.service(ctx, true, false)
	defer svc.Close()

	report, err := svc.Generate(ctx, c.Client)
	if err != nil {
		return err
	}
	fmt.Printf("report for %s: %d transactions, %d monthly buckets, %d skipped rows\n",
		c.Client, len(report.Transactions), len(report.Monthly), report.SkippedRows)
	return nil
}

type batchCmd struct{}

func (c *batchCmd) Run(a *app) error {
	ctx := context.Background()
	svc := a.service(ctx, true, false)
	defer svc.Close()

	return svc.GenerateAll(ctx)
}

type enqueueCmd struct {
	Client string `arg:"" help:"Client folder name under the clients directory."`
}

func (c *enqueueCmd) Run(a *app) error {
	ctx := context.Background()
	svc := a.service(ctx, false, true)
	defer svc.Close()

	if err := svc.Enqueue(ctx, c.Client); err != nil {
		return err
	}
	fmt.Printf("queued report job for %s\n", c.Client)
	return nil
}

type clientsCmd struct{}

func (c *clientsCmd) Run(a *app) error {
	svc := a.service(context.Background(), false, false)
	defer svc.Close()

	clients, err := svc.ListClientFolders()
	if err != nil {
		return err
	}
	for _, client := range clients {
		fmt.Println(client)
	}
	return nil
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()
	cfg := cli.LoadAndValidateConfig(logger)

	ctx := kong.Parse(&root,
		kong.Name("bilancio"),
		kong.Description("Transaction normalization, categorization and reporting."))
	err := ctx.Run(&app{logger: logger, cfg: cfg})
	ctx.FatalIfErrorf(err)
}
