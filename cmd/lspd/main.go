// Copyright (c) 2018 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	cli "gopkg.in/urfave/cli.v1"

	"github.com/vechain/lsp/api"
	"github.com/vechain/lsp/cmd/lspd/httpserver"
	"github.com/vechain/lsp/eventdb"
	"github.com/vechain/lsp/health"
	"github.com/vechain/lsp/log"
	"github.com/vechain/lsp/lsp"
	"github.com/vechain/lsp/lvldb"
	"github.com/vechain/lsp/metrics"
)

const appName = "LSP"

var (
	version   string
	gitCommit string
	gitTag    string
)

func fullVersion() string {
	versionMeta := "release"
	if gitTag == "" {
		versionMeta = "dev"
	}
	return fmt.Sprintf("%s-%s-%s", version, gitCommit, versionMeta)
}

func main() {
	app := cli.App{
		Version:   fullVersion(),
		Name:      appName,
		Usage:     "Accounting core of a liquid staking pool",
		Copyright: "2025 VeChain Foundation <https://vechain.org/>",
		Flags: []cli.Flag{
			configFlag,
			dataDirFlag,
			persistFlag,
			cacheFlag,
			apiAddrFlag,
			apiCorsFlag,
			apiTimeoutFlag,
			apiEventsLimitFlag,
			apiSlowQueriesThresholdFlag,
			apiLog5xxErrorsFlag,
			enableAPILogsFlag,
			skipEventsFlag,
			maxReportAgeFlag,
			verbosityFlag,
			jsonLogsFlag,
			pprofFlag,
			skipNTPFlag,
			enableMetricsFlag,
			metricsAddrFlag,
			enableAdminFlag,
			adminAddrFlag,
		},
		Action: defaultAction,
		Commands: []cli.Command{
			{
				Name:   "config",
				Usage:  "print the effective pool configuration",
				Flags:  []cli.Flag{configFlag, diffFlag},
				Action: configAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func defaultAction(ctx *cli.Context) error {
	exitSignal := handleExitSignal()
	defer func() { log.Info("exited") }()

	logLevel, err := initLogger(ctx)
	if err != nil {
		return err
	}

	cfg, err := loadPoolConfig(ctx.String(configFlag.Name))
	if err != nil {
		return err
	}

	if !ctx.Bool(skipNTPFlag.Name) {
		go checkClockOffset()
	}

	metricsURL := ""
	if ctx.Bool(enableMetricsFlag.Name) {
		metrics.InitializePrometheusMetrics()
		url, closeFunc, err := httpserver.StartMetricsServer(ctx.String(metricsAddrFlag.Name))
		if err != nil {
			return fmt.Errorf("unable to start metrics server - %w", err)
		}
		metricsURL = url
		defer func() { log.Info("stopping metrics server..."); closeFunc() }()
	}

	var (
		mainDB  *lvldb.LevelDB
		eventDB *eventdb.EventDB
		dataDir = "Memory"
	)
	if ctx.Bool(persistFlag.Name) {
		dataDir = makeDataDir(ctx)
		mainDB = openMainDB(ctx, dataDir)
		if !ctx.Bool(skipEventsFlag.Name) {
			eventDB = openEventDB(dataDir)
		}
	} else {
		mainDB = openMemMainDB()
		if !ctx.Bool(skipEventsFlag.Name) {
			eventDB = openEventDB("")
		}
	}
	defer func() { log.Info("closing ledger database..."); mainDB.Close() }()
	if eventDB != nil {
		defer func() { log.Info("closing event database..."); eventDB.Close() }()
	}

	roles, err := cfg.roles()
	if err != nil {
		return err
	}
	pool, err := initPool(mainDB, cfg, roles, lsp.SystemClock{GenesisTime: cfg.GenesisTime})
	if err != nil {
		return err
	}
	defer func() { log.Info("closing staking pool..."); pool.Close() }()

	maxReportAge := time.Duration(ctx.Uint64(maxReportAgeFlag.Name)) * time.Second
	healthStatus := health.New(maxReportAge, eventDB != nil)

	apiLogs := &atomic.Bool{}
	apiLogs.Store(ctx.Bool(enableAPILogsFlag.Name))

	adminURL := ""
	if ctx.Bool(enableAdminFlag.Name) {
		url, closeFunc, err := httpserver.StartAdminServer(
			ctx.String(adminAddrFlag.Name),
			logLevel,
			healthStatus,
			apiLogs,
		)
		if err != nil {
			return fmt.Errorf("unable to start admin server - %w", err)
		}
		adminURL = url
		defer func() { log.Info("stopping admin server..."); closeFunc() }()
	}

	apiHandler, apiCloser := api.New(
		pool,
		eventDB,
		api.Options{
			AllowedOrigins:       ctx.String(apiCorsFlag.Name),
			PprofOn:              ctx.Bool(pprofFlag.Name),
			EnableMetrics:        ctx.Bool(enableMetricsFlag.Name),
			EnableReqLogger:      apiLogs,
			SlowQueriesThreshold: time.Duration(ctx.Uint64(apiSlowQueriesThresholdFlag.Name)) * time.Millisecond,
			Log5xxErrors:         ctx.Bool(apiLog5xxErrorsFlag.Name),
			EventsLimit:          ctx.Uint64(apiEventsLimitFlag.Name),
			Roles:                roles,
		},
	)
	defer func() { log.Info("closing API..."); apiCloser() }()

	apiURL, srvCloser := startAPIServer(ctx, apiHandler)
	defer func() { log.Info("stopping API server..."); srvCloser() }()

	printStartupMessage(cfg, pool, dataDir, apiURL, metricsURL, adminURL)

	g, gctx := errgroup.WithContext(exitSignal)
	if eventDB != nil {
		healthStatus.RecordingStatus(true)
		g.Go(func() error {
			defer healthStatus.RecordingStatus(false)
			return eventDB.Record(gctx, pool)
		})
	}
	g.Go(func() error {
		healthStatus.Watch(gctx, pool)
		return nil
	})
	return g.Wait()
}

func defaultDataDir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".org.vechain.lsp")
	}
	return ""
}
