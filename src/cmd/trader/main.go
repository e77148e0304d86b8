package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/uptrace/opentelemetry-go-extra/otellogrus"

	"github.com/jiaming2012/option-arb/src/eventconsumers"
	"github.com/jiaming2012/option-arb/src/eventmodels"
	"github.com/jiaming2012/option-arb/src/eventproducers/statusapi"
	"github.com/jiaming2012/option-arb/src/eventpubsub"
	"github.com/jiaming2012/option-arb/src/eventservices"
	"github.com/jiaming2012/option-arb/src/utils"
)

var rootCmd = &cobra.Command{
	Use:   "trader",
	Short: "Scan option chains for mispricings and delta hedge the resulting book",
	Run: func(cmd *cobra.Command, args []string) {
		stocksConfigPath, err := cmd.Flags().GetString("stocks-config")
		if err != nil {
			log.Fatalf("error getting stocks-config: %v", err)
		}

		sizingConfigPath, err := cmd.Flags().GetString("sizing-config")
		if err != nil {
			log.Fatalf("error getting sizing-config: %v", err)
		}

		curveExportDir, err := cmd.Flags().GetString("curve-export-dir")
		if err != nil {
			log.Fatalf("error getting curve-export-dir: %v", err)
		}

		run(stocksConfigPath, sizingConfigPath, curveExportDir)
	},
}

func run(stocksConfigPath, sizingConfigPath, curveExportDir string) {
	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	if err := utils.InitEnvironmentVariables(); err != nil {
		log.Panic(err)
	}

	eventpubsub.Init()

	log.SetOutput(os.Stdout)
	log.Infof("Log level set to %v", log.GetLevel())

	quotesURL, err := utils.GetEnv("TRADIER_STOCK_QUOTES_URL")
	if err != nil {
		log.Fatalf("$TRADIER_STOCK_QUOTES_URL not set: %v", err)
	}

	optionChainURL, err := utils.GetEnv("TRADIER_OPTION_CHAIN_URL")
	if err != nil {
		log.Fatalf("$TRADIER_OPTION_CHAIN_URL not set: %v", err)
	}

	optionExpirationsURL, err := utils.GetEnv("TRADIER_OPTION_EXPIRATIONS_URL")
	if err != nil {
		log.Fatalf("$TRADIER_OPTION_EXPIRATIONS_URL not set: %v", err)
	}

	ordersUrlTemplate, err := utils.GetEnv("TRADIER_ORDERS_URL_TEMPLATE")
	if err != nil {
		log.Fatalf("$TRADIER_ORDERS_URL_TEMPLATE not set: %v", err)
	}

	positionsUrlTemplate, err := utils.GetEnv("TRADIER_POSITIONS_URL_TEMPLATE")
	if err != nil {
		log.Fatalf("$TRADIER_POSITIONS_URL_TEMPLATE not set: %v", err)
	}

	accountID, err := utils.GetEnv("TRADIER_TRADES_ACCOUNT_ID")
	if err != nil {
		log.Fatalf("$TRADIER_TRADES_ACCOUNT_ID not set: %v", err)
	}

	tradesBearerToken, err := utils.GetEnv("TRADIER_TRADES_BEARER_TOKEN")
	if err != nil {
		log.Fatalf("$TRADIER_TRADES_BEARER_TOKEN not set: %v", err)
	}

	nonTradesBearerToken, err := utils.GetEnv("TRADIER_NON_TRADES_BEARER_TOKEN")
	if err != nil {
		log.Fatalf("$TRADIER_NON_TRADES_BEARER_TOKEN not set: %v", err)
	}

	fredApiKey, err := utils.GetEnv("FRED_API_KEY")
	if err != nil {
		log.Fatalf("$FRED_API_KEY not set: %v", err)
	}

	polygonApiKey, err := utils.GetEnv("POLYGON_API_KEY")
	if err != nil {
		log.Fatalf("$POLYGON_API_KEY not set: %v", err)
	}

	eventStoreDbURL, err := utils.GetEnv("EVENTSTOREDB_URL")
	if err != nil {
		log.Fatalf("$EVENTSTOREDB_URL not set: %v", err)
	}

	port, err := utils.GetEnv("PORT")
	if err != nil {
		log.Fatalf("$PORT not set: %v", err)
	}

	isDryRun := utils.GetBoolEnv("DRY_RUN")
	if isDryRun {
		log.Info("DRY_RUN enabled: decisions will be logged, no orders will be placed")
	}

	pollInterval, err := utils.GetDurationEnv("POLL_INTERVAL", 30*time.Second)
	if err != nil {
		log.Fatalf("invalid $POLL_INTERVAL: %v", err)
	}

	timeToRest, err := utils.GetDurationEnv("TIME_TO_REST", 5*time.Minute)
	if err != nil {
		log.Fatalf("invalid $TIME_TO_REST: %v", err)
	}

	hedgeDeadband, err := utils.GetFloatEnv("HEDGE_DEADBAND", 5.0)
	if err != nil {
		log.Fatalf("invalid $HEDGE_DEADBAND: %v", err)
	}

	hedgeRestDuration, err := utils.GetDurationEnv("HEDGE_REST_DURATION", time.Minute)
	if err != nil {
		log.Fatalf("invalid $HEDGE_REST_DURATION: %v", err)
	}

	// Set up Telemetry
	log.AddHook(otellogrus.NewHook(otellogrus.WithLevels(
		log.PanicLevel,
		log.FatalLevel,
		log.ErrorLevel,
		log.WarnLevel,
		log.InfoLevel,
	)))

	otelShutdown, err := utils.SetupOTelSDK(ctx, "option-arb")
	if err != nil {
		log.Fatalf("failed to setup otel sdk: %v", err)
	}

	defer func() {
		if err := otelShutdown(context.Background()); err != nil {
			log.Errorf("otel shutdown: %v", err)
		}
	}()

	// Load configs
	stockConfigs, err := eventmodels.LoadStockConfigs(stocksConfigPath)
	if err != nil {
		log.Fatalf("failed to load stock configs: %v", err)
	}

	sizingConfig, err := eventmodels.LoadSizingConfig(sizingConfigPath)
	if err != nil {
		log.Fatalf("failed to load sizing config: %v", err)
	}

	log.Infof("watching %d tickers", len(stockConfigs))

	// Set up gateways
	gateway := &eventservices.TradierGateway{
		QuotesURL:            quotesURL,
		OptionChainURL:       optionChainURL,
		OptionExpirationsURL: optionExpirationsURL,
		OrdersURL:            fmt.Sprintf(ordersUrlTemplate, accountID),
		PositionsURL:         fmt.Sprintf(positionsUrlTemplate, accountID),
		NonTradesBearerToken: nonTradesBearerToken,
		TradesBearerToken:    tradesBearerToken,
	}

	rates := eventservices.NewFredRateSource(fredApiKey)
	dividends := eventservices.NewPolygonDividendSource(polygonApiKey)

	journal, err := eventservices.NewOrderJournal(eventStoreDbURL)
	if err != nil {
		log.Fatalf("failed to create order journal: %v", err)
	}
	defer journal.Close()

	// Shared state
	surfaces := eventconsumers.NewSurfaceStore()
	positions := eventconsumers.NewPositionStore()

	// Workers
	engine := eventconsumers.NewTradeDecisionEngine(gateway, journal, sizingConfig, isDryRun, timeToRest)
	monitor := eventconsumers.NewTradierOrdersMonitoringWorker(&wg, gateway, journal)

	// Reconcile in-flight orders from the journal before trading resumes
	var recoveredOrders []*eventmodels.TradeOrder
	for _, config := range stockConfigs {
		openOrders, err := journal.ReplayOpenOrders(ctx, config.Symbol)
		if err != nil {
			log.Fatalf("failed to replay open orders for %s: %v", config.Symbol, err)
		}

		for _, order := range openOrders {
			log.Infof("recovered open order %s for %s", order.IntentID, config.Symbol)
		}

		recoveredOrders = append(recoveredOrders, openOrders...)
	}

	if err := eventconsumers.RecoverOrders(ctx, monitor, gateway, journal, recoveredOrders); err != nil {
		log.Fatalf("failed to reconcile recovered orders: %v", err)
	}

	cycleWorker := eventconsumers.NewTradingCycleWorker(&wg, gateway, rates, dividends, engine, monitor, surfaces, positions, stockConfigs, pollInterval, curveExportDir)
	hedgeWorker := eventconsumers.NewDeltaHedgeWorker(&wg, surfaces, positions, gateway, journal, monitor, isDryRun, hedgeDeadband, hedgeRestDuration)

	monitor.Start(ctx)
	cycleWorker.Start(ctx)
	hedgeWorker.Start(ctx)

	// Setup router
	router := mux.NewRouter()
	statusapi.SetupHandler(router.PathPrefix("/status").Subrouter(), surfaces, positions)

	srv := &http.Server{
		Handler: router,
		Addr:    fmt.Sprintf(":%s", port),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		log.Infof("listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	signal.Notify(stop, syscall.SIGTERM)

	log.Info("Main: init complete")

	<-stop

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server shutdown: %v", err)
	}

	wg.Wait()

	log.Info("Main: gracefully stopped!")
}

func main() {
	rootCmd.PersistentFlags().String("stocks-config", "stocks.json", "Path to the per-ticker scan configuration")
	rootCmd.PersistentFlags().String("sizing-config", "sizing.yaml", "Path to the optional order sizing configuration")
	rootCmd.PersistentFlags().String("curve-export-dir", "", "Directory for fitted curve CSV exports (disabled when empty)")

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
