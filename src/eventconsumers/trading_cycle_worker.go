package eventconsumers

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"github.com/jiaming2012/option-arb/src/eventmodels"
	"github.com/jiaming2012/option-arb/src/eventpubsub"
	"github.com/jiaming2012/option-arb/src/eventservices"
	"github.com/jiaming2012/option-arb/src/surface"
	"github.com/jiaming2012/option-arb/src/utils"
)

const (
	strikeBandStdevs = 1.25
	rateRefreshAge   = time.Hour
	maxSnapshotAge   = time.Minute
)

// TradingCycleWorker drives the scan loop: for every configured ticker it
// pulls a chain, fits the vol surface, detects mispricings and hands the
// signals to the decision engine. One worker covers the whole watch list.
type TradingCycleWorker struct {
	wg        *sync.WaitGroup
	gateway   *eventservices.TradierGateway
	rates     *eventservices.FredRateSource
	dividends *eventservices.PolygonDividendSource
	engine    *TradeDecisionEngine
	monitor   *TradierOrdersMonitoringWorker
	surfaces  *SurfaceStore
	positions *PositionStore
	configs   []*eventmodels.StockConfig

	pollInterval   time.Duration
	curveExportDir string

	rateMu        sync.Mutex
	cachedRate    float64
	rateFetchedAt time.Time
}

func NewTradingCycleWorker(wg *sync.WaitGroup, gateway *eventservices.TradierGateway, rates *eventservices.FredRateSource, dividends *eventservices.PolygonDividendSource, engine *TradeDecisionEngine, monitor *TradierOrdersMonitoringWorker, surfaces *SurfaceStore, positions *PositionStore, configs []*eventmodels.StockConfig, pollInterval time.Duration, curveExportDir string) *TradingCycleWorker {
	return &TradingCycleWorker{
		wg:             wg,
		gateway:        gateway,
		rates:          rates,
		dividends:      dividends,
		engine:         engine,
		monitor:        monitor,
		surfaces:       surfaces,
		positions:      positions,
		configs:        configs,
		pollInterval:   pollInterval,
		curveExportDir: curveExportDir,
	}
}

// riskFreeRate returns a cached SOFR print, refreshing it at most hourly.
func (w *TradingCycleWorker) riskFreeRate(ctx context.Context) (float64, error) {
	w.rateMu.Lock()
	defer w.rateMu.Unlock()

	if !w.rateFetchedAt.IsZero() && time.Since(w.rateFetchedAt) < rateRefreshAge {
		return w.cachedRate, nil
	}

	rate, err := utils.RetryResult(ctx, "FetchRiskFreeRate", func() (float64, error) {
		return w.rates.FetchRiskFreeRate(ctx)
	})
	if err != nil {
		if w.rateFetchedAt.IsZero() {
			return 0, fmt.Errorf("riskFreeRate: %w", err)
		}

		log.Warnf("TradingCycleWorker: rate refresh failed, reusing %.4f: %v", w.cachedRate, err)
		return w.cachedRate, nil
	}

	w.cachedRate = rate
	w.rateFetchedAt = time.Now().UTC()

	return rate, nil
}

// refreshPosition rebuilds a ticker's book from the broker's open positions.
func (w *TradingCycleWorker) refreshPosition(ctx context.Context, symbol eventmodels.StockSymbol, now time.Time) (*eventmodels.Position, error) {
	dtos, err := utils.RetryResult(ctx, "FetchPositions", func() ([]eventmodels.TradierPositionDTO, error) {
		return w.gateway.FetchPositions(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("refreshPosition: %w", err)
	}

	position := &eventmodels.Position{Symbol: symbol, UpdatedAt: now}

	for _, dto := range dtos {
		if dto.IsOption() {
			components, err := eventmodels.NewOptionSymbolComponents(eventmodels.OptionSymbol(dto.Symbol))
			if err != nil {
				return nil, fmt.Errorf("refreshPosition: failed to parse %s: %w", dto.Symbol, err)
			}

			if components.Underlying != symbol {
				continue
			}

			position.Options = append(position.Options, eventmodels.OptionPosition{
				Symbol:   eventmodels.OptionSymbol(dto.Symbol),
				Quantity: dto.Quantity,
			})
		} else if eventmodels.NewStockSymbol(dto.Symbol) == symbol {
			position.Shares += int(dto.Quantity)
		}
	}

	w.positions.Set(symbol, position)

	return position, nil
}

func printSignalsTable(symbol eventmodels.StockSymbol, signals []*eventmodels.MispricingSignal) {
	if len(signals) == 0 {
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Contract", "Direction", "Market", "Theo", "Mispricing"})

	for _, signal := range signals {
		table.Append([]string{
			string(signal.Contract.Symbol),
			string(signal.Direction),
			strconv.FormatFloat(signal.MarketPrice, 'f', 3, 64),
			strconv.FormatFloat(signal.TheoreticalPrice, 'f', 3, 64),
			fmt.Sprintf("%.2f%%", signal.Mispricing*100),
		})
	}

	fmt.Printf("\n%s signals:\n", symbol)
	table.Render()
}

// detectionThreshold is the loosest threshold that can still produce a
// tradeable signal; the decision engine re-applies the per-direction minimums.
func detectionThreshold(config *eventmodels.StockConfig) float64 {
	threshold := config.MinOverpriced
	if config.MinUnderpriced > 0 && config.MinUnderpriced < threshold {
		threshold = config.MinUnderpriced
	}

	return threshold
}

func (w *TradingCycleWorker) runTickerCycle(ctx context.Context, config *eventmodels.StockConfig, rate float64, now time.Time) error {
	tracer := otel.GetTracerProvider().Tracer("TradingCycleWorker")
	ctx, span := tracer.Start(ctx, "runTickerCycle")
	defer span.End()

	logger := log.WithContext(ctx).WithField("symbol", config.Symbol)

	expirations, err := utils.RetryResult(ctx, "FetchOptionExpirations", func() ([]time.Time, error) {
		return w.gateway.FetchOptionExpirations(ctx, config.Symbol)
	})
	if err != nil {
		return fmt.Errorf("runTickerCycle: %w", err)
	}

	if config.DateIndex >= len(expirations) {
		return fmt.Errorf("runTickerCycle: %s: date_index %d out of range, only %d expirations", config.Symbol, config.DateIndex, len(expirations))
	}

	expiration := expirations[config.DateIndex]

	snapshot, err := utils.RetryResult(ctx, "FetchOptionChainSnapshot", func() (*eventmodels.OptionChainSnapshot, error) {
		return w.gateway.FetchOptionChainSnapshot(ctx, config.Symbol, expiration, time.Now().UTC())
	})
	if err != nil {
		return fmt.Errorf("runTickerCycle: %w", err)
	}

	if now.Sub(snapshot.ObservedAt) > maxSnapshotAge {
		logger.Warnf("runTickerCycle: snapshot is %.0fs old, discarding", now.Sub(snapshot.ObservedAt).Seconds())
		return nil
	}

	spot := snapshot.UnderlyingPrice

	position, err := w.refreshPosition(ctx, config.Symbol, now)
	if err != nil {
		return fmt.Errorf("runTickerCycle: %w", err)
	}

	dividendYield, err := w.dividends.FetchDividendYield(ctx, config.Symbol, spot, now)
	if err != nil {
		logger.Warnf("runTickerCycle: failed to fetch dividend yield, assuming 0: %v", err)
		dividendYield = 0
	}

	filtered := surface.FilterChain(snapshot, surface.ChainFilterConfig{
		MinOpenInterest: config.MinOI,
		OptionType:      config.OptionType,
	})

	filtered, err = surface.FilterStrikeBand(filtered, spot, strikeBandStdevs, false)
	if err != nil {
		return fmt.Errorf("runTickerCycle: %w", err)
	}

	fitInput := surface.FitInput{
		Snapshot:      filtered,
		Spot:          spot,
		RiskFreeRate:  rate,
		DividendYield: dividendYield,
		Now:           now,
	}

	model, err := surface.FitSurface(fitInput, config.Model)
	if err != nil {
		logger.Infof("runTickerCycle: surface fit skipped: %v", err)
		return nil
	}

	w.surfaces.Set(config.Symbol, &SurfaceContext{
		Model:         model,
		Snapshot:      filtered,
		Spot:          spot,
		RiskFreeRate:  rate,
		DividendYield: dividendYield,
		FittedAt:      now,
	})

	if w.curveExportDir != "" {
		if _, err := utils.ExportFittedCurveToCsv(filtered, model, spot, w.curveExportDir); err != nil {
			logger.Warnf("runTickerCycle: curve export failed: %v", err)
		}
	}

	signals := surface.DetectMispricings(fitInput, model, detectionThreshold(config))

	printSignalsTable(config.Symbol, signals)

	for _, signal := range signals {
		eventpubsub.Publish("TradingCycleWorker", eventpubsub.MispricingSignalEvent, signal)
	}

	order, err := w.engine.DecideAndPlace(ctx, config, signals, position, now)
	if err != nil {
		return fmt.Errorf("runTickerCycle: %w", err)
	}

	if order != nil && order.BrokerID != nil {
		w.monitor.RegisterOrder(order)
	}

	return nil
}

func (w *TradingCycleWorker) runCycle(ctx context.Context) {
	now := time.Now().UTC()

	open, err := eventmodels.IsTradingWindowOpen(now)
	if err != nil {
		log.Errorf("TradingCycleWorker: %v", err)
		return
	}

	if !open {
		log.Debug("TradingCycleWorker: market closed, skipping cycle")
		return
	}

	rate, err := w.riskFreeRate(ctx)
	if err != nil {
		log.Errorf("TradingCycleWorker: %v", err)
		return
	}

	for _, config := range w.configs {
		if err := w.runTickerCycle(ctx, config, rate, now); err != nil {
			log.Errorf("TradingCycleWorker: %v", err)
		}
	}
}

func (w *TradingCycleWorker) Start(ctx context.Context) {
	w.wg.Add(1)

	timer := time.NewTicker(w.pollInterval)

	go func() {
		defer w.wg.Done()
		for {
			select {
			case <-ctx.Done():
				log.Info("stopping TradingCycleWorker consumer")
				return
			case <-timer.C:
				w.runCycle(ctx)
			}
		}
	}()
}
