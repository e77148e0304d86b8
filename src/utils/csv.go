package utils

import (
	"fmt"
	"math"
	"os"
	"path"
	"time"

	"github.com/gocarina/gocsv"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/option-arb/src/eventmodels"
)

type fittedCurveRow struct {
	Strike       float64 `csv:"strike"`
	LogMoneyness float64 `csv:"log_moneyness"`
	FittedIV     float64 `csv:"fitted_iv"`
}

// ExportFittedCurveToCsv samples the fitted surface at each strike of the
// snapshot and writes the curve to outDir for offline inspection. Existing
// files for the same underlying and expiration are overwritten.
func ExportFittedCurveToCsv(snapshot *eventmodels.OptionChainSnapshot, model eventmodels.SurfaceModel, spot float64, outDir string) (string, error) {
	if _, err := os.Stat(outDir); os.IsNotExist(err) {
		if mkErr := os.MkdirAll(outDir, 0755); mkErr != nil {
			return "", fmt.Errorf("ExportFittedCurveToCsv: failed to create %s: %w", outDir, mkErr)
		}
	}

	var rows []*fittedCurveRow
	for _, strike := range snapshot.Strikes() {
		k := math.Log(strike / spot)
		rows = append(rows, &fittedCurveRow{
			Strike:       strike,
			LogMoneyness: k,
			FittedIV:     model.Evaluate(k),
		})
	}

	outFile := path.Join(outDir, fmt.Sprintf("fitted_curve-%s-%s-%s.csv", snapshot.UnderlyingSymbol, snapshot.Expiration.Format("20060102"), time.Now().UTC().Format("150405")))

	file, err := os.Create(outFile)
	if err != nil {
		return "", fmt.Errorf("ExportFittedCurveToCsv: failed to create %s: %w", outFile, err)
	}
	defer file.Close()

	if err := gocsv.MarshalFile(&rows, file); err != nil {
		return "", fmt.Errorf("ExportFittedCurveToCsv: failed to write %s: %w", outFile, err)
	}

	log.Debugf("ExportFittedCurveToCsv: wrote %d rows to %s", len(rows), outFile)

	return outFile, nil
}
