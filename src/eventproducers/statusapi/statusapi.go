package statusapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/schema"
	log "github.com/sirupsen/logrus"

	"github.com/jiaming2012/option-arb/src/eventconsumers"
	"github.com/jiaming2012/option-arb/src/eventmodels"
)

var decoder = schema.NewDecoder()

type statusQuery struct {
	Symbol string `schema:"symbol"`
}

type surfaceStatusDTO struct {
	Symbol     string    `json:"symbol"`
	Model      string    `json:"model"`
	Residual   float64   `json:"residual"`
	Spot       float64   `json:"spot"`
	Expiration time.Time `json:"expiration"`
	FittedAt   time.Time `json:"fitted_at"`
}

type positionStatusDTO struct {
	Symbol  string              `json:"symbol"`
	Shares  int                 `json:"shares"`
	Options []optionPositionDTO `json:"options"`
}

type optionPositionDTO struct {
	Symbol   string  `json:"symbol"`
	Quantity float64 `json:"quantity"`
}

type handler struct {
	surfaces  *eventconsumers.SurfaceStore
	positions *eventconsumers.PositionStore
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Errorf("statusapi: failed to encode response: %v", err)
	}
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) querySymbols(r *http.Request) ([]eventmodels.StockSymbol, error) {
	var query statusQuery
	if err := decoder.Decode(&query, r.URL.Query()); err != nil {
		return nil, err
	}

	if query.Symbol != "" {
		return []eventmodels.StockSymbol{eventmodels.NewStockSymbol(query.Symbol)}, nil
	}

	return h.surfaces.Symbols(), nil
}

func (h *handler) fetchSurfaces(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.querySymbols(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	results := []surfaceStatusDTO{}
	for _, symbol := range symbols {
		surface, found := h.surfaces.Get(symbol)
		if !found {
			continue
		}

		results = append(results, surfaceStatusDTO{
			Symbol:     string(symbol),
			Model:      string(surface.Model.ModelType()),
			Residual:   surface.Model.FitResidual(),
			Spot:       surface.Spot,
			Expiration: surface.Snapshot.Expiration,
			FittedAt:   surface.FittedAt,
		})
	}

	writeJSON(w, http.StatusOK, results)
}

func (h *handler) fetchPositions(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.querySymbols(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	results := []positionStatusDTO{}
	for _, symbol := range symbols {
		position := h.positions.Get(symbol)

		dto := positionStatusDTO{
			Symbol:  string(symbol),
			Shares:  position.Shares,
			Options: []optionPositionDTO{},
		}

		for _, leg := range position.Options {
			dto.Options = append(dto.Options, optionPositionDTO{
				Symbol:   string(leg.Symbol),
				Quantity: leg.Quantity,
			})
		}

		results = append(results, dto)
	}

	writeJSON(w, http.StatusOK, results)
}

func SetupHandler(router *mux.Router, surfaces *eventconsumers.SurfaceStore, positions *eventconsumers.PositionStore) {
	h := &handler{
		surfaces:  surfaces,
		positions: positions,
	}

	router.HandleFunc("/health", h.health).Methods(http.MethodGet)
	router.HandleFunc("/surfaces", h.fetchSurfaces).Methods(http.MethodGet)
	router.HandleFunc("/positions", h.fetchPositions).Methods(http.MethodGet)
}
