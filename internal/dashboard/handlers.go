package dashboard

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"StockLens/internal/catalog"
	"StockLens/internal/export"
	"StockLens/internal/recorder"
	"StockLens/internal/stock"
)

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg, RequestID: RequestID(r.Context())})
}

func (s *Server) today() time.Time {
	return s.opts.Now().In(s.opts.Location)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"cached":    len(s.registry.Symbols()),
		"timestamp": s.opts.Now().Unix(),
	})
}

func (s *Server) handleTickers(w http.ResponseWriter, r *http.Request) {
	entries := []catalog.Entry{}
	if s.catalog != nil {
		entries = s.catalog.Tickers()
	}
	writeJSON(w, http.StatusOK, map[string]any{"tickers": entries})
}

func (s *Server) symbols(r *http.Request) (ticker, symbol string) {
	symbol = stock.ProviderSymbol(mux.Vars(r)["ticker"], s.opts.SymbolSuffix)
	return stock.BareTicker(symbol, s.opts.SymbolSuffix), symbol
}

// title prefers the catalogue name, then the provider's long name.
func (s *Server) title(ticker string, st *stock.Stock) string {
	if s.catalog != nil {
		if name, ok := s.catalog.Name(ticker); ok {
			return name
		}
	}
	if st.Profile.LongName != nil {
		return *st.Profile.LongName
	}
	return ticker
}

func (s *Server) handleStock(w http.ResponseWriter, r *http.Request) {
	ticker, symbol := s.symbols(r)
	log := s.logger.WithFields(logrus.Fields{"symbol": symbol, "request_id": RequestID(r.Context())})

	req, err := parseViewRequest(r.URL.Query(), s.opts.DefaultStart, s.today())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	st, err := s.registry.Get(r.Context(), symbol)
	if err != nil {
		log.WithError(err).Error("load stock")
		writeError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	panel := st.GrowthPanel()
	if err := recorder.RecordGrowthPanel(s.recorder, symbol, panel, s.opts.Now()); err != nil {
		log.WithError(err).Warn("record growth panel")
	}

	view, err := buildView(ticker, s.title(ticker, st), st, req, panel)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	for _, warning := range view.Warnings {
		log.Warn(warning)
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCSV(w http.ResponseWriter, r *http.Request) {
	ticker, symbol := s.symbols(r)

	req, err := parseViewRequest(r.URL.Query(), s.opts.DefaultStart, s.today())
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	st, err := s.registry.Get(r.Context(), symbol)
	if err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Error("load stock")
		writeError(w, r, http.StatusBadGateway, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(ticker)+`"`)
	if err := export.WriteCSV(w, st.Range(req.Start, req.End), req.Columns); err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Error("write csv")
	}
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ticker, symbol := s.symbols(r)
	st, err := s.registry.Refresh(r.Context(), symbol)
	if err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Error("refresh stock")
		writeError(w, r, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ticker":     ticker,
		"symbol":     symbol,
		"rows":       st.Data().Len(),
		"fetched_at": st.FetchedAt,
	})
}

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 1000
)

// handleGrowthHistory lists recorded growth readings, newest first. It never
// contacts the provider.
func (s *Server) handleGrowthHistory(w http.ResponseWriter, r *http.Request) {
	ticker, symbol := s.symbols(r)

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeError(w, r, http.StatusBadRequest, "limit: expected an integer between 1 and 1000")
			return
		}
		limit = n
	}

	readings, err := s.recorder.GrowthHistory(symbol, limit)
	if err != nil {
		s.logger.WithError(err).WithField("symbol", symbol).Error("growth history")
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	if readings == nil {
		readings = []recorder.GrowthReading{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ticker":   ticker,
		"symbol":   symbol,
		"readings": readings,
	})
}
