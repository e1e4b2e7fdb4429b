package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"TickerTracker/internal/model"
)

const (
	defaultNewsLimit = 10
	maxNewsLimit     = 100
)

// HandleMarkets lists the supported segments and their tracked instruments.
func (api *API) HandleMarkets(w http.ResponseWriter, r *http.Request) {
	infos := api.Registry.Segments()
	WriteJSON(w, http.StatusOK, map[string]any{
		"markets": infos,
		"default": model.DefaultSegment,
	})
}

// ticker resolves the {segment} and {symbol} URL parameters.
func (api *API) ticker(r *http.Request) (string, model.Segment, error) {
	seg, err := api.Registry.Parse(chi.URLParam(r, "segment"))
	if err != nil {
		return "", "", err
	}
	symbol, err := api.Registry.BaseSymbol(chi.URLParam(r, "symbol"), seg)
	if err != nil {
		return "", "", err
	}
	return symbol, seg, nil
}

// HandleIndicators returns the current indicator snapshot.
func (api *API) HandleIndicators(w http.ResponseWriter, r *http.Request) {
	symbol, seg, err := api.ticker(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	snap, err := api.Engine.GetIndicators(r.Context(), symbol, seg)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"instrument": symbol,
		"segment":    seg,
		"indicators": snap,
	})
}

// HandleInsights returns the synthesized insight. Upstream failures are
// reported inside the result rather than as an error status.
func (api *API) HandleInsights(w http.ResponseWriter, r *http.Request) {
	symbol, seg, err := api.ticker(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	res, err := api.Engine.GetInsight(r.Context(), symbol, seg)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// HandleNews returns the most recent stored articles with their sentiment.
func (api *API) HandleNews(w http.ResponseWriter, r *http.Request) {
	symbol, seg, err := api.ticker(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	limit := defaultNewsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxNewsLimit)
	}
	articles, err := api.Engine.Articles.FindRecent(r.Context(), symbol, seg, limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if articles == nil {
		articles = []model.NewsArticle{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"instrument": symbol,
		"segment":    seg,
		"news":       articles,
		"count":      len(articles),
	})
}

// HandleBackfill scores every stored article that has no sentiment yet.
func (api *API) HandleBackfill(w http.ResponseWriter, r *http.Request) {
	res, err := api.Engine.RunSentimentBackfill(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// HandleRunCycle runs a full ingestion cycle and returns its report.
func (api *API) HandleRunCycle(w http.ResponseWriter, r *http.Request) {
	if api.Cycles == nil {
		WriteError(w, http.StatusServiceUnavailable, "pipeline not configured")
		return
	}
	report, err := api.Cycles.RunCycleNow(r.Context())
	if err != nil {
		if api.IsBusy != nil && api.IsBusy(err) {
			WriteError(w, http.StatusConflict, err.Error())
			return
		}
		writeErr(w, r, err)
		return
	}
	WriteJSON(w, http.StatusOK, report)
}
