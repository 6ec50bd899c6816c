package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/capital-stats/percapita/internal/interpolate"
	"github.com/capital-stats/percapita/internal/model"
	"github.com/capital-stats/percapita/internal/output"
	"github.com/capital-stats/percapita/internal/percapita"
	"github.com/capital-stats/percapita/internal/store"
)

const defaultRunLimit = 20

type ratesResponse struct {
	RunID   string          `json:"run_id,omitempty"`
	Regions []output.Record `json:"regions"`
}

type estimateResponse struct {
	Region    string             `json:"region"`
	Name      string             `json:"name,omitempty"`
	Estimates []output.YearValue `json:"estimates"`
}

func (s *Server) listRates(w http.ResponseWriter, r *http.Request) {
	d := s.dataset()
	if d == nil || d.Rates == nil {
		respondError(w, http.StatusServiceUnavailable, "no rates computed")
		return
	}
	respondJSON(w, http.StatusOK, ratesResponse{
		RunID:   d.RunID,
		Regions: output.Records(d.Rates, d.Names),
	})
}

func (s *Server) getRates(w http.ResponseWriter, r *http.Request) {
	d := s.dataset()
	if d == nil || d.Rates == nil {
		respondError(w, http.StatusServiceUnavailable, "no rates computed")
		return
	}

	region := chi.URLParam(r, "region")
	row, ok := d.Rates.Row(region)
	if !ok {
		respondError(w, http.StatusNotFound, "unknown region "+region)
		return
	}

	single := model.NewRegionTable()
	single.Put(region, row)
	respondJSON(w, http.StatusOK, output.Records(single, d.Names)[0])
}

// getPopulation evaluates a region's interpolant at every ?year= value.
func (s *Server) getPopulation(w http.ResponseWriter, r *http.Request) {
	d := s.dataset()
	region := chi.URLParam(r, "region")
	if d == nil {
		respondError(w, http.StatusServiceUnavailable, "no population loaded")
		return
	}
	raw, ok := d.Population[region]
	if !ok {
		respondError(w, http.StatusNotFound, "unknown region "+region)
		return
	}

	params := r.URL.Query()["year"]
	if len(params) == 0 {
		respondError(w, http.StatusBadRequest, "at least one year is required")
		return
	}
	years := make([]int, len(params))
	for i, p := range params {
		y, err := strconv.Atoi(p)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid year "+strconv.Quote(p))
			return
		}
		years[i] = y
	}

	interp, err := percapita.Interpolant(raw, d.MinYear, d.MaxYear)
	if err != nil {
		respondEstimateError(w, region, err)
		return
	}
	values, err := interp.EvalAll(years)
	if err != nil {
		respondEstimateError(w, region, err)
		return
	}

	resp := estimateResponse{Region: region, Name: d.Names[region]}
	for i, y := range years {
		resp.Estimates = append(resp.Estimates, output.YearValue{Year: y, Value: values[i]})
	}
	respondJSON(w, http.StatusOK, resp)
}

func respondEstimateError(w http.ResponseWriter, region string, err error) {
	var domain *interpolate.DomainError
	switch {
	case errors.As(err, &domain):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, interpolate.ErrInsufficientData):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		zap.L().Warn("estimate failed",
			zap.String("component", "api"),
			zap.String("region", region),
			zap.Error(err),
		)
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	}
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	filter := store.RunFilter{
		Status: model.RunStatus(r.URL.Query().Get("status")),
		Limit:  defaultRunLimit,
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "invalid limit "+strconv.Quote(v))
			return
		}
		filter.Limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("list runs failed", zap.String("component", "api"), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "list runs failed")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	respondJSON(w, http.StatusOK, runs)
}
