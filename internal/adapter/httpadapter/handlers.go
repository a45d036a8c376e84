package httpadapter

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/couchcryptid/county-aqi-risk/internal/dashboard"
	"github.com/couchcryptid/county-aqi-risk/internal/domain"
)

const (
	defaultSnapshotLimit = 20
	maxSnapshotLimit     = 200
)

type doubleJeopardyResponse struct {
	Params           dashboard.Params      `json:"params"`
	ChronicThreshold *float64              `json:"chronic_threshold"`
	AcuteThreshold   *float64              `json:"acute_threshold"`
	Counties         []domain.RankedCounty `json:"counties"`
}

type statesResponse struct {
	Scope  domain.Scope `json:"scope"`
	States []string     `json:"states"`
}

type heatmapResponse struct {
	Scope     domain.Scope       `json:"scope"`
	Available bool               `json:"available"`
	States    []domain.StateHeat `json:"states"`
}

type snapshotResponse struct {
	ID       uuid.UUID                 `json:"id"`
	Counties []domain.ClassifiedCounty `json:"counties"`
}

type reloadResponse struct {
	Origin   dashboard.Origin `json:"origin"`
	Version  uuid.UUID        `json:"version"`
	Counties int              `json:"counties"`
	LoadedAt time.Time        `json:"loaded_at"`
}

func (s *Server) view(w http.ResponseWriter, r *http.Request, q url.Values) (dashboard.View, bool) {
	p, err := dashboard.ParamsFromQuery(q, s.svc.Defaults())
	if err != nil {
		s.writeError(w, r, err)
		return dashboard.View{}, false
	}
	v, err := s.svc.View(r.Context(), p)
	if err != nil {
		s.writeError(w, r, err)
		return dashboard.View{}, false
	}
	return v, true
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r, r.URL.Query())
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, v)
}

// handleDoubleJeopardy accepts k as an alias for dj_k.
func (s *Server) handleDoubleJeopardy(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if k := q.Get("k"); k != "" && q.Get("dj_k") == "" {
		q.Set("dj_k", k)
	}
	v, ok := s.view(w, r, q)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, doubleJeopardyResponse{
		Params:           v.Params,
		ChronicThreshold: v.KPIs.ChronicThreshold,
		AcuteThreshold:   v.KPIs.AcuteThreshold,
		Counties:         v.DoubleJeopardy,
	})
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r, r.URL.Query())
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, statesResponse{Scope: v.Params.Scope, States: v.States})
}

// handleHeatmap reports available=false for summary datasets, which carry no
// anomaly-day counts.
func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r, r.URL.Query())
	if !ok {
		return
	}
	states := v.Heatmap
	if states == nil {
		states = []domain.StateHeat{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, heatmapResponse{
		Scope:     v.Params.Scope,
		Available: v.Heatmap != nil,
		States:    states,
	})
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeMessage(w, http.StatusNotFound, "snapshot archive is not enabled")
		return
	}

	limit := defaultSnapshotLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeMessage(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxSnapshotLimit)
	}

	records, err := s.archive.ListSnapshots(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, records)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.archive == nil {
		writeMessage(w, http.StatusNotFound, "snapshot archive is not enabled")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "invalid snapshot id")
		return
	}

	counties, err := s.archive.SnapshotCounties(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, snapshotResponse{ID: id, Counties: counties})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	ds, err := s.svc.Reload(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, reloadResponse{
		Origin:   ds.Origin,
		Version:  ds.Version,
		Counties: len(ds.Counties),
		LoadedAt: ds.LoadedAt,
	})
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, dashboard.ErrInvalidParams):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, dashboard.ErrSnapshotNotFound):
		writeMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, dashboard.ErrNoLoader):
		writeMessage(w, http.StatusConflict, err.Error())
	case errors.Is(err, dashboard.ErrNoDataset):
		writeMessage(w, http.StatusServiceUnavailable, err.Error())
	default:
		s.logger.Error("request failed", "path", r.URL.Path, "error", err)
		writeMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}
