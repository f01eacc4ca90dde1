package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"

	"nse_tracker/internal/models"
	"nse_tracker/internal/report"
	"nse_tracker/internal/storage"

	"github.com/shopspring/decimal"
)

const (
	sessionCookie = "nse_session"
	maxBodyBytes  = 64 << 10
)

type ctxKey struct{}

// sessionMiddleware binds each browser to a session through a cookie,
// starting a new session when the cookie is missing or stale.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessions := s.tracker.Sessions()

		var sess *storage.Session
		if c, err := r.Cookie(sessionCookie); err == nil {
			sess, _ = sessions.Lookup(c.Value)
		}
		if sess == nil {
			sess = sessions.Start()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func sessionFrom(r *http.Request) *storage.Session {
	return r.Context().Value(ctxKey{}).(*storage.Session)
}

// positionRequest is the JSON body of POST /api/positions.
type positionRequest struct {
	Symbol      string          `json:"symbol"`
	Side        string          `json:"side"`
	Quantity    int64           `json:"quantity"`
	EntryPrice  decimal.Decimal `json:"entry_price"`
	StopLoss    decimal.Decimal `json:"stop_loss"`
	TargetPrice decimal.Decimal `json:"target_price"`
}

func (p positionRequest) toPosition() (models.Position, error) {
	side, err := models.ParseSide(p.Side)
	if err != nil {
		return models.Position{}, err
	}
	return models.Position{
		Symbol:      p.Symbol,
		Side:        side,
		Quantity:    p.Quantity,
		EntryPrice:  p.EntryPrice,
		StopLoss:    p.StopLoss,
		TargetPrice: p.TargetPrice,
	}, nil
}

// reportResponse is the JSON view of a refresh.
type reportResponse struct {
	models.Report
	Formatted struct {
		TotalPL           string `json:"total_pl"`
		TotalRisk         string `json:"total_risk"`
		TotalTargetProfit string `json:"total_target_profit"`
	} `json:"formatted"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"sessions": s.tracker.Sessions().Count(),
	})
}

func (s *Server) handleListPositions(w http.ResponseWriter, r *http.Request) {
	rep := s.tracker.Refresh(r.Context(), sessionFrom(r))

	f := s.tracker.Formatter()
	resp := reportResponse{Report: rep}
	if resp.Positions == nil {
		resp.Positions = []models.ValuedPosition{}
	}
	resp.Formatted.TotalPL = f.Money(rep.Summary.TotalPL)
	resp.Formatted.TotalRisk = f.Money(rep.Summary.TotalRisk)
	resp.Formatted.TotalTargetProfit = f.Money(rep.Summary.TotalTargetProfit)

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddPosition(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req positionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON body: %v", err))
		return
	}

	p, err := req.toPosition()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	added, err := s.tracker.AddPosition(sessionFrom(r), p)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	results := s.tracker.Symbols().Search(r.Context(), r.URL.Query().Get("q"), limit)
	if results == nil {
		results = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbols": results})
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	s.tracker.Sessions().End(sessionFrom(r).ID)
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// dashboardData feeds the HTML template.
type dashboardData struct {
	Version      string
	Error        string
	Symbols      []string
	Rows         []report.Row
	Missing      []string
	TotalPL      string
	TotalRisk    string
	TotalTarget  string
	PLNegative   bool
	HasPositions bool
	UpdatedAt    string
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	s.renderDashboard(w, r, http.StatusOK, "")
}

// handleFormSubmit accepts the dashboard form and redirects back on success.
func (s *Server) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderDashboard(w, r, http.StatusBadRequest, "Could not read form.")
		return
	}

	p, err := parseForm(r)
	if err == nil {
		_, err = s.tracker.AddPosition(sessionFrom(r), p)
	}
	if err != nil {
		s.renderDashboard(w, r, http.StatusBadRequest, err.Error())
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func parseForm(r *http.Request) (models.Position, error) {
	side, err := models.ParseSide(r.PostForm.Get("side"))
	if err != nil {
		return models.Position{}, err
	}

	qty, err := strconv.ParseInt(strings.TrimSpace(r.PostForm.Get("quantity")), 10, 64)
	if err != nil {
		return models.Position{}, errors.New("quantity must be a whole number")
	}

	prices := make([]decimal.Decimal, 3)
	for i, field := range []string{"entry_price", "stop_loss", "target_price"} {
		raw := strings.TrimSpace(r.PostForm.Get(field))
		if raw == "" {
			raw = "0"
		}
		prices[i], err = decimal.NewFromString(raw)
		if err != nil {
			return models.Position{}, fmt.Errorf("%s must be a number", strings.ReplaceAll(field, "_", " "))
		}
	}

	return models.Position{
		Symbol:      r.PostForm.Get("symbol"),
		Side:        side,
		Quantity:    qty,
		EntryPrice:  prices[0],
		StopLoss:    prices[1],
		TargetPrice: prices[2],
	}, nil
}

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request, status int, formErr string) {
	rep := s.tracker.Refresh(r.Context(), sessionFrom(r))
	f := s.tracker.Formatter()

	data := dashboardData{
		Version:      s.version,
		Error:        formErr,
		Symbols:      s.tracker.Symbols().Symbols(r.Context()),
		Rows:         f.Rows(rep.Positions),
		TotalPL:      f.Money(rep.Summary.TotalPL),
		TotalRisk:    f.Money(rep.Summary.TotalRisk),
		TotalTarget:  f.Money(rep.Summary.TotalTargetProfit),
		PLNegative:   rep.Summary.TotalPL.IsNegative(),
		HasPositions: len(rep.Positions) > 0,
		UpdatedAt:    report.Timestamp(rep.GeneratedAt),
	}
	for _, v := range rep.Positions {
		if !v.PriceAvailable {
			data.Missing = append(data.Missing, v.Symbol)
		}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.page.Execute(w, data); err != nil {
		log.Printf("ERROR: Rendering dashboard: %v", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: Encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
