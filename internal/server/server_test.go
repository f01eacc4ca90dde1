package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"nse_tracker/internal/models"
	"nse_tracker/internal/storage"
	"nse_tracker/internal/tracker"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubQuoter map[string]decimal.Decimal

func (s stubQuoter) Quote(ctx context.Context, symbol string) models.Quote {
	if p, ok := s[symbol]; ok {
		return models.Quote{Symbol: symbol + ".NS", Price: p, Available: true}
	}
	return models.UnavailableQuote(symbol + ".NS")
}

type stubSymbols []string

func (s stubSymbols) Symbols(ctx context.Context) []string { return s }
func (s stubSymbols) Search(ctx context.Context, query string, limit int) []string {
	var out []string
	for _, sym := range s {
		if strings.HasPrefix(sym, strings.ToUpper(query)) && len(out) < limit {
			out = append(out, sym)
		}
	}
	return out
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	quotes := stubQuoter{
		"RELIANCE": decimal.NewFromInt(110),
		"TCS":      decimal.NewFromInt(95),
	}
	symbols := stubSymbols{"INFY", "RELIANCE", "TCS"}
	tr := tracker.New(quotes, symbols, storage.NewSessions(), tracker.Options{CurrencySymbol: "₹"})
	return New(Config{Addr: ":0", Tracker: tr, Version: "test"})
}

func do(t *testing.T, h http.Handler, req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func sessionCookieFrom(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/health", nil), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "test", body["version"])
}

func TestDashboard_EmptySession(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/", nil), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No positions added yet.")
	assert.Contains(t, rec.Body.String(), `<option value="RELIANCE">`)
	assert.Equal(t, sessionCookie, sessionCookieFrom(t, rec).Name)
}

func TestAPI_AddAndList(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	body := `{"symbol":"reliance","side":"LONG","quantity":10,"entry_price":100,"stop_loss":95,"target_price":120}`
	req := httptest.NewRequest(http.MethodPost, "/api/positions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := do(t, h, req, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cookie := sessionCookieFrom(t, rec)

	var added models.Position
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&added))
	assert.Equal(t, "RELIANCE", added.Symbol)

	body = `{"symbol":"TCS","side":"short","quantity":5,"entry_price":"100","stop_loss":"105","target_price":"90"}`
	req = httptest.NewRequest(http.MethodPost, "/api/positions", strings.NewReader(body))
	rec = do(t, h, req, cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/positions", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Positions []models.ValuedPosition `json:"positions"`
		Summary   models.Summary          `json:"summary"`
		Formatted map[string]string       `json:"formatted"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Positions, 2)

	// LONG: (110-100)*10 = 100, SHORT: (100-95)*5 = 25
	assert.True(t, resp.Summary.TotalPL.Equal(decimal.NewFromInt(125)), resp.Summary.TotalPL.String())
	// 5*10 + 5*5
	assert.True(t, resp.Summary.TotalRisk.Equal(decimal.NewFromInt(75)), resp.Summary.TotalRisk.String())
	// 20*10 + 10*5
	assert.True(t, resp.Summary.TotalTargetProfit.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, "₹125.00", resp.Formatted["total_pl"])
}

func TestAPI_RejectsInvalidPosition(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	cases := []string{
		`{"symbol":"  ","side":"LONG","quantity":1,"entry_price":1,"stop_loss":1,"target_price":1}`,
		`{"symbol":"TCS","side":"HOLD","quantity":1,"entry_price":1,"stop_loss":1,"target_price":1}`,
		`{"symbol":"TCS","side":"LONG","quantity":0,"entry_price":1,"stop_loss":1,"target_price":1}`,
		`not json`,
	}
	for _, c := range cases {
		rec := do(t, h, httptest.NewRequest(http.MethodPost, "/api/positions", strings.NewReader(c)), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, c)

		var body map[string]string
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.NotEmpty(t, body["error"])
	}
}

func TestAPI_UnavailablePriceCountsAsZero(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	body := `{"symbol":"INFY","side":"LONG","quantity":2,"entry_price":50,"stop_loss":40,"target_price":60}`
	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/api/positions", strings.NewReader(body)), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookie := sessionCookieFrom(t, rec)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "n/a")
	assert.Contains(t, rec.Body.String(), "Price unavailable for: INFY")
	// (0-50)*2
	assert.Contains(t, rec.Body.String(), "₹-100.00")
}

func TestForm_SubmitRedirectsAndRenders(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	form := url.Values{
		"symbol":       {"RELIANCE"},
		"side":         {"LONG"},
		"quantity":     {"10"},
		"entry_price":  {"100"},
		"stop_loss":    {"95"},
		"target_price": {"120"},
	}
	req := httptest.NewRequest(http.MethodPost, "/positions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(t, h, req, nil)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookie := sessionCookieFrom(t, rec)

	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	page := rec.Body.String()
	assert.NotContains(t, page, "No positions added yet.")
	assert.Contains(t, page, "<td>RELIANCE</td>")
	assert.Contains(t, page, "₹100.00")
	assert.Regexp(t, `Updated \d{2} \w{3} \d{4} \d{2}:\d{2}:\d{2} IST`, page)
}

func TestAPI_RejectsOutOfRangePrice(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	for _, body := range []string{
		`{"symbol":"TCS","side":"LONG","quantity":1,"entry_price":"1e400000000","stop_loss":1,"target_price":1}`,
		`{"symbol":"TCS","side":"LONG","quantity":1,"entry_price":1,"stop_loss":1e-400000000,"target_price":1}`,
	} {
		rec := do(t, h, httptest.NewRequest(http.MethodPost, "/api/positions", strings.NewReader(body)), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Contains(t, rec.Body.String(), "price out of range")
	}

	form := url.Values{
		"symbol": {"TCS"}, "side": {"LONG"}, "quantity": {"1"},
		"entry_price": {"1e400000000"}, "stop_loss": {"1"}, "target_price": {"1"},
	}
	req := httptest.NewRequest(http.MethodPost, "/positions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(t, h, req, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "price out of range")
}

func TestForm_InvalidQuantityShowsError(t *testing.T) {
	s := newTestServer(t)

	form := url.Values{
		"symbol":       {"TCS"},
		"side":         {"LONG"},
		"quantity":     {"1.5"},
		"entry_price":  {"100"},
		"stop_loss":    {"95"},
		"target_price": {"120"},
	}
	req := httptest.NewRequest(http.MethodPost, "/positions", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := do(t, s.Handler(), req, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "quantity must be a whole number")
	assert.Contains(t, rec.Body.String(), "No positions added yet.")
}

func TestSymbolsSearch(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s.Handler(), httptest.NewRequest(http.MethodGet, "/api/symbols?q=re", nil), nil)

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Symbols []string `json:"symbols"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, []string{"RELIANCE"}, body.Symbols)
}

func TestEndSession_DiscardsPositions(t *testing.T) {
	s := newTestServer(t)
	h := s.Handler()

	body := `{"symbol":"TCS","side":"LONG","quantity":1,"entry_price":90,"stop_loss":80,"target_price":100}`
	rec := do(t, h, httptest.NewRequest(http.MethodPost, "/api/positions", strings.NewReader(body)), nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	cookie := sessionCookieFrom(t, rec)

	rec = do(t, h, httptest.NewRequest(http.MethodDelete, "/api/session", nil), cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, s.tracker.Sessions().Count())

	// The old cookie now maps to a fresh, empty session
	rec = do(t, h, httptest.NewRequest(http.MethodGet, "/api/positions", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEqual(t, cookie.Value, sessionCookieFrom(t, rec).Value)

	var resp struct {
		Positions []models.ValuedPosition `json:"positions"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Empty(t, resp.Positions)
}
