package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"doubleordie/auth"
	"doubleordie/db"
	"doubleordie/service"
)

func newTestServer(t *testing.T) (*httptest.Server, *auth.JWTVerifier) {
	t.Helper()

	store := db.NewMemoryStore()
	err := store.ActivateSeason(context.Background(), &db.SeasonRecord{
		ID:       "season-1",
		Name:     "Season 1",
		StartsAt: time.Now().Add(-time.Hour),
		EndsAt:   time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("ActivateSeason failed: %v", err)
	}

	verifier := auth.NewJWTVerifier("api-secret", "authenticated")
	svc := service.New(store, nil, verifier)
	ts := httptest.NewServer(NewRouter(NewServer(svc, "*")))
	t.Cleanup(ts.Close)
	return ts, verifier
}

func bearerFor(t *testing.T, v *auth.JWTVerifier, userID string) string {
	t.Helper()
	token, err := v.IssueToken(userID, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}
	return "Bearer " + token
}

func doRequest(t *testing.T, method, url, authorization, body string) (*http.Response, map[string]interface{}) {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	var decoded map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestStartAndSubmitRun(t *testing.T) {
	ts, verifier := newTestServer(t)
	bearer := bearerFor(t, verifier, "u1")

	resp, started := doRequest(t, http.MethodPost, ts.URL+"/api/runs/start", bearer, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", resp.StatusCode, started)
	}
	token, _ := started["run_token"].(string)
	if token == "" || started["season_id"] != "season-1" || started["expires_at"] == nil {
		t.Fatalf("Unexpected start response: %v", started)
	}

	body := `{"run_token":"` + token + `","final_score":8,"doubles":3,"duration_ms":900,"digest":"{\"v\":1}"}`

	t.Run("Accepted", func(t *testing.T) {
		resp, submitted := doRequest(t, http.MethodPost, ts.URL+"/api/runs/submit", bearer, body)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %v", resp.StatusCode, submitted)
		}
		if submitted["accepted"] != true || submitted["new_best"] != true || submitted["crown_stolen"] != true {
			t.Errorf("Unexpected submit response: %v", submitted)
		}
	})

	t.Run("Reused", func(t *testing.T) {
		resp, submitted := doRequest(t, http.MethodPost, ts.URL+"/api/runs/submit", bearer, body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", resp.StatusCode)
		}
		if submitted["accepted"] != false || submitted["error"] != "Invalid or used run token." {
			t.Errorf("Unexpected reuse response: %v", submitted)
		}
	})

	t.Run("Leaderboard", func(t *testing.T) {
		resp, board := doRequest(t, http.MethodGet, ts.URL+"/api/leaderboard", "", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("Expected 200, got %d", resp.StatusCode)
		}
		if resp.Header.Get("Cache-Control") != "public, max-age=15, s-maxage=30" {
			t.Errorf("Unexpected Cache-Control: %q", resp.Header.Get("Cache-Control"))
		}
		entries, _ := board["leaderboard"].([]interface{})
		if len(entries) != 1 || board["player_rank"] != nil {
			t.Errorf("Unexpected public board: %v", board)
		}
		crown, _ := board["crown"].(map[string]interface{})
		if crown == nil || crown["score"] != float64(8) {
			t.Errorf("Unexpected crown: %v", board["crown"])
		}
	})

	t.Run("LeaderboardWithRank", func(t *testing.T) {
		_, board := doRequest(t, http.MethodGet, ts.URL+"/api/leaderboard", bearer, "")
		rank, _ := board["player_rank"].(map[string]interface{})
		if rank == nil || rank["rank"] != float64(1) || rank["score"] != float64(8) {
			t.Errorf("Unexpected player_rank: %v", board["player_rank"])
		}
	})
}

func TestSubmitRunRejections(t *testing.T) {
	ts, verifier := newTestServer(t)
	bearer := bearerFor(t, verifier, "u1")

	cases := []struct {
		name          string
		authorization string
		body          string
		status        int
		message       string
	}{
		{"NoAuth", "", `{}`, http.StatusUnauthorized, "Missing Authorization header."},
		{"BadAuth", "Bearer nope", `{}`, http.StatusUnauthorized, "Invalid auth token."},
		{"Malformed", bearer, `{"run_token":`, http.StatusBadRequest, "Invalid request body."},
		{"NonInteger", bearer, `{"run_token":"t","final_score":8.5,"doubles":3,"duration_ms":900,"digest":"d"}`, http.StatusBadRequest, "Invalid request body."},
		{"QuotedMetrics", bearer, `{"run_token":"t","final_score":"8","doubles":"3","duration_ms":"900","digest":"d"}`, http.StatusBadRequest, "Invalid request body."},
		{"ScoreLaw", bearer, `{"run_token":"t","final_score":3,"doubles":1,"duration_ms":900,"digest":"d"}`, http.StatusBadRequest, "Score does not match doubles."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, decoded := doRequest(t, http.MethodPost, ts.URL+"/api/runs/submit", tc.authorization, tc.body)
			if resp.StatusCode != tc.status {
				t.Errorf("Expected %d, got %d", tc.status, resp.StatusCode)
			}
			if decoded["accepted"] != false || decoded["error"] != tc.message {
				t.Errorf("Unexpected body: %v", decoded)
			}
		})
	}
}

func TestStartRunUnauthenticated(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, decoded := doRequest(t, http.MethodPost, ts.URL+"/api/runs/start", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}
	if decoded["error"] != "Missing Authorization header." {
		t.Errorf("Unexpected body: %v", decoded)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := doRequest(t, http.MethodOptions, ts.URL+"/api/runs/submit", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Missing CORS header: %v", resp.Header)
	}
	if !strings.Contains(resp.Header.Get("Access-Control-Allow-Headers"), "authorization") {
		t.Errorf("Authorization not allowed: %q", resp.Header.Get("Access-Control-Allow-Headers"))
	}
}

func TestProfileEndpoints(t *testing.T) {
	ts, verifier := newTestServer(t)
	alice := bearerFor(t, verifier, "u1")
	bob := bearerFor(t, verifier, "u2")

	resp, decoded := doRequest(t, http.MethodGet, ts.URL+"/api/profile", alice, "")
	if resp.StatusCode != http.StatusOK || decoded["profile"] != nil {
		t.Fatalf("Expected empty profile, got %d %v", resp.StatusCode, decoded)
	}

	resp, decoded = doRequest(t, http.MethodPut, ts.URL+"/api/profile", alice, `{"username":"alice","theme":"light"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", resp.StatusCode, decoded)
	}

	resp, decoded = doRequest(t, http.MethodPut, ts.URL+"/api/profile", bob, `{"username":"alice"}`)
	if resp.StatusCode != http.StatusConflict || decoded["error"] != "That username is already taken." {
		t.Errorf("Expected 409 conflict, got %d %v", resp.StatusCode, decoded)
	}

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/api/profile", "", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", resp.StatusCode)
	}
}

func TestReadEndpoints(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, decoded := doRequest(t, http.MethodGet, ts.URL+"/api/season", "", "")
	season, _ := decoded["season"].(map[string]interface{})
	if resp.StatusCode != http.StatusOK || season == nil || season["id"] != "season-1" {
		t.Errorf("Unexpected season response: %d %v", resp.StatusCode, decoded)
	}

	resp, decoded = doRequest(t, http.MethodGet, ts.URL+"/api/social?limit=5", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if events, ok := decoded["events"].([]interface{}); !ok || len(events) != 0 {
		t.Errorf("Expected empty feed, got %v", decoded)
	}

	resp, _ = doRequest(t, http.MethodGet, ts.URL+"/api/social?limit=abc", "", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}

	resp, decoded = doRequest(t, http.MethodGet, ts.URL+"/api/health", "", "")
	if resp.StatusCode != http.StatusOK || decoded["store"] != "ok" {
		t.Errorf("Unexpected health response: %d %v", resp.StatusCode, decoded)
	}

	resp, _ = doRequest(t, http.MethodDelete, ts.URL+"/api/leaderboard", "", "")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", resp.StatusCode)
	}
}

func TestVerifyRunEndpoint(t *testing.T) {
	ts, verifier := newTestServer(t)
	bearer := bearerFor(t, verifier, "u1")

	_, started := doRequest(t, http.MethodPost, ts.URL+"/api/runs/start", bearer, "")
	token, _ := started["run_token"].(string)
	body := `{"run_token":"` + token + `","final_score":4,"doubles":2,"duration_ms":600,"digest":"{\"v\":1}"}`
	_, submitted := doRequest(t, http.MethodPost, ts.URL+"/api/runs/submit", bearer, body)
	runID, _ := submitted["run_id"].(string)
	if runID == "" {
		t.Fatalf("Expected run_id, got %v", submitted)
	}

	resp, audit := doRequest(t, http.MethodGet, ts.URL+"/api/runs/"+runID+"/verify", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %v", resp.StatusCode, audit)
	}
	if audit["valid"] != true || audit["hash_matches"] != true || audit["score"] != float64(4) {
		t.Errorf("Unexpected audit: %v", audit)
	}

	resp, missing := doRequest(t, http.MethodGet, ts.URL+"/api/runs/unknown/verify", "", "")
	if resp.StatusCode != http.StatusNotFound || missing["error"] != "Run not found." {
		t.Errorf("Expected 404, got %d: %v", resp.StatusCode, missing)
	}
}

type countingVerifier struct {
	*auth.JWTVerifier
	calls atomic.Int32
}

func (v *countingVerifier) ResolveUser(ctx context.Context, authorization string) (string, error) {
	v.calls.Add(1)
	return v.JWTVerifier.ResolveUser(ctx, authorization)
}

func TestSubmitRunResolvesCallerOnce(t *testing.T) {
	store := db.NewMemoryStore()
	err := store.ActivateSeason(context.Background(), &db.SeasonRecord{
		ID:       "season-1",
		Name:     "Season 1",
		StartsAt: time.Now().Add(-time.Hour),
		EndsAt:   time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("ActivateSeason failed: %v", err)
	}

	verifier := &countingVerifier{JWTVerifier: auth.NewJWTVerifier("api-secret", "authenticated")}
	ts := httptest.NewServer(NewRouter(NewServer(service.New(store, nil, verifier), "*")))
	t.Cleanup(ts.Close)

	bearer := bearerFor(t, verifier.JWTVerifier, "u1")
	_, started := doRequest(t, http.MethodPost, ts.URL+"/api/runs/start", bearer, "")
	token, _ := started["run_token"].(string)

	before := verifier.calls.Load()
	body := `{"run_token":"` + token + `","final_score":2,"doubles":1,"duration_ms":300,"digest":"{\"v\":1}"}`
	resp, submitted := doRequest(t, http.MethodPost, ts.URL+"/api/runs/submit", bearer, body)
	if resp.StatusCode != http.StatusOK || submitted["accepted"] != true {
		t.Fatalf("Expected accepted run, got %d: %v", resp.StatusCode, submitted)
	}
	if calls := verifier.calls.Load() - before; calls != 1 {
		t.Errorf("Expected one credential check per submit, got %d", calls)
	}
}

func TestErrorResponsesCarryCORS(t *testing.T) {
	ts, _ := newTestServer(t)

	cases := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"MethodNotAllowed", http.MethodGet, "/api/runs/submit", http.StatusMethodNotAllowed},
		{"NotFound", http.MethodGet, "/api/nowhere", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, decoded := doRequest(t, tc.method, ts.URL+tc.path, "", "")
			if resp.StatusCode != tc.status {
				t.Errorf("Expected %d, got %d", tc.status, resp.StatusCode)
			}
			if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("Expected CORS origin header, got %q", got)
			}
			if decoded["success"] != false || decoded["error"] == nil {
				t.Errorf("Unexpected body: %v", decoded)
			}
		})
	}
}
