package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/coursex/coursex-backend/internal/etl/testutil"
	"github.com/coursex/coursex-backend/internal/repos"
	"github.com/coursex/coursex-backend/internal/types"
)

func setupRouter(t *testing.T) (*gin.Engine, repos.EtlRunRepo) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.DB(t)
	repo := repos.NewEtlRunRepo(db, testutil.Logger(t))
	h := NewEtlRunHandler(repo, testutil.Logger(t))

	router := gin.New()
	router.GET("/healthz", HealthCheck)
	router.GET("/api/etl/runs", h.ListRuns)
	router.GET("/api/etl/runs/:id", h.GetRun)
	return router, repo
}

func TestHealthz(t *testing.T) {
	router, _ := setupRouter(t)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", w.Code, w.Body.String())
	}
}

func TestListRuns(t *testing.T) {
	router, repo := setupRouter(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := repo.Start(ctx, 20261); err != nil {
			t.Fatalf("seed run: %v", err)
		}
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/etl/runs?limit=2", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	var payload struct {
		Runs []types.EtlRun `json:"runs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(payload.Runs))
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/etl/runs?limit=bogus", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", w.Code)
	}
}

func TestGetRun(t *testing.T) {
	router, repo := setupRouter(t)

	run, err := repo.Start(context.Background(), 20261)
	if err != nil {
		t.Fatalf("seed run: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/etl/runs/"+run.RunID.String(), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
	}
	var got types.EtlRun
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.RunID != run.RunID || got.Status != types.EtlRunStatusFailure {
		t.Fatalf("unexpected run %+v", got)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/etl/runs/not-a-uuid", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/etl/runs/00000000-0000-0000-0000-000000000001", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown id, got %d", w.Code)
	}
}
