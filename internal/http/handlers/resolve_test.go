package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/ontoroute/ontoroute/internal/config"
	"github.com/ontoroute/ontoroute/internal/data/repos/testutil"
	types "github.com/ontoroute/ontoroute/internal/domain"
	"github.com/ontoroute/ontoroute/internal/pkg/mapperr"
	"github.com/ontoroute/ontoroute/internal/services"
)

type fakeResolution struct {
	lastReq services.ResolveRequest
	result  *services.ResolveResult
	err     error
}

func (f *fakeResolution) Resolve(_ context.Context, req services.ResolveRequest) (*services.ResolveResult, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newResolveRouter(t *testing.T, resolution services.ResolutionService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/resolve", NewResolveHandler(testutil.Logger(t), resolution, config.Defaults()).Resolve)
	return router
}

func TestResolveHandler(t *testing.T) {
	fake := &fakeResolution{result: &services.ResolveResult{
		Mappings: map[string]*types.Outcome{
			"P12345": {Identifier: "P12345", Status: types.StatusResolved, TargetIDs: []string{"1ABC"}},
		},
		ProcessedIDs: []string{"P12345"},
	}}
	router := newResolveRouter(t, fake)

	body := `{"identifiers":["P12345"],"source_ontology":"uniprot","target_ontology":"pdb"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/resolve", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var res services.ResolveResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Mappings["P12345"] == nil || res.Mappings["P12345"].TargetIDs[0] != "1ABC" {
		t.Fatalf("unexpected body %s", w.Body.String())
	}
	if !fake.lastReq.Options.AllowReverse {
		t.Fatal("allow_reverse must default to true")
	}
}

func TestResolveHandlerBadRequest(t *testing.T) {
	router := newResolveRouter(t, &fakeResolution{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/resolve", strings.NewReader(`{"identifiers":["a"]}`))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing ontologies: status %d", w.Code)
	}
}

func TestResolveHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{mapperr.ErrInvalidArgument, http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		router := newResolveRouter(t, &fakeResolution{err: tt.err})
		w := httptest.NewRecorder()
		body := `{"identifiers":["a"],"source_ontology":"uniprot","target_ontology":"pdb"}`
		req := httptest.NewRequest(http.MethodPost, "/api/resolve", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Fatalf("%v: status %d, want %d", tt.err, w.Code, tt.want)
		}
	}
}
