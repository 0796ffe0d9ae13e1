package rag

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
)

func testAnomaly() *anomaly.Anomaly {
	return &anomaly.Anomaly{
		Service:    "EC2",
		IssueType:  anomaly.TypeIdleResource,
		ResourceID: "i-123",
		WasteScore: 95,
		Metrics: map[string]interface{}{
			"cpu_utilization": 1.2,
			"instance_type":   "m5.xlarge",
			"state":           "running",
		},
	}
}

func newRetriever(baseURL string) *Retriever {
	return New(config.RetrievalConfig{
		BaseURL: baseURL,
		TopK:    5,
		Timeout: 2 * time.Second,
	}, logger.New(logger.Config{Level: "error", Format: "json"}))
}

func TestBuildQuery(t *testing.T) {
	q := BuildQuery(testAnomaly())

	for _, want := range []string{"EC2", "idle resource", "optimization", "cpu utilization 1.2%", "instance m5.xlarge", "running instance", "waste score 95"} {
		if !strings.Contains(q, want) {
			t.Errorf("query %q missing %q", q, want)
		}
	}
}

func TestRetrieve_FormatsMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("path = %q, want /search", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"matches":[
			{"source":"aws-docs","text":"Right-size the instance","score":0.91},
			{"source":"runbook","text":"Terminate if idle a week","score":0.84}
		]}`))
	}))
	defer srv.Close()

	got := newRetriever(srv.URL).Retrieve(context.Background(), testAnomaly())

	if !strings.Contains(got, "[Source 1: aws-docs]") || !strings.Contains(got, "Right-size the instance") {
		t.Errorf("context missing first match: %q", got)
	}
	if !strings.Contains(got, "[Source 2: runbook]") {
		t.Errorf("context missing second match: %q", got)
	}
}

func TestRetrieve_FallsBackOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	got := newRetriever(srv.URL).Retrieve(context.Background(), testAnomaly())
	if !strings.Contains(got, "EC2 optimization tips") {
		t.Errorf("want EC2 fallback guidance, got %q", got)
	}
}

func TestRetrieve_FallsBackWhenUnconfigured(t *testing.T) {
	a := testAnomaly()
	a.Service = "Lambda"

	got := newRetriever("").Retrieve(context.Background(), a)
	if !strings.Contains(got, "Well-Architected") {
		t.Errorf("want generic fallback for unknown service, got %q", got)
	}
}

func TestRetrieve_FallsBackOnEmptyMatches(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"matches":[]}`))
	}))
	defer srv.Close()

	got := newRetriever(srv.URL).Retrieve(context.Background(), testAnomaly())
	if !strings.Contains(got, "EC2 optimization tips") {
		t.Errorf("want fallback on empty matches, got %q", got)
	}
}
