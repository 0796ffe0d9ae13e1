// Package rag retrieves optimization context for anomalies from an external
// retrieval service. Retrieval is best-effort: any failure degrades to a
// built-in fallback so the recommendation stage always has some grounding.
package rag

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pratik-mahalle/costpilot/internal/config"
	"github.com/pratik-mahalle/costpilot/internal/domain/anomaly"
	"github.com/pratik-mahalle/costpilot/internal/pkg/logger"
)

// Retriever queries the retrieval service over HTTP. It implements
// remediation.ContextRetriever and never returns an error.
type Retriever struct {
	baseURL    string
	topK       int
	httpClient *http.Client
	logger     *logger.Logger
}

// New creates a retriever. An empty base URL disables remote retrieval and
// always serves the fallback context.
func New(cfg config.RetrievalConfig, log *logger.Logger) *Retriever {
	return &Retriever{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		topK:    cfg.TopK,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: log,
	}
}

type searchRequest struct {
	Query   string `json:"query"`
	TopK    int    `json:"top_k"`
	Service string `json:"service,omitempty"`
}

type searchResponse struct {
	Matches []struct {
		Source string  `json:"source"`
		Text   string  `json:"text"`
		Score  float64 `json:"score"`
	} `json:"matches"`
}

// Retrieve returns optimization context for the anomaly, falling back to
// built-in guidance when the service is unreachable or returns nothing.
func (r *Retriever) Retrieve(ctx context.Context, a *anomaly.Anomaly) string {
	if r.baseURL == "" {
		return fallbackContext(a)
	}

	body, _ := json.Marshal(searchRequest{
		Query:   BuildQuery(a),
		TopK:    r.topK,
		Service: a.Service,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		r.logger.ErrorWithErr(err, "Failed to build retrieval request")
		return fallbackContext(a)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.ErrorWithErr(err, "Retrieval query failed")
		return fallbackContext(a)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Errorf("Retrieval service returned status %d", resp.StatusCode)
		return fallbackContext(a)
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		r.logger.ErrorWithErr(err, "Failed to decode retrieval response")
		return fallbackContext(a)
	}

	if len(result.Matches) == 0 {
		r.logger.Warnf("No retrieval matches for %s", a.Service)
		return fallbackContext(a)
	}

	parts := make([]string, 0, len(result.Matches))
	for i, m := range result.Matches {
		parts = append(parts, fmt.Sprintf("[Source %d: %s] (relevance: %.2f)\n%s", i+1, m.Source, m.Score, m.Text))
	}

	r.logger.Infof("Retrieved %d context chunks for %s", len(result.Matches), a.Service)
	return strings.Join(parts, "\n\n---\n\n")
}

// BuildQuery builds a natural-language search query from anomaly fields
func BuildQuery(a *anomaly.Anomaly) string {
	parts := []string{
		a.Service,
		strings.ReplaceAll(string(a.IssueType), "_", " "),
		"optimization",
		"cost reduction",
	}

	if cpu, ok := a.Metrics["cpu_utilization"]; ok {
		parts = append(parts, fmt.Sprintf("cpu utilization %v%%", cpu))
	}
	if it, ok := a.Metrics["instance_type"]; ok {
		parts = append(parts, fmt.Sprintf("instance %v", it))
	}
	if state, ok := a.Metrics["state"]; ok {
		parts = append(parts, fmt.Sprintf("%v instance", state))
	}
	if a.WasteScore > 0 {
		parts = append(parts, fmt.Sprintf("waste score %d", a.WasteScore))
	}

	return strings.Join(parts, " ")
}

// fallbackContext provides basic guidance when retrieval is unavailable, so
// the generator always has some grounding.
func fallbackContext(a *anomaly.Anomaly) string {
	switch a.Service {
	case "EC2":
		return "General EC2 optimization tips:\n" +
			"- Right-size instances based on CPU/memory utilization\n" +
			"- Use Reserved Instances or Savings Plans for steady-state workloads\n" +
			"- Terminate idle instances (CPU < 5%)\n" +
			"- Consider Graviton instances for savings\n" +
			"- Use Auto Scaling for variable workloads"
	case "RDS":
		return "General RDS optimization tips:\n" +
			"- Stop dev/test instances outside business hours\n" +
			"- Use Reserved Instances for production databases\n" +
			"- Consider Aurora Serverless for variable workloads\n" +
			"- Enable storage autoscaling\n" +
			"- Delete unused snapshots"
	case "S3":
		return "General S3 optimization tips:\n" +
			"- Implement lifecycle policies across storage classes\n" +
			"- Enable Intelligent-Tiering for unpredictable access patterns\n" +
			"- Delete incomplete multipart uploads\n" +
			"- Use S3 Storage Lens for visibility"
	default:
		return "Review AWS Well-Architected Framework Cost Optimization Pillar for best practices."
	}
}
