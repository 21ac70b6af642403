package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/coursex/coursex-backend/internal/platform/logger"
)

// VolumeDriftMetric flags one entity whose row count moved sharply between
// consecutive runs of the same semester. A large drop usually means a silent
// upstream regression rather than real catalog churn.
type VolumeDriftMetric struct {
	Name      string  `json:"name"`
	Previous  int     `json:"previous"`
	Current   int     `json:"current"`
	Change    float64 `json:"change"`
	Threshold float64 `json:"threshold"`
}

// DetectVolumeDrift compares per-entity counts against the previous
// successful run. Only entities shrinking by more than threshold (a fraction,
// e.g. 0.25) are reported; growth is never drift.
func DetectVolumeDrift(previous, current map[string]int, threshold float64) []VolumeDriftMetric {
	if threshold <= 0 {
		threshold = 0.25
	}
	var out []VolumeDriftMetric
	for _, name := range []string{"courses", "sections", "section_instructors", "professors"} {
		prev, ok := previous[name]
		if !ok || prev == 0 {
			continue
		}
		cur := current[name]
		change := float64(cur-prev) / float64(prev)
		if change < -threshold {
			out = append(out, VolumeDriftMetric{
				Name:      name,
				Previous:  prev,
				Current:   cur,
				Change:    change,
				Threshold: threshold,
			})
		}
	}
	return out
}

type driftAlertState struct {
	mu   sync.Mutex
	last time.Time
}

var driftAlerts driftAlertState

// ReportVolumeDrift posts the drift metrics to the alert webhook, rate
// limited so an hourly scheduler cannot flood the channel. Disabled unless
// ETL_DRIFT_ALERTS_ENABLED is set.
func ReportVolumeDrift(ctx context.Context, log *logger.Logger, semesterID int, metrics []VolumeDriftMetric) {
	if len(metrics) == 0 || !driftAlertsEnabled() {
		return
	}
	webhook := driftAlertWebhook()
	if webhook == "" {
		return
	}

	driftAlerts.mu.Lock()
	if !driftAlerts.last.IsZero() && time.Since(driftAlerts.last) < driftAlertMinInterval() {
		driftAlerts.mu.Unlock()
		return
	}
	driftAlerts.last = time.Now()
	driftAlerts.mu.Unlock()

	payload := map[string]any{
		"title":       "Catalog volume drift detected",
		"semester_id": semesterID,
		"metrics":     metrics,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
	}
	body, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhook, bytes.NewReader(body))
	if err != nil {
		if log != nil {
			log.Warn("Drift alert request build failed", "error", err)
		}
		return
	}
	req.Header.Set("Content-Type", "application/json")
	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		if log != nil {
			log.Warn("Drift alert post failed", "error", err)
		}
		return
	}
	_ = resp.Body.Close()
	if log != nil {
		log.Info("Drift alert sent", "status", resp.StatusCode)
	}
}

func driftAlertsEnabled() bool {
	v := strings.TrimSpace(strings.ToLower(os.Getenv("ETL_DRIFT_ALERTS_ENABLED")))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func driftAlertWebhook() string {
	return strings.TrimSpace(os.Getenv("ETL_DRIFT_ALERT_WEBHOOK_URL"))
}

func driftAlertMinInterval() time.Duration {
	raw := strings.TrimSpace(os.Getenv("ETL_DRIFT_ALERT_MIN_INTERVAL_SECONDS"))
	if raw == "" {
		return 10 * time.Minute
	}
	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || seconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(seconds) * time.Second
}
