package observability

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	types "github.com/yungbote/contentplan-backend/internal/domain"
	"github.com/yungbote/contentplan-backend/internal/platform/envutil"
	"github.com/yungbote/contentplan-backend/internal/platform/logger"
)

type Metrics struct {
	apiRequests      *CounterVec
	apiLatency       *HistogramVec
	llmRequests      *CounterVec
	llmLatency       *HistogramVec
	contentItems     *CounterVec
	materializeRatio *HistogramVec
	jobRuns          *CounterVec
	queueDepth       *GaugeVec
	redisUp          *Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	return envutil.Bool("METRICS_ENABLED", false)
}

// Current is nil until Init runs with METRICS_ENABLED; every method on a nil
// *Metrics is a no-op.
func Current() *Metrics {
	return instance
}

func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = newMetrics()
		if log != nil {
			log.Info("metrics enabled")
		}
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		apiRequests:      NewCounterVec("contentplan_api_requests_total", "HTTP requests by route and status.", []string{"method", "route", "status"}),
		apiLatency:       NewHistogramVec("contentplan_api_request_seconds", "HTTP request latency.", []string{"method", "route"}, nil),
		llmRequests:      NewCounterVec("contentplan_llm_requests_total", "Model calls by pipeline stage and outcome.", []string{"stage", "status"}),
		llmLatency:       NewHistogramVec("contentplan_llm_request_seconds", "Model call latency.", []string{"stage"}, []float64{1, 5, 15, 30, 60, 120, 300, 600}),
		contentItems:     NewCounterVec("contentplan_content_items_total", "Content items by materialization outcome.", []string{"outcome"}),
		materializeRatio: NewHistogramVec("contentplan_materialization_ratio", "Persisted over expected items per run.", nil, []float64{0.5, 0.75, 0.9, 0.95, 0.99, 1}),
		jobRuns:          NewCounterVec("contentplan_job_runs_total", "Finished job runs by type and status.", []string{"job_type", "status"}),
		queueDepth:       NewGaugeVec("contentplan_job_queue_depth", "Job runs by status.", []string{"status"}),
		redisUp:          NewGauge("contentplan_redis_up", "1 when the last redis ping succeeded."),
	}
}

func (m *Metrics) ObserveAPIRequest(method, route string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.apiRequests.Inc(method, route, fmt.Sprintf("%d", status))
	m.apiLatency.Observe(dur.Seconds(), method, route)
}

func (m *Metrics) ObserveLLMRequest(stage string, err error, dur time.Duration) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.llmRequests.Inc(stage, status)
	m.llmLatency.Observe(dur.Seconds(), stage)
}

// ObserveMaterialization records one materialization run.
func (m *Metrics) ObserveMaterialization(expected, created, retried, dropped int) {
	if m == nil {
		return
	}
	m.contentItems.Add(float64(created), "created")
	m.contentItems.Add(float64(retried), "retried")
	m.contentItems.Add(float64(dropped), "dropped")
	if expected > 0 {
		m.materializeRatio.Observe(float64(created) / float64(expected))
	}
}

func (m *Metrics) ObserveRefinement(updated, created, skipped int) {
	if m == nil {
		return
	}
	m.contentItems.Add(float64(updated), "refined")
	m.contentItems.Add(float64(created), "refined_created")
	m.contentItems.Add(float64(skipped), "refine_skipped")
}

func (m *Metrics) ObserveJob(jobType, status string) {
	if m == nil {
		return
	}
	m.jobRuns.Inc(jobType, status)
}

func (m *Metrics) WritePrometheus(w io.Writer) error {
	if m == nil {
		return nil
	}
	for _, c := range []interface{ WritePrometheus(io.Writer) error }{
		m.apiRequests, m.apiLatency,
		m.llmRequests, m.llmLatency,
		m.contentItems, m.materializeRatio,
		m.jobRuns, m.queueDepth, m.redisUp,
	} {
		if err := c.WritePrometheus(w); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		_ = m.WritePrometheus(w)
	})
}

func scrapeInterval() time.Duration {
	n := envutil.Int("METRICS_SCRAPE_INTERVAL_SECONDS", 10)
	if n <= 0 {
		n = 10
	}
	return time.Duration(n) * time.Second
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, rdb *redis.Client) {
	if m == nil || rdb == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
			}
		}
	}()
}

func (m *Metrics) StartJobQueueCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	statuses := []string{types.JobStatusQueued, types.JobStatusRunning, types.JobStatusSucceeded, types.JobStatusFailed, types.JobStatusCanceled}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, s := range statuses {
					m.queueDepth.Set(0, s)
				}
				var rows []struct {
					Status string
					Count  int64
				}
				if err := db.WithContext(ctx).
					Model(&types.JobRun{}).
					Select("status, count(*) as count").
					Group("status").
					Scan(&rows).Error; err != nil {
					if log != nil {
						log.Warn("metrics: job queue depth query failed", "error", err)
					}
					continue
				}
				for _, row := range rows {
					status := strings.TrimSpace(row.Status)
					if status == "" {
						status = "unknown"
					}
					m.queueDepth.Set(float64(row.Count), status)
				}
			}
		}
	}()
}
