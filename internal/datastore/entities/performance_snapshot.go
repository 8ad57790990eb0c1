package entities

import (
	"encoding/json"
	"fmt"
	"time"
)

// PerformanceSnapshot is one point-in-time metric sample for a tenant,
// written by the external metrics collector. The metric set is sparse and
// open-ended: a collector that cannot read a metric simply omits it.
type PerformanceSnapshot struct {
	ID        uint      `gorm:"primaryKey"`
	TenantID  uint      `gorm:"not null;index:idx_snapshots_tenant_time,priority:1"`
	Timestamp time.Time `gorm:"not null;index:idx_snapshots_tenant_time,priority:2"`
	// Metrics holds a JSON object mapping metric name to numeric value,
	// e.g. {"memory_percent": 87.5, "slow_query_count": 3}.
	Metrics   string    `gorm:"type:text;not null;default:'{}'"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (PerformanceSnapshot) TableName() string {
	return "performance_snapshots"
}

// MetricValues decodes the sparse metric map. Non-numeric values are
// dropped rather than failing the whole snapshot.
func (s *PerformanceSnapshot) MetricValues() (map[string]float64, error) {
	if s.Metrics == "" {
		return map[string]float64{}, nil
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(s.Metrics), &raw); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot metrics: %w", err)
	}
	out := make(map[string]float64, len(raw))
	for k, v := range raw {
		if f, ok := v.(float64); ok {
			out[k] = f
		}
	}
	return out, nil
}

// Metric returns a single metric value, reporting whether it was present
// and numeric.
func (s *PerformanceSnapshot) Metric(name string) (float64, bool) {
	values, err := s.MetricValues()
	if err != nil {
		return 0, false
	}
	v, ok := values[name]
	return v, ok
}
