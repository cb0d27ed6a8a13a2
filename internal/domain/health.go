package domain

// ServiceHealth reports the health of one dependency.
type ServiceHealth struct {
	Name        string `json:"name"`
	Status      string `json:"status"` // healthy, degraded, unhealthy
	LatencyMs   int64  `json:"latency_ms"`
	LastChecked string `json:"last_checked"`
}

// HealthStatus is the /healthz response.
type HealthStatus struct {
	Status   string          `json:"status"`
	Services []ServiceHealth `json:"services"`
}

// OpsMetrics is the GET /v1/metrics/ops snapshot.
type OpsMetrics struct {
	PaymentsProcessed int64   `json:"payments_processed"`
	PaymentsAnnulled  int64   `json:"payments_annulled"`
	LoansOriginated   int64   `json:"loans_originated"`
	ErrorRate         float64 `json:"error_rate"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
	Period            string  `json:"period"`
}
