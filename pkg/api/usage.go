package api

type DailyUsage struct {
	Date           string  `json:"date"`
	TotalRequests  int     `json:"total_requests"`
	FailedRequests int     `json:"failed_requests"`
	AverageLatency float64 `json:"average_latency_ms"`
}

type UsageOverview struct {
	Days  int          `json:"days"`
	Daily []DailyUsage `json:"daily"`
}
