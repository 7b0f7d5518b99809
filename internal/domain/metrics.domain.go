package domain

type KeyCount struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

type SystemMetrics struct {
	TotalUsers        int64      `json:"total_users"`
	TotalApplications int64      `json:"total_applications"`
	TotalCertificates int64      `json:"total_certificates"`
	ServiceTypes      []KeyCount `json:"service_types"`
	ApplicationStatus []KeyCount `json:"application_status"`
}

type Notification struct {
	Type  string         `json:"type"`
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Data  map[string]any `json:"data,omitempty"`
}
