package automation

// DefaultWorkflows is the catalogue registered at startup.
func DefaultWorkflows() []Workflow {
	return []Workflow{
		{
			ID:     "document-processing",
			Name:   "Document Processing Pipeline",
			Type:   "document",
			Status: StatusActive,
			Triggers: []Trigger{
				{Type: TriggerDocumentUpload, Config: map[string]any{"file_types": []string{"pdf", "jpg", "png"}, "max_size": "10MB"}},
			},
			Actions: []Action{
				{Type: "validate_document", Config: map[string]any{"validate_format": true, "validate_size": true}},
				{Type: "ai_document_analysis", Config: map[string]any{"extract_text": true, "detect_fraud": true}},
				{Type: "blockchain_hash", Config: map[string]any{"algorithm": "SHA256"}},
				{Type: "send_notification", Config: map[string]any{"type": "email", "template": "document_received"}},
			},
		},
		{
			ID:     "user-registration",
			Name:   "User Registration & Verification",
			Type:   "user",
			Status: StatusActive,
			Triggers: []Trigger{
				{Type: TriggerDatabase, Config: map[string]any{"table": "profiles", "event": "INSERT"}},
			},
			Actions: []Action{
				{Type: "create_profile", Config: map[string]any{"table": "profiles"}},
				{Type: "send_verification_email", Config: map[string]any{"template": "email_verification"}},
				{Type: "assign_default_role", Config: map[string]any{"role": "citizen"}},
			},
		},
		{
			ID:     "application-processing",
			Name:   "Certificate Application Processing",
			Type:   "application",
			Status: StatusActive,
			Triggers: []Trigger{
				{Type: TriggerDatabase, Config: map[string]any{"table": "service_requests", "event": "INSERT"}},
			},
			Actions: []Action{
				{Type: "route_application", Config: map[string]any{"routing_rules": "service_type_based"}},
				{Type: "validate_documents", Config: map[string]any{"required_docs": "service_specific"}},
				{Type: "ai_fraud_detection", Config: map[string]any{"confidence": 0.85}},
				{
					Type:        "update_status",
					Config:      map[string]any{"status": "under_review"},
					RetryPolicy: &RetryPolicy{MaxRetries: 2, BackoffMS: 500},
				},
				{Type: "send_notification", Config: map[string]any{"type": "email", "template": "application_received"}},
			},
		},
		{
			ID:     "blockchain-sync",
			Name:   "Blockchain Document Recording",
			Type:   "blockchain",
			Status: StatusActive,
			Triggers: []Trigger{
				{Type: TriggerSchedule, Config: map[string]any{"cron": "*/5 * * * *"}},
			},
			Actions: []Action{
				{Type: "sync_pending_documents", Config: map[string]any{"batch_size": 10}},
				{Type: "verify_blockchain_transactions", Config: map[string]any{"confirmations": 3}},
				{Type: "update_document_status", Config: map[string]any{"status": "blockchain_verified"}},
			},
		},
		{
			ID:     "system-monitoring",
			Name:   "System Health & Performance Monitoring",
			Type:   "monitoring",
			Status: StatusActive,
			Triggers: []Trigger{
				{Type: TriggerSchedule, Config: map[string]any{"cron": "0 */1 * * *"}},
			},
			Actions: []Action{
				{Type: "check_system_health", Config: map[string]any{"metrics": []string{"cpu", "memory", "disk", "network"}}},
				{Type: "monitor_database_performance", Config: map[string]any{"query_timeout_ms": 5000}},
				{Type: "check_api_endpoints", Config: map[string]any{"endpoints": []string{"/health", "/metrics"}}},
				{Type: "generate_health_report", Config: map[string]any{"format": "json"}},
			},
		},
	}
}
