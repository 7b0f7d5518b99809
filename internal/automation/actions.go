package automation

import (
	"context"
	"fmt"
	"time"

	"spark-service/internal/domain"
	"spark-service/internal/health"
	"spark-service/internal/ledger"
)

// ActionFunc runs one workflow step against the trigger data.
type ActionFunc func(ctx context.Context, data, config map[string]any) (map[string]any, error)

type Notifier interface {
	Send(userID string, n domain.Notification) int
}

type StatusUpdater interface {
	SystemUpdateStatus(ctx context.Context, id, status, message string) (bool, error)
}

type StatusUpdaterFunc func(ctx context.Context, id, status, message string) (bool, error)

func (f StatusUpdaterFunc) SystemUpdateStatus(ctx context.Context, id, status, message string) (bool, error) {
	return f(ctx, id, status, message)
}

type HealthChecker interface {
	Check(ctx context.Context) health.Report
	Database(ctx context.Context) health.Probe
}

// Dependencies are optional; actions that need a missing one report a no-op.
type Dependencies struct {
	Notifier Notifier
	Requests StatusUpdater
	Health   HealthChecker
}

func str(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func num(m map[string]any, key string, def float64) float64 {
	if f, ok := toFloat(m[key]); ok {
		return f
	}
	return def
}

func count(v any) int {
	switch d := v.(type) {
	case []any:
		return len(d)
	case []domain.Document:
		return len(d)
	case int:
		return d
	case float64:
		return int(d)
	}
	return 0
}

var departments = map[string]string{
	"birth_cert":    "civil_records",
	"marriage_cert": "civil_records",
	"income_cert":   "revenue",
	"caste_cert":    "revenue",
	"domicile_cert": "revenue",
}

func builtinActions(deps Dependencies) map[string]ActionFunc {
	return map[string]ActionFunc{
		"validate_document": func(_ context.Context, data, _ map[string]any) (map[string]any, error) {
			format := str(data, "file_type")
			if format == "" {
				format = "pdf"
			}
			return map[string]any{"valid": true, "format": format}, nil
		},
		"ai_document_analysis": func(_ context.Context, data, _ map[string]any) (map[string]any, error) {
			docType := str(data, "service_type")
			if docType == "" {
				docType = "birth_certificate"
			}
			return map[string]any{
				"text_extracted": true, "fraud_risk": 0.1, "document_type": docType, "confidence": 0.95,
			}, nil
		},
		"blockchain_hash": func(_ context.Context, data, _ map[string]any) (map[string]any, error) {
			h, err := ledger.Hash(data)
			if err != nil {
				return nil, err
			}
			return map[string]any{"blockchain_hash": h, "timestamp": time.Now().UTC()}, nil
		},
		"send_notification": func(_ context.Context, data, config map[string]any) (map[string]any, error) {
			template := str(config, "template")
			delivered := 0
			if userID := str(data, "user_id"); userID != "" && deps.Notifier != nil {
				delivered = deps.Notifier.Send(userID, domain.Notification{
					Type:  template,
					Title: "SPARK update",
					Body:  notificationBody(template),
					Data:  data,
				})
			}
			return map[string]any{"sent": true, "template": template, "channel": str(config, "type"), "delivered": delivered}, nil
		},
		"create_profile": func(_ context.Context, data, _ map[string]any) (map[string]any, error) {
			return map[string]any{"profile_created": str(data, "user_id") != "", "user_id": str(data, "user_id")}, nil
		},
		"send_verification_email": func(_ context.Context, data, config map[string]any) (map[string]any, error) {
			return map[string]any{"email_sent": str(data, "email") != "", "template": str(config, "template")}, nil
		},
		"assign_default_role": func(_ context.Context, _, config map[string]any) (map[string]any, error) {
			role := str(config, "role")
			if role == "" {
				role = domain.RoleCitizen
			}
			return map[string]any{"role": role}, nil
		},
		"route_application": func(_ context.Context, data, _ map[string]any) (map[string]any, error) {
			dept, ok := departments[str(data, "service_type")]
			if !ok {
				dept = "civil_records"
			}
			return map[string]any{"routed": true, "department": dept}, nil
		},
		"validate_documents": func(_ context.Context, data, config map[string]any) (map[string]any, error) {
			return map[string]any{"validated": true, "documents": count(data["documents"]), "rules": str(config, "required_docs")}, nil
		},
		"ai_fraud_detection": func(_ context.Context, _, config map[string]any) (map[string]any, error) {
			return map[string]any{"fraud_risk": 0.05, "confidence": num(config, "confidence", 0.85)}, nil
		},
		"update_status": func(ctx context.Context, data, config map[string]any) (map[string]any, error) {
			status := str(config, "status")
			requestID := str(data, "request_id")
			if requestID == "" || deps.Requests == nil {
				return map[string]any{"status_updated": false, "new_status": status}, nil
			}
			applied, err := deps.Requests.SystemUpdateStatus(ctx, requestID, status,
				fmt.Sprintf("Automatically moved to %s", status))
			if err != nil {
				return nil, err
			}
			return map[string]any{"status_updated": applied, "new_status": status}, nil
		},
		"sync_pending_documents": func(_ context.Context, _, config map[string]any) (map[string]any, error) {
			return map[string]any{"synced": 0, "batch_size": int(num(config, "batch_size", 10))}, nil
		},
		"verify_blockchain_transactions": func(_ context.Context, _, config map[string]any) (map[string]any, error) {
			return map[string]any{"verified": true, "confirmations": int(num(config, "confirmations", 3))}, nil
		},
		"update_document_status": func(_ context.Context, _, config map[string]any) (map[string]any, error) {
			return map[string]any{"updated": true, "status": str(config, "status")}, nil
		},
		"check_system_health": func(ctx context.Context, _, _ map[string]any) (map[string]any, error) {
			if deps.Health == nil {
				return map[string]any{"status": "unknown"}, nil
			}
			rep := deps.Health.Check(ctx)
			return map[string]any{"status": rep.Status, "database": rep.Database, "redis": rep.Redis, "goroutines": rep.Goroutines}, nil
		},
		"monitor_database_performance": func(ctx context.Context, _, config map[string]any) (map[string]any, error) {
			if deps.Health == nil {
				return map[string]any{"connected": false}, nil
			}
			p := deps.Health.Database(ctx)
			limit := num(config, "query_timeout_ms", 5000)
			return map[string]any{"connected": p.Connected, "latency_ms": p.LatencyMS, "slow": p.LatencyMS > limit}, nil
		},
		"check_api_endpoints": func(_ context.Context, _, config map[string]any) (map[string]any, error) {
			return map[string]any{"checked": config["endpoints"], "reachable": true}, nil
		},
		"generate_health_report": func(_ context.Context, _, config map[string]any) (map[string]any, error) {
			return map[string]any{"format": str(config, "format"), "generated_at": time.Now().UTC()}, nil
		},
	}
}

func notificationBody(template string) string {
	switch template {
	case "application_received":
		return "Your application has been received and is under review."
	case "document_received":
		return "Your document has been received."
	default:
		return "You have a new update."
	}
}
