package log

// Shared field names for structured logging.
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"

	FieldCollection = "collection"
	FieldTerm       = "term"
	FieldPage       = "page"
	FieldRows       = "rows"
	FieldTotal      = "total"
	FieldTruncated  = "truncated"
	FieldDegraded   = "degraded"
	FieldShape      = "shape"
	FieldJobID      = "job_id"
)

// Standard component names.
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentStore     = "store"
	ComponentSearch    = "search"
	ComponentAnalytics = "analytics"
	ComponentLabels    = "labels"
	ComponentExport    = "export"
	ComponentConsole   = "console"
	ComponentSettings  = "settings"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
)
