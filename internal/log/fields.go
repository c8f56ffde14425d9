package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldClient       = "client"
	FieldYear         = "year"
	FieldMonth        = "month"
	FieldRowRef       = "row_ref"
	FieldSkippedRows  = "skipped_rows"
	FieldTransactions = "transactions"
	FieldBuckets      = "buckets"
	FieldCategory     = "category"
	FieldRenderer     = "renderer"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentEngine   = "engine"
	ComponentIngest   = "ingest"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentRenderer = "renderer"
	ComponentReport   = "report"
)

// Operations defines standard operation names
const (
	OpNormalize  = "normalize"
	OpCategorize = "categorize"
	OpAggregate  = "aggregate"
	OpRender     = "render"
	OpGenerate   = "generate"
	OpEnqueue    = "enqueue"
	OpStartup    = "startup"
	OpShutdown   = "shutdown"
)
