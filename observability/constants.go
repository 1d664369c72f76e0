package observability

// Metric name prefixes
const (
	MetricPrefix = "streambet"
)

// Label keys
const (
	LabelType      = "type"
	LabelBucket    = "bucket"
	LabelRefunded  = "refunded"
	LabelEventType = "event_type"
)
