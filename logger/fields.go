package logger

// Standard field names used across the service.
const (
	FieldService    = "service"
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldTaskID     = "task_id"
	FieldAccountID  = "account_id"
	FieldUsername   = "username"
	FieldStatus     = "status"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldTopic      = "topic"
	FieldPartition  = "partition"
	FieldOffset     = "offset"
	FieldAttempt    = "attempt"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
)

// Fields builds a field map from alternating key/value arguments.
// A trailing key without a value is dropped.
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 0; i+1 < len(kvs); i += 2 {
		key, ok := kvs[i].(string)
		if !ok {
			continue
		}
		m[key] = kvs[i+1]
	}
	return m
}
