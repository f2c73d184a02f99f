package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Standard tracing fields, propagated through the call chain via context.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldJobID is the upload job ID
	FieldJobID = "job_id"

	// FieldStorageKey is the object store key being operated on
	FieldStorageKey = "storage_key"

	// FieldFolder is the category folder of a post
	FieldFolder = "folder"

	// FieldComponent is the component/module name
	FieldComponent = "component"
)

// Standard metric fields, attached at emit time.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
