package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldQuery       = "query"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldUserAgent   = "user_agent"
	FieldSuccess     = "success"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldReference   = "reference"
	FieldCheckbookID = "checkbook_id"
	FieldBankID      = "bank_id"
	FieldUserID      = "user_id"
	FieldCheckID     = "check_id"
	FieldAmountCents = "amount_cents"
	FieldReason      = "reason"
	FieldOutput      = "output"
)

// Component names
const (
	ComponentApp        = "app"
	ComponentHTTP       = "http"
	ComponentAllocator  = "allocator"
	ComponentCheck      = "check"
	ComponentWorker     = "worker"
	ComponentRegister   = "register"
	ComponentCache      = "cache"
	ComponentBackend    = "backend"
	ComponentSeed       = "seed"
)

// Operation names
const (
	OpSuggest   = "suggest"
	OpValidate  = "validate"
	OpIssue     = "issue"
	OpSpell     = "spell"
	OpResolve   = "resolve"
	OpRender    = "render"
	OpCalibrate = "calibrate"
	OpList      = "list"
	OpAppend    = "append"
)

// Error type categories
const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeDatabase   = "database_error"
	ErrorTypeNotFound   = "not_found_error"
	ErrorTypeConflict   = "conflict_error"
	ErrorTypeExhausted  = "exhausted_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message, if any
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithCheck adds the identifying fields of an issuance
func (f LogFields) WithCheck(reference string, checkbookID, bankID, userID int64) LogFields {
	f[FieldReference] = reference
	f[FieldCheckbookID] = checkbookID
	f[FieldBankID] = bankID
	f[FieldUserID] = userID
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
