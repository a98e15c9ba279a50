package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldMethod      = "method"
	FieldURL         = "url"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldOperationID = "operation_id"
	FieldEntity      = "entity"
	FieldOpType      = "op_type"
	FieldPending     = "pending"
	FieldSynced      = "synced"
	FieldDropped     = "dropped"
	FieldRetained    = "retained"
	FieldState       = "state"
	FieldExpenseID   = "expense_id"
	FieldAmountCents = "amount_cents"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentAgent     = "agent"
	ComponentEngine    = "sync_engine"
	ComponentMonitor   = "connectivity"
	ComponentQueue     = "sync_queue"
	ComponentStorage   = "storage"
	ComponentRemote    = "remote"
	ComponentExpense   = "expense"
	ComponentBudget    = "budget"
	ComponentSavings   = "savings"
	ComponentRecurring = "recurring"
	ComponentSummary   = "summary"
	ComponentCache     = "cache"
)

// Operations defines standard operation names
const (
	OpCreate  = "create"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpList    = "list"
	OpDrain   = "drain"
	OpEnqueue = "enqueue"
	OpCompact = "compact"
	OpProbe   = "probe"
)
