package types

// Table names used by the mail assistant collaborators.
const (
	EmailsTable           = "emails"
	RepliesTable          = "replies"
	ActionItemsTable      = "action_items"
	TenantsTable          = "tenants"
	ResponseFeedbackTable = "response_feedback"
	ContextPatternsTable  = "context_patterns"
	AIResponsesTable      = "ai_responses"
)

// StandardTableNames lists the collaborator tables, in the order the TinyDB
// import migrates them.
var StandardTableNames = []string{
	EmailsTable,
	RepliesTable,
	ActionItemsTable,
	TenantsTable,
	ResponseFeedbackTable,
	ContextPatternsTable,
	AIResponsesTable,
}
