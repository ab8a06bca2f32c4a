// Package response defines the JSON bodies the HTTP API answers with.
package response

// Body is a plain message payload, used for both errors and simple
// confirmations.
type Body struct {
	Msg string `json:"msg"`
}

func Msg(msg string) Body {
	return Body{Msg: msg}
}

// Common API messages.
const (
	MsgUnauthorized    = "Unauthorized"
	MsgExistingUser    = "Existing user"
	MsgMissingCreds    = "Missing username or password"
	MsgFileRequired    = "PDF file is required"
	MsgFileTooLarge    = "File exceeds the 10MB limit"
	MsgAuditFailed     = "Failed to audit PDF"
	MsgAINotConfigured = "OpenAI API not configured"
	MsgRateLimited     = "Rate limit exceeded"
	MsgInternal        = "Internal server error"
	MsgInvalidRequest  = "Invalid request body"
	MsgDocumentNoText  = "Document contains no extractable text"
)
