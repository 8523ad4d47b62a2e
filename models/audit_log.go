package models

import (
	"time"

	"github.com/blogem/content-api/jsondoc"
)

// AuditRecord is a write-once record of one dispatched request. The request
// headers, query and body and the response body are stored as JSON text.
type AuditRecord struct {
	ID             int64
	DefinitionID   int64
	RequestID      string
	RequestMethod  string
	RequestPath    string
	RequestHeaders string
	RequestQuery   string
	RequestBody    string
	ResponseStatus int
	ResponseBody   string
	ResponseTimeMs int64
	IPAddress      string
	UserAgent      string
	ErrorMessage   string
	CreatedAt      time.Time
}

// AuditLogView is the listing shape of an AuditRecord, with the stored JSON
// fields decoded back into values where they parse.
type AuditLogView struct {
	ID             int64     `json:"id"`
	APIID          int64     `json:"api_id"`
	RequestID      string    `json:"request_id"`
	RequestMethod  string    `json:"request_method"`
	RequestPath    string    `json:"request_path"`
	RequestHeaders any       `json:"request_headers"`
	RequestQuery   any       `json:"request_query"`
	RequestBody    any       `json:"request_body"`
	ResponseStatus int       `json:"response_status"`
	ResponseBody   any       `json:"response_body"`
	ResponseTimeMs int64     `json:"response_time_ms"`
	IPAddress      string    `json:"ip_address"`
	UserAgent      string    `json:"user_agent"`
	ErrorMessage   string    `json:"error_message,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// View decodes the stored JSON fields of r.
func (r *AuditRecord) View() AuditLogView {
	return AuditLogView{
		ID:             r.ID,
		APIID:          r.DefinitionID,
		RequestID:      r.RequestID,
		RequestMethod:  r.RequestMethod,
		RequestPath:    r.RequestPath,
		RequestHeaders: decodeStored(r.RequestHeaders),
		RequestQuery:   decodeStored(r.RequestQuery),
		RequestBody:    decodeStored(r.RequestBody),
		ResponseStatus: r.ResponseStatus,
		ResponseBody:   decodeStored(r.ResponseBody),
		ResponseTimeMs: r.ResponseTimeMs,
		IPAddress:      r.IPAddress,
		UserAgent:      r.UserAgent,
		ErrorMessage:   r.ErrorMessage,
		CreatedAt:      r.CreatedAt,
	}
}

func decodeStored(text string) any {
	if text == "" {
		return nil
	}
	v, err := jsondoc.Parse(text)
	if err != nil {
		return text
	}
	return v
}

// AuditPage is one page of a definition's audit records, newest first.
type AuditPage struct {
	Logs       []AuditLogView `json:"logs"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"totalPages"`
}
