// Package models defines the core data structures for ordersweep.
//
// It includes the deletion request/report types shared between the HTTP API,
// the sweep workflow, and the Discord gateway wrapper.
package models

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

// Validation constants for input validation
const (
	// DefaultScanLimit is the number of recent messages examined when the
	// request does not specify a limit.
	DefaultScanLimit = 100
	// MaxScanLimit caps how many messages a single request may examine.
	MaxScanLimit = 1000
	// SnapshotContentLength is the maximum content length preserved in a
	// deleted-message snapshot; longer content is truncated.
	SnapshotContentLength = 100
)

// Error variables for request validation, matched by the HTTP layer.
var (
	ErrInvalidChannelID = errors.New("channel_id must be a positive integer")
	ErrEmptyProductName = errors.New("product_name cannot be empty")
	ErrEmptySKU         = errors.New("sku cannot be empty")
	ErrEmptySize        = errors.New("size cannot be empty")
	ErrInvalidLimit     = errors.New("limit must be at least 1")
	ErrLimitTooLarge    = errors.New("limit exceeds maximum scan size")
)

// Sentinel errors for gateway-level failures. The Discord wrapper translates
// platform errors into these so the HTTP layer can map them to status codes
// with errors.Is without depending on the platform library.
var (
	// ErrChannelAccess indicates the channel does not exist or the session
	// cannot see it.
	ErrChannelAccess = errors.New("channel not found or not accessible")
	// ErrPermission indicates the session lacks delete rights in the channel.
	ErrPermission = errors.New("missing permission")
	// ErrPlatformUnavailable indicates the gateway session is not ready or the
	// platform could not be reached.
	ErrPlatformUnavailable = errors.New("platform unavailable")
	// ErrMessageGone indicates a message disappeared before it could be
	// deleted, typically because a concurrent request already removed it.
	ErrMessageGone = errors.New("message no longer exists")
)

// Criteria is the textual match condition applied to each candidate message.
// A message matches only when all three fields are present as case-insensitive
// substrings.
type Criteria struct {
	ProductName string `json:"product_name"`
	SKU         string `json:"sku"`
	Size        string `json:"size"`
}

// DeleteRequest is the body of POST /delete-discord-message.
// Limit is a pointer so an omitted limit (defaulted) can be distinguished from
// an explicit zero (rejected).
type DeleteRequest struct {
	ChannelID   int64  `json:"channel_id"`
	ProductName string `json:"product_name"`
	SKU         string `json:"sku"`
	Size        string `json:"size"`
	Limit       *int   `json:"limit,omitempty"`
}

// Validate performs field-level validation on a DeleteRequest.
func (r *DeleteRequest) Validate() error {
	if r.ChannelID <= 0 {
		return ErrInvalidChannelID
	}
	if strings.TrimSpace(r.ProductName) == "" {
		return ErrEmptyProductName
	}
	if strings.TrimSpace(r.SKU) == "" {
		return ErrEmptySKU
	}
	if strings.TrimSpace(r.Size) == "" {
		return ErrEmptySize
	}
	if r.Limit != nil {
		if *r.Limit < 1 {
			return ErrInvalidLimit
		}
		if *r.Limit > MaxScanLimit {
			return ErrLimitTooLarge
		}
	}
	return nil
}

// Criteria returns the match criteria carried by the request.
func (r *DeleteRequest) Criteria() Criteria {
	return Criteria{ProductName: r.ProductName, SKU: r.SKU, Size: r.Size}
}

// CandidateMessage is a read-only snapshot of a platform message, captured at
// fetch time so matching logic never touches the platform library's types.
type CandidateMessage struct {
	ID        string
	Content   string
	Author    string
	Webhook   bool
	Timestamp time.Time
	// Embeds holds the flattened text of each embed (title, description and
	// field names/values joined together) so criteria posted inside webhook
	// embeds are still matchable.
	Embeds []string
}

// ContainsFold reports whether s occurs as a case-insensitive substring of the
// message content or any embed text.
func (m *CandidateMessage) ContainsFold(s string) bool {
	needle := strings.ToLower(s)
	if strings.Contains(strings.ToLower(m.Content), needle) {
		return true
	}
	for _, e := range m.Embeds {
		if strings.Contains(strings.ToLower(e), needle) {
			return true
		}
	}
	return false
}

// DeletedMessage is the report entry for one removed message.
type DeletedMessage struct {
	MessageID string    `json:"message_id"`
	Content   string    `json:"content"`
	Author    string    `json:"author"`
	Timestamp time.Time `json:"timestamp"`
}

// NewDeletedMessage builds a report entry from a candidate snapshot, truncating
// long content so reports stay readable for the operator.
func NewDeletedMessage(m CandidateMessage) DeletedMessage {
	content := m.Content
	if utf8.RuneCountInString(content) > SnapshotContentLength {
		content = string([]rune(content)[:SnapshotContentLength]) + "..."
	}
	return DeletedMessage{
		MessageID: m.ID,
		Content:   content,
		Author:    m.Author,
		Timestamp: m.Timestamp,
	}
}

// DeleteReport is the structured outcome of one search-and-delete operation.
// Err carries the gateway sentinel (if any) for HTTP status mapping and is
// never serialized.
type DeleteReport struct {
	Success         bool             `json:"success"`
	DeletedCount    int              `json:"deleted_count"`
	MessagesChecked int              `json:"messages_checked"`
	DeletedMessages []DeletedMessage `json:"deleted_messages"`
	SearchCriteria  *Criteria        `json:"search_criteria"`
	Error           string           `json:"error,omitempty"`
	Err             error            `json:"-"`
}

// FailureReport builds a report for an operation that failed before any
// message could be examined.
func FailureReport(err error) DeleteReport {
	return DeleteReport{Success: false, Error: err.Error(), Err: err}
}
