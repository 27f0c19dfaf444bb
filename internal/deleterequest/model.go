package deleterequest

import "time"

// Status represents the lifecycle state of a delete request
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusRejected  Status = "rejected"
)

// DeleteRequest is a self-service account deletion request awaiting admin
// review. Username is a snapshot so the row stays readable after the account
// is gone.
type DeleteRequest struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Username    string    `json:"username"`
	RequestedAt time.Time `json:"requested_at"`
	Status      Status    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
}
