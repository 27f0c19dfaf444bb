package deleterequest

// CreateRequest represents the request body for a self-service delete request
type CreateRequest struct {
	Reason string `json:"reason"`
}

// Response represents the response for a single delete request
type Response struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	RequestedAt string `json:"requested_at"`
	Status      Status `json:"status"`
	Reason      string `json:"reason,omitempty"`
}

// ToResponse converts a DeleteRequest model to a Response DTO
func (d *DeleteRequest) ToResponse() *Response {
	return &Response{
		ID:          d.ID,
		UserID:      d.UserID,
		Username:    d.Username,
		RequestedAt: d.RequestedAt.Format("2006-01-02T15:04:05Z"),
		Status:      d.Status,
		Reason:      d.Reason,
	}
}
