package errors

// ErrorResponse is the body of every failed API call
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail carries the operator facing message and the reportable
// details attached to the error, never its internal message
type ErrorDetail struct {
	Display   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

func NewErrorResponse(display string, details map[string]any, requestID string) ErrorResponse {
	if len(details) == 0 {
		details = nil
	}
	return ErrorResponse{
		Error: ErrorDetail{
			Display:   display,
			Details:   details,
			RequestID: requestID,
		},
	}
}
