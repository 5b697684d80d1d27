package domain

// UsernameUpdatedMessage is the message the backend sends when a rename succeeded.
// Clients treat any other response as rejected.
const UsernameUpdatedMessage = "Username updated successfully"

// UpdateUsernameRequest is the body of POST /update-username.
type UpdateUsernameRequest struct {
	NewUsername string `json:"new_username"`
}

// UpdateUsernameResponse is the body returned by POST /update-username.
// Exactly one of the fields is set by the server.
type UpdateUsernameResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// UsernameUpdateResult is the client-side view of an update response.
type UsernameUpdateResult struct {
	Message string
	Error   string
}

// Updated reports whether the response carried the success marker.
func (r UsernameUpdateResult) Updated() bool {
	return r.Message == UsernameUpdatedMessage
}

// MessageResponse is a generic JSON body with a single message.
type MessageResponse struct {
	Message string `json:"message"`
}
