package api

// CommandResponse is returned for accepted commands.
type CommandResponse struct {
	Status string `json:"status"`
}

// ErrorResponse is returned for rejected requests.
type ErrorResponse struct {
	Error string `json:"error"`
}
