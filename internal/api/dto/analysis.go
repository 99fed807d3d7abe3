package dto

// SaveSnapshotRequest asks the server to run an analysis and persist the
// outcome under a name.
type SaveSnapshotRequest struct {
	Name      string `json:"name" validate:"required,max=64"`
	Provider  string `json:"provider" validate:"omitempty,oneof=gcp aws azure aggregate"`
	Days      int    `json:"days" validate:"omitempty,gte=1,lte=365"`
	Overwrite bool   `json:"overwrite"`
}

// ErrorResponse is the error envelope for every non-2xx response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody carries the machine-readable error code and a message.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}
