package handlers

// CanvasRequest carries a raw canvas bitmap: Data holds Width*Height
// non-premultiplied RGBA pixels, base64 encoded on the wire.
type CanvasRequest struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Data   []byte `json:"data"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Inference string `json:"inference"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`

	StatusCode int    `json:"status_code,omitempty"`
	Body       string `json:"body,omitempty"`
	Field      string `json:"field,omitempty"`
}
