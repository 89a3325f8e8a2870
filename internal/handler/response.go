package handler

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// NewValidationResponse reports a rejected request body along with the
// validator's detail.
func NewValidationResponse(message string, err error) *Response {
	r := NewErrorResponse(message)
	if err != nil {
		r.Data = map[string]string{"detail": err.Error()}
	}
	return r
}
