package serverutils

// Response is the envelope of every API reply. Tool endpoints fill Output with
// the human-readable text handed back to the host model.
type Response[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Output  string `json:"output,omitempty"`
	Data    T      `json:"data,omitempty"`
}

func SuccessResponse[T any](message string, data T) Response[T] {
	return Response[T]{Success: true, Message: message, Data: data}
}

func ToolResponse[T any](output string, data T) Response[T] {
	return Response[T]{Success: true, Output: output, Data: data}
}

// FailurePrefix starts every failed tool output.
const FailurePrefix = "Failed: "

func FailureResponse(err error) Response[any] {
	return Response[any]{Success: false, Output: FailurePrefix + err.Error()}
}
