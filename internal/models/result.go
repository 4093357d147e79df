package models

// ResultKind tags a Result as success or error
type ResultKind string

const (
	ResultSuccess ResultKind = "success"
	ResultError   ResultKind = "error"
)

// Result is the outcome of a service call: either a value or an error message
type Result[T any] struct {
	Kind    ResultKind `json:"kind"`
	Value   T          `json:"value,omitempty"`
	Message string     `json:"message,omitempty"`
}

// Success wraps a value
func Success[T any](value T) Result[T] {
	return Result[T]{Kind: ResultSuccess, Value: value}
}

// Failure wraps an error message
func Failure[T any](message string) Result[T] {
	return Result[T]{Kind: ResultError, Message: message}
}

// FromError builds a Result from a (value, error) pair
func FromError[T any](value T, err error) Result[T] {
	if err != nil {
		return Failure[T](err.Error())
	}
	return Success(value)
}

// OK reports whether the result is a success
func (r Result[T]) OK() bool {
	return r.Kind == ResultSuccess
}

// ValueOr returns the value on success and fallback otherwise
func (r Result[T]) ValueOr(fallback T) T {
	if r.OK() {
		return r.Value
	}
	return fallback
}

// Envelope is the {status, data} wrapper used on the wire
type Envelope struct {
	Status ResultKind `json:"status"`
	Data   any        `json:"data"`
}

// SuccessEnvelope wraps data in a success envelope
func SuccessEnvelope(data any) Envelope {
	return Envelope{Status: ResultSuccess, Data: data}
}

// ErrorEnvelope builds an error envelope with data.error set
func ErrorEnvelope(message string) Envelope {
	return Envelope{Status: ResultError, Data: map[string]string{"error": message}}
}
