package llm

import "fmt"

// ParseError means the model answered, but no verdict token could be found
// in the response. Recoverable by retrying or by ensemble dropout.
type ParseError struct {
	Response string
}

func (e *ParseError) Error() string {
	snippet := e.Response
	if len(snippet) > 120 {
		snippet = snippet[:120] + "..."
	}
	return fmt.Sprintf("no verdict token in model response: %q", snippet)
}

// TransportError wraps a network, timeout or backend failure of the
// completion call. Recoverable by retrying.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("model transport failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
