package stays

import "fmt"

// TransportError is returned for any non-2xx upstream response.
type TransportError struct {
	Endpoint   string
	StatusCode int
	Status     string
	Body       string
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("stays api %s: %d %s", e.Endpoint, e.StatusCode, e.Status)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}
