package llm

import "context"

// Mock is a Client test double. It records the last request and returns a
// canned response, or responses in sequence when Responses is set.
type Mock struct {
	Response  string
	Responses []string
	Err       error

	Calls    int
	LastReq  Request
	Requests []Request
}

// Complete returns the configured response or error.
func (m *Mock) Complete(_ context.Context, req Request) (string, error) {
	m.Calls++
	m.LastReq = req
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) > 0 {
		r := m.Responses[0]
		if len(m.Responses) > 1 {
			m.Responses = m.Responses[1:]
		}
		return r, nil
	}
	return m.Response, nil
}
