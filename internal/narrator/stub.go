package narrator

import "context"

// StubGenerator returns canned responses in order, then repeats the last
// one. It is intended for tests and local development without an API key.
type StubGenerator struct {
	Responses []string
	Err       error
	calls     int
}

var _ Generator = (*StubGenerator)(nil)

// Narrate implements Generator.
func (s *StubGenerator) Narrate(_ context.Context, _ TurnContext) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.Responses) == 0 {
		return "The monster hesitates.", nil
	}
	i := s.calls
	if i >= len(s.Responses) {
		i = len(s.Responses) - 1
	}
	s.calls++
	return s.Responses[i], nil
}

// Calls returns how many times Narrate has been invoked.
func (s *StubGenerator) Calls() int {
	return s.calls
}
