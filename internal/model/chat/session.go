package chat

// Session is a point-in-time copy of a conversation thread.
type Session struct {
	ID    string            `json:"session_id"`
	Turns []Turn            `json:"history"`
	Facts map[string]string `json:"-"`
}

// Fact returns a remembered value for the session.
func (s Session) Fact(key string) (string, bool) {
	if s.Facts == nil {
		return "", false
	}
	v, ok := s.Facts[key]
	return v, ok
}
