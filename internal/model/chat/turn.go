package chat

// Role tags who produced a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// Turn is one message exchanged within a session. Ordering is append order.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
