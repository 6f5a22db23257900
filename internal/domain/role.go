package domain

// Role identifies the author of a chat message. It controls how matched card
// mentions are rewritten: assistant text keeps the author's exact wording,
// user text is normalized to the canonical card name.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}
