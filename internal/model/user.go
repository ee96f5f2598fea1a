package model

// RoleAdmin is the role granted to forum moderators.
const RoleAdmin = "admin"

// User is the authenticated Campus Hub account behind a session token.
type User struct {
	ID       string `json:"userid"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// IsAdmin reports whether the user may use the moderation dashboard.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Initial returns the upper-cased first letter of the username, used as
// the avatar glyph.
func (u User) Initial() string {
	for _, r := range u.Username {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		return string(r)
	}
	return "?"
}
