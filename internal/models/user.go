package models

// User is one provisioned account from the credential roster.
type User struct {
	Username     string `yaml:"username" json:"username"`
	PasswordHash string `yaml:"password_hash" json:"-"`
	Role         Role   `yaml:"role" json:"role"`
}

// Session is the authenticated identity passed to every service call.
type Session struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
