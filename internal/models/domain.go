package models

import (
	"fmt"
	"strings"
)

// Role defines the access level of a user.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Action defines auditable event types.
type Action string

const (
	ActionLogin    Action = "LOGIN"
	ActionLogout   Action = "LOGOUT"
	ActionUpload   Action = "UPLOAD"
	ActionDelete   Action = "DELETE"
	ActionDownload Action = "DOWNLOAD"
	ActionView     Action = "VIEW"
	ActionArchive  Action = "ARCHIVE"
)

var validRoles = map[Role]struct{}{
	RoleAdmin:   {},
	RoleTeacher: {},
	RoleStudent: {},
}

var validActions = map[Action]struct{}{
	ActionLogin:    {},
	ActionLogout:   {},
	ActionUpload:   {},
	ActionDelete:   {},
	ActionDownload: {},
	ActionView:     {},
	ActionArchive:  {},
}

func IsValidRole(role Role) bool {
	_, ok := validRoles[role]
	return ok
}

func IsValidAction(action Action) bool {
	_, ok := validActions[action]
	return ok
}

func ParseRole(raw string) (Role, error) {
	value := Role(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("role is required")
	}
	if !IsValidRole(value) {
		return "", fmt.Errorf("invalid role: %s", value)
	}
	return value, nil
}

func ParseAction(raw string) (Action, error) {
	value := Action(strings.ToUpper(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("action is required")
	}
	if !IsValidAction(value) {
		return "", fmt.Errorf("invalid action: %s", value)
	}
	return value, nil
}

// Roles returns all valid roles in a stable order.
func Roles() []Role {
	return []Role{RoleAdmin, RoleTeacher, RoleStudent}
}

// Actions returns all valid audit actions in a stable order.
func Actions() []Action {
	return []Action{ActionLogin, ActionLogout, ActionUpload, ActionDelete, ActionDownload, ActionView, ActionArchive}
}
