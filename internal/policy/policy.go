package policy

import "classdrop/internal/models"

// Operation identifies one role-gated operation.
type Operation string

const (
	OpUpload   Operation = "upload"
	OpDelete   Operation = "delete"
	OpList     Operation = "list"
	OpDownload Operation = "download"
	OpViewLog  Operation = "view_log"
	OpMaintain Operation = "maintain"
)

// allowed is the static permission table. Upload and delete are
// teacher-only; listing and downloading files is open to every
// authenticated role; the audit log (view, archive, report) is admin-only.
var allowed = map[models.Role]map[Operation]struct{}{
	models.RoleAdmin: {
		OpList:     {},
		OpDownload: {},
		OpViewLog:  {},
		OpMaintain: {},
	},
	models.RoleTeacher: {
		OpUpload:   {},
		OpDelete:   {},
		OpList:     {},
		OpDownload: {},
	},
	models.RoleStudent: {
		OpList:     {},
		OpDownload: {},
	},
}

// Allowed reports whether role may perform op.
func Allowed(role models.Role, op Operation) bool {
	ops, ok := allowed[role]
	if !ok {
		return false
	}
	_, ok = ops[op]
	return ok
}
