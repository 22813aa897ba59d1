package policy

import (
	"testing"

	"classdrop/internal/models"
)

func TestAllowed(t *testing.T) {
	cases := []struct {
		role models.Role
		op   Operation
		want bool
	}{
		{models.RoleTeacher, OpUpload, true},
		{models.RoleTeacher, OpDelete, true},
		{models.RoleTeacher, OpList, true},
		{models.RoleTeacher, OpDownload, true},
		{models.RoleTeacher, OpViewLog, false},

		{models.RoleStudent, OpUpload, false},
		{models.RoleStudent, OpDelete, false},
		{models.RoleStudent, OpList, true},
		{models.RoleStudent, OpDownload, true},
		{models.RoleStudent, OpViewLog, false},

		{models.RoleAdmin, OpUpload, false},
		{models.RoleAdmin, OpDelete, false},
		{models.RoleAdmin, OpList, true},
		{models.RoleAdmin, OpDownload, true},
		{models.RoleAdmin, OpViewLog, true},
		{models.RoleAdmin, OpMaintain, true},
		{models.RoleTeacher, OpMaintain, false},
		{models.RoleStudent, OpMaintain, false},
	}
	for _, tc := range cases {
		if got := Allowed(tc.role, tc.op); got != tc.want {
			t.Errorf("Allowed(%s, %s) = %v, want %v", tc.role, tc.op, got, tc.want)
		}
	}
}

func TestAllowedUnknownRole(t *testing.T) {
	if Allowed("principal", OpList) {
		t.Fatal("unknown role must be denied everything")
	}
}
