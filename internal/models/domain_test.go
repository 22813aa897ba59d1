package models

import "testing"

func TestParseRole(t *testing.T) {
	cases := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{"admin", RoleAdmin, false},
		{" Teacher ", RoleTeacher, false},
		{"STUDENT", RoleStudent, false},
		{"", "", true},
		{"principal", "", true},
	}
	for _, tc := range cases {
		got, err := ParseRole(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseRole(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseRole(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseRole(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestParseAction(t *testing.T) {
	cases := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{"login", ActionLogin, false},
		{"UPLOAD", ActionUpload, false},
		{" download ", ActionDownload, false},
		{"view", ActionView, false},
		{"archive", ActionArchive, false},
		{"", "", true},
		{"PEEK", "", true},
	}
	for _, tc := range cases {
		got, err := ParseAction(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseAction(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAction(%q): %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseAction(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
