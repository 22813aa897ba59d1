package share

import (
	"errors"
	"fmt"

	"classdrop/internal/models"
	"classdrop/internal/policy"
)

// Error taxonomy surfaced by the services. Callers distinguish failures
// with errors.Is against these sentinels.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrStorage            = errors.New("storage failure")
)

type opError struct {
	kind error
	err  error
}

func (e opError) Error() string {
	if e.err == nil {
		return e.kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.kind.Error(), e.err.Error())
}

func (e opError) Is(target error) bool {
	return target == e.kind
}

func (e opError) Unwrap() error {
	return e.err
}

func makeOpError(kind, err error) error {
	if err == nil {
		return kind
	}
	var existing opError
	if errors.As(err, &existing) {
		return err
	}
	return opError{kind: kind, err: err}
}

func invalidCredentials(err error) error {
	return makeOpError(ErrInvalidCredentials, err)
}

func permissionDenied(role models.Role, op policy.Operation) error {
	return makeOpError(ErrPermissionDenied, fmt.Errorf("role %s may not %s", role, op))
}

func notFoundErr(err error) error {
	return makeOpError(ErrNotFound, err)
}

func invalidArgument(err error) error {
	return makeOpError(ErrInvalidArgument, err)
}

func storageErr(err error) error {
	return makeOpError(ErrStorage, err)
}

// requireSession validates the explicit session argument and checks the
// access policy. A denied check is an error, never a silent no-op.
func requireSession(session *models.Session, op policy.Operation) error {
	if session == nil || session.Username == "" || !models.IsValidRole(session.Role) {
		return invalidCredentials(fmt.Errorf("session is required"))
	}
	if !policy.Allowed(session.Role, op) {
		return permissionDenied(session.Role, op)
	}
	return nil
}
