package gatekit

import (
	"errors"
	"fmt"
)

// Sentinel errors for GateKit operations.
var (
	// ErrEntityNotFound is returned when an entity does not exist or is deleted.
	ErrEntityNotFound = errors.New("gatekit: entity not found")

	// ErrClassNotFound is returned when an entity class is not defined.
	ErrClassNotFound = errors.New("gatekit: entity class not found")

	// ErrRoleNotFound is returned when a role is not defined in the catalog.
	ErrRoleNotFound = errors.New("gatekit: role not found")

	// ErrPermissionNotFound is returned when a permission type is not defined.
	ErrPermissionNotFound = errors.New("gatekit: permission type not found")

	// ErrRelationshipTypeNotFound is returned when a relationship type is not defined.
	ErrRelationshipTypeNotFound = errors.New("gatekit: relationship type not found")

	// ErrPolicyNotFound is returned when a policy does not exist.
	ErrPolicyNotFound = errors.New("gatekit: policy not found")

	// ErrUnauthorized is returned when a principal lacks the required permission.
	ErrUnauthorized = errors.New("gatekit: unauthorized")

	// ErrCannotDelegate is returned when an actor may not grant or revoke the
	// requested role on the requested scope.
	ErrCannotDelegate = errors.New("gatekit: cannot delegate role")

	// ErrAlreadyAssigned is returned when an equivalent active assignment exists.
	ErrAlreadyAssigned = errors.New("gatekit: role already assigned")

	// ErrAssignmentNotFound is returned when revoking an assignment that does
	// not exist or is already revoked.
	ErrAssignmentNotFound = errors.New("gatekit: assignment not found")

	// ErrInvalidSchedule is returned when a cron schedule expression cannot be parsed.
	ErrInvalidSchedule = errors.New("gatekit: invalid schedule expression")

	// ErrInvalidConditions is returned when a policy condition document is malformed.
	ErrInvalidConditions = errors.New("gatekit: invalid policy conditions")

	// ErrEntityCycle is returned when a parent change would make an entity
	// its own ancestor.
	ErrEntityCycle = errors.New("gatekit: entity parent cycle")

	// ErrNoPrincipalID is returned when a principal ID is not found in context.
	ErrNoPrincipalID = errors.New("gatekit: no principal ID in context")

	// ErrNoActorID is returned when an actor ID is not found in context for audit.
	ErrNoActorID = errors.New("gatekit: no actor ID in context")

	// ErrDatabaseError is returned when a database operation fails.
	ErrDatabaseError = errors.New("gatekit: database error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err         error  // Underlying sentinel error
	Message     string // Additional context
	EntityID    string // Entity involved (if applicable)
	Role        string // Role involved (if applicable)
	Permission  string // Permission involved (if applicable)
	PrincipalID string // Principal involved (if applicable)
	ActorID     string // Actor who triggered the error (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithEntity adds entity information to the error.
func (e *Error) WithEntity(entityID string) *Error {
	e.EntityID = entityID
	return e
}

// WithRole adds role information to the error.
func (e *Error) WithRole(role string) *Error {
	e.Role = role
	return e
}

// WithPermission adds permission information to the error.
func (e *Error) WithPermission(permission string) *Error {
	e.Permission = permission
	return e
}

// WithPrincipal adds principal information to the error.
func (e *Error) WithPrincipal(principalID string) *Error {
	e.PrincipalID = principalID
	return e
}

// WithActor adds actor information to the error.
func (e *Error) WithActor(actorID string) *Error {
	e.ActorID = actorID
	return e
}

// IsUnauthorized checks if an error is an authorization error.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsNotFound checks if an error is any of the not-found sentinels.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEntityNotFound) ||
		errors.Is(err, ErrClassNotFound) ||
		errors.Is(err, ErrRoleNotFound) ||
		errors.Is(err, ErrPermissionNotFound) ||
		errors.Is(err, ErrRelationshipTypeNotFound) ||
		errors.Is(err, ErrPolicyNotFound) ||
		errors.Is(err, ErrAssignmentNotFound)
}

// IsCannotDelegate checks if an error is due to lacking delegation rights.
func IsCannotDelegate(err error) bool {
	return errors.Is(err, ErrCannotDelegate)
}

// IsInvalidSchedule checks if an error is due to a malformed cron expression.
func IsInvalidSchedule(err error) bool {
	return errors.Is(err, ErrInvalidSchedule)
}

// IsInvalidConditions checks if an error is due to a malformed policy
// condition document.
func IsInvalidConditions(err error) bool {
	return errors.Is(err, ErrInvalidConditions)
}
