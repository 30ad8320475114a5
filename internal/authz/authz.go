// Package authz holds the access decision logic for the user registry. It is
// deliberately free of storage and transport concerns: every handler builds an
// Actor from the verified token claims and asks Decide before touching the
// database.
package authz

import (
	"errors"

	"serwis-uzytkownikow/internal/models"
)

var ErrForbidden = errors.New("operation not permitted for this role")

type Operation string

const (
	OpCreateUser  Operation = "user.create"
	OpListUsers   Operation = "user.list"
	OpReadUser    Operation = "user.read"
	OpReadSelf    Operation = "user.read_self"
	OpUpdateUser  Operation = "user.update"
	OpChangeRole  Operation = "user.change_role"
	OpChangeQuota Operation = "user.change_quota"
	OpDeleteUser  Operation = "user.delete"
	OpReadEvents  Operation = "events.read"
)

// Actor is the identity making a request, as asserted by its credential.
type Actor struct {
	UserID int64
	Role   string
}

// Decide evaluates the precedence rules in order, first match wins:
//
//  1. Reading your own profile is always allowed.
//  2. Registry-wide operations require the admin role.
//  3. Operations on a specific user require admin or the user themselves.
//
// Unknown operations are denied.
func Decide(actor Actor, op Operation, targetID int64) error {
	if op == OpReadSelf && actor.UserID == targetID {
		return nil
	}

	switch op {
	case OpCreateUser, OpListUsers, OpDeleteUser, OpChangeRole, OpChangeQuota, OpReadEvents:
		if actor.Role == models.RoleAdmin {
			return nil
		}
		return ErrForbidden
	case OpReadUser, OpUpdateUser:
		if actor.Role == models.RoleAdmin || actor.UserID == targetID {
			return nil
		}
		return ErrForbidden
	}

	return ErrForbidden
}

// UpdateRequest carries the fields a caller asked to change. Nil means the
// field was not present in the request.
type UpdateRequest struct {
	Email *string
	Role  *string
	Quota *int64
}

// AllowedUpdateFields applies the field-level gate on a permitted update: a
// non-admin editing their own record may change email, but role and quota are
// silently dropped rather than rejected.
func AllowedUpdateFields(actor Actor, req UpdateRequest) UpdateRequest {
	if actor.Role == models.RoleAdmin {
		return req
	}
	return UpdateRequest{Email: req.Email}
}
