// Package errs contains the shared error taxonomy for platform calls. Every
// outbound call is fallible and failures are categorized into one of these so
// callers can branch without knowing the underlying client.
package errs

import "errors"

var (
	// ErrMissingPermission the bot lacks the permission for the action.
	ErrMissingPermission = errors.New("missing permission to perform action")
	// ErrUnknownBan no ban exists for the target.
	ErrUnknownBan = errors.New("no ban exists for this user")
	// ErrUnknownTarget the target user/member does not exist or already left.
	ErrUnknownTarget = errors.New("unknown target user")
	// ErrUnreachable the target cannot receive direct messages.
	ErrUnreachable = errors.New("cannot send messages to this user")
	// ErrRequestFailed generic platform request failure.
	ErrRequestFailed = errors.New("platform request failed")

	// ErrPermissionDenied the executor may not act on this target.
	ErrPermissionDenied = errors.New("permission denied")
)
