package identity

import "errors"

// The service reports failures through a small typed taxonomy so the
// HTTP layer can map them to statuses without string matching. All of
// these are recoverable caller errors; nothing here is retried.

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

type AuthenticationError struct {
	Message string
}

func (e *AuthenticationError) Error() string { return e.Message }

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

type BadRequestError struct {
	Message string
}

func (e *BadRequestError) Error() string { return e.Message }

func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

func IsAuthentication(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsBadRequest(err error) bool {
	var target *BadRequestError
	return errors.As(err, &target)
}
