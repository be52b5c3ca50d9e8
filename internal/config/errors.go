package config

import "errors"

// ErrMissingJWTSecret aborts startup; signing tokens without a secret
// would make every issued session forgeable.
var ErrMissingJWTSecret = errors.New("config: JWT_SECRET is required")
