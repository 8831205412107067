package remote

import "errors"

var (
	ErrNoCommand      = errors.New("remote: no command configured")
	ErrAlreadyRunning = errors.New("remote: program already running")
)
