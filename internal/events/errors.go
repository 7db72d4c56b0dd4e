package events

import "errors"

// ErrEmptyAfterSanitize means a required text field was only markup.
var ErrEmptyAfterSanitize = errors.New("title and location must contain text")
