// File: cuculi/config/errors.go
package config

import (
	"errors"
	"fmt"
)

var (
	// ErrNotLoaded is returned by accessors before the first successful load.
	ErrNotLoaded = errors.New("configuration not loaded")

	// ErrSourceNotFound is returned when the base source cannot be located.
	ErrSourceNotFound = errors.New("configuration source not found")

	// ErrSourceTooLarge is returned when a source exceeds the configured size limit.
	ErrSourceTooLarge = errors.New("configuration source exceeds size limit")

	// ErrUnknownFormat is returned when a source format cannot be determined.
	ErrUnknownFormat = errors.New("unable to determine configuration format")

	// ErrAlreadyWatching is returned by Watch when a watcher is already running.
	ErrAlreadyWatching = errors.New("loader is already watching")

	// ErrTooManySubscribers is returned by Subscribe once MaxSubscribers is reached.
	ErrTooManySubscribers = errors.New("too many subscribers")

	// ErrClosed is returned by operations on a closed loader.
	ErrClosed = errors.New("loader is closed")
)

// MissingKeyError reports a key path absent from every layer of a snapshot.
type MissingKeyError struct {
	Path string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("configuration key not found: %s", e.Path)
}

// SourceParseError reports a source whose content could not be read or parsed.
// The active snapshot is never replaced when one of these is returned.
type SourceParseError struct {
	Source string
	Origin string
	Format string
	Err    error
}

func (e *SourceParseError) Error() string {
	if e.Format != "" {
		return fmt.Sprintf("failed to parse %s source %q (%s): %v", e.Format, e.Source, e.Origin, e.Err)
	}
	return fmt.Sprintf("failed to parse source %q (%s): %v", e.Source, e.Origin, e.Err)
}

func (e *SourceParseError) Unwrap() error { return e.Err }

// UnmatchedEnvironmentWarning is recorded on a snapshot when the requested
// environment has no override source. Loading continues with the base only.
type UnmatchedEnvironmentWarning struct {
	Environment string
	Searched    string
}

func (w *UnmatchedEnvironmentWarning) Error() string {
	return fmt.Sprintf("no override source for environment %q (searched %s), using base configuration only",
		w.Environment, w.Searched)
}

// IsMissingKey reports whether err is, or wraps, a *MissingKeyError.
func IsMissingKey(err error) bool {
	var mk *MissingKeyError
	return errors.As(err, &mk)
}
