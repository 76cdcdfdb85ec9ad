package media

import "fmt"

// StorageError reports a durable media write failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("media storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// AuthResolutionError means the upload credential could not be resolved to a
// platform application, so no upload session can be opened.
type AuthResolutionError struct {
	Remote string
}

func (e *AuthResolutionError) Error() string {
	return "resolve app identity: " + e.Remote
}

// SessionError means the upload session could not be created. Remote carries
// the platform's error payload.
type SessionError struct {
	Remote string
}

func (e *SessionError) Error() string {
	return "open upload session: " + e.Remote
}

// UploadError means the byte transfer into an open session failed.
type UploadError struct {
	Remote string
}

func (e *UploadError) Error() string {
	return "upload bytes: " + e.Remote
}
