package notes

import "errors"

// ErrNotAuthenticated is returned when an operation runs without a resolved principal.
var ErrNotAuthenticated = errors.New("not authenticated")

// ErrNotFound is returned when a note is missing or owned by someone else.
// The two cases are deliberately reported the same way.
var ErrNotFound = errors.New("note not found")

// ErrStorage matches every *StorageError via errors.Is.
var ErrStorage = errors.New("note storage failure")

// ErrNoDocument is returned by a Store when the requested id does not exist.
var ErrNoDocument = errors.New("document not found")

// StorageError wraps a failure of the remote note store. Op names the repository
// operation, Err keeps the underlying cause for logging.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	if e.Err == nil {
		return ErrStorage.Error() + ": " + e.Op
	}
	return ErrStorage.Error() + ": " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrStorage) match any StorageError.
func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
