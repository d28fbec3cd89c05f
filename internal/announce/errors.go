package announce

import "fmt"

// NetworkError marks a failure at the fetch stage: timeout, DNS, TLS, or a
// non-2xx status. It aborts the whole run.
type NetworkError struct {
	URL    string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError marks a row-level extraction failure. It is absorbed and
// logged; it never fails the batch.
type ParseError struct {
	Row int
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse row %d: %v", e.Row, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// PersistenceError marks a store failure. Per-record persistence errors are
// absorbed by the saver; a wrapping PersistenceError returned from SaveNew
// means the store could not proceed at all.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// DeliveryError marks a mail transport failure after retries are exhausted.
type DeliveryError struct {
	Subject  string
	Attempts int
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver %q after %d attempts: %v", e.Subject, e.Attempts, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }
