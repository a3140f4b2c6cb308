package upstream

import (
	"errors"
	"fmt"
)

// TransientError marks a failure worth retrying: a network error or an
// upstream 5xx. Status is zero when the request never reached the server.
type TransientError struct {
	Status int
	Err    error
}

func (e *TransientError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("upstream returned status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("upstream request failed: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ClientError is a terminal 4xx response. Retrying cannot fix a malformed
// query, so it propagates immediately.
type ClientError struct {
	Status int
	Detail string
}

func (e *ClientError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("upstream rejected request with status %d", e.Status)
	}
	return fmt.Sprintf("upstream rejected request with status %d: %s", e.Status, e.Detail)
}

// PartialResultError reports a pagination loop that fetched some pages
// before a terminal failure. It carries the records already fetched so the
// caller can decide whether a partial answer is useful.
type PartialResultError struct {
	Records    []RawAwardRecord
	FailedPage int
	Err        error
}

func (e *PartialResultError) Error() string {
	return fmt.Sprintf("fetched %d records before page %d failed: %v",
		len(e.Records), e.FailedPage, e.Err)
}

func (e *PartialResultError) Unwrap() error { return e.Err }

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}
