package pipeline

import "github.com/oklog/ulid/v2"

// NewJobID returns a time-ordered unique job id.
func NewJobID() string {
	return ulid.Make().String()
}
