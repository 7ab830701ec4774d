package deadline

import (
	"strconv"
	"time"

	apperrors "github.com/louisbranch/deadlines/internal/platform/errors"
)

// ErrDeadlineExceeded matches every rejection produced by the interceptors
// through errors.Is.
var ErrDeadlineExceeded = apperrors.New(apperrors.CodeDeadlineExceeded, "deadline exceeded")

// ExceededError builds the rejection returned when a deadline has passed.
// The message stays generic; details go into metadata for logs and gRPC
// error details.
func ExceededError(direction Direction, dispatch Dispatch, past time.Duration) *apperrors.Error {
	return apperrors.WithMetadata(apperrors.CodeDeadlineExceeded, "deadline exceeded", map[string]string{
		"direction":        string(direction),
		"dispatch":         dispatch.String(),
		"past_deadline_ms": strconv.FormatInt(past.Milliseconds(), 10),
	})
}
