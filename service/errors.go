package service

import "fmt"

// panicErrorCode is the code attached to a Call.Error raised from a
// recovered method panic; EFAULT's numeric value, chosen for its
// conventional "something went wrong internally" meaning, without pulling
// in syscall for a single constant.
const panicErrorCode = 14

// abortedErrorCode is the code attached to a Call's terminal Error once it
// has been Abort-ed; ECANCELED's numeric value on Linux, chosen for the
// same reason panicErrorCode avoids pulling in syscall for one constant.
const abortedErrorCode = 125

var errFragmentBufferFull = fmt.Errorf("service: fragment buffer full")
var errCallAborted = fmt.Errorf("service: call has been aborted")

func callClosedError(s State) error {
	return fmt.Errorf("service: call already in terminal state %s", s)
}
