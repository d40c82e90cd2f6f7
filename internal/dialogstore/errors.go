package dialogstore

import "errors"

// ErrIllegalTransition is returned by Transition when from->to is not
// an edge in the state machine. The dialog is left untouched.
var ErrIllegalTransition = errors.New("dialogstore: illegal transition")

// ErrUnknownCallID is returned by Lookup and Transition for a Call-ID
// with no dialog on record.
var ErrUnknownCallID = errors.New("dialogstore: unknown call id")
