package dispatch

import (
	"errors"

	"github.com/kilianp07/dispatchboard/core/slot"
)

var (
	// ErrGestureActive is returned by Begin while another card is being dragged.
	ErrGestureActive = errors.New("gesture already active")
	// ErrNoGesture is returned by Drop when nothing is being dragged.
	ErrNoGesture      = errors.New("no active gesture")
	ErrEmptyWorkOrder = errors.New("work order id required")
	ErrMalformedKey   = slot.ErrMalformedKey
)
