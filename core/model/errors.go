package model

import "errors"

var (
	ErrInvalidTime     = errors.New("invalid clock time")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidSnapshot = errors.New("invalid schedule snapshot")
)
