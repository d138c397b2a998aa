package power

import "errors"

var (
	ErrTileMissing      = errors.New("no tile at coordinate")
	ErrImpassable       = errors.New("tile cannot host this device")
	ErrUnknownCategory  = errors.New("unknown device category")
	ErrDeviceMissing    = errors.New("no such device")
	ErrTickInProgress   = errors.New("turn in progress")
	ErrNotifyInProgress = errors.New("notification in progress")
)
