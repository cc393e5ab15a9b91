package backends

import (
	"errors"
	"fmt"
)

// ErrNotImplemented signals that a pipeline does not declare default
// parameters. It never escapes the run entry point directly.
var ErrNotImplemented = errors.New("not implemented")

// NotFoundError reports a missing checkpoint, model file, pipeline class
// or attribute.
type NotFoundError struct {
	What string
	Name string
}

func (e *NotFoundError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s not found", e.What)
	}
	return fmt.Sprintf("%s %q not found", e.What, e.Name)
}

// InvalidTypeError reports an input of unsupported shape passed to one of
// the typed loaders or to a device setter.
type InvalidTypeError struct {
	What     string
	Got      any
	Expected string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("unsupported type %T for loading %s: expected %s", e.Got, e.What, e.Expected)
}

// InvalidConfigurationError reports bad or incomplete parameters, either
// at pipeline construction or at instantiation.
type InvalidConfigurationError struct {
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return e.Reason
}

func InvalidConfigurationf(format string, args ...any) *InvalidConfigurationError {
	return &InvalidConfigurationError{Reason: fmt.Sprintf(format, args...)}
}

// IllegalStateError reports an operation attempted in a state that cannot
// satisfy it, e.g. registering sub-models on an unconstructed pipeline or
// applying a pipeline that cannot be instantiated.
type IllegalStateError struct {
	Reason string
}

func (e *IllegalStateError) Error() string {
	return e.Reason
}

// DeviceTransferError wraps a failure while propagating a device move
// through the pipeline graph. It is recoverable: the graph may be left on
// mixed devices and remains usable on the previous one.
type DeviceTransferError struct {
	Device Device
	Err    error
}

func (e *DeviceTransferError) Error() string {
	return fmt.Sprintf("transfer to device %s failed: %s", e.Device, e.Err)
}

func (e *DeviceTransferError) Unwrap() error {
	return e.Err
}
