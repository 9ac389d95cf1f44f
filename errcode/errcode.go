package errcode

// Code is a stable, host-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	// ResourceExhausted: no free bus slot / queue slot. Recoverable by
	// retrying later or reporting hardware-unavailable to the guest.
	ResourceExhausted Code = "resource_exhausted"

	// InvalidArg: address/pin outside its declared range. A guest
	// programming error, surfaced immediately, never retried.
	InvalidArg Code = "invalid_arg"

	// NoDevice: I2C probe/address miss. Expected during discovery.
	NoDevice Code = "no_device"

	// IOError: host-reported failure during a bridged operation.
	IOError Code = "io_error"

	// Timeout: a bridge wait exceeded its bound.
	Timeout Code = "timeout"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// Wire maps a Code to the small integer carried in a bridge slot's
// error field, and back. Zero is success on the wire.
func Wire(c Code) int32 {
	switch c {
	case OK:
		return 0
	case ResourceExhausted:
		return 1
	case InvalidArg:
		return 2
	case NoDevice:
		return 3
	case IOError:
		return 4
	case Timeout:
		return 5
	default:
		return 6
	}
}

func FromWire(v int32) Code {
	switch v {
	case 0:
		return OK
	case 1:
		return ResourceExhausted
	case 2:
		return InvalidArg
	case 3:
		return NoDevice
	case 4:
		return IOError
	case 5:
		return Timeout
	default:
		return Error
	}
}
