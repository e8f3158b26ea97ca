package pipeline

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures
type Kind int

const (
	// KindNetwork is a connection or IO failure while fetching
	KindNetwork Kind = iota + 1
	// KindDecode is malformed or unsupported image data
	KindDecode
	// KindCompress is a failure re-encoding or re-decoding the image
	KindCompress
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindDecode:
		return "decode"
	case KindCompress:
		return "compress"
	default:
		return "unknown"
	}
}

// Error is a failure in one stage of the pipeline
type Error struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s error loading %s: %s", e.Kind, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a pipeline Error of the given kind
func IsKind(err error, kind Kind) bool {
	var perr *Error
	return errors.As(err, &perr) && perr.Kind == kind
}

// ErrNoImage is returned when the codec produces no image without an error
var ErrNoImage = errors.New("codec returned no image")
