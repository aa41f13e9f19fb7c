package caption

import "errors"

var (
	// ErrNoCaption is returned when a backend produced no usable caption text.
	ErrNoCaption = errors.New("no caption generated")
	// ErrUnsupported is returned for files whose extension is not a supported image type.
	ErrUnsupported = errors.New("unsupported image type")
	// ErrUnknownBackend is returned by NewCaptioner for an unrecognized backend kind.
	ErrUnknownBackend = errors.New("unknown caption backend")
)
