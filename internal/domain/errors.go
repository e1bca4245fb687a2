package domain

import "errors"

// Request errors. Their text is shown to callers as-is.
var (
	ErrEmptyQuery       = errors.New("query cannot be empty")
	ErrDocumentNotFound = errors.New("document file not found")
	ErrNoChunks         = errors.New("document produced no chunks")
	ErrIndexBuild       = errors.New("failed to build vector index")
)

// Index errors.
var (
	// ErrEmptyIndex means no chunk could be embedded during a build.
	ErrEmptyIndex        = errors.New("no chunks could be embedded")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrInvalidWindow     = errors.New("chunk size must be positive and greater than overlap")
)

// Capability failures. Adapters wrap their errors with one of these so the
// degradation policy can be applied by kind.
var (
	ErrEmbedding  = errors.New("embedding failed")
	ErrGeneration = errors.New("generation failed")
)

var userFacing = []error{ErrEmptyQuery, ErrDocumentNotFound, ErrNoChunks, ErrIndexBuild}

// UserMessage returns the caller-facing message for err. Wrapped request errors
// collapse to their sentinel text; anything else keeps its own message.
func UserMessage(err error) string {
	for _, target := range userFacing {
		if errors.Is(err, target) {
			return target.Error()
		}
	}
	return err.Error()
}

// IsRequestError reports whether err is a validation failure of the request itself.
func IsRequestError(err error) bool {
	return errors.Is(err, ErrEmptyQuery)
}
