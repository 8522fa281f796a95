package codec

import "github.com/teranos/citykit/errors"

// Decoding failures. Each is wrapped with the document path of the offending
// key; match with errors.Is.
var (
	// ErrMalformedBase64 is returned when a packed payload is not valid base64
	ErrMalformedBase64 = errors.New("malformed base64 payload")

	// ErrTruncatedPayload is returned when the decoded byte length does not
	// fit the layout the tag declares
	ErrTruncatedPayload = errors.New("truncated payload")

	// ErrUnknownTag is returned when a tag is applied to a value shape it
	// cannot describe, e.g. a facade tag on a string
	ErrUnknownTag = errors.New("unknown tag for value")

	// ErrMalformedDocument is returned when the tree itself has the wrong
	// shape: a non-string payload, or a facade bucket that is not a list of
	// lists of strings
	ErrMalformedDocument = errors.New("malformed document")
)
