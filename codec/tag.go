package codec

import "strings"

// Tag identifies the binary layout declared by a document key's prefix.
type Tag int

const (
	// TagNone marks a plain key with no packed prefix. Its value passes through.
	TagNone Tag = iota
	TagVector2
	TagVector3
	TagQuaternion
	TagUintArray
	TagVector3Array
	TagVector2Array
	TagFacade
	// TagGenericArray covers any other b64-prefixed tag. It decodes as a
	// count-prefixed uint32 array.
	TagGenericArray
)

const (
	packedMarker = "b64"
	delimiter    = "_"
)

var tagsByPrefix = map[string]Tag{
	"b64v2":  TagVector2,
	"b64v3":  TagVector3,
	"b64q":   TagQuaternion,
	"b64ia":  TagUintArray,
	"b64v3a": TagVector3Array,
	"b64v2a": TagVector2Array,
	"b64f":   TagFacade,
}

var tagNames = map[Tag]string{
	TagNone:         "none",
	TagVector2:      "b64v2",
	TagVector3:      "b64v3",
	TagQuaternion:   "b64q",
	TagUintArray:    "b64ia",
	TagVector3Array: "b64v3a",
	TagVector2Array: "b64v2a",
	TagFacade:       "b64f",
	TagGenericArray: "b64*",
}

// String returns the wire prefix of the tag.
func (t Tag) String() string {
	if name, ok := tagNames[t]; ok {
		return name
	}
	return "unknown"
}

// Packed reports whether values under this tag carry a base64 payload.
func (t Tag) Packed() bool {
	return t != TagNone
}

// fixedWidth returns the float count of the fixed-width forms, 0 otherwise.
func (t Tag) fixedWidth() int {
	switch t {
	case TagVector2:
		return 2
	case TagVector3:
		return 3
	case TagQuaternion:
		return 4
	default:
		return 0
	}
}

// ParseKey splits a document key into its tag and logical key.
// Everything before the first "_" is the candidate tag; keys whose tag does
// not start with "b64" are returned unchanged with TagNone.
func ParseKey(key string) (Tag, string) {
	prefix, rest, found := strings.Cut(key, delimiter)
	if !strings.HasPrefix(prefix, packedMarker) {
		return TagNone, key
	}
	if !found {
		rest = ""
	}
	if tag, ok := tagsByPrefix[prefix]; ok {
		return tag, rest
	}
	return TagGenericArray, rest
}

// Key builds the wire key for a logical key under tag t.
// TagNone and TagGenericArray return the logical key unchanged.
func Key(t Tag, logical string) string {
	switch t {
	case TagNone, TagGenericArray:
		return logical
	}
	return t.String() + delimiter + logical
}
