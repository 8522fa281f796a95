package codec

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"strconv"

	"github.com/teranos/citykit/errors"
)

// Vector2 is a decoded b64v2 value.
type Vector2 [2]float32

// Vector3 is a decoded b64v3 value.
type Vector3 [3]float32

// Quaternion is a decoded b64q value in x, y, z, w order.
type Quaternion [4]float32

// Matrix4 is one facade record: 16 floats, column-major as exported.
type Matrix4 [16]float32

// Facade maps bucket names to rows of records.
type Facade map[string][][]Matrix4

const (
	countSize       = 4
	floatSize       = 4
	facadeFloats    = 16
	facadeRecordLen = countSize + facadeFloats*floatSize
)

// Decode returns a copy of tree with every packed field decoded and its key
// rewritten to the logical form. The input is never modified.
func Decode(tree map[string]any) (map[string]any, error) {
	return decodeMap("", tree)
}

// DecodeValue decodes a single map entry the way Decode would, returning
// the key it should be stored under.
func DecodeValue(key string, value any) (string, any, error) {
	return decodeEntry(key, key, value)
}

func decodeMap(path string, m map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(m))
	for key, value := range m {
		newKey, decoded, err := decodeEntry(joinPath(path, key), key, value)
		if err != nil {
			return nil, err
		}
		out[newKey] = decoded
	}
	return out, nil
}

func decodeList(path string, list []any) ([]any, error) {
	out := make([]any, len(list))
	for i, value := range list {
		decoded, err := decodeUnkeyed(path+"["+strconv.Itoa(i)+"]", value)
		if err != nil {
			return nil, err
		}
		out[i] = decoded
	}
	return out, nil
}

// decodeUnkeyed handles sequence elements. Without a key there is no tag, so
// scalars pass through and containers are walked.
func decodeUnkeyed(path string, value any) (any, error) {
	switch v := value.(type) {
	case map[string]any:
		return decodeMap(path, v)
	case []any:
		return decodeList(path, v)
	default:
		return value, nil
	}
}

func decodeEntry(path, key string, value any) (string, any, error) {
	tag, logical := ParseKey(key)

	switch v := value.(type) {
	case map[string]any:
		if tag == TagFacade {
			facade, err := decodeFacade(path, v)
			if err != nil {
				return "", nil, err
			}
			return logical, facade, nil
		}
		decoded, err := decodeMap(path, v)
		return key, decoded, err

	case []any:
		if tag == TagFacade {
			return "", nil, errors.Wrapf(ErrUnknownTag, "%s: facade tag on a list", path)
		}
		decoded, err := decodeList(path, v)
		return key, decoded, err
	}

	if !tag.Packed() {
		return key, value, nil
	}
	if value == nil {
		return logical, nil, nil
	}
	if tag == TagFacade {
		return "", nil, errors.Wrapf(ErrUnknownTag, "%s: facade tag on a %T", path, value)
	}

	payload, ok := value.(string)
	if !ok {
		return "", nil, errors.Wrapf(ErrMalformedDocument, "%s: packed payload must be a string, got %T", path, value)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, errors.Wrapf(ErrMalformedBase64, "%s: %v", path, err)
	}
	decoded, err := decodeScalar(path, tag, raw)
	if err != nil {
		return "", nil, err
	}
	return logical, decoded, nil
}

// decodeScalar interprets raw bytes by tag. Every packed tag other than the
// fixed-width forms is an array with a uint32 count at offset 0.
func decodeScalar(path string, tag Tag, raw []byte) (any, error) {
	if width := tag.fixedWidth(); width > 0 {
		if len(raw) != width*floatSize {
			return nil, errors.Wrapf(ErrTruncatedPayload, "%s: %s needs %d bytes, have %d",
				path, tag, width*floatSize, len(raw))
		}
		floats := readFloats(raw, width)
		switch tag {
		case TagVector2:
			return Vector2(floats), nil
		case TagVector3:
			return Vector3(floats), nil
		default:
			return Quaternion(floats), nil
		}
	}

	if len(raw) < countSize {
		return nil, errors.Wrapf(ErrTruncatedPayload, "%s: %s missing count header, have %d bytes", path, tag, len(raw))
	}
	count := int(binary.LittleEndian.Uint32(raw))
	body := raw[countSize:]

	switch tag {
	case TagVector3Array:
		n := count / 3
		if err := checkBody(path, tag, body, n*3*floatSize); err != nil {
			return nil, err
		}
		out := make([]Vector3, n)
		for i := range out {
			out[i] = Vector3(readFloats(body[i*12:], 3))
		}
		return out, nil

	case TagVector2Array:
		n := count / 2
		if err := checkBody(path, tag, body, n*2*floatSize); err != nil {
			return nil, err
		}
		out := make([]Vector2, n)
		for i := range out {
			out[i] = Vector2(readFloats(body[i*8:], 2))
		}
		return out, nil

	case TagUintArray, TagGenericArray:
		if err := checkBody(path, tag, body, count*4); err != nil {
			return nil, err
		}
		out := make([]uint32, count)
		for i := range out {
			out[i] = binary.LittleEndian.Uint32(body[i*4:])
		}
		return out, nil
	}

	return nil, errors.AssertionFailedf("%s: unhandled tag %s", path, tag)
}

func checkBody(path string, tag Tag, body []byte, need int) error {
	if need < 0 || len(body) < need {
		return errors.Wrapf(ErrTruncatedPayload, "%s: %s body needs %d bytes, have %d", path, tag, need, len(body))
	}
	return nil
}

// decodeFacade decodes every record before the result map is assembled.
func decodeFacade(path string, buckets map[string]any) (Facade, error) {
	type bucket struct {
		name string
		rows [][]Matrix4
	}
	decoded := make([]bucket, 0, len(buckets))

	for name, value := range buckets {
		bucketPath := joinPath(path, name)
		rows, ok := value.([]any)
		if !ok {
			return nil, errors.Wrapf(ErrMalformedDocument, "%s: facade bucket must be a list, got %T", bucketPath, value)
		}
		out := make([][]Matrix4, len(rows))
		for i, row := range rows {
			rowPath := bucketPath + "[" + strconv.Itoa(i) + "]"
			records, ok := row.([]any)
			if !ok {
				return nil, errors.Wrapf(ErrMalformedDocument, "%s: facade row must be a list, got %T", rowPath, row)
			}
			out[i] = make([]Matrix4, len(records))
			for j, record := range records {
				m, err := decodeFacadeRecord(rowPath+"["+strconv.Itoa(j)+"]", record)
				if err != nil {
					return nil, err
				}
				out[i][j] = m
			}
		}
		decoded = append(decoded, bucket{name: name, rows: out})
	}

	facade := make(Facade, len(decoded))
	for _, b := range decoded {
		facade[b.name] = b.rows
	}
	return facade, nil
}

func decodeFacadeRecord(path string, record any) (Matrix4, error) {
	payload, ok := record.(string)
	if !ok {
		return Matrix4{}, errors.Wrapf(ErrMalformedDocument, "%s: facade record must be a string, got %T", path, record)
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Matrix4{}, errors.Wrapf(ErrMalformedBase64, "%s: %v", path, err)
	}
	if len(raw) != facadeRecordLen {
		return Matrix4{}, errors.Wrapf(ErrTruncatedPayload, "%s: facade record needs %d bytes, have %d",
			path, facadeRecordLen, len(raw))
	}
	// The leading count is always 16 on export and carries no information.
	_ = binary.LittleEndian.Uint32(raw)
	return Matrix4(readFloats(raw[countSize:], facadeFloats)), nil
}

func readFloats(b []byte, n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*floatSize:]))
	}
	return out
}

func joinPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}
