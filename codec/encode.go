package codec

import (
	"encoding/base64"
	"encoding/binary"
	"math"
)

// The encoders mirror the city exporter's wire format. Array counts are the
// number of scalars written, so a list of N Vector3 carries a count of 3N.

// EncodeVector2 packs v for a b64v2 key.
func EncodeVector2(v Vector2) string {
	return encodeFloats(nil, v[:])
}

// EncodeVector3 packs v for a b64v3 key.
func EncodeVector3(v Vector3) string {
	return encodeFloats(nil, v[:])
}

// EncodeQuaternion packs q for a b64q key.
func EncodeQuaternion(q Quaternion) string {
	return encodeFloats(nil, q[:])
}

// EncodeUints packs values for a b64ia key.
func EncodeUints(values []uint32) string {
	buf := make([]byte, countSize+len(values)*4)
	binary.LittleEndian.PutUint32(buf, uint32(len(values)))
	for i, v := range values {
		binary.LittleEndian.PutUint32(buf[countSize+i*4:], v)
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// EncodeVector3s packs points for a b64v3a key.
func EncodeVector3s(points []Vector3) string {
	flat := make([]float32, 0, len(points)*3)
	for _, p := range points {
		flat = append(flat, p[:]...)
	}
	return encodeCounted(flat)
}

// EncodeVector2s packs points for a b64v2a key.
func EncodeVector2s(points []Vector2) string {
	flat := make([]float32, 0, len(points)*2)
	for _, p := range points {
		flat = append(flat, p[:]...)
	}
	return encodeCounted(flat)
}

// EncodeFacadeRecord packs one facade record.
func EncodeFacadeRecord(m Matrix4) string {
	return encodeCounted(m[:])
}

func encodeCounted(floats []float32) string {
	header := make([]byte, countSize)
	binary.LittleEndian.PutUint32(header, uint32(len(floats)))
	return encodeFloats(header, floats)
}

func encodeFloats(prefix []byte, floats []float32) string {
	buf := make([]byte, len(prefix)+len(floats)*floatSize)
	copy(buf, prefix)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[len(prefix)+i*floatSize:], math.Float32bits(f))
	}
	return base64.StdEncoding.EncodeToString(buf)
}
