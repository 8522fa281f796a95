package codec

import (
	"encoding/base64"
	"encoding/binary"
	"math"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/citykit/errors"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		key     string
		tag     Tag
		logical string
	}{
		{"name", TagNone, "name"},
		{"startIntersectionId", TagNone, "startIntersectionId"},
		{"some_plain_key", TagNone, "some_plain_key"},
		{"b64v2_uv", TagVector2, "uv"},
		{"b64v3_position", TagVector3, "position"},
		{"b64q_rotation", TagQuaternion, "rotation"},
		{"b64ia_indices", TagUintArray, "indices"},
		{"b64v3a_vertices", TagVector3Array, "vertices"},
		{"b64v2a_uvs", TagVector2Array, "uvs"},
		{"b64f_instances", TagFacade, "instances"},
		{"b64v3a_lane_points", TagVector3Array, "lane_points"},
		{"b64x_ids", TagGenericArray, "ids"},
		{"b64fa_ids", TagGenericArray, "ids"},
		{"b64v3", TagVector3, ""},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			tag, logical := ParseKey(tt.key)
			assert.Equal(t, tt.tag, tag)
			assert.Equal(t, tt.logical, logical)
		})
	}
}

func TestKey(t *testing.T) {
	assert.Equal(t, "b64v3_position", Key(TagVector3, "position"))
	assert.Equal(t, "b64f_instances", Key(TagFacade, "instances"))
	assert.Equal(t, "name", Key(TagNone, "name"))
}

func TestDecode_Vector3(t *testing.T) {
	payload := rawFloats(1.0, 2.0, 3.0)

	out, err := Decode(map[string]any{"b64v3_position": payload})
	require.NoError(t, err)

	assert.Equal(t, Vector3{1.0, 2.0, 3.0}, out["position"])
	assert.NotContains(t, out, "b64v3_position")
}

func TestDecode_UintArray(t *testing.T) {
	raw := make([]byte, 12)
	binary.LittleEndian.PutUint32(raw[0:], 2)
	binary.LittleEndian.PutUint32(raw[4:], 7)
	binary.LittleEndian.PutUint32(raw[8:], 9)

	out, err := Decode(map[string]any{"b64ia_indices": base64.StdEncoding.EncodeToString(raw)})
	require.NoError(t, err)
	assert.Equal(t, []uint32{7, 9}, out["indices"])
}

func TestDecode_FixedWidthForms(t *testing.T) {
	out, err := Decode(map[string]any{
		"b64v2_uv":       rawFloats(0.25, -0.5),
		"b64q_rotation":  rawFloats(0, 0, 0, 1),
		"b64v3_scale":    rawFloats(1, 1, 1),
		"materialId":     float64(-1),
		"name":           "road_12",
		"b64v3_disabled": nil,
	})
	require.NoError(t, err)

	assert.Equal(t, Vector2{0.25, -0.5}, out["uv"])
	assert.Equal(t, Quaternion{0, 0, 0, 1}, out["rotation"])
	assert.Equal(t, Vector3{1, 1, 1}, out["scale"])
	assert.Equal(t, float64(-1), out["materialId"])
	assert.Equal(t, "road_12", out["name"])

	v, ok := out["disabled"]
	assert.True(t, ok, "null payload should keep the stripped key")
	assert.Nil(t, v)
}

func TestDecode_GenericArrayFallback(t *testing.T) {
	out, err := Decode(map[string]any{"b64zz_flags": EncodeUints([]uint32{1, 2, 3})})
	require.NoError(t, err)
	assert.Equal(t, []uint32{1, 2, 3}, out["flags"])
}

func TestRoundTrip_Arrays(t *testing.T) {
	special := []float32{
		math.Float32frombits(0x7f7fffff), // max float32
		math.Float32frombits(0x00000001), // smallest subnormal
		float32(math.Copysign(0, -1)),
		3.14159,
		-1e-7,
		12345.678,
	}

	for _, n := range []int{0, 1, 7} {
		t.Run("vector3s", func(t *testing.T) {
			in := make([]Vector3, n)
			for i := range in {
				in[i] = Vector3{special[i%6], special[(i+1)%6], special[(i+2)%6]}
			}
			out, err := Decode(map[string]any{"b64v3a_points": EncodeVector3s(in)})
			require.NoError(t, err)
			got := out["points"].([]Vector3)
			require.Len(t, got, n)
			for i := range in {
				assertSameBits(t, in[i][:], got[i][:])
			}
		})

		t.Run("vector2s", func(t *testing.T) {
			in := make([]Vector2, n)
			for i := range in {
				in[i] = Vector2{special[i%6], special[(i+3)%6]}
			}
			out, err := Decode(map[string]any{"b64v2a_uvs": EncodeVector2s(in)})
			require.NoError(t, err)
			got := out["uvs"].([]Vector2)
			require.Len(t, got, n)
			for i := range in {
				assertSameBits(t, in[i][:], got[i][:])
			}
		})

		t.Run("uints", func(t *testing.T) {
			in := make([]uint32, n)
			for i := range in {
				in[i] = uint32(i*2654435761) ^ 0xdeadbeef
			}
			out, err := Decode(map[string]any{"b64ia_indices": EncodeUints(in)})
			require.NoError(t, err)
			assert.Equal(t, in, out["indices"])
		})
	}
}

func TestRoundTrip_FixedWidth(t *testing.T) {
	q := Quaternion{0.70710677, 0, -0.70710677, float32(math.Copysign(0, -1))}

	out, err := Decode(map[string]any{
		"b64q_rotation": EncodeQuaternion(q),
		"b64v2_uv":      EncodeVector2(Vector2{1.5, 2.5}),
		"b64v3_pos":     EncodeVector3(Vector3{-4, 5.125, 6}),
	})
	require.NoError(t, err)

	got := out["rotation"].(Quaternion)
	assertSameBits(t, q[:], got[:])
	assert.Equal(t, Vector2{1.5, 2.5}, out["uv"])
	assert.Equal(t, Vector3{-4, 5.125, 6}, out["pos"])
}

func TestDecode_Facade(t *testing.T) {
	var m1, m2 Matrix4
	for i := range m1 {
		m1[i] = float32(i)
		m2[i] = float32(-i) / 3
	}

	in := map[string]any{
		"b64f_instances": map[string]any{
			"0": []any{
				[]any{EncodeFacadeRecord(m1), EncodeFacadeRecord(m2)},
				[]any{},
			},
			"3": []any{},
		},
	}

	out, err := Decode(in)
	require.NoError(t, err)

	facade, ok := out["instances"].(Facade)
	require.True(t, ok, "facade key should be rewritten and decoded")
	require.Len(t, facade["0"], 2)
	require.Len(t, facade["0"][0], 2)
	assert.Equal(t, m1, facade["0"][0][0])
	assertSameBits(t, m2[:], facade["0"][0][1][:])
	assert.Empty(t, facade["0"][1])
	assert.Empty(t, facade["3"])
}

func TestDecode_NestedStructures(t *testing.T) {
	in := map[string]any{
		"roads": []any{
			map[string]any{
				"b64v3a_points": EncodeVector3s([]Vector3{{1, 2, 3}}),
				"data": map[string]any{
					"name": "main street",
					"propLines": []any{
						map[string]any{"b64v3_position": EncodeVector3(Vector3{9, 8, 7})},
					},
				},
			},
			// Sequence elements carry no key, so packed-looking strings stay put
			"b64v3_notatag",
		},
		"b64v3a_lanes": map[string]any{
			"b64v2_uv": EncodeVector2(Vector2{1, 1}),
		},
	}

	out, err := Decode(in)
	require.NoError(t, err)

	roads := out["roads"].([]any)
	road := roads[0].(map[string]any)
	assert.Equal(t, []Vector3{{1, 2, 3}}, road["points"])
	data := road["data"].(map[string]any)
	assert.Equal(t, "main street", data["name"])
	prop := data["propLines"].([]any)[0].(map[string]any)
	assert.Equal(t, Vector3{9, 8, 7}, prop["position"])
	assert.Equal(t, "b64v3_notatag", roads[1])

	lanes, ok := out["b64v3a_lanes"].(map[string]any)
	require.True(t, ok, "map under a non-facade tag keeps its key")
	assert.Equal(t, Vector2{1, 1}, lanes["uv"])
}

func TestDecode_DoesNotMutateInput(t *testing.T) {
	in := map[string]any{
		"b64v3_position": rawFloats(1, 2, 3),
		"children": []any{
			map[string]any{"b64ia_ids": EncodeUints([]uint32{4})},
		},
	}
	snapshot := map[string]any{
		"b64v3_position": rawFloats(1, 2, 3),
		"children": []any{
			map[string]any{"b64ia_ids": EncodeUints([]uint32{4})},
		},
	}

	_, err := Decode(in)
	require.NoError(t, err)
	assert.True(t, reflect.DeepEqual(snapshot, in))
}

func TestDecode_Errors(t *testing.T) {
	short := base64.StdEncoding.EncodeToString([]byte{1, 2, 3})
	badCount := func() string {
		raw := make([]byte, 8)
		binary.LittleEndian.PutUint32(raw, 3)
		return base64.StdEncoding.EncodeToString(raw)
	}()

	tests := []struct {
		name    string
		in      map[string]any
		want    error
		pathHas string
	}{
		{"bad base64", map[string]any{"b64v3_p": "***"}, ErrMalformedBase64, "b64v3_p"},
		{"short vector", map[string]any{"b64v3_p": rawFloats(1, 2)}, ErrTruncatedPayload, "b64v3_p"},
		{"long vector", map[string]any{"b64v2_p": rawFloats(1, 2, 3)}, ErrTruncatedPayload, "b64v2_p"},
		{"missing header", map[string]any{"b64ia_i": short}, ErrTruncatedPayload, "b64ia_i"},
		{"short array body", map[string]any{"b64ia_i": badCount}, ErrTruncatedPayload, "b64ia_i"},
		{"facade on string", map[string]any{"b64f_x": "AAAA"}, ErrUnknownTag, "b64f_x"},
		{"facade on list", map[string]any{"b64f_x": []any{}}, ErrUnknownTag, "b64f_x"},
		{"number payload", map[string]any{"b64v3_p": float64(3)}, ErrMalformedDocument, "b64v3_p"},
		{"facade bucket not list", map[string]any{"b64f_x": map[string]any{"0": "x"}}, ErrMalformedDocument, "b64f_x.0"},
		{"facade record short", map[string]any{"b64f_x": map[string]any{"0": []any{[]any{short}}}}, ErrTruncatedPayload, "b64f_x.0[0][0]"},
		{
			"nested path",
			map[string]any{"roads": []any{map[string]any{"b64v3_p": "!"}}},
			ErrMalformedBase64,
			"roads[0].b64v3_p",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
			assert.Contains(t, err.Error(), tt.pathHas)
		})
	}
}

func TestDecodeValue(t *testing.T) {
	key, v, err := DecodeValue("b64v3_position", rawFloats(1, 2, 3))
	require.NoError(t, err)
	assert.Equal(t, "position", key)
	assert.Equal(t, Vector3{1, 2, 3}, v)

	key, v, err = DecodeValue("speed", 12.5)
	require.NoError(t, err)
	assert.Equal(t, "speed", key)
	assert.Equal(t, 12.5, v)
}

func TestDecode_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			in := map[string]any{"b64ia_ids": EncodeUints([]uint32{uint32(i)})}
			out, err := Decode(in)
			assert.NoError(t, err)
			assert.Equal(t, []uint32{uint32(i)}, out["ids"])
		}(i)
	}
	wg.Wait()
}

func rawFloats(values ...float32) string {
	raw := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(v))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func assertSameBits(t *testing.T, want, got []float32) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, math.Float32bits(want[i]), math.Float32bits(got[i]), "element %d", i)
	}
}
