// Package codec decodes the packed fields of exported city documents.
//
// City files are JSON. Numeric-heavy leaves are stored as base64 strings
// whose key carries a layout prefix up to the first underscore:
//
//	b64v2_uv          2 float32
//	b64v3_position    3 float32
//	b64q_rotation     4 float32 (x, y, z, w)
//	b64ia_indices     uint32 count, then count uint32
//	b64v3a_vertices   uint32 float count, then count/3 triples
//	b64v2a_uvs        uint32 float count, then count/2 pairs
//	b64f_instances    map of buckets, each a list of lists of records;
//	                  a record is a 4-byte header and 16 float32
//
// Any other b64 prefix decodes as a uint32 array. Keys without a b64
// prefix are left alone, so packed and plain fields can be mixed freely.
//
// Decode is pure: it builds a new tree and never touches its input, so it
// is safe to call from several goroutines on separate documents.
package codec
