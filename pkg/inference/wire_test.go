package inference

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestDecodePredictResponse_SkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 99, protowire.VarintType)
	b = protowire.AppendVarint(b, 12345)
	b = protowire.AppendTag(b, fieldSeverity, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, math.Float32bits(0.75))
	b = protowire.AppendTag(b, fieldLeafMask, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("leaf"))
	b = protowire.AppendTag(b, 42, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("ignored"))
	b = protowire.AppendTag(b, fieldLesionMask, protowire.BytesType)
	b = protowire.AppendBytes(b, []byte("lesion"))

	result, err := DecodePredictResponse(b)
	require.NoError(t, err)

	// presence/absence 未出现时为 0
	assert.Equal(t, float32(0), result.Presence)
	assert.Equal(t, float32(0), result.Absence)
	assert.Equal(t, float32(0.75), result.Severity)
	assert.Equal(t, []byte("leaf"), result.LeafMask)
	assert.Equal(t, []byte("lesion"), result.LesionMask)
	require.NoError(t, result.Validate())
}

func TestDecodePredictResponse_Malformed(t *testing.T) {
	truncated := encodePredictResponse(&PredictionResult{Severity: 0.5, LeafMask: []byte("abc"), LesionMask: []byte("def")})
	truncated = truncated[:len(truncated)-2]

	wrongType := protowire.AppendTag(nil, fieldSeverity, protowire.VarintType)
	wrongType = protowire.AppendVarint(wrongType, 1)

	for name, b := range map[string][]byte{
		"truncated":  truncated,
		"wrong_type": wrongType,
		"bad_tag":    {0xff},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodePredictResponse(b)
			require.Error(t, err)
		})
	}
}

func TestEncodePredictRequest_Layout(t *testing.T) {
	b := EncodePredictRequest([]byte{0xde, 0xad})
	assert.Equal(t, []byte{0x0a, 0x02, 0xde, 0xad}, b)

	image, err := decodePredictRequest(b)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad}, image)
}

func TestPredictionResult_Validate(t *testing.T) {
	valid := PredictionResult{Presence: 1, Absence: 0, Severity: 0.5, LeafMask: []byte{1}, LesionMask: []byte{1}}
	require.NoError(t, valid.Validate())

	nan := valid
	nan.Severity = float32(math.NaN())
	assert.Error(t, nan.Validate())

	noMask := valid
	noMask.LesionMask = nil
	assert.Error(t, noMask.Validate())
}
