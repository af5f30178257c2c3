package inference

import (
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// decodePredictRequest 服务端解码推理请求
func decodePredictRequest(b []byte) ([]byte, error) {
	var image []byte
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == fieldImage && typ == protowire.BytesType {
			v, n := protowire.ConsumeBytes(b)
			if n >= 0 {
				image = append([]byte(nil), v...)
			}
			return n, nil
		}
		return protowire.ConsumeFieldValue(num, typ, b), nil
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

// encodePredictResponse 服务端编码推理响应
func encodePredictResponse(r *PredictionResult) []byte {
	var b []byte
	b = appendFloat(b, fieldPresence, r.Presence)
	b = appendFloat(b, fieldAbsence, r.Absence)
	b = appendFloat(b, fieldSeverity, r.Severity)
	b = protowire.AppendTag(b, fieldLeafMask, protowire.BytesType)
	b = protowire.AppendBytes(b, r.LeafMask)
	b = protowire.AppendTag(b, fieldLesionMask, protowire.BytesType)
	b = protowire.AppendBytes(b, r.LesionMask)
	return b
}

func appendFloat(b []byte, num protowire.Number, v float32) []byte {
	b = protowire.AppendTag(b, num, protowire.Fixed32Type)
	return protowire.AppendFixed32(b, math.Float32bits(v))
}
