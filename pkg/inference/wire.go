package inference

import (
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// 请求与响应的 protobuf 字段编号
//
//	message PredictRequest  { bytes image = 1; }
//	message PredictResponse { float presence = 1; float absence = 2; float severity = 3;
//	                          bytes leaf_mask = 4; bytes lesion_mask = 5; }
const (
	fieldImage      protowire.Number = 1
	fieldPresence   protowire.Number = 1
	fieldAbsence    protowire.Number = 2
	fieldSeverity   protowire.Number = 3
	fieldLeafMask   protowire.Number = 4
	fieldLesionMask protowire.Number = 5
)

// EncodePredictRequest 编码推理请求
func EncodePredictRequest(image []byte) []byte {
	b := protowire.AppendTag(nil, fieldImage, protowire.BytesType)
	return protowire.AppendBytes(b, image)
}

// DecodePredictResponse 解码推理响应，未出现的分数字段按 proto3 语义取 0
func DecodePredictResponse(b []byte) (*PredictionResult, error) {
	result := &PredictionResult{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch {
		case typ == protowire.Fixed32Type && (num == fieldPresence || num == fieldAbsence || num == fieldSeverity):
			v, n := protowire.ConsumeFixed32(b)
			if n < 0 {
				return n, nil
			}
			f := math.Float32frombits(v)
			switch num {
			case fieldPresence:
				result.Presence = f
			case fieldAbsence:
				result.Absence = f
			default:
				result.Severity = f
			}
			return n, nil
		case typ == protowire.BytesType && (num == fieldLeafMask || num == fieldLesionMask):
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return n, nil
			}
			if num == fieldLeafMask {
				result.LeafMask = append([]byte(nil), v...)
			} else {
				result.LesionMask = append([]byte(nil), v...)
			}
			return n, nil
		case num == fieldPresence || num == fieldAbsence || num == fieldSeverity ||
			num == fieldLeafMask || num == fieldLesionMask:
			return 0, fmt.Errorf("字段 %d 类型错误: %v", num, typ)
		default:
			return protowire.ConsumeFieldValue(num, typ, b), nil
		}
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// walkFields 依次遍历消息字段，fn 返回消费的字节数
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return fmt.Errorf("解析字段标签失败: %w", protowire.ParseError(n))
		}
		b = b[n:]

		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m < 0 {
			return fmt.Errorf("解析字段 %d 失败: %w", num, protowire.ParseError(m))
		}
		b = b[m:]
	}
	return nil
}
