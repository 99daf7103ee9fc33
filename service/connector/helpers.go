package connector

import "encoding/json"

// parseJSON 宽松解析JSON文本，失败返回nil
func parseJSON(text string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(text), &v); err != nil {
		return nil
	}
	return v
}

// clamp 把取值收敛到[lo,hi]区间
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ratio 安全比值，分母为0时返回0
func ratio(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}
