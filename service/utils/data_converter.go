/**
 * @module data_converter
 * @description 数据转换工具，负责厂商报文的字符集归一化与宽松类型转换
 * @architecture 工具集模式，无状态转换
 * @documentReference 参考 ai_docs/integration_req.md 报文归一化一节
 * @stateFlow 厂商原始字节流 -> 字符集检测/转换 -> UTF-8文本
 * @rules 所有进入指标管道的文本必须是合法UTF-8
 * @dependencies golang.org/x/text/encoding, golang.org/x/text/transform, github.com/spf13/cast
 * @refs service/connector/workspace_connector.go
 */

package utils

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cast"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// DataConverter 数据转换工具
type DataConverter struct{}

// NewDataConverter 创建数据转换工具实例
func NewDataConverter() *DataConverter {
	return &DataConverter{}
}

// EnsureUTF8 把厂商报文归一化为UTF-8
// 部分协同办公厂商的导出数据仍使用GBK/GB18030编码
func (dc *DataConverter) EnsureUTF8(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	reader := transform.NewReader(strings.NewReader(string(data)), simplifiedchinese.GB18030.NewDecoder())
	converted, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("字符集转换失败: %w", err)
	}

	if !utf8.Valid(converted) {
		return "", fmt.Errorf("转换后仍非合法UTF-8")
	}
	return string(converted), nil
}

// ToFloat 宽松转换为float64，无法转换时返回默认值
func (dc *DataConverter) ToFloat(value interface{}, defaultValue float64) float64 {
	if f, err := cast.ToFloat64E(value); err == nil {
		return f
	}
	return defaultValue
}

// ToInt 宽松转换为int，无法转换时返回默认值
func (dc *DataConverter) ToInt(value interface{}, defaultValue int) int {
	if n, err := cast.ToIntE(value); err == nil {
		return n
	}
	return defaultValue
}

// ToFloatSlice 宽松转换为float64切片，忽略无法转换的元素
func (dc *DataConverter) ToFloatSlice(value interface{}) []float64 {
	raw, err := cast.ToSliceE(value)
	if err != nil {
		return nil
	}

	result := make([]float64, 0, len(raw))
	for _, item := range raw {
		if f, err := cast.ToFloat64E(item); err == nil {
			result = append(result, f)
		}
	}
	return result
}
