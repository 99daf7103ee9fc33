/*
 * @module service/connector/script_executor
 * @description 活动数据转换脚本执行器，支持集成级Go脚本在指标计算前重塑归一化活动数据
 * @architecture 脚本引擎模式 - yaegi解释器按次执行，脚本间相互隔离
 * @documentReference ai_docs/connector_design.md 转换脚本一节
 * @stateFlow 归一化活动数据 -> map形态 -> 脚本Transform函数 -> 还原为活动数据
 * @rules
 *   - 脚本必须定义 func Transform(activity map[string]interface{}) map[string]interface{}
 *   - 脚本panic被捕获并转为错误，不得影响同步管道
 *   - 脚本缺省关闭，仅当集成自定义设置携带transform_script时启用
 * @dependencies github.com/traefik/yaegi/interp, github.com/traefik/yaegi/stdlib
 * @refs service/connector/base.go
 */

package connector

import (
	"encoding/json"
	"fmt"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"teampulse-service/service/models"
)

// transformFuncName 脚本必须导出的函数名
const transformFuncName = "Transform"

// ScriptExecutor 转换脚本执行器
type ScriptExecutor struct{}

// NewScriptExecutor 创建脚本执行器
func NewScriptExecutor() *ScriptExecutor {
	return &ScriptExecutor{}
}

// Transform 在隔离解释器中执行转换脚本
func (e *ScriptExecutor) Transform(script string, activity *models.RawActivity) (result *models.RawActivity, err error) {
	// 脚本质量不可控，panic收敛为错误
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("转换脚本panic: %v", r)
		}
	}()

	i := interp.New(interp.Options{})
	if useErr := i.Use(stdlib.Symbols); useErr != nil {
		return nil, fmt.Errorf("加载脚本标准库失败: %w", useErr)
	}

	if _, evalErr := i.Eval(script); evalErr != nil {
		return nil, fmt.Errorf("编译转换脚本失败: %w", evalErr)
	}

	v, evalErr := i.Eval(transformFuncName)
	if evalErr != nil {
		return nil, fmt.Errorf("转换脚本缺少%s函数: %w", transformFuncName, evalErr)
	}

	fn, ok := v.Interface().(func(map[string]interface{}) map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("%s函数签名不符合约定", transformFuncName)
	}

	input, marshalErr := toMap(activity)
	if marshalErr != nil {
		return nil, marshalErr
	}

	output := fn(input)
	if output == nil {
		return nil, fmt.Errorf("%s函数返回了空结果", transformFuncName)
	}

	return fromMap(output)
}

// toMap 活动数据转map形态
func toMap(activity *models.RawActivity) (map[string]interface{}, error) {
	raw, err := json.Marshal(activity)
	if err != nil {
		return nil, fmt.Errorf("序列化活动数据失败: %w", err)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("活动数据转map失败: %w", err)
	}
	return m, nil
}

// fromMap map形态还原为活动数据
func fromMap(m map[string]interface{}) (*models.RawActivity, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("序列化脚本输出失败: %w", err)
	}
	var activity models.RawActivity
	if err := json.Unmarshal(raw, &activity); err != nil {
		return nil, fmt.Errorf("脚本输出形状不符合活动数据约定: %w", err)
	}
	return &activity, nil
}
