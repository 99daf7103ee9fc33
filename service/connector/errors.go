/*
 * @module service/connector/errors
 * @description 连接器错误分类体系，fetchData是唯一允许显式失败的操作，失败按类别归因
 * @architecture 错误分类模式 - 哨兵错误 + 分类函数
 * @documentReference ai_docs/connector_design.md
 * @stateFlow fetchData失败 -> Classify归类 -> sync内部转为降级路径与非致命错误记录
 * @rules fetchData的失败不向编排器传播，只会转化为降级数据与错误列表条目
 * @dependencies errors, context, net
 * @refs service/connector/base.go
 */

package connector

import (
	"context"
	"errors"
	"net"
)

// 错误分类哨兵，调用方用errors.Is判断类别
var (
	// ErrAuth 凭证无效/过期且刷新失败
	ErrAuth = errors.New("auth error: invalid or expired credentials")
	// ErrRateLimited 上游调用配额耗尽
	ErrRateLimited = errors.New("rate limit error: quota exhausted")
	// ErrNetwork 上游不可达
	ErrNetwork = errors.New("network error: upstream unreachable")
	// ErrTimeout 上游响应超时
	ErrTimeout = errors.New("timeout error: upstream too slow")
	// ErrValidation 上游报文形状异常
	ErrValidation = errors.New("validation error: malformed upstream payload")
	// ErrAlreadySyncing 重入同步被拒绝
	ErrAlreadySyncing = errors.New("already syncing")
)

// Classify 将任意fetch错误归入分类体系
// 已归类的错误原样返回；context超时归为超时；其余网络层错误归为网络错误
func Classify(err error) error {
	if err == nil {
		return nil
	}

	for _, sentinel := range []error{ErrAuth, ErrRateLimited, ErrTimeout, ErrNetwork, ErrValidation} {
		if errors.Is(err, sentinel) {
			return err
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return errors.Join(ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return errors.Join(ErrTimeout, err)
		}
		return errors.Join(ErrNetwork, err)
	}

	return errors.Join(ErrNetwork, err)
}
