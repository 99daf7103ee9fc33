/*
 * @module service/connector/fallback
 * @description 降级数据提供器，上游不可用时生成同形状合成活动数据，保证sync永不返回空数据
 * @architecture 降级模式 - 与演示数据生成器严格分离的独立契约
 * @documentReference ai_docs/connector_design.md 降级协议一节
 * @stateFlow fetch失败/超时/未认证 -> Generate -> 同形状合成数据进入指标管道
 * @rules
 *   - 生成数据的形状必须与真实数据一致（非空指标来源字段）
 *   - 同一集成同一天内生成内容稳定（按天种子），避免仪表盘抖动
 *   - Degraded标记必须为true
 * @dependencies math/rand, hash/fnv
 * @refs service/connector/base.go
 */

package connector

import (
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"teampulse-service/service/models"
)

// DegradedModeProvider 降级数据提供器
type DegradedModeProvider struct {
	now func() time.Time
}

// NewDegradedModeProvider 创建降级数据提供器
func NewDegradedModeProvider() *DegradedModeProvider {
	return &DegradedModeProvider{now: time.Now}
}

// seedFor 按集成与自然日派生稳定随机种子
func (p *DegradedModeProvider) seedFor(integrationID string, day time.Time) int64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%s", integrationID, day.Format("2006-01-02"))
	return int64(h.Sum64())
}

// Generate 生成同形状的合成活动数据
// 内容不要求与真实数据一致，形状必须一致：指标计算所需字段全部非空
func (p *DegradedModeProvider) Generate(integration *models.Integration) *models.RawActivity {
	now := p.now()
	rng := rand.New(rand.NewSource(p.seedFor(integration.ID, now)))

	totalUsers := 20 + rng.Intn(80)
	activeUsers := 5 + rng.Intn(totalUsers-5)

	responseTimes := make([]float64, 8)
	for i := range responseTimes {
		responseTimes[i] = 30 + rng.Float64()*240 // 30秒~270秒
	}

	messageCount := 100 + rng.Intn(900)

	return &models.RawActivity{
		Source:          integration.ServiceType,
		CollectedAt:     now,
		MessageCount:    messageCount,
		ActiveUsers:     activeUsers,
		TotalUsers:      totalUsers,
		ResponseTimes:   responseTimes,
		MeetingMinutes:  float64(30 + rng.Intn(300)),
		AfterHoursRatio: 0.05 + rng.Float64()*0.3,
		Reactions:       messageCount / (2 + rng.Intn(4)),
		ThreadReplies:   messageCount / (3 + rng.Intn(5)),
		Records:         messageCount,
		Degraded:        true,
	}
}
