package run

import (
	"time"

	"github.com/John-Robertt/creditsync/internal/config"
	"github.com/John-Robertt/creditsync/internal/domain"
)

// Observer 用于把“运行进度/阶段/条目结果”从核心执行流程中解耦出来。
//
// 约束：
// - run 包只负责发事件，不做任何输出（避免污染 stdout 的 JSON 契约）。
// - 条目严格串行处理；实现方仍需自行保证与自身 ticker 之间的并发安全。
type Observer interface {
	// OnStart 在命令开始时调用（应尽量早，保证用户 1 秒内看到输出）。
	OnStart(eff config.EffectiveConfig)
	// OnPhaseDone 在阶段结束/就绪时调用（用于打印阶段统计与耗时）。
	OnPhaseDone(name string, fields map[string]any, dur time.Duration)
	// OnItemStart 在某条目开始处理前调用（keepalive 用它展示当前条目）。
	OnItemStart(idx, total int, title string)
	// OnItemDone 在某条目处理完成时调用（用于每条结果的一行输出）。
	OnItemDone(idx, total int, title string, res domain.ItemResult, dur time.Duration)
}

// 阶段名（OnPhaseDone 的 name）。
const (
	PhaseRead        = "read"
	PhaseFilmography = "filmography"
	PhasePlan        = "plan"
	PhaseExec        = "exec"
	PhaseWrite       = "write"
)

type nopObserver struct{}

func (nopObserver) OnStart(config.EffectiveConfig) {}
func (nopObserver) OnPhaseDone(string, map[string]any, time.Duration) {}
func (nopObserver) OnItemStart(int, int, string) {}
func (nopObserver) OnItemDone(int, int, string, domain.ItemResult, time.Duration) {}

func observerOrNop(obs Observer) Observer {
	if obs == nil {
		return nopObserver{}
	}
	return obs
}
