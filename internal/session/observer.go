package session

import "time"

// Observer 把会话内的 collector 进度从执行流程中解耦出来（例如 CLI 的进度输出）。
//
// 约束：
// - session 包只负责发事件，不做任何输出
// - 实现必须并发安全：并发模式下事件来自多个 goroutine
type Observer interface {
	OnCollectorStart(sessionID, collector string)
	// OnCollectorDone 在调用结束时触发；records 是产出的记录数，err 为原始错误（未分类）。
	OnCollectorDone(sessionID, collector string, records int, err error, dur time.Duration)
}
