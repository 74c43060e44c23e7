package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/collector"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/scrapeerr"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/session"
)

var _ session.Observer = (*progressUI)(nil)

// progressUI 是交互终端下的简洁进度输出。
//
// 所有过程信息写到 stderr，不污染 stdout 的 JSON 输出契约。
// 并发模式下事件来自多个 goroutine，输出按行加锁。
type progressUI struct {
	w   io.Writer
	now func() time.Time

	mu     sync.Mutex
	active map[string]struct{}
	ok     int
	fail   int
}

func newProgressUI(w io.Writer) *progressUI {
	return &progressUI{w: w, now: time.Now, active: map[string]struct{}{}}
}

func (p *progressUI) OnCollectorStart(sessionID, name string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.active[name] = struct{}{}
	fmt.Fprintf(p.w, "[%s] %s 查询中 (session=%s)\n", p.now().Format("15:04:05"), name, shortID(sessionID))
}

func (p *progressUI) OnCollectorDone(sessionID, name string, records int, err error, dur time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.active, name)
	ts := p.now().Format("15:04:05")
	switch {
	case err == nil:
		p.ok++
		fmt.Fprintf(p.w, "[%s] %s OK records=%d (%s)%s\n", ts, name, records, formatShortDuration(dur), p.pendingLocked())
	case collector.IsNotFound(err):
		p.fail++
		fmt.Fprintf(p.w, "[%s] %s 未找到 (%s)%s\n", ts, name, formatShortDuration(dur), p.pendingLocked())
	default:
		p.fail++
		se := scrapeerr.Classify(name, err)
		msg := ""
		if len(se.Messages) > 0 {
			msg = se.Messages[0]
		}
		fmt.Fprintf(p.w, "[%s] %s FAIL %s: %s (%s)%s\n", ts, name, se.Category, truncate(msg, 120), formatShortDuration(dur), p.pendingLocked())
	}
}

// pendingLocked 列出仍在进行中的 collector（并发模式下便于判断在等谁）。
func (p *progressUI) pendingLocked() string {
	if len(p.active) == 0 {
		return ""
	}
	names := make([]string, 0, len(p.active))
	for n := range p.active {
		names = append(names, n)
	}
	sort.Strings(names)
	return " 等待: " + strings.Join(names, ",")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatShortDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
