// Package httpx 构造 collector 共用的 HTTP client：UA 池、代理、有界重试、总超时。
//
// collector 只负责“定位页面 + 解析 HTML”，不关心这里的网络策略。
package httpx

import (
	"errors"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	DefaultTimeout  = 20 * time.Second
	DefaultRetryMax = 2
)

// Options 描述 client 的网络策略。零值字段使用默认值。
type Options struct {
	ProxyURL string
	Timeout  time.Duration
	// RetryMax 是最大重试次数（不含首次尝试）；负数表示不重试。
	RetryMax int
	// UserAgent 非空时固定使用该 UA，否则每个请求从内置池随机选取。
	UserAgent string
}

// DefaultBackoff 是首次重试前的等待；之后每次翻倍。
const DefaultBackoff = 300 * time.Millisecond

// Transport 把“UA 池 + 代理 + keep-alive 策略 + 有界重试”固化为统一策略。
type Transport struct {
	Base *http.Transport

	ua        *uaPool
	userAgent string

	// RetryMax 表示最大重试次数（不含首次尝试）。例如 2 表示最多 3 次尝试。
	RetryMax int
	// Backoff 是首次重试前的等待，零值使用 DefaultBackoff。
	Backoff time.Duration

	// DisableKeepAlives 决定是否对 Request 设置 Close=true。
	// 真正禁用 keep-alive 依赖 Base.DisableKeepAlives。
	DisableKeepAlives bool
}

// RoundTrip 对连接错误与站点的临时性错误（502/503/504）做有界重试。
// 其余状态码（包括 403/404/429）原样返回，由 collector 分类。
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	if t.Base == nil {
		return nil, errors.New("nil base transport")
	}

	// 只对“可重放”的请求做重试：GET/HEAD 且无 body。
	canRetry := (req.Method == http.MethodGet || req.Method == http.MethodHead) && req.Body == nil
	retries := max(t.RetryMax, 0)
	if !canRetry {
		retries = 0
	}
	wait := t.Backoff
	if wait <= 0 {
		wait = DefaultBackoff
	}

	for attempt := 0; ; attempt++ {
		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", t.pickUA())
		}
		if t.DisableKeepAlives {
			r.Close = true
		}

		resp, err := t.Base.RoundTrip(r)
		if attempt >= retries || (err == nil && !transientStatus(resp.StatusCode)) {
			return resp, err
		}
		if err == nil {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
			resp.Body.Close()
		}
		if req.Context().Err() != nil {
			// ctx 已取消：不再重试。
			if err == nil {
				err = req.Context().Err()
			}
			return nil, err
		}
		if serr := sleepCtx(req, wait<<attempt); serr != nil {
			if err == nil {
				err = serr
			}
			return nil, err
		}
	}
}

func transientStatus(code int) bool {
	switch code {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func sleepCtx(req *http.Request, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}

func (t *Transport) pickUA() string {
	if t.userAgent != "" {
		return t.userAgent
	}
	if t.ua == nil {
		return globalUA.random()
	}
	return t.ua.random()
}

// NewClient 按 Options 构造 client。
//
// 规则：
// - ProxyURL 非空：必须走代理，且禁用 keep-alive（每请求新连接，代理池轮换依赖该行为）
// - 有界重试 + 总超时
func NewClient(opts Options) (*http.Client, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.RetryMax == 0 {
		opts.RetryMax = DefaultRetryMax
	}

	base := &http.Transport{
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}
	disableKeepAlives := false
	if p := strings.TrimSpace(opts.ProxyURL); p != "" {
		u, err := url.Parse(p)
		if err != nil {
			return nil, err
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, errors.New("proxy url 必须包含 scheme 与 host")
		}
		base.Proxy = http.ProxyURL(u)
		base.DisableKeepAlives = true
		disableKeepAlives = true
	}

	return &http.Client{
		Transport: &Transport{
			Base:              base,
			ua:                globalUA,
			userAgent:         strings.TrimSpace(opts.UserAgent),
			RetryMax:          opts.RetryMax,
			DisableKeepAlives: disableKeepAlives,
		},
		Timeout: opts.Timeout,
	}, nil
}

type uaPool struct {
	mu  sync.Mutex
	rnd *rand.Rand
	uas []string
}

func (p *uaPool) random() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.uas[p.rnd.Intn(len(p.uas))]
}

var globalUA = newUAPool()

func newUAPool() *uaPool {
	uas := []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	}
	return &uaPool{
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		uas: uas,
	}
}

// RandomUserAgent 从内置池随机取一个 UA（给不经过 Transport 设置 UA 的调用方使用）。
func RandomUserAgent() string { return globalUA.random() }
