package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/infra/fsx"
)

// Store 提供 <root>/records/<collector>/<id>.json 的记录缓存读写。
//
// 约束：
// - ReadOnly=true 时只读（写入返回 ErrReadOnly）
// - TTL>0 时，修改时间早于 now-TTL 的条目视为未命中
type Store struct {
	Root     string
	ReadOnly bool
	TTL      time.Duration

	now func() time.Time
}

var ErrReadOnly = errors.New("cache: read-only")

func New(root string, readOnly bool, ttl time.Duration) Store {
	return Store{
		Root:     filepath.Clean(strings.TrimSpace(root)),
		ReadOnly: readOnly,
		TTL:      ttl,
	}
}

// Enabled 报告是否配置了缓存目录。
func (s Store) Enabled() bool {
	return s.Root != "" && s.Root != "."
}

// RecordPath 返回记录缓存的绝对路径。
func (s Store) RecordPath(collector, id string) (string, error) {
	c, err := cleanName(collector)
	if err != nil {
		return "", err
	}
	key, err := cleanID(id)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.Root, "records", c, key+".json"), nil
}

func (s Store) ReadRecord(collector, id string) (domain.Record, bool, error) {
	if !s.Enabled() {
		return domain.Record{}, false, nil
	}
	path, err := s.RecordPath(collector, id)
	if err != nil {
		return domain.Record{}, false, err
	}
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Record{}, false, nil
		}
		return domain.Record{}, false, err
	}
	if s.TTL > 0 && fi.ModTime().Before(s.clock().Add(-s.TTL)) {
		return domain.Record{}, false, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.Record{}, false, err
	}
	var rec domain.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return domain.Record{}, false, fmt.Errorf("坏缓存 %q：%w", path, err)
	}
	return rec, true, nil
}

func (s Store) WriteRecord(collector, id string, rec domain.Record) error {
	if !s.Enabled() {
		return nil
	}
	if s.ReadOnly {
		return fmt.Errorf("%w: %s/%s", ErrReadOnly, collector, id)
	}
	path, err := s.RecordPath(collector, id)
	if err != nil {
		return err
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return fsx.WriteFile(path, b, fsx.Replace)
}

func (s Store) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

var (
	nameRE = regexp.MustCompile(`^[a-z0-9_]+$`)
	idRE   = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
)

func cleanName(p string) (string, error) {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return "", fmt.Errorf("collector 不能为空")
	}
	// 最小约束：避免路径穿越。
	if !nameRE.MatchString(p) {
		return "", fmt.Errorf("非法 collector：%q", p)
	}
	return p, nil
}

func cleanID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("id 不能为空")
	}
	if !idRE.MatchString(id) || strings.Contains(id, "..") {
		return "", fmt.Errorf("非法 id：%q", id)
	}
	return strings.ToUpper(id), nil
}
