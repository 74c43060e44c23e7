// Package fsx 提供导出与缓存共用的原子写入：同目录临时文件 + Sync + rename。
package fsx

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
)

// 测试替换它来模拟 rename 失败。
var renameFunc = os.Rename

// Mode 决定目标已存在时的行为。
type Mode int

const (
	// Create 不覆盖：目标已存在返回 os.ErrExist（导出目录里的用户文件）。
	Create Mode = iota
	// Replace 覆盖同名文件（记录缓存）。Windows 上覆盖是 best-effort。
	Replace
)

// PathTypeConflictError 表示目标路径类型不符（例如期望文件但实际是目录）。
type PathTypeConflictError struct {
	Path string
	Want string
	Got  string
}

func (e *PathTypeConflictError) Error() string {
	return fmt.Sprintf("目标路径类型冲突：%q（期望 %s，实际 %s）", e.Path, e.Want, e.Got)
}

func IsPathTypeConflict(err error) bool {
	var e *PathTypeConflictError
	return errors.As(err, &e)
}

// EnsureDir 创建目录；路径已被非目录占用时返回 PathTypeConflictError。
func EnsureDir(dir string) error {
	dir = filepath.Clean(dir)
	if fi, err := os.Stat(dir); err == nil {
		if !fi.IsDir() {
			return &PathTypeConflictError{Path: dir, Want: "dir", Got: "file"}
		}
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// WriteFile 原子写入 path。Create 模式下目标存在时返回 os.ErrExist；
// 任何模式下目标是目录或特殊文件都返回 PathTypeConflictError。
func WriteFile(path string, data []byte, mode Mode) error {
	path = filepath.Clean(path)
	if fi, err := os.Lstat(path); err == nil {
		switch {
		case fi.IsDir():
			return &PathTypeConflictError{Path: path, Want: "file", Got: "dir"}
		case !fi.Mode().IsRegular():
			return &PathTypeConflictError{Path: path, Want: "regular file", Got: fi.Mode().Type().String()}
		case mode == Create:
			return os.ErrExist
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return err
	}
	return writeAtomic(dir, filepath.Base(path), data)
}

func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if err := writeAll(tmp, data); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := renameFunc(tmpName, filepath.Join(dir, name)); err != nil {
		return err
	}
	syncDir(dir)
	return nil
}

func writeAll(w io.Writer, b []byte) error {
	for len(b) > 0 {
		n, err := w.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}

// syncDir 让 rename 落盘；失败不影响结果。
func syncDir(dir string) {
	if runtime.GOOS == "windows" {
		return
	}
	f, err := os.Open(dir)
	if err != nil {
		return
	}
	defer f.Close()
	_ = f.Sync()
}
