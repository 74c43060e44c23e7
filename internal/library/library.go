// Package library 扫描本地影片目录，把文件名归一化为标识并按标识分组，供批量检索使用。
package library

import (
	"io/fs"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"
	"github.com/fgg1155/YSGL-media-manager-sub000/internal/normalize"
)

// ReservedDirs 是永远不扫描的子目录（导出目录与缓存目录）。
var ReservedDirs = []string{"out", "cache"}

// partSuffixRE 匹配多段影片的分段后缀（-cd1、_part2、.disc3）。
var partSuffixRE = regexp.MustCompile(`(?i)[\s._-]+(?:cd|part|pt|disc)[\s._-]?[0-9]{1,2}$`)

// VideoFile 是一次扫描得到的视频文件（只做 stat，不读内容）。
type VideoFile struct {
	AbsPath string
	RelPath string
	Base    string
	Ext     string
	Size    int64
}

// Item 是同一标识下的全部文件（多段影片会有多个文件）。
type Item struct {
	ID    domain.NormalizedID
	Files []VideoFile
}

// Unmatched 是文件名里识别不出标识的文件。
type Unmatched struct {
	File VideoFile
	// Guess 是 Normalizer 给出的分类（通常是 search），便于展示。
	Guess domain.NormalizedID
}

// Scan 扫描 root 下的视频文件。
//
// - 永久排除 <root>/out/ 与 <root>/cache/
// - excludeDirs 相对 root；绝对路径按原样处理
// - 输出按 RelPath 稳定排序
func Scan(root string, excludeDirs []string) ([]VideoFile, error) {
	root = filepath.Clean(root)
	excluded := buildExcluded(root, excludeDirs)

	files := make([]VideoFile, 0, 128)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if isExcluded(path, excluded) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		name := d.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if !isVideoExt(ext) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, VideoFile{
			AbsPath: path,
			RelPath: rel,
			Base:    strings.TrimSuffix(name, filepath.Ext(name)),
			Ext:     ext,
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}

// Group 用 Normalizer 对文件名分类并按 PrimaryID 分组。
//
// 识别为自由文本（或空）的文件进入 unmatched。items 按 PrimaryID 排序，
// item 内文件保持 Scan 的 RelPath 顺序。
func Group(files []VideoFile, n normalize.Normalizer) (items []Item, unmatched []Unmatched) {
	if n == nil {
		n = normalize.Default{}
	}
	index := make(map[string]int, len(files))
	for _, f := range files {
		id := n.Classify(partSuffixRE.ReplaceAllString(f.Base, ""))
		if id.IsSearch() || id.Category == domain.CategoryUnknown {
			unmatched = append(unmatched, Unmatched{File: f, Guess: id})
			continue
		}
		key := strings.ToUpper(id.PrimaryID)
		if i, ok := index[key]; ok {
			items[i].Files = append(items[i].Files, f)
			continue
		}
		index[key] = len(items)
		id.Raw = f.Base
		items = append(items, Item{ID: id, Files: []VideoFile{f}})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID.PrimaryID < items[j].ID.PrimaryID })
	return items, unmatched
}

func isVideoExt(ext string) bool {
	switch ext {
	case ".mp4", ".mkv", ".avi", ".wmv", ".mov", ".ts", ".m4v":
		return true
	default:
		return false
	}
}

func buildExcluded(root string, excludeDirs []string) []string {
	excluded := make([]string, 0, len(ReservedDirs)+len(excludeDirs))
	for _, d := range ReservedDirs {
		excluded = append(excluded, filepath.Join(root, d))
	}
	for _, x := range excludeDirs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		if filepath.IsAbs(x) {
			excluded = append(excluded, filepath.Clean(x))
			continue
		}
		excluded = append(excluded, filepath.Clean(filepath.Join(root, x)))
	}
	sort.Strings(excluded)
	return excluded
}

func isExcluded(path string, excluded []string) bool {
	path = filepath.Clean(path)
	for _, base := range excluded {
		if path == base || strings.HasPrefix(path, base+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
