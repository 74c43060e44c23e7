package selector

import "github.com/fgg1155/YSGL-media-manager-sub000/internal/domain"

// DefaultDescriptors 是内置的 collector 优先级。
// fanza/javlibrary 使用片商原图；javbus/javdb 的封面带站点水印。
func DefaultDescriptors() []Descriptor {
	return []Descriptor{
		{Name: "fanza", Priority: 10},
		{Name: "javlibrary", Priority: 20},
		{Name: "javbus", Priority: 30, Watermarked: true},
		{Name: "javdb", Priority: 40, Watermarked: true},
	}
}

// DefaultRules 是内置的 分类 -> collector 映射。
func DefaultRules() map[domain.Category]Rule {
	return map[domain.Category]Rule{
		domain.CategoryNormal: {
			Entries: []Entry{
				{Collector: "fanza", Param: ParamAlternate},
				{Collector: "javlibrary", Param: ParamPrimary},
				{Collector: "javbus", Param: ParamPrimary},
				{Collector: "javdb", Param: ParamPrimary},
			},
			Mode:     ModeSequential,
			Required: []domain.Field{domain.FieldTitle, domain.FieldActors, domain.FieldPoster, domain.FieldGenres},
		},
		domain.CategoryUncensored: {
			Entries: []Entry{
				{Collector: "javbus", Param: ParamPrimary},
				{Collector: "javdb", Param: ParamPrimary},
			},
			Mode:     ModeSequential,
			Required: []domain.Field{domain.FieldTitle, domain.FieldPoster},
		},
		domain.CategoryFC2: {
			Entries: []Entry{
				{Collector: "javdb", Param: ParamPrimary},
			},
			Mode:     ModeSequential,
			Required: []domain.Field{domain.FieldTitle},
		},
		domain.CategorySearch: {
			Entries: []Entry{
				{Collector: "javbus", Param: ParamPrimary},
				{Collector: "javdb", Param: ParamPrimary},
			},
			Mode: ModeFanOut,
		},
	}
}

// DefaultTable 返回内置配置构造的表。内置配置必然合法。
func DefaultTable() *Table {
	t, err := NewTable(DefaultDescriptors(), DefaultRules())
	if err != nil {
		panic("selector: 内置配置无效：" + err.Error())
	}
	return t
}
