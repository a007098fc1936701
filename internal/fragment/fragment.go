// Package fragment 把图片搜索结果渲染为 GoldenDict 使用的 HTML 片段
//
// 输出是独立片段而不是完整文档：
//
//	<div id="golden-images"><section id="image-grid" class="japanese_gothic focus" lang="ja"><div class="image-list"><img .../> <img .../></div></section></div>
//
// 所有属性值（包括图片 URL）和文本都由渲染器转义。
package fragment

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/cliffyan/gd-images/internal/engine"
)

// Template 片段外层结构
type Template struct {
	ID               string
	SectionID        string
	SectionClass     string
	Lang             string
	ListClass        string
	PlaceholderTitle string
	Style            string
	MaxItems         int

	// Captions 为每张图片包一层 .image-card 并显示 .image-title 标题
	Captions bool

	// Links 用 a.image-container 包住图片，点击打开原网页（没有原网页时打开图片）
	Links bool

	// Attribution 非空时在 section 之后输出 .attribution 说明
	Attribution string
}

// Builder 把结果集渲染为 HTML 片段
type Builder struct {
	tmpl Template
}

// NewBuilder 创建片段构建器
func NewBuilder(tmpl Template) *Builder {
	return &Builder{tmpl: tmpl}
}

// Template 返回构建器使用的模板
func (b *Builder) Template() Template {
	return b.tmpl
}

// Build 渲染最多 maxItems 条结果，保持输入顺序
// maxItems <= 0 时输出不含图片的外层结构。Build 不做 I/O，相同输入总是得到相同输出。
func (b *Builder) Build(term string, results []engine.ImageResult, maxItems int) string {
	n := min(len(results), max(maxItems, 0))

	list := element(atom.Div, attr("class", b.tmpl.ListClass))
	for i, r := range results[:n] {
		if i > 0 {
			list.AppendChild(text(" "))
		}
		list.AppendChild(b.entry(term, r))
	}

	var sectionAttrs []html.Attribute
	if b.tmpl.SectionID != "" {
		sectionAttrs = append(sectionAttrs, attr("id", b.tmpl.SectionID))
	}
	if b.tmpl.SectionClass != "" {
		sectionAttrs = append(sectionAttrs, attr("class", b.tmpl.SectionClass))
	}
	if b.tmpl.Lang != "" {
		sectionAttrs = append(sectionAttrs, attr("lang", b.tmpl.Lang))
	}
	section := element(atom.Section, sectionAttrs...)
	section.AppendChild(list)

	root := element(atom.Div, attr("id", b.tmpl.ID))
	root.AppendChild(section)
	if b.tmpl.Attribution != "" {
		credit := element(atom.Div, attr("class", "attribution"))
		credit.AppendChild(text(b.tmpl.Attribution))
		root.AppendChild(credit)
	}

	var sb strings.Builder
	// 节点树由这里构造，Render 只会因写入失败出错，strings.Builder 不会失败
	_ = html.Render(&sb, root)

	if b.tmpl.Style != "" {
		style := element(atom.Style)
		style.AppendChild(text(b.tmpl.Style))
		_ = html.Render(&sb, style)
	}

	return sb.String()
}

// entry 渲染单条结果：图片，按模板加上链接和标题卡片
func (b *Builder) entry(term string, r engine.ImageResult) *html.Node {
	title := strings.TrimSpace(r.Title)
	if title == "" {
		title = b.tmpl.PlaceholderTitle
	}
	if title == "" {
		title = term
	}

	node := element(atom.Img,
		attr("src", r.URL),
		attr("alt", title),
		attr("title", title),
		attr("loading", "lazy"),
	)

	if b.tmpl.Links {
		href := r.Source
		if href == "" {
			href = r.URL
		}
		link := element(atom.A, attr("class", "image-container"), attr("href", href))
		link.AppendChild(node)
		node = link
	}

	if b.tmpl.Captions {
		card := element(atom.Div, attr("class", "image-card"))
		card.AppendChild(node)
		caption := element(atom.Div, attr("class", "image-title"))
		caption.AppendChild(text(title))
		card.AppendChild(caption)
		node = card
	}

	return node
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func attr(key, val string) html.Attribute {
	return html.Attribute{Key: key, Val: val}
}
