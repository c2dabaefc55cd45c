// Package extract 把“按优先级排列的选择器回退链”固化为声明式规则 + 单一解释器。
//
// 站点结构漂移时只改规则表，不改流程代码。
package extract

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"go.uber.org/zap"
)

// Rule 是一条声明式抽取规则。
//
// 求值顺序：Selector 命中元素 -> 按 Label 过滤 -> Siblings 横移 -> Within 下钻 -> 取文本/属性 -> Transform。
type Rule struct {
	// Selector 是 CSS 选择器（支持 cascadia 的 :contains 等伪类）。
	Selector string

	// Label 非空时，只保留 LabelSelector 文本等于其中之一的元素（忽略大小写与尾部冒号）。
	// LabelSelf 为 true 时改用命中元素自身的文本，此时不需要 LabelSelector。
	Label         []string
	LabelSelector string
	LabelSelf     bool

	// Siblings 改取每个命中元素之后、下一个 Selector 命中元素之前的兄弟元素
	// （例如 "<span>Director</span><a>..</a><a>..</a><span>Writer</span>" 里的两个 a）。
	Siblings string

	// Within 在每个命中元素内部再做一次选择（例如 "a"）。
	Within string

	// Attr 非空时读取属性值而不是文本。
	Attr string

	Transform func(string) string
}

// Field 是一个命名字段及其有序规则链。
type Field struct {
	Name  string
	Rules []Rule

	// Limit > 0 时，对列表型字段截断（例如 cast 取前 5 个）。
	Limit int

	// Skip 返回 true 的值会被丢弃（例如 "See more" 之类的导航链接）。
	Skip func(string) bool
}

// Result 记录一次字段抽取的结果与命中的规则下标（-1 表示无命中）。
type Result struct {
	Values []string
	Rule   int
}

// RuleError 表示某条规则本身无法求值（通常是选择器写错）。
type RuleError struct {
	Field string
	Index int
	Err   error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("field=%s rule=%d: %v", e.Field, e.Index, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// Extractor 是规则解释器。零值不可用，请使用 New。
type Extractor struct {
	log *zap.Logger

	mu       sync.Mutex
	compiled map[string]cascadia.Selector
}

func New(log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{
		log:      log,
		compiled: make(map[string]cascadia.Selector, 64),
	}
}

// Match 按声明顺序尝试规则，返回第一条产生非空结果的规则的值。
// 任一规则求值失败（或发生 panic）都会让整个字段失败并返回 error。
func (e *Extractor) Match(doc *goquery.Document, f Field) (Result, error) {
	if doc == nil {
		return Result{Rule: -1}, errors.New("document 为空")
	}
	return e.MatchIn(doc.Selection, f)
}

// MatchIn 与 Match 相同，但以 s 为根求值（例如搜索结果中的单个条目）。
func (e *Extractor) MatchIn(s *goquery.Selection, f Field) (res Result, err error) {
	res.Rule = -1
	defer func() {
		if r := recover(); r != nil {
			res = Result{Rule: -1}
			err = fmt.Errorf("field=%s: panic: %v", f.Name, r)
		}
	}()
	return e.match(s, f)
}

func (e *Extractor) match(root *goquery.Selection, f Field) (Result, error) {
	if root == nil {
		return Result{Rule: -1}, errors.New("selection 为空")
	}
	for i, r := range f.Rules {
		vals, err := e.apply(root, r, f.Skip)
		if err != nil {
			return Result{Rule: -1}, &RuleError{Field: f.Name, Index: i, Err: err}
		}
		if len(vals) == 0 {
			continue
		}
		if f.Limit > 0 && len(vals) > f.Limit {
			vals = vals[:f.Limit]
		}
		return Result{Values: vals, Rule: i}, nil
	}
	return Result{Rule: -1}, nil
}

// Values 与 Match 相同，但把失败降级为“无结果”并记录日志（单字段失败不影响其他字段）。
func (e *Extractor) Values(doc *goquery.Document, f Field) []string {
	res, err := e.Match(doc, f)
	if err != nil {
		e.log.Warn("字段抽取失败，回退缺省值", zap.String("field", f.Name), zap.Error(err))
		return nil
	}
	if res.Rule < 0 {
		e.log.Debug("字段无命中", zap.String("field", f.Name))
	}
	return res.Values
}

// ValuesIn 是 Values 的子树版本。
func (e *Extractor) ValuesIn(s *goquery.Selection, f Field) []string {
	res, err := e.MatchIn(s, f)
	if err != nil {
		e.log.Warn("字段抽取失败，回退缺省值", zap.String("field", f.Name), zap.Error(err))
		return nil
	}
	return res.Values
}

// TextIn 是 Text 的子树版本。
func (e *Extractor) TextIn(s *goquery.Selection, f Field, def string) string {
	vals := e.ValuesIn(s, f)
	if len(vals) == 0 {
		return def
	}
	return vals[0]
}

// Text 返回第一个命中值；无命中返回 def。
func (e *Extractor) Text(doc *goquery.Document, f Field, def string) string {
	vals := e.Values(doc, f)
	if len(vals) == 0 {
		return def
	}
	return vals[0]
}

// List 返回命中值列表（已按 Limit 截断）；无命中返回 def 的副本。
func (e *Extractor) List(doc *goquery.Document, f Field, def []string) []string {
	vals := e.Values(doc, f)
	if len(vals) == 0 {
		if def == nil {
			return nil
		}
		return append([]string{}, def...)
	}
	return vals
}

// Join 把命中值用 sep 连接；无命中返回 def。
func (e *Extractor) Join(doc *goquery.Document, f Field, sep, def string) string {
	vals := e.Values(doc, f)
	if len(vals) == 0 {
		return def
	}
	return strings.Join(vals, sep)
}

func (e *Extractor) apply(root *goquery.Selection, r Rule, skip func(string) bool) ([]string, error) {
	sel, err := e.compile(r.Selector)
	if err != nil {
		return nil, err
	}
	nodes := root.FindMatcher(sel)

	if len(r.Label) > 0 {
		labelOf := func(s *goquery.Selection) string { return s.Text() }
		if !r.LabelSelf {
			if strings.TrimSpace(r.LabelSelector) == "" {
				return nil, errors.New("Label 非空时 LabelSelector 不能为空")
			}
			lsel, err := e.compile(r.LabelSelector)
			if err != nil {
				return nil, err
			}
			labelOf = func(s *goquery.Selection) string { return s.FindMatcher(lsel).First().Text() }
		}
		want := make(map[string]struct{}, len(r.Label))
		for _, l := range r.Label {
			want[strings.ToLower(NormHeader(l))] = struct{}{}
		}
		nodes = nodes.FilterFunction(func(_ int, s *goquery.Selection) bool {
			_, ok := want[strings.ToLower(NormHeader(labelOf(s)))]
			return ok
		})
	}

	if strings.TrimSpace(r.Siblings) != "" {
		ssel, err := e.compile(r.Siblings)
		if err != nil {
			return nil, err
		}
		sibs := nodes.Slice(0, 0)
		nodes.Each(func(_ int, s *goquery.Selection) {
			sibs = sibs.AddSelection(s.NextUntilMatcher(sel).FilterMatcher(ssel))
		})
		nodes = sibs
	}

	if strings.TrimSpace(r.Within) != "" {
		wsel, err := e.compile(r.Within)
		if err != nil {
			return nil, err
		}
		nodes = nodes.FindMatcher(wsel)
	}

	out := make([]string, 0, nodes.Length())
	nodes.Each(func(_ int, s *goquery.Selection) {
		var v string
		if r.Attr != "" {
			v, _ = s.Attr(r.Attr)
		} else {
			v = s.Text()
		}
		v = NormSpace(v)
		if r.Transform != nil {
			v = NormSpace(r.Transform(v))
		}
		if v == "" {
			return
		}
		if skip != nil && skip(v) {
			return
		}
		out = append(out, v)
	})
	return NormList(out), nil
}

func (e *Extractor) compile(s string) (cascadia.Selector, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("selector 不能为空")
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if sel, ok := e.compiled[s]; ok {
		return sel, nil
	}
	sel, err := cascadia.Compile(s)
	if err != nil {
		return nil, fmt.Errorf("非法 selector %q：%w", s, err)
	}
	e.compiled[s] = sel
	return sel, nil
}
