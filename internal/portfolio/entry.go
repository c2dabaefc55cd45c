package portfolio

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/John-Robertt/creditsync/internal/domain"
)

// 作品集条目的字段名（与下游 Web 应用的 JSON 约定一致）。
const (
	KeyTitle             = "title"
	KeyIMDbURL           = "imdb_url"
	KeyDirector          = "director"
	KeyProductionCompany = "production_company"
)

// 补全时写入的固定值。
const (
	ValueNotSpecified = "Not specified"
	ValueNotFound     = "Not found"
	ValueError        = "Error"
	CreatorSuffix     = " (Creator)"
)

// Entry 是作品集里的一个条目。
//
// 约束：未知字段原样保留，且保持原有键顺序；只有 Set 过的字段会被改写。
type Entry struct {
	keys []string
	vals map[string]json.RawMessage
}

// String 返回字符串字段；字段不存在或不是字符串时 ok=false。
func (e *Entry) String(key string) (string, bool) {
	raw, ok := e.vals[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", false
	}
	return s, true
}

// Set 写入字符串字段；新字段追加在末尾。
func (e *Entry) Set(key, value string) {
	if e.vals == nil {
		e.vals = make(map[string]json.RawMessage, 8)
	}
	if _, ok := e.vals[key]; !ok {
		e.keys = append(e.keys, key)
	}
	e.vals[key] = encodeString(value)
}

// Missing 判断字段是否需要补全：不存在、为空或为 "Not specified"。
func (e *Entry) Missing(key string) bool {
	v, ok := e.String(key)
	if !ok {
		// 非字符串的值（例如 null）也视为缺失。
		raw, exists := e.vals[key]
		return !exists || string(bytes.TrimSpace(raw)) == "null"
	}
	v = strings.TrimSpace(v)
	return v == "" || v == ValueNotSpecified
}

func (e *Entry) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("作品集条目必须是 JSON object")
	}
	e.keys = e.keys[:0]
	e.vals = make(map[string]json.RawMessage, 16)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("非法的 key：%v", tok)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if _, dup := e.vals[key]; !dup {
			e.keys = append(e.keys, key)
		}
		e.vals[key] = raw
	}
	_, err = dec.Token() // '}'
	return err
}

func (e Entry) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range e.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(encodeString(k))
		buf.WriteByte(':')
		buf.Write(e.vals[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// DecodeEntries 读取作品集 JSON 数组。
func DecodeEntries(b []byte) ([]Entry, error) {
	var out []Entry
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EncodeEntries 输出两空格缩进的 JSON 数组，非 ASCII 原样写出。
func EncodeEntries(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeString(s string) json.RawMessage {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return json.RawMessage(bytes.TrimRight(buf.Bytes(), "\n"))
}

// Summarize 把详情页记录折叠为作品集的 director / production_company 两个字段：
// - director：导演用 ", " 连接；没有导演时用主创并追加 " (Creator)"；都没有则 "Not found"
// - production_company：制片公司；缺失则 "Not found"
func Summarize(rec domain.ProjectRecord) (director, company string) {
	switch {
	case len(rec.Directors) > 0:
		director = strings.Join(rec.Directors, ", ")
	case len(rec.Creators) > 0:
		parts := make([]string, 0, len(rec.Creators))
		for _, c := range rec.Creators {
			parts = append(parts, c+CreatorSuffix)
		}
		director = strings.Join(parts, ", ")
	default:
		director = ValueNotFound
	}

	company = strings.TrimSpace(rec.ProductionCompany)
	if company == "" || company == domain.SentinelUnknown {
		company = ValueNotFound
	}
	return director, company
}
