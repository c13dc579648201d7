// Package meta pulls route metadata out of page components.
//
// It looks for a single marker call such as
//
//	definePage({ meta: { title: "Users", requiresAuth: true } })
//
// and reads a fixed set of fields from its meta object. It is a narrow scan on
// top of the tree-sitter TypeScript grammars: anything it does not recognize is
// treated as "no metadata", never as an error.
package meta

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	tsx "github.com/smacker/go-tree-sitter/typescript/tsx"
	ts "github.com/smacker/go-tree-sitter/typescript/typescript"
	"gopkg.in/yaml.v3"
)

// Meta is a partial metadata record. Only fields found in the source are set.
type Meta map[string]any

// Recognized field names.
const (
	FieldTitle        = "title"
	FieldHidden       = "hidden"
	FieldRequiresAuth = "requiresAuth"
	FieldKeepAlive    = "keepAlive"
	FieldParams       = "params"
)

var boolFields = map[string]bool{
	FieldHidden:       true,
	FieldRequiresAuth: true,
	FieldKeepAlive:    true,
}

var (
	reScriptBlock = regexp.MustCompile(`(?is)<script\b([^>]*)>(.*?)</script\s*>`)
	reScriptLang  = regexp.MustCompile(`(?i)\blang\s*=\s*["']?([a-z]+)`)

	jsUnescape = strings.NewReplacer(`\'`, `'`, `\"`, `"`, "\\`", "`", `\\`, `\`, `\n`, "\n", `\t`, "\t")
)

// Extractor finds the metadata block of a component.
type Extractor struct {
	markers map[string]struct{}
}

// NewExtractor returns an Extractor recognizing calls to any of markers.
func NewExtractor(markers []string) *Extractor {
	m := make(map[string]struct{}, len(markers))
	for _, name := range markers {
		if name = strings.TrimSpace(name); name != "" {
			m[name] = struct{}{}
		}
	}
	return &Extractor{markers: m}
}

// ExtractFile reads path and extracts its metadata. Unreadable files have none.
func (x *Extractor) ExtractFile(path string) (Meta, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	return x.Extract(path, data)
}

// Extract scans src, the content of the file at path, for a marker call with a meta object.
// The extension of path selects how src is read: .vue files contribute their <script> blocks.
func (x *Extractor) Extract(path string, src []byte) (Meta, bool) {
	if len(x.markers) == 0 {
		return nil, false
	}
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".vue" {
		return x.extractScript(src, ext == ".ts")
	}
	for _, m := range reScriptBlock.FindAllSubmatch(src, -1) {
		lang := ""
		if lm := reScriptLang.FindSubmatch(m[1]); lm != nil {
			lang = strings.ToLower(string(lm[1]))
		}
		if md, ok := x.extractScript(m[2], lang == "ts"); ok {
			return md, true
		}
	}
	return nil, false
}

func (x *Extractor) extractScript(content []byte, plainTS bool) (Meta, bool) {
	if len(bytes.TrimSpace(content)) == 0 {
		return nil, false
	}
	parser := sitter.NewParser()
	if plainTS {
		parser.SetLanguage(ts.GetLanguage())
	} else {
		parser.SetLanguage(tsx.GetLanguage())
	}
	tree := parser.Parse(nil, content)
	if tree == nil {
		return nil, false
	}

	metaObj := x.findMetaObject(content, tree.RootNode())
	if metaObj == nil {
		return nil, false
	}
	return readFields(content, metaObj), true
}

// findMetaObject returns the object bound to "meta" in the first marker call that has one.
func (x *Extractor) findMetaObject(src []byte, n *sitter.Node) *sitter.Node {
	if n == nil || !n.IsNamed() {
		return nil
	}
	if n.Type() == "call_expression" {
		if fn := n.ChildByFieldName("function"); fn != nil && fn.Type() == "identifier" {
			if _, ok := x.markers[nodeText(src, fn)]; ok {
				if obj := firstObjectArg(n.ChildByFieldName("arguments")); obj != nil {
					if v := pairValue(src, obj, "meta"); v != nil && v.Type() == "object" {
						return v
					}
				}
			}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if found := x.findMetaObject(src, n.NamedChild(i)); found != nil {
			return found
		}
	}
	return nil
}

func readFields(src []byte, obj *sitter.Node) Meta {
	md := Meta{}
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		pair := obj.NamedChild(i)
		if pair.Type() != "pair" {
			continue
		}
		key := keyName(src, pair.ChildByFieldName("key"))
		val := pair.ChildByFieldName("value")
		if key == "" || val == nil {
			continue
		}
		switch {
		case key == FieldTitle:
			if s, ok := stringValue(src, val); ok {
				md[FieldTitle] = s
			}
		case boolFields[key]:
			switch val.Type() {
			case "true":
				md[key] = true
			case "false":
				md[key] = false
			}
		case key == FieldParams:
			md[FieldParams] = parseParams(nodeText(src, val))
		}
	}
	return md
}

// parseParams evaluates an object literal as a YAML flow mapping,
// which covers the common shapes ({ id: 1, tab: 'info' }). Anything else is {}.
func parseParams(text string) map[string]any {
	var out map[string]any
	if err := yaml.Unmarshal([]byte(text), &out); err != nil || out == nil {
		return map[string]any{}
	}
	return StringKeys(out)
}

// StringKeys rewrites every nested map[any]any that yaml.v3 produces for
// non-string keys ({ 1: 'x' }) into map[string]any, so the value can be
// encoded as JSON. Keys are formatted with fmt.Sprint.
func StringKeys(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = stringKeys(v)
	}
	return out
}

func stringKeys(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return StringKeys(t)
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[fmt.Sprint(k)] = stringKeys(v)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, v := range t {
			out[i] = stringKeys(v)
		}
		return out
	}
	return v
}

func firstObjectArg(args *sitter.Node) *sitter.Node {
	if args == nil {
		return nil
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		if c := args.NamedChild(i); c.Type() == "object" {
			return c
		}
	}
	return nil
}

func pairValue(src []byte, obj *sitter.Node, name string) *sitter.Node {
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		pair := obj.NamedChild(i)
		if pair.Type() == "pair" && keyName(src, pair.ChildByFieldName("key")) == name {
			return pair.ChildByFieldName("value")
		}
	}
	return nil
}

func keyName(src []byte, key *sitter.Node) string {
	if key == nil {
		return ""
	}
	switch key.Type() {
	case "property_identifier", "identifier":
		return nodeText(src, key)
	case "string":
		s, _ := stringValue(src, key)
		return s
	}
	return ""
}

func stringValue(src []byte, n *sitter.Node) (string, bool) {
	text := nodeText(src, n)
	switch n.Type() {
	case "string":
	case "template_string":
		if strings.Contains(text, "${") {
			return "", false
		}
	default:
		return "", false
	}
	if len(text) < 2 {
		return "", false
	}
	return jsUnescape.Replace(text[1 : len(text)-1]), true
}

func nodeText(src []byte, n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(bytes.TrimSpace(src[n.StartByte():n.EndByte()]))
}
