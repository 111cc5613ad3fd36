package engine

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"
)

const xslNamespace = "http://www.w3.org/1999/XSL/Transform"

var importExpr = xpath.MustCompile(`//*[local-name()='import' or local-name()='include']`)

// Stylesheet is a parsed stylesheet and the references of its top-level
// xsl:import and xsl:include elements.
type Stylesheet struct {
	Path  string
	Data  []byte
	Hrefs []string
}

// ParseStylesheet reads and parses the stylesheet at path. A document that
// is not well-formed XML is an error.
func ParseStylesheet(path string) (*Stylesheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse stylesheet %s: %w", path, err)
	}

	var hrefs []string
	seen := make(map[string]bool)
	for _, n := range xmlquery.QuerySelectorAll(doc, importExpr) {
		if n.NamespaceURI != xslNamespace {
			continue
		}
		href := n.SelectAttr("href")
		if href == "" || seen[href] {
			continue
		}
		seen[href] = true
		hrefs = append(hrefs, href)
	}

	return &Stylesheet{Path: absPath(path), Data: data, Hrefs: hrefs}, nil
}

// Rewrite returns the stylesheet with every relative import reference made
// absolute. References the resolver accepts point at its result; the rest
// point at the stylesheet's own directory, which is what the engine would
// have done. changed is false when no reference differs from that default,
// or when a reference could not be located in the raw bytes; the original
// data is returned then.
func (s *Stylesheet) Rewrite(resolver ImportResolver) (data []byte, changed bool) {
	dir := filepath.Dir(s.Path)

	targets := make(map[string]string)
	for _, href := range s.Hrefs {
		if !isRelativeRef(href) {
			continue
		}
		fallback := filepath.Join(dir, filepath.FromSlash(href))
		target := fallback
		if resolved, ok := resolver.Resolve(href); ok {
			target = resolved
		}
		if target != fallback {
			changed = true
		}
		targets[href] = target
	}
	if !changed {
		return s.Data, false
	}

	data, replaced := replaceHrefs(s.Data, targets)
	for href := range targets {
		// A copy with a relative href left in place would resolve it
		// against the temp directory.
		if !replaced[href] {
			return s.Data, false
		}
	}
	return data, true
}

var hrefAttr = regexp.MustCompile(`(<[^<>]*\b(?:import|include)\b[^<>]*\bhref\s*=\s*)(?:"([^"<]*)"|'([^'<]*)')`)

var attrEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `"`, "&quot;", `'`, "&apos;")

// replaceHrefs substitutes import and include href values whose decoded
// form is a key of targets. Raw values are compared after entity decoding,
// since the parsed hrefs are decoded.
func replaceHrefs(data []byte, targets map[string]string) ([]byte, map[string]bool) {
	replaced := make(map[string]bool)
	out := hrefAttr.ReplaceAllFunc(data, func(m []byte) []byte {
		sub := hrefAttr.FindSubmatch(m)
		quote, raw := `"`, sub[2]
		if sub[3] != nil {
			quote, raw = `'`, sub[3]
		}
		target, ok := targets[html.UnescapeString(string(raw))]
		if !ok {
			return m
		}
		replaced[html.UnescapeString(string(raw))] = true

		var b bytes.Buffer
		b.Write(sub[1])
		b.WriteString(quote)
		b.WriteString(attrEscaper.Replace(filepath.ToSlash(target)))
		b.WriteString(quote)
		return b.Bytes()
	})
	return out, replaced
}
