package resolver

import (
	"bytes"
	"regexp"

	"github.com/30Piraten/fmtcf/internal/source"
)

// Mode selects which placeholder syntax a file uses. The two syntaxes are
// never mixed within one file.
type Mode int

const (
	// Tagged tokens look like PREFIX::name and name their source.
	Tagged Mode = iota + 1
	// Bare tokens look like __name__ and resolve against a value table.
	Bare
)

func (m Mode) String() string {
	switch m {
	case Tagged:
		return "tagged"
	case Bare:
		return "bare"
	}
	return "unknown"
}

var (
	taggedPattern = regexp.MustCompile(`\b([A-Z][A-Z0-9_]*(?:-[A-Z0-9_]+)*)::([A-Za-z0-9_\-/]+)`)
	barePattern   = regexp.MustCompile(`__([A-Za-z0-9]+(?:_[A-Za-z0-9]+)*)__`)
)

// reservedPrefixes are namespaces that belong to CloudFormation pseudo
// parameters and resource types (AWS::Region, AWS::S3::Bucket). They are
// never tokens.
var reservedPrefixes = map[string]bool{
	"AWS": true,
}

var namespaceSep = []byte("::")

// isNamespacePath reports whether the match at [start, end) is one segment of
// a longer A::B::C path such as Alexa::ASK::Skill. Token names never contain
// "::", so such a path is not a token.
func isNamespacePath(template []byte, start, end int) bool {
	return bytes.HasSuffix(template[:start], namespaceSep) ||
		bytes.HasPrefix(template[end:], namespaceSep)
}

// token is one placeholder occurrence in a template.
type token struct {
	start, end int
	text       string
	prefix     string
	name       string
	kind       source.Kind
}

// scan finds every token of the given mode, left to right. Tagged tokens with
// a prefix that names no source fail the scan before any lookup happens.
// Reserved prefixes and namespace paths are left as literal text.
func scan(mode Mode, template []byte) ([]token, error) {
	pattern := taggedPattern
	if mode == Bare {
		pattern = barePattern
	}

	matches := pattern.FindAllSubmatchIndex(template, -1)
	tokens := make([]token, 0, len(matches))
	for _, m := range matches {
		if mode == Tagged {
			prefix := string(template[m[2]:m[3]])
			if reservedPrefixes[prefix] || isNamespacePath(template, m[0], m[1]) {
				continue
			}
		}
		tok := token{
			start: m[0],
			end:   m[1],
			text:  string(template[m[0]:m[1]]),
		}
		if mode == Bare {
			tok.name = string(template[m[2]:m[3]])
		} else {
			tok.prefix = string(template[m[2]:m[3]])
			tok.name = string(template[m[4]:m[5]])
			kind, ok := source.ParseKind(tok.prefix)
			if !ok {
				return nil, &UnknownSourceError{
					Prefix: tok.prefix,
					Token:  tok.text,
					Line:   lineOf(template, tok.start),
				}
			}
			tok.kind = kind
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

func lineOf(template []byte, offset int) int {
	return bytes.Count(template[:offset], []byte("\n")) + 1
}
