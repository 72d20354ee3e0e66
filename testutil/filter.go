package testutil

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// filter is the subset of RFC 4515 the fake directory understands: and, or,
// not, equality and presence.
type filter struct {
	op       byte // '&', '|', '!' or '='
	attr     string
	value    string
	present  bool
	children []*filter
}

func parseFilter(s string) (*filter, error) {
	f, rest, err := parseItem(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}
	if rest != "" {
		return nil, fmt.Errorf("trailing data in filter: %q", rest)
	}
	return f, nil
}

func parseItem(s string) (*filter, string, error) {
	if len(s) < 3 || s[0] != '(' {
		return nil, "", fmt.Errorf("filter must start with '(': %q", s)
	}
	s = s[1:]

	switch s[0] {
	case '&', '|', '!':
		f := &filter{op: s[0]}
		s = s[1:]
		for len(s) > 0 && s[0] == '(' {
			child, rest, err := parseItem(s)
			if err != nil {
				return nil, "", err
			}
			f.children = append(f.children, child)
			s = rest
		}
		if len(s) == 0 || s[0] != ')' {
			return nil, "", fmt.Errorf("unterminated filter")
		}
		if f.op == '!' && len(f.children) != 1 {
			return nil, "", fmt.Errorf("not filter needs exactly one child")
		}
		return f, s[1:], nil
	}

	end := strings.IndexByte(s, ')')
	if end < 0 {
		return nil, "", fmt.Errorf("unterminated filter")
	}
	item := s[:end]
	eq := strings.IndexByte(item, '=')
	if eq <= 0 {
		return nil, "", fmt.Errorf("unsupported filter item %q", item)
	}

	f := &filter{op: '=', attr: item[:eq]}
	raw := item[eq+1:]
	if raw == "*" {
		f.present = true
	} else {
		value, err := unescapeValue(raw)
		if err != nil {
			return nil, "", err
		}
		f.value = value
	}
	return f, s[end+1:], nil
}

func unescapeValue(s string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' {
			b.WriteByte(s[i])
			continue
		}
		if i+2 >= len(s) {
			return "", fmt.Errorf("truncated escape in %q", s)
		}
		decoded, err := hex.DecodeString(s[i+1 : i+3])
		if err != nil {
			return "", fmt.Errorf("bad escape in %q: %w", s, err)
		}
		b.Write(decoded)
		i += 2
	}
	return b.String(), nil
}

func (f *filter) match(e *FakeEntry) bool {
	switch f.op {
	case '&':
		for _, c := range f.children {
			if !c.match(e) {
				return false
			}
		}
		return true
	case '|':
		for _, c := range f.children {
			if c.match(e) {
				return true
			}
		}
		return false
	case '!':
		return !f.children[0].match(e)
	}

	// Every entry has an object class.
	if f.present && strings.EqualFold(f.attr, "objectClass") {
		return true
	}

	for name, values := range e.Attributes {
		if !strings.EqualFold(name, f.attr) {
			continue
		}
		if f.present {
			return len(values) > 0
		}
		for _, v := range values {
			if strings.EqualFold(v, f.value) {
				return true
			}
		}
	}
	return false
}
