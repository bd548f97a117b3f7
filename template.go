package bal

// template.go handles the argument templates of server and client command lines.
// A template is a command line in which {key} placeholders name fields of the
// node configuration, e.g. "-p {port} -n {name}".  "{{" and "}}" stand for literal braces.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
	"golang.org/x/exp/slices"
)

// ErrBadTemplate is returned when an argument template is malformed or names an unknown key
var ErrBadTemplate = errors.New("bad argument template")

// keys a server argument template may use
var serverTemplateKeys = []string{"name", "IP", "port", "cdir", "sdir", "socket", "simulation_path"}

// keys a client argument template may use
var clientTemplateKeys = []string{"command", "method", "name", "IP", "port", "cdir", "sdir"}

// SplitArgs splits a command line into words the way a shell would. Shell
// operators (';', '&', '|', '<', '>') are only allowed inside quotes.
func SplitArgs(line string) ([]string, error) {
	parser := shellwords.NewParser()
	words, err := parser.Parse(line)
	if err != nil {
		return nil, fmt.Errorf("%v in %q", err, line)
	}
	if parser.Position >= 0 {
		return nil, fmt.Errorf("unquoted %q in %q", []rune(line)[parser.Position], line)
	}
	return words, nil
}

// argTemplate is a validated argument template
type argTemplate struct {
	text string

	// the template split into arguments, placeholders not yet filled
	words []string

	// placeholders in order of appearance, repeats included
	keys []string
}

// parseArgTemplate splits text into arguments and checks that every placeholder
// is in allowed and that braces balance
func parseArgTemplate(text string, allowed []string) (*argTemplate, error) {
	words, err := SplitArgs(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadTemplate, err)
	}

	at := &argTemplate{text: text, words: words, keys: []string{}}
	for _, word := range words {
		keys, err := wordKeys(word)
		if err != nil {
			return nil, fmt.Errorf("%w: %v in %q", ErrBadTemplate, err, text)
		}
		for _, key := range keys {
			if !slices.Contains(allowed, key) {
				return nil, fmt.Errorf("%w: unknown key {%s} in %q", ErrBadTemplate, key, text)
			}
		}
		at.keys = append(at.keys, keys...)
	}
	return at, nil
}

// wordKeys returns the placeholders of one argument
func wordKeys(word string) ([]string, error) {
	keys := []string{}
	for idx := 0; idx < len(word); idx++ {
		switch word[idx] {
		case '{':
			if idx+1 < len(word) && word[idx+1] == '{' {
				idx++
				continue
			}
			end := strings.IndexByte(word[idx+1:], '}')
			if end < 0 {
				return nil, errors.New("unclosed '{'")
			}
			keys = append(keys, word[idx+1:idx+1+end])
			idx += end + 1
		case '}':
			if idx+1 < len(word) && word[idx+1] == '}' {
				idx++
				continue
			}
			return nil, errors.New("single '}'")
		}
	}
	return keys, nil
}

// uses reports whether the template has a placeholder for key
func (at *argTemplate) uses(key string) bool {
	return slices.Contains(at.keys, key)
}

// formatWord substitutes the placeholders of one argument with values. The
// template was validated when parsed, so every key is known.
func formatWord(word string, values map[string]string) string {
	var sb strings.Builder
	for idx := 0; idx < len(word); idx++ {
		c := word[idx]
		switch {
		case c == '{' && idx+1 < len(word) && word[idx+1] == '{':
			sb.WriteByte('{')
			idx++
		case c == '}' && idx+1 < len(word) && word[idx+1] == '}':
			sb.WriteByte('}')
			idx++
		case c == '{':
			end := strings.IndexByte(word[idx+1:], '}')
			sb.WriteString(values[word[idx+1:idx+1+end]])
			idx += end + 1
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// loneKey returns the key of an argument made of a single placeholder
func loneKey(word string) (string, bool) {
	if len(word) < 3 || word[0] != '{' || word[len(word)-1] != '}' || strings.ContainsAny(word[1:len(word)-1], "{}") {
		return "", false
	}
	return word[1 : len(word)-1], true
}

// argv fills the placeholders of every argument. Values are substituted verbatim,
// whatever quotes, spaces or shell operators they hold. An argument that is a lone
// placeholder listed in expand becomes the given list of arguments, and one that is
// a lone placeholder with an empty value is dropped.
func (at *argTemplate) argv(values map[string]string, expand map[string][]string) []string {
	vals := make(map[string]string, len(values)+len(expand))
	for key, value := range values {
		vals[key] = value
	}
	for key, args := range expand {
		vals[key] = strings.Join(args, " ")
	}

	argv := make([]string, 0, len(at.words))
	for _, word := range at.words {
		if key, lone := loneKey(word); lone {
			if args, present := expand[key]; present {
				argv = append(argv, args...)
				continue
			}
			if vals[key] == "" {
				continue
			}
		}
		argv = append(argv, formatWord(word, vals))
	}
	return argv
}
