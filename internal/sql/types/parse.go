package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/patrickmn/go-cache"

	qerrors "github.com/onisimchukv/ksql/internal/errors"
)

// Parser turns canonical type syntax back into SqlType values and caches the
// results keyed by the trimmed input text.
type Parser struct {
	cache *cache.Cache
}

// NewParser creates a parser whose cache entries live for ttl. A ttl of zero
// or less never expires entries.
func NewParser(ttl time.Duration) *Parser {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	// No janitor goroutine: expired entries are dropped lazily on lookup.
	return &Parser{cache: cache.New(ttl, 0)}
}

var defaultParser = NewParser(cache.NoExpiration)

// Parse parses text with the process-wide parser.
func Parse(text string) (SqlType, error) {
	return defaultParser.Parse(text)
}

// MustParse is Parse for statically known type strings; it panics on error.
func MustParse(text string) SqlType {
	t, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Parse parses canonical type syntax such as "ARRAY<DECIMAL(10, 2)>".
func (p *Parser) Parse(text string) (SqlType, error) {
	key := strings.TrimSpace(text)
	if cached, ok := p.cache.Get(key); ok {
		return cached.(SqlType), nil
	}

	t, err := parseType(key)
	if err != nil {
		return nil, err
	}
	p.cache.SetDefault(key, t)
	return t, nil
}

// Cached returns the number of cached entries.
func (p *Parser) Cached() int {
	return p.cache.ItemCount()
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokQuoted
	tokNumber
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

type typeParser struct {
	input  string
	tokens []token
	cur    int
}

func parseType(text string) (SqlType, error) {
	tokens, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	p := &typeParser{input: text, tokens: tokens}
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.errorf(tok, "unexpected '%s'", tok.text)
	}
	return t, nil
}

func tokenize(text string) ([]token, error) {
	var tokens []token
	runes := []rune(text)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '<' || r == '>' || r == '(' || r == ')' || r == ',':
			tokens = append(tokens, token{kind: tokPunct, text: string(r), pos: i})
			i++
		case r == '`':
			start := i
			var sb strings.Builder
			i++
			for {
				if i >= len(runes) {
					return nil, qerrors.TypeSyntaxError(text, start, "unterminated quoted identifier")
				}
				if runes[i] == '`' {
					if i+1 < len(runes) && runes[i+1] == '`' {
						sb.WriteRune('`')
						i += 2
						continue
					}
					i++
					break
				}
				sb.WriteRune(runes[i])
				i++
			}
			tokens = append(tokens, token{kind: tokQuoted, text: sb.String(), pos: start})
		case r == '-' || unicode.IsDigit(r):
			start := i
			i++
			for i < len(runes) && unicode.IsDigit(runes[i]) {
				i++
			}
			tokens = append(tokens, token{kind: tokNumber, text: string(runes[start:i]), pos: start})
		case r == '_' || unicode.IsLetter(r):
			start := i
			for i < len(runes) && (runes[i] == '_' || unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i])) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: string(runes[start:i]), pos: start})
		default:
			return nil, qerrors.TypeSyntaxError(text, i, "unexpected character '"+string(r)+"'")
		}
	}
	return append(tokens, token{kind: tokEOF, pos: len(runes)}), nil
}

func (p *typeParser) peek() token {
	return p.tokens[p.cur]
}

func (p *typeParser) next() token {
	tok := p.tokens[p.cur]
	if tok.kind != tokEOF {
		p.cur++
	}
	return tok
}

func (p *typeParser) errorf(tok token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if tok.kind == tokEOF {
		msg = "unexpected end of input"
	}
	return qerrors.TypeSyntaxError(p.input, tok.pos, msg)
}

func (p *typeParser) expect(punct string) error {
	tok := p.next()
	if tok.kind != tokPunct || tok.text != punct {
		return p.errorf(tok, "expected '%s' but found '%s'", punct, tok.text)
	}
	return nil
}

func (p *typeParser) parseType() (SqlType, error) {
	tok := p.next()
	if tok.kind != tokIdent {
		return nil, p.errorf(tok, "expected a type name but found '%s'", tok.text)
	}

	switch strings.ToUpper(tok.text) {
	case "BOOLEAN":
		return Boolean, nil
	case "INT", "INTEGER":
		return Int, nil
	case "BIGINT":
		return BigInt, nil
	case "DOUBLE":
		return Double, nil
	case "STRING", "VARCHAR":
		return String, nil
	case "DECIMAL":
		return p.parseDecimal()
	case "ARRAY":
		return p.parseArray()
	case "MAP":
		return p.parseMap()
	case "STRUCT":
		return p.parseStruct()
	default:
		return nil, p.errorf(tok, "unknown type '%s'", tok.text)
	}
}

func (p *typeParser) parseDecimal() (SqlType, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	precision, err := p.parseInt()
	if err != nil {
		return nil, err
	}
	if err := p.expect(","); err != nil {
		return nil, err
	}
	scale, err := p.parseInt()
	if err != nil {
		return nil, err
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	d, err := DecimalOf(precision, scale)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (p *typeParser) parseInt() (int, error) {
	tok := p.next()
	if tok.kind != tokNumber {
		return 0, p.errorf(tok, "expected a number but found '%s'", tok.text)
	}
	n, err := strconv.Atoi(tok.text)
	if err != nil {
		return 0, p.errorf(tok, "invalid number '%s'", tok.text)
	}
	return n, nil
}

func (p *typeParser) parseArray() (SqlType, error) {
	if err := p.expect("<"); err != nil {
		return nil, err
	}
	item, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expect(">"); err != nil {
		return nil, err
	}
	return ArrayOf(item), nil
}

func (p *typeParser) parseMap() (SqlType, error) {
	if err := p.expect("<"); err != nil {
		return nil, err
	}
	keyTok := p.peek()
	key, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if !key.Equals(String) {
		return nil, p.errorf(keyTok, "MAP key type must be STRING, got %s", key)
	}
	if err := p.expect(","); err != nil {
		return nil, err
	}
	value, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expect(">"); err != nil {
		return nil, err
	}
	return MapOf(value), nil
}

func (p *typeParser) parseStruct() (SqlType, error) {
	if err := p.expect("<"); err != nil {
		return nil, err
	}
	b := NewStructBuilder()
	if tok := p.peek(); tok.kind == tokPunct && tok.text == ">" {
		p.next()
		return p.buildStruct(b)
	}
	for {
		nameTok := p.next()
		if nameTok.kind != tokIdent && nameTok.kind != tokQuoted {
			return nil, p.errorf(nameTok, "expected a field name but found '%s'", nameTok.text)
		}
		fieldType, err := p.parseType()
		if err != nil {
			return nil, err
		}
		b.Field(nameTok.text, fieldType)

		tok := p.next()
		if tok.kind == tokPunct && tok.text == ">" {
			return p.buildStruct(b)
		}
		if tok.kind != tokPunct || tok.text != "," {
			return nil, p.errorf(tok, "expected ',' or '>' but found '%s'", tok.text)
		}
	}
}

func (p *typeParser) buildStruct(b *StructBuilder) (SqlType, error) {
	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	return s, nil
}
