package core

import (
	"bufio"
	"fmt"
	"io"
)

// TokenType represents the type of token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenComment
	TokenKeyword     // true, false, null, obj, endobj, stream, endstream, xref, trailer
	TokenInteger     // 123
	TokenReal        // 3.14
	TokenString      // (hello)
	TokenHexString   // <48656C6C6F>
	TokenName        // /Type
	TokenArrayStart  // [
	TokenArrayEnd    // ]
	TokenDictStart   // <<
	TokenDictEnd     // >>
	TokenIndirectRef // R
)

// Token represents a lexical token. Pos is the byte offset of the token's
// first byte relative to the lexer's base offset.
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64
}

// Lexer splits PDF input into tokens.
type Lexer struct {
	r   *bufio.Reader
	pos int64
}

// NewLexer creates a lexer reading from r. Positions start at zero.
func NewLexer(r io.Reader) *Lexer {
	return NewLexerAt(r, 0)
}

// NewLexerAt creates a lexer whose reported positions start at base. This is
// used when r is a section of a larger file.
func NewLexerAt(r io.Reader, base int64) *Lexer {
	return &Lexer{r: bufio.NewReader(r), pos: base}
}

// Pos returns the offset of the next unread byte
func (l *Lexer) Pos() int64 {
	return l.pos
}

// NextToken returns the next token. At end of input it returns a TokenEOF
// token and a nil error.
func (l *Lexer) NextToken() (*Token, error) {
	if err := l.skipSpace(); err != nil && err != io.EOF {
		return nil, err
	}
	c, err := l.peekByte()
	if err == io.EOF {
		return &Token{Type: TokenEOF, Pos: l.pos}, nil
	}
	if err != nil {
		return nil, err
	}

	start := l.pos
	switch {
	case c == '%':
		return l.lexComment()
	case c == '[':
		l.next()
		return &Token{Type: TokenArrayStart, Value: []byte{'['}, Pos: start}, nil
	case c == ']':
		l.next()
		return &Token{Type: TokenArrayEnd, Value: []byte{']'}, Pos: start}, nil
	case c == '(':
		return l.lexLiteral()
	case c == '<':
		if two, _ := l.r.Peek(2); len(two) == 2 && two[1] == '<' {
			l.next()
			l.next()
			return &Token{Type: TokenDictStart, Value: []byte("<<"), Pos: start}, nil
		}
		return l.lexHex()
	case c == '>':
		if two, _ := l.r.Peek(2); len(two) == 2 && two[1] == '>' {
			l.next()
			l.next()
			return &Token{Type: TokenDictEnd, Value: []byte(">>"), Pos: start}, nil
		}
		return nil, fmt.Errorf("unexpected '>' at offset %d", start)
	case c == '/':
		return l.lexName()
	case isDigit(c) || c == '-' || c == '+' || c == '.':
		return l.lexNumber()
	case isRegular(c):
		return l.lexKeyword()
	}
	return nil, fmt.Errorf("unexpected character %q at offset %d", c, start)
}

// SkipStreamEOL consumes the end-of-line marker that must follow the stream
// keyword: LF or CR LF. A lone CR is tolerated.
func (l *Lexer) SkipStreamEOL() error {
	c, err := l.peekByte()
	if err != nil {
		return err
	}
	switch c {
	case '\n':
		l.next()
	case '\r':
		l.next()
		if c, err := l.peekByte(); err == nil && c == '\n' {
			l.next()
		}
	}
	return nil
}

// ReadBytes reads exactly n raw bytes
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(l.r, buf)
	l.pos += int64(read)
	if err != nil {
		return buf[:read], fmt.Errorf("expected %d bytes, got %d: %w", n, read, err)
	}
	return buf, nil
}

func (l *Lexer) peekByte() (byte, error) {
	b, err := l.r.Peek(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (l *Lexer) next() (byte, error) {
	c, err := l.r.ReadByte()
	if err != nil {
		return 0, err
	}
	l.pos++
	return c, nil
}

func (l *Lexer) skipSpace() error {
	for {
		c, err := l.peekByte()
		if err != nil {
			return err
		}
		if !isWhitespace(c) {
			return nil
		}
		l.next()
	}
}

func (l *Lexer) lexComment() (*Token, error) {
	start := l.pos
	var buf []byte
	for {
		c, err := l.peekByte()
		if err == io.EOF || c == '\r' || c == '\n' {
			break
		}
		if err != nil {
			return nil, err
		}
		l.next()
		buf = append(buf, c)
	}
	return &Token{Type: TokenComment, Value: buf, Pos: start}, nil
}

func (l *Lexer) lexLiteral() (*Token, error) {
	start := l.pos
	l.next() // (
	var buf []byte
	depth := 1
	for {
		c, err := l.next()
		if err != nil {
			return nil, fmt.Errorf("unterminated string at offset %d: %w", start, err)
		}
		switch c {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return &Token{Type: TokenString, Value: buf, Pos: start}, nil
			}
		case '\\':
			esc, err := l.next()
			if err != nil {
				return nil, fmt.Errorf("unterminated string at offset %d: %w", start, err)
			}
			switch esc {
			case 'n':
				buf = append(buf, '\n')
			case 'r':
				buf = append(buf, '\r')
			case 't':
				buf = append(buf, '\t')
			case 'b':
				buf = append(buf, '\b')
			case 'f':
				buf = append(buf, '\f')
			case '\r':
				// line continuation, CR LF counts as one EOL
				if c, err := l.peekByte(); err == nil && c == '\n' {
					l.next()
				}
			case '\n':
			default:
				if isOctal(esc) {
					val := esc - '0'
					for i := 0; i < 2; i++ {
						d, err := l.peekByte()
						if err != nil || !isOctal(d) {
							break
						}
						l.next()
						val = val*8 + (d - '0')
					}
					buf = append(buf, val)
				} else {
					buf = append(buf, esc)
				}
			}
			continue
		}
		buf = append(buf, c)
	}
}

func (l *Lexer) lexHex() (*Token, error) {
	start := l.pos
	l.next() // <
	var buf []byte
	for {
		c, err := l.next()
		if err != nil {
			return nil, fmt.Errorf("unterminated hex string at offset %d: %w", start, err)
		}
		if c == '>' {
			return &Token{Type: TokenHexString, Value: buf, Pos: start}, nil
		}
		if isWhitespace(c) {
			continue
		}
		if !isHex(c) {
			return nil, fmt.Errorf("invalid hex digit %q at offset %d", c, l.pos-1)
		}
		buf = append(buf, c)
	}
}

func (l *Lexer) lexName() (*Token, error) {
	start := l.pos
	l.next() // /
	var buf []byte
	for {
		c, err := l.peekByte()
		if err == io.EOF || (err == nil && !isRegular(c)) {
			break
		}
		if err != nil {
			return nil, err
		}
		l.next()
		if c == '#' {
			hi, err1 := l.next()
			lo, err2 := l.next()
			if err1 != nil || err2 != nil || !isHex(hi) || !isHex(lo) {
				return nil, fmt.Errorf("invalid #-escape in name at offset %d", start)
			}
			c = hexValue(hi)<<4 | hexValue(lo)
		}
		buf = append(buf, c)
	}
	return &Token{Type: TokenName, Value: buf, Pos: start}, nil
}

func (l *Lexer) lexNumber() (*Token, error) {
	start := l.pos
	var buf []byte
	isReal := false
	for {
		c, err := l.peekByte()
		if err != nil {
			break
		}
		if c == '.' && !isReal {
			isReal = true
		} else if !(isDigit(c) || (len(buf) == 0 && (c == '-' || c == '+'))) {
			break
		}
		l.next()
		buf = append(buf, c)
	}
	typ := TokenInteger
	if isReal {
		typ = TokenReal
	}
	return &Token{Type: typ, Value: buf, Pos: start}, nil
}

func (l *Lexer) lexKeyword() (*Token, error) {
	start := l.pos
	var buf []byte
	for {
		c, err := l.peekByte()
		if err != nil || !isRegular(c) {
			break
		}
		l.next()
		buf = append(buf, c)
	}
	if len(buf) == 1 && buf[0] == 'R' {
		return &Token{Type: TokenIndirectRef, Value: buf, Pos: start}, nil
	}
	return &Token{Type: TokenKeyword, Value: buf, Pos: start}, nil
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

// isRegular reports whether b may appear inside a name or keyword
func isRegular(b byte) bool {
	return !isWhitespace(b) && !isDelimiter(b)
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isOctal(b byte) bool {
	return b >= '0' && b <= '7'
}

func isHex(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case isDigit(b):
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10
	}
	return 0
}
