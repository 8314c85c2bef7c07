package core

import (
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver resolves indirect references. The parser needs one only
// for streams whose /Length is itself an indirect object.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// Parser builds PDF objects from lexer tokens. Tokens are pulled lazily so
// the parser never reads past the stream keyword into binary data.
type Parser struct {
	lexer    *Lexer
	ahead    []*Token
	resolver ReferenceResolver
}

// NewParser creates a parser for r
func NewParser(r io.Reader) *Parser {
	return &Parser{lexer: NewLexer(r)}
}

// NewParserAt creates a parser for r whose token positions start at base
func NewParserAt(r io.Reader, base int64) *Parser {
	return &Parser{lexer: NewLexerAt(r, base)}
}

// SetReferenceResolver sets the resolver used for indirect stream lengths
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// peek returns the i-th token ahead without consuming it, skipping comments.
func (p *Parser) peek(i int) (*Token, error) {
	for len(p.ahead) <= i {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type == TokenComment {
			continue
		}
		p.ahead = append(p.ahead, tok)
		if tok.Type == TokenEOF {
			// keep returning EOF for any further lookahead
			for len(p.ahead) <= i {
				p.ahead = append(p.ahead, tok)
			}
		}
	}
	return p.ahead[i], nil
}

func (p *Parser) take() (*Token, error) {
	tok, err := p.peek(0)
	if err != nil {
		return nil, err
	}
	p.ahead = p.ahead[1:]
	return tok, nil
}

// ParseObject parses the next direct object. At end of input it returns
// io.EOF.
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.take()
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF
	case TokenKeyword:
		switch string(tok.Value) {
		case "null":
			return Null{}, nil
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return nil, fmt.Errorf("unexpected keyword %q at offset %d", tok.Value, tok.Pos)
	case TokenInteger:
		return p.parseInteger(tok)
	case TokenReal:
		f, err := strconv.ParseFloat(string(tok.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real %q at offset %d", tok.Value, tok.Pos)
		}
		return Real(f), nil
	case TokenString:
		return String(tok.Value), nil
	case TokenHexString:
		return decodeHexString(tok.Value), nil
	case TokenName:
		return Name(tok.Value), nil
	case TokenArrayStart:
		return p.parseArray()
	case TokenDictStart:
		return p.parseDict()
	}
	return nil, fmt.Errorf("unexpected token %q at offset %d", tok.Value, tok.Pos)
}

// parseInteger returns an Int, or an IndirectRef when the integer starts a
// "num gen R" sequence.
func (p *Parser) parseInteger(tok *Token) (Object, error) {
	num, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q at offset %d", tok.Value, tok.Pos)
	}

	gen, err := p.peek(0)
	if err != nil || gen.Type != TokenInteger {
		return Int(num), nil
	}
	r, err := p.peek(1)
	if err != nil || r.Type != TokenIndirectRef {
		return Int(num), nil
	}
	g, err := strconv.Atoi(string(gen.Value))
	if err != nil {
		return nil, fmt.Errorf("invalid generation %q at offset %d", gen.Value, gen.Pos)
	}
	p.ahead = p.ahead[2:]
	return IndirectRef{Number: int(num), Generation: g}, nil
}

func (p *Parser) parseArray() (Object, error) {
	arr := Array{}
	for {
		tok, err := p.peek(0)
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			p.take()
			return arr, nil
		case TokenEOF:
			return nil, fmt.Errorf("unterminated array: %w", io.ErrUnexpectedEOF)
		}
		elem, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("array element %d: %w", len(arr), err)
		}
		arr = append(arr, elem)
	}
}

func (p *Parser) parseDict() (Object, error) {
	dict := Dict{}
	for {
		tok, err := p.take()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenDictEnd:
			return dict, nil
		case TokenEOF:
			return nil, fmt.Errorf("unterminated dictionary: %w", io.ErrUnexpectedEOF)
		case TokenName:
		default:
			return nil, fmt.Errorf("dictionary key at offset %d is not a name", tok.Pos)
		}
		key := string(tok.Value)
		value, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("value for /%s: %w", key, err)
		}
		// a null value is equivalent to an absent key
		if _, isNull := value.(Null); isNull {
			continue
		}
		dict[key] = value
	}
}

// ParseIndirectObject parses "num gen obj <value> endobj", including stream
// objects.
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	numTok, err := p.take()
	if err != nil {
		return nil, err
	}
	genTok, err := p.take()
	if err != nil {
		return nil, err
	}
	objTok, err := p.take()
	if err != nil {
		return nil, err
	}
	if numTok.Type != TokenInteger || genTok.Type != TokenInteger ||
		objTok.Type != TokenKeyword || string(objTok.Value) != "obj" {
		return nil, fmt.Errorf("expected object header at offset %d", numTok.Pos)
	}
	num, _ := strconv.Atoi(string(numTok.Value))
	gen, _ := strconv.Atoi(string(genTok.Value))

	value, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("object %d %d: %w", num, gen, err)
	}

	tok, err := p.take()
	if err != nil {
		return nil, err
	}
	if tok.Type == TokenKeyword && string(tok.Value) == "stream" {
		dict, ok := value.(Dict)
		if !ok {
			return nil, fmt.Errorf("object %d %d: stream keyword after %s", num, gen, value.Type())
		}
		stream, err := p.parseStreamBody(dict)
		if err != nil {
			return nil, fmt.Errorf("object %d %d: %w", num, gen, err)
		}
		value = stream
		if tok, err = p.take(); err != nil {
			return nil, err
		}
	}
	if tok.Type != TokenKeyword || string(tok.Value) != "endobj" {
		return nil, fmt.Errorf("object %d %d: expected endobj at offset %d", num, gen, tok.Pos)
	}

	return &IndirectObject{
		Ref:    IndirectRef{Number: num, Generation: gen},
		Object: value,
	}, nil
}

// parseStreamBody reads the raw stream bytes following the stream keyword.
// The lookahead buffer is empty at this point.
func (p *Parser) parseStreamBody(dict Dict) (*Stream, error) {
	length, err := p.streamLength(dict)
	if err != nil {
		return nil, err
	}
	if err := p.lexer.SkipStreamEOL(); err != nil {
		return nil, fmt.Errorf("stream EOL: %w", err)
	}
	data, err := p.lexer.ReadBytes(length)
	if err != nil {
		return nil, fmt.Errorf("stream data: %w", err)
	}
	tok, err := p.take()
	if err != nil {
		return nil, err
	}
	if tok.Type != TokenKeyword || string(tok.Value) != "endstream" {
		return nil, fmt.Errorf("expected endstream at offset %d", tok.Pos)
	}
	return &Stream{Dict: dict, Data: data}, nil
}

func (p *Parser) streamLength(dict Dict) (int, error) {
	switch v := dict.Get("Length").(type) {
	case Int:
		if v < 0 {
			return 0, fmt.Errorf("negative stream length %d", v)
		}
		return int(v), nil
	case IndirectRef:
		if p.resolver == nil {
			return 0, fmt.Errorf("indirect stream length %s without resolver", v)
		}
		obj, err := p.resolver.ResolveReference(v)
		if err != nil {
			return 0, fmt.Errorf("stream length %s: %w", v, err)
		}
		n, ok := obj.(Int)
		if !ok || n < 0 {
			return 0, fmt.Errorf("stream length %s resolved to %s", v, stringOf(obj))
		}
		return int(n), nil
	case nil:
		return 0, fmt.Errorf("stream dictionary missing /Length")
	default:
		return 0, fmt.Errorf("invalid /Length type %s", v.Type())
	}
}

func decodeHexString(digits []byte) String {
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := range out {
		out[i] = hexValue(digits[2*i])<<4 | hexValue(digits[2*i+1])
	}
	return String(out)
}
