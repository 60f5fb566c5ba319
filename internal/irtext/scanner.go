package irtext

import (
	"fmt"
	"strings"
)

type token uint8

const (
	_EOF     token = iota
	_Newline       // end of a non-empty line
	_Name          // identifier: opcode, kind, literal word, block name
	_Number        // numeric literal, possibly signed
	_Ref           // %name
	_Comma
	_Assign
	_Colon
	_Bang
)

var tokenNames = [...]string{
	_EOF:     "EOF",
	_Newline: "newline",
	_Name:    "name",
	_Number:  "number",
	_Ref:     "value reference",
	_Comma:   "','",
	_Assign:  "'='",
	_Colon:   "':'",
	_Bang:    "'!'",
}

func (t token) String() string {
	if int(t) < len(tokenNames) {
		return tokenNames[t]
	}
	return fmt.Sprintf("token(%d)", t)
}

// scanner splits the text format into tokens. Blank and comment-only lines
// produce no _Newline token.
type scanner struct {
	filename string
	buf      []byte
	offs     int

	line, col uint32 // position of ch
	ch        int    // current byte, -1 at EOF

	tok    token
	lit    string
	tokPos Pos
	nl     bool // a token other than _Newline was produced on this line

	errh func(pos Pos, msg string)
}

func newScanner(filename string, src []byte, errh func(pos Pos, msg string)) *scanner {
	s := &scanner{
		filename: filename,
		buf:      src,
		line:     1,
		ch:       ' ',
		errh:     errh,
	}
	s.nextch()
	return s
}

func (s *scanner) pos() Pos { return NewPos(s.filename, s.line, s.col) }

func (s *scanner) error(msg string) {
	if s.errh != nil {
		s.errh(s.pos(), msg)
	}
}

// nextch advances to the next byte, keeping (line, col) on s.ch.
func (s *scanner) nextch() {
	if s.ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	if s.offs >= len(s.buf) {
		s.ch = -1
		return
	}
	s.ch = int(s.buf[s.offs])
	s.offs++
}

// next advances to the next token.
func (s *scanner) next() {
redo:
	for s.ch == ' ' || s.ch == '\t' || s.ch == '\r' {
		s.nextch()
	}
	if s.ch == ';' {
		for s.ch != '\n' && s.ch >= 0 {
			s.nextch()
		}
	}

	s.tokPos = s.pos()
	s.lit = ""

	switch c := s.ch; {
	case c < 0:
		if s.nl {
			s.nl = false
			s.tok = _Newline
			return
		}
		s.tok = _EOF
		return
	case c == '\n':
		s.nextch()
		if !s.nl {
			goto redo
		}
		s.nl = false
		s.tok = _Newline
		return
	case isLetter(c):
		s.tok = _Name
		s.lit = s.scanWord()
	case isDigit(c) || c == '-' || c == '+':
		s.tok = _Number
		s.lit = s.scanNumber()
	case c == '%':
		s.nextch()
		if !isWordChar(s.ch) {
			s.error("expected value name after '%'")
			goto redo
		}
		s.tok = _Ref
		s.lit = s.scanWord()
	case c == ',':
		s.nextch()
		s.tok = _Comma
	case c == '=':
		s.nextch()
		s.tok = _Assign
	case c == ':':
		s.nextch()
		s.tok = _Colon
	case c == '!':
		s.nextch()
		s.tok = _Bang
	default:
		s.error(fmt.Sprintf("unexpected character %q", rune(c)))
		s.nextch()
		goto redo
	}
	s.nl = true
}

func (s *scanner) scanWord() string {
	start := s.offs - 1
	for isWordChar(s.ch) {
		s.nextch()
	}
	return string(s.buf[start : s.offs-s.pending()])
}

// scanNumber accepts a superset of integer and float syntax; the parser
// validates the literal against its kind. An exponent sign is only taken
// after 'e' or 'E' in a decimal literal.
func (s *scanner) scanNumber() string {
	start := s.offs - 1
	hex := false
	prev := s.ch
	s.nextch()
	for {
		switch {
		case isWordChar(s.ch):
			if (prev == '0') && (s.ch == 'x' || s.ch == 'X') {
				hex = true
			}
		case (s.ch == '-' || s.ch == '+') && (prev == 'e' || prev == 'E') && !hex:
		default:
			return string(s.buf[start : s.offs-s.pending()])
		}
		prev = s.ch
		s.nextch()
	}
}

// restOfLine returns the remaining text on the current line, without a
// trailing comment, and leaves the scanner at the newline.
func (s *scanner) restOfLine() string {
	var sb strings.Builder
	for s.ch >= 0 && s.ch != '\n' && s.ch != ';' {
		sb.WriteByte(byte(s.ch))
		s.nextch()
	}
	return strings.TrimSpace(sb.String())
}

// pending is 1 when s.ch holds a byte that has been read from buf but not
// yet consumed.
func (s *scanner) pending() int {
	if s.ch < 0 {
		return 0
	}
	return 1
}

func isLetter(c int) bool {
	return 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_'
}

func isDigit(c int) bool {
	return '0' <= c && c <= '9'
}

func isWordChar(c int) bool {
	return isLetter(c) || isDigit(c) || c == '.'
}
