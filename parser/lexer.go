package parser

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bondbuild/bondcompile/ast"
	"github.com/bondbuild/bondcompile/reporter"
)

type runeReader struct {
	data []byte
	pos  int
	err  error
	mark int
}

func (rr *runeReader) readRune() (r rune, size int, err error) {
	if rr.err != nil {
		return 0, 0, rr.err
	}
	if rr.pos == len(rr.data) {
		rr.err = io.EOF
		return 0, 0, rr.err
	}
	r, sz := utf8.DecodeRune(rr.data[rr.pos:])
	if r == utf8.RuneError {
		rr.err = fmt.Errorf("invalid UTF8 at offset %d: %x", rr.pos, rr.data[rr.pos])
		return 0, 0, rr.err
	}
	rr.pos = rr.pos + sz
	return r, sz, nil
}

func (rr *runeReader) offset() int {
	return rr.pos
}

func (rr *runeReader) unreadRune(sz int) {
	newPos := rr.pos - sz
	if newPos < rr.mark {
		panic("unread past mark")
	}
	rr.pos = newPos
}

func (rr *runeReader) setMark() {
	rr.mark = rr.pos
}

func (rr *runeReader) getMark() string {
	return string(rr.data[rr.mark:rr.pos])
}

type bondLex struct {
	input   *runeReader
	info    *ast.FileInfo
	handler *reporter.Handler

	prevTok    ast.Token
	havePrev   bool
	prevLine   int
	prevOffset int

	comments []ast.Token
}

var utf8Bom = []byte{0xEF, 0xBB, 0xBF}

func newLexer(in io.Reader, filename string, handler *reporter.Handler) (*bondLex, error) {
	br := bufio.NewReader(in)

	// if file has UTF8 byte order marker preface, consume it
	marker, err := br.Peek(3)
	if err == nil && bytes.Equal(marker, utf8Bom) {
		_, _ = br.Discard(3)
	}

	contents, err := io.ReadAll(br)
	if err != nil {
		return nil, err
	}
	return &bondLex{
		input:   &runeReader{data: contents},
		info:    ast.NewFileInfo(filename, contents),
		handler: handler,
	}, nil
}

func (l *bondLex) maybeNewLine(r rune) {
	if r == '\n' {
		l.info.AddLine(l.input.offset())
	}
}

func (l *bondLex) prev() ast.SourcePos {
	return l.info.SourcePos(l.prevOffset)
}

// Lex returns the next significant token. Whitespace is skipped; comments
// are added to the file's hidden channel and attributed to the neighboring
// significant tokens.
func (l *bondLex) Lex() token {
	for {
		l.input.setMark()

		l.prevOffset = l.input.offset()
		c, _, err := l.input.readRune()
		if err == io.EOF {
			t := token{kind: tokenEOF, pos: l.prev()}
			l.flushComments()
			return t
		} else if err != nil {
			return l.errToken(err)
		}

		if strings.ContainsRune("\n\r\t\f\v ", c) {
			// skip whitespace
			l.maybeNewLine(c)
			continue
		}

		if c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			// identifier, keyword, or wide string prefix
			l.readIdentifier()
			text := l.input.getMark()
			if text == "L" {
				cn, szn, err := l.input.readRune()
				if err == nil {
					if cn == '"' || cn == '\'' {
						str, err := l.readStringLiteral(cn)
						if err != nil {
							return l.errToken(err)
						}
						return l.emit(token{kind: tokenStringLit, text: l.input.getMark(), str: str, wide: true})
					}
					l.input.unreadRune(szn)
				}
			}
			return l.emit(token{kind: tokenIdent, text: text})
		}

		if c >= '0' && c <= '9' {
			return l.lexNumber()
		}

		if c == '.' {
			// decimal literals could start with a dot
			cn, szn, err := l.input.readRune()
			if err == nil {
				if cn >= '0' && cn <= '9' {
					return l.lexNumber()
				}
				l.input.unreadRune(szn)
			}
			return l.emit(token{kind: tokenPunct, rn: c})
		}

		if c == '"' || c == '\'' {
			str, err := l.readStringLiteral(c)
			if err != nil {
				return l.errToken(err)
			}
			return l.emit(token{kind: tokenStringLit, text: l.input.getMark(), str: str})
		}

		if c == '/' {
			// comment
			cn, szn, err := l.input.readRune()
			if err == nil {
				if cn == '/' {
					l.skipToEndOfLineComment()
					l.comments = append(l.comments, l.newToken())
					continue
				}
				if cn == '*' {
					if ok := l.skipToEndOfBlockComment(); !ok {
						return l.errToken(errors.New("block comment never terminates, unexpected EOF"))
					}
					l.comments = append(l.comments, l.newToken())
					continue
				}
				l.input.unreadRune(szn)
			}
		}

		if c > 127 {
			return l.errToken(errors.New("invalid character"))
		}
		return l.emit(token{kind: tokenPunct, rn: c})
	}
}

func (l *bondLex) lexNumber() token {
	l.readNumber()
	text := l.input.getMark()
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		ui, err := strconv.ParseUint(text[2:], 16, 64)
		if err != nil {
			return l.errToken(numError(err, "hexadecimal integer", text[2:]))
		}
		return l.emit(token{kind: tokenIntLit, text: text, ival: ui})
	}
	if strings.ContainsAny(text, ".eE") {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return l.errToken(numError(err, "float", text))
		}
		return l.emit(token{kind: tokenFloatLit, text: text, fval: f})
	}
	ui, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return l.errToken(numError(err, "integer", text))
	}
	return l.emit(token{kind: tokenIntLit, text: text, ival: ui})
}

func (l *bondLex) newToken() ast.Token {
	offset := l.input.mark
	length := l.input.pos - l.input.mark
	return l.info.AddToken(offset, length)
}

func (l *bondLex) emit(t token) token {
	t.tok = l.newToken()
	t.pos = l.info.SourcePos(l.input.mark)
	l.attributeComments(t)
	return t
}

// attributeComments assigns accumulated comments to tokens in the hidden
// channel: a comment on the same line as the previous token trails it;
// everything else leads the current token.
func (l *bondLex) attributeComments(t token) {
	comments := l.comments
	l.comments = nil
	for _, c := range comments {
		attributeTo := t.tok
		if l.havePrev && l.info.TokenInfo(c).Start().Line == l.prevLine {
			attributeTo = l.prevTok
		}
		l.info.AddComment(c, attributeTo)
	}
	l.prevTok = t.tok
	l.prevLine = l.info.TokenInfo(t.tok).End().Line
	l.havePrev = true
}

// flushComments attributes any comments that trail the final token of the
// file.
func (l *bondLex) flushComments() {
	comments := l.comments
	l.comments = nil
	if !l.havePrev {
		return
	}
	for _, c := range comments {
		l.info.AddComment(c, l.prevTok)
	}
}

func (l *bondLex) errToken(err error) token {
	ewp, ok := err.(reporter.ErrorWithPos)
	if !ok {
		ewp = reporter.Error(l.prev(), err)
	}
	_ = l.handler.HandleError(ewp)
	return token{kind: tokenError, err: ewp, pos: l.prev()}
}

func (l *bondLex) readNumber() {
	allowExpSign := false
	for {
		c, sz, err := l.input.readRune()
		if err != nil {
			break
		}
		if (c == '-' || c == '+') && !allowExpSign {
			l.input.unreadRune(sz)
			break
		}
		allowExpSign = false
		if c != '.' && (c < '0' || c > '9') &&
			(c < 'a' || c > 'z') && (c < 'A' || c > 'Z') &&
			c != '-' && c != '+' {
			// no more chars in the number token
			l.input.unreadRune(sz)
			break
		}
		if c == 'e' || c == 'E' {
			// scientific notation char can be followed by
			// an exponent sign
			allowExpSign = true
		}
	}
}

func numError(err error, kind, s string) error {
	ne, ok := err.(*strconv.NumError)
	if !ok {
		return err
	}
	if ne.Err == strconv.ErrRange {
		return fmt.Errorf("value out of range for %s: %s", kind, s)
	}
	// syntax error
	return fmt.Errorf("invalid syntax in %s value: %s", kind, s)
}

func (l *bondLex) readIdentifier() {
	for {
		c, sz, err := l.input.readRune()
		if err != nil {
			break
		}
		if c != '_' && (c < 'a' || c > 'z') && (c < 'A' || c > 'Z') && (c < '0' || c > '9') {
			l.input.unreadRune(sz)
			break
		}
	}
}

func (l *bondLex) readStringLiteral(quote rune) (string, error) {
	var buf bytes.Buffer
	for {
		c, _, err := l.input.readRune()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return "", err
		}
		if c == '\n' {
			return "", errors.New("encountered end-of-line before end of string literal")
		}
		if c == quote {
			break
		}
		if c == 0 {
			return "", errors.New("null character ('\\0') not allowed in string literal")
		}
		if c == '\\' {
			// escape sequence
			c, _, err = l.input.readRune()
			if err != nil {
				return "", err
			}
			switch {
			case c == 'x' || c == 'X':
				// hex escape
				c, _, err := l.input.readRune()
				if err != nil {
					return "", err
				}
				c2, sz2, err := l.input.readRune()
				if err != nil {
					return "", err
				}
				var hex string
				if (c2 < '0' || c2 > '9') && (c2 < 'a' || c2 > 'f') && (c2 < 'A' || c2 > 'F') {
					l.input.unreadRune(sz2)
					hex = string(c)
				} else {
					hex = string([]rune{c, c2})
				}
				i, err := strconv.ParseInt(hex, 16, 32)
				if err != nil {
					return "", fmt.Errorf("invalid hex escape: \\x%q", hex)
				}
				buf.WriteByte(byte(i))

			case c >= '0' && c <= '7':
				// octal escape
				c2, sz2, err := l.input.readRune()
				if err != nil {
					return "", err
				}
				var octal string
				if c2 < '0' || c2 > '7' {
					l.input.unreadRune(sz2)
					octal = string(c)
				} else {
					c3, sz3, err := l.input.readRune()
					if err != nil {
						return "", err
					}
					if c3 < '0' || c3 > '7' {
						l.input.unreadRune(sz3)
						octal = string([]rune{c, c2})
					} else {
						octal = string([]rune{c, c2, c3})
					}
				}
				i, err := strconv.ParseInt(octal, 8, 32)
				if err != nil {
					return "", fmt.Errorf("invalid octal escape: \\%q", octal)
				}
				if i > 0xff {
					return "", fmt.Errorf("octal escape is out range, must be between 0 and 377: \\%q", octal)
				}
				buf.WriteByte(byte(i))

			case c == 'u':
				// short unicode escape
				u := make([]rune, 4)
				for i := range u {
					c, _, err := l.input.readRune()
					if err != nil {
						return "", err
					}
					u[i] = c
				}
				i, err := strconv.ParseInt(string(u), 16, 32)
				if err != nil {
					return "", fmt.Errorf("invalid unicode escape: \\u%q", string(u))
				}
				buf.WriteRune(rune(i))

			case c == 'U':
				// long unicode escape
				u := make([]rune, 8)
				for i := range u {
					c, _, err := l.input.readRune()
					if err != nil {
						return "", err
					}
					u[i] = c
				}
				i, err := strconv.ParseInt(string(u), 16, 32)
				if err != nil {
					return "", fmt.Errorf("invalid unicode escape: \\U%q", string(u))
				}
				if i > 0x10ffff || i < 0 {
					return "", fmt.Errorf("unicode escape is out of range, must be between 0 and 0x10ffff: \\U%q", string(u))
				}
				buf.WriteRune(rune(i))

			case c == 'a':
				buf.WriteByte('\a')
			case c == 'b':
				buf.WriteByte('\b')
			case c == 'f':
				buf.WriteByte('\f')
			case c == 'n':
				buf.WriteByte('\n')
			case c == 'r':
				buf.WriteByte('\r')
			case c == 't':
				buf.WriteByte('\t')
			case c == 'v':
				buf.WriteByte('\v')
			case c == '\\':
				buf.WriteByte('\\')
			case c == '\'':
				buf.WriteByte('\'')
			case c == '"':
				buf.WriteByte('"')
			case c == '?':
				buf.WriteByte('?')
			default:
				return "", fmt.Errorf("invalid escape sequence: %q", "\\"+string(c))
			}
		} else {
			buf.WriteRune(c)
		}
	}
	return buf.String(), nil
}

func (l *bondLex) skipToEndOfLineComment() {
	for {
		c, _, err := l.input.readRune()
		if err != nil {
			return
		}
		if c == '\n' {
			l.info.AddLine(l.input.offset())
			return
		}
	}
}

func (l *bondLex) skipToEndOfBlockComment() bool {
	for {
		c, _, err := l.input.readRune()
		if err != nil {
			return false
		}
		l.maybeNewLine(c)
		if c == '*' {
			c, sz, err := l.input.readRune()
			if err != nil {
				return false
			}
			if c == '/' {
				return true
			}
			l.input.unreadRune(sz)
		}
	}
}
