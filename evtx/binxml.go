package evtx

import (
	"fmt"
	"strings"

	"github.com/williballenthin/EVTXtract/internal/buf"
	"github.com/williballenthin/EVTXtract/internal/format"
)

// binxmlCursor walks a binary-XML element tree inside a valid chunk,
// rendering it to an XML string whose substitution slots are left as
// placeholder tokens (a reusable template body). Names
// are resolved via the format's own name-caching indirection: a name is
// either defined inline at the current position or referenced by absolute
// offset to an earlier definition elsewhere in the chunk.
type binxmlCursor struct {
	buf          []byte
	pos          int
	nextIndex    int
	placeholders []Placeholder
}

func newBinxmlCursor(b []byte, pos int) *binxmlCursor {
	return &binxmlCursor{buf: b, pos: pos}
}

func (c *binxmlCursor) u8() (byte, bool) {
	v, ok := readByte(c.buf, c.pos)
	if ok {
		c.pos++
	}
	return v, ok
}

func (c *binxmlCursor) u16() (uint16, bool) {
	s, ok := buf.Slice(c.buf, c.pos, 2)
	if !ok {
		return 0, false
	}
	c.pos += 2
	return buf.U16LE(s), true
}

func (c *binxmlCursor) u32() (uint32, bool) {
	s, ok := buf.Slice(c.buf, c.pos, 4)
	if !ok {
		return 0, false
	}
	c.pos += 4
	return buf.U32LE(s), true
}

func (c *binxmlCursor) skip(n int) bool {
	if c.pos+n > len(c.buf) {
		return false
	}
	c.pos += n
	return true
}

// readName decodes a binary-XML name reference: a 4-byte absolute offset
// followed, only when the name is defined inline at this position, by a
// 4-byte hash, a 2-byte character count, the UTF-16LE characters
// themselves, and a trailing null terminator. When the offset points
// elsewhere (the name was already defined earlier in the chunk), only the
// 4-byte offset is consumed here and the name bytes are read from that
// other position without disturbing the cursor.
func (c *binxmlCursor) readName() (string, error) {
	start := c.pos
	off, ok := c.u32()
	if !ok {
		return "", fmt.Errorf("binxml: name offset truncated at 0x%x", start)
	}
	definedHere := int(off) == c.pos

	readAt := c.pos
	if !definedHere {
		readAt = int(off)
	}

	hashAndLen, ok := buf.Slice(c.buf, readAt, 6)
	if !ok {
		return "", fmt.Errorf("binxml: name header truncated at 0x%x", readAt)
	}
	numChars := int(buf.U16LE(hashAndLen[4:6]))
	chars, ok := buf.Slice(c.buf, readAt+6, numChars*2)
	if !ok {
		return "", fmt.Errorf("binxml: name data truncated at 0x%x", readAt+6)
	}
	name, err := decodeUTF16LE(chars)
	if err != nil {
		return "", err
	}

	if definedHere {
		c.pos = readAt + 6 + numChars*2 + 2 // + null terminator
	}
	return name, nil
}

// renderBody decodes the token stream starting at c.pos until the
// matching CloseElement (or EOF/CloseEmptyElement) and writes it to out as
// XML, substituting placeholder tokens for Normal/Conditional substitution
// slots. It returns once the element (and its children) are fully closed.
func (c *binxmlCursor) renderBody(out *strings.Builder) error {
	for {
		tokenByte, ok := c.u8()
		if !ok {
			return fmt.Errorf("binxml: token stream truncated at 0x%x", c.pos)
		}
		kind := format.TokenKind(tokenByte)
		hasMore := tokenByte&0x40 != 0

		switch kind {
		case format.TokenEOF:
			return nil

		case format.TokenStreamStart:
			if !c.skip(3) {
				return fmt.Errorf("binxml: truncated stream-start header")
			}

		case format.TokenOpenStartElement:
			if err := c.renderElement(out, hasMore); err != nil {
				return err
			}

		case format.TokenCloseElement, format.TokenCloseEmptyElement:
			return nil

		default:
			// Any other top-level token (fragment padding, etc.) is
			// inert at this level; advance past it defensively so a
			// stray byte doesn't wedge the decoder.
		}
	}
}

// renderElement decodes one OpenStartElement (and everything nested inside
// it, down to its CloseElement) and appends `<name attrs>...</name>` to out.
func (c *binxmlCursor) renderElement(out *strings.Builder, hasAttrs bool) error {
	if !c.skip(2) { // dependency id
		return fmt.Errorf("binxml: truncated element header")
	}
	if _, ok := c.u32(); !ok { // element data size
		return fmt.Errorf("binxml: truncated element size")
	}
	name, err := c.readName()
	if err != nil {
		return err
	}

	var attrsSize uint32
	if hasAttrs {
		attrsSize, _ = c.u32()
	}

	fmt.Fprintf(out, "<%s", name)
	if hasAttrs {
		attrsEnd := c.pos + int(attrsSize)
		if err := c.renderAttributes(out, attrsEnd); err != nil {
			return err
		}
	}

	// CloseStartElement (0x02) or CloseEmptyElement (0x03) follows.
	closeToken, ok := c.u8()
	if !ok {
		return fmt.Errorf("binxml: truncated element close")
	}
	if format.TokenKind(closeToken) == format.TokenCloseEmptyElement {
		out.WriteString("/>")
		return nil
	}
	out.WriteString(">")

	if err := c.renderChildren(out); err != nil {
		return err
	}
	fmt.Fprintf(out, "</%s>", name)
	return nil
}

func (c *binxmlCursor) renderAttributes(out *strings.Builder, attrsEnd int) error {
	first := true
	for c.pos < attrsEnd {
		tokenByte, ok := c.u8()
		if !ok {
			return fmt.Errorf("binxml: truncated attribute list")
		}
		kind := format.TokenKind(tokenByte)
		if kind != format.TokenAttribute {
			c.pos--
			break
		}
		name, err := c.readName()
		if err != nil {
			return err
		}
		if !first {
			out.WriteString(" ")
		}
		first = false
		fmt.Fprintf(out, " %s=\"", name)
		if err := c.renderAttributeValue(out); err != nil {
			return err
		}
		out.WriteString("\"")
	}
	return nil
}

func (c *binxmlCursor) renderAttributeValue(out *strings.Builder) error {
	tokenByte, ok := c.u8()
	if !ok {
		return fmt.Errorf("binxml: truncated attribute value")
	}
	switch format.TokenKind(tokenByte) {
	case format.TokenValue:
		return c.renderValueText(out)
	case format.TokenNormalSubstitution, format.TokenConditionalSubstitution:
		mode := ModeNormal
		if format.TokenKind(tokenByte) == format.TokenConditionalSubstitution {
			mode = ModeConditional
		}
		return c.renderSubstitution(out, mode)
	default:
		return fmt.Errorf("binxml: unexpected attribute value token 0x%x", tokenByte)
	}
}

func (c *binxmlCursor) renderValueText(out *strings.Builder) error {
	if _, ok := c.u8(); !ok { // value type byte
		return fmt.Errorf("binxml: truncated value token")
	}
	numChars, ok := c.u16()
	if !ok {
		return fmt.Errorf("binxml: truncated value length")
	}
	chars, ok := buf.Slice(c.buf, c.pos, int(numChars)*2)
	if !ok {
		return fmt.Errorf("binxml: truncated value data")
	}
	c.pos += int(numChars) * 2
	s, err := decodeUTF16LE(chars)
	if err != nil {
		return err
	}
	out.WriteString(escapeTransposed(s))
	return nil
}

func (c *binxmlCursor) renderSubstitution(out *strings.Builder, mode PlaceholderMode) error {
	index, ok := c.u16()
	if !ok {
		return fmt.Errorf("binxml: truncated substitution index")
	}
	typ, ok := c.u8()
	if !ok {
		return fmt.Errorf("binxml: truncated substitution type")
	}
	if !c.skip(1) { // reserved/zero byte
		return fmt.Errorf("binxml: truncated substitution padding")
	}
	c.placeholders = append(c.placeholders, Placeholder{Index: int(index), Type: typ, Mode: mode})
	out.WriteString(placeholderToken(mode, int(index), typ))
	return nil
}

func (c *binxmlCursor) renderChildren(out *strings.Builder) error {
	for {
		tokenByte, ok := c.u8()
		if !ok {
			return fmt.Errorf("binxml: truncated child stream at 0x%x", c.pos)
		}
		kind := format.TokenKind(tokenByte)
		hasMore := tokenByte&0x40 != 0

		switch kind {
		case format.TokenEOF, format.TokenCloseElement:
			return nil

		case format.TokenOpenStartElement:
			if err := c.renderElement(out, hasMore); err != nil {
				return err
			}

		case format.TokenValue:
			if err := c.renderValueText(out); err != nil {
				return err
			}

		case format.TokenNormalSubstitution, format.TokenConditionalSubstitution:
			mode := ModeNormal
			if kind == format.TokenConditionalSubstitution {
				mode = ModeConditional
			}
			if err := c.renderSubstitution(out, mode); err != nil {
				return err
			}

		case format.TokenCDataSection:
			if err := c.renderValueText(out); err != nil {
				return err
			}

		default:
			// Unhandled leaf kinds (entity/char refs, PI target/data)
			// are rare in practice; skip defensively.
		}
	}
}

// renderTemplateBody decodes the binary-XML body of a template definition
// (the bytes immediately following a TemplateInstance's template_length
// field) into placeholder-preserving XML.
func renderTemplateBody(b []byte, offset int) (xml string, placeholders []Placeholder, err error) {
	cursor := newBinxmlCursor(b, offset)
	var out strings.Builder
	if err := cursor.renderBody(&out); err != nil {
		return "", nil, err
	}
	return out.String(), cursor.placeholders, nil
}
