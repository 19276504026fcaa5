package recipelog

import "strings"

// lineCursor は前後の空白を除いた行列を先頭から1行ずつ読み進める。
type lineCursor struct {
	lines []string
	next  int // 次にadvanceで返す行のインデックス
}

func newLineCursor(text string) *lineCursor {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(l)
	}
	return &lineCursor{lines: lines}
}

// peek は次の行を消費せずに返す。
func (c *lineCursor) peek() (string, bool) {
	if c.next >= len(c.lines) {
		return "", false
	}
	return c.lines[c.next], true
}

// advance は次の行を返し、カーソルを1行進める。
func (c *lineCursor) advance() (string, bool) {
	line, ok := c.peek()
	if ok {
		c.next++
	}
	return line, ok
}

// lineNo は直前にadvanceで返した行の行番号（1始まり）。
func (c *lineCursor) lineNo() int {
	return c.next
}
