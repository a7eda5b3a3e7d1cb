package server

import "sort"

// positionIndex converts between byte offsets and protocol positions
// for one snapshot of document text. Protocol positions are 0-based
// line/character pairs with characters counted in UTF-16 code units.
type positionIndex struct {
	text  string
	lines []int // byte offset of each line start
}

func newPositionIndex(text string) *positionIndex {
	lines := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			lines = append(lines, i+1)
		}
	}
	return &positionIndex{text: text, lines: lines}
}

// lineEnd returns the byte offset just past the content of line i,
// excluding its trailing newline.
func (x *positionIndex) lineEnd(i int) int {
	if i+1 < len(x.lines) {
		return x.lines[i+1] - 1
	}
	return len(x.text)
}

// position converts a byte offset to a protocol position. Offsets
// outside the text are clamped.
func (x *positionIndex) position(offset int) Position {
	if offset < 0 {
		offset = 0
	}
	if offset > len(x.text) {
		offset = len(x.text)
	}

	line := sort.Search(len(x.lines), func(i int) bool {
		return x.lines[i] > offset
	}) - 1

	start := x.lines[line]
	end := x.lineEnd(line)
	if offset > end {
		offset = end
	}
	return Position{
		Line:      line,
		Character: byteToUTF16(x.text[start:end], offset-start),
	}
}

// offset converts a protocol position to a byte offset. Positions past
// the end of a line or of the document are clamped.
func (x *positionIndex) offset(pos Position) int {
	if pos.Line < 0 {
		return 0
	}
	if pos.Line >= len(x.lines) {
		return len(x.text)
	}
	start := x.lines[pos.Line]
	end := x.lineEnd(pos.Line)
	return start + utf16ToByte(x.text[start:end], pos.Character)
}

// rangeFor converts a [start, end) byte span to a protocol range.
func (x *positionIndex) rangeFor(start, end int) Range {
	return Range{Start: x.position(start), End: x.position(end)}
}

// byteToUTF16 converts a byte offset within s to a UTF-16 offset.
func byteToUTF16(s string, byteOff int) int {
	if byteOff <= 0 {
		return 0
	}
	count := 0
	for i, r := range s {
		if i >= byteOff {
			break
		}
		if r >= 0x10000 {
			count += 2
		} else {
			count++
		}
	}
	return count
}

// utf16ToByte converts a UTF-16 offset to a byte offset within s.
func utf16ToByte(s string, utf16Off int) int {
	if utf16Off <= 0 {
		return 0
	}
	count := 0
	for i, r := range s {
		if count >= utf16Off {
			return i
		}
		if r >= 0x10000 {
			count += 2
		} else {
			count++
		}
	}
	return len(s)
}

// comparePositions returns -1 if a < b, 0 if a == b, 1 if a > b.
func comparePositions(a, b Position) int {
	if a.Line != b.Line {
		if a.Line < b.Line {
			return -1
		}
		return 1
	}
	if a.Character != b.Character {
		if a.Character < b.Character {
			return -1
		}
		return 1
	}
	return 0
}

// rangesTouch reports whether two ranges overlap or touch. A collapsed
// selection sits exactly on a word boundary, so touching counts.
func rangesTouch(a, b Range) bool {
	return comparePositions(a.End, b.Start) >= 0 && comparePositions(b.End, a.Start) >= 0
}
