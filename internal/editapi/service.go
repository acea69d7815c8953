package editapi

import (
	"fmt"
	"strings"

	"github.com/collabmd/server/internal/document"
)

// Service validates and dispatches edit commands against a document.
// Apply assumes the caller already holds the document's exclusive lock
// for the duration of the batch (see internal/batch).
type Service struct{}

// NewService returns a stateless edit API service.
func NewService() *Service {
	return &Service{}
}

// Apply validates cmd's version and position/range, then rewrites doc via
// the segment store. It never returns a UNAUTHORISED result — permission
// is enforced by the batch loop before Apply is ever called.
func (s *Service) Apply(doc *document.Document, cmd Command) ResultCode {
	if cmd.Version != doc.Version() {
		return ResultOutdatedVersion
	}

	switch cmd.Kind {
	case KindInsert:
		return s.applyInsert(doc, cmd)
	case KindDel:
		return s.applyDel(doc, cmd)
	case KindNewline:
		return s.applySingleCharBlock(doc, cmd.Pos, "\n")
	case KindHeading:
		return s.applyHeading(doc, cmd)
	case KindBold:
		return s.applyWrap(doc, cmd, "**", "**")
	case KindItalic:
		return s.applyWrap(doc, cmd, "*", "*")
	case KindCode:
		return s.applyWrap(doc, cmd, "`", "`")
	case KindBlockquote:
		return s.applyBlockElement(doc, cmd.Pos, "> ")
	case KindUnorderedList:
		return s.applyBlockElement(doc, cmd.Pos, "- ")
	case KindHorizontalRule:
		return s.applyBlockElement(doc, cmd.Pos, "---\n")
	case KindLink:
		return s.applyLink(doc, cmd)
	case KindOrderedList:
		return s.applyOrderedList(doc, cmd)
	default:
		return ResultInvalidPosition
	}
}

// resultFromErr maps a document-layer error to a result code. DELETED_POSITION
// is never produced here: it comes entirely from checkPos's IsDeletedPosition
// check before any mutating call is made, so the only document error a
// mutating call can return is ErrInvalidPosition.
func resultFromErr(err error) ResultCode {
	switch err {
	case document.ErrInvalidPosition:
		return ResultInvalidPosition
	default:
		return ResultInvalidPosition
	}
}

func (s *Service) checkPos(doc *document.Document, pos int) ResultCode {
	if pos < 0 || pos > doc.VisibleLength() {
		return ResultInvalidPosition
	}
	if doc.IsDeletedPosition(pos) {
		return ResultDeletedPosition
	}
	return ResultSuccess
}

func (s *Service) applyInsert(doc *document.Document, cmd Command) ResultCode {
	if r := s.checkPos(doc, cmd.Pos); r != ResultSuccess {
		return r
	}
	if err := doc.InsertText(cmd.Pos, []byte(cmd.Text)); err != nil {
		return resultFromErr(err)
	}
	return ResultSuccess
}

func (s *Service) applyDel(doc *document.Document, cmd Command) ResultCode {
	if cmd.Len <= 0 {
		return ResultInvalidPosition
	}
	if r := s.checkPos(doc, cmd.Pos); r != ResultSuccess {
		return r
	}
	if err := doc.DeleteRange(cmd.Pos, cmd.Len); err != nil {
		return resultFromErr(err)
	}
	return ResultSuccess
}

func (s *Service) applySingleCharBlock(doc *document.Document, pos int, text string) ResultCode {
	if r := s.checkPos(doc, pos); r != ResultSuccess {
		return r
	}
	if err := doc.InsertText(pos, []byte(text)); err != nil {
		return resultFromErr(err)
	}
	return ResultSuccess
}

func (s *Service) applyHeading(doc *document.Document, cmd Command) ResultCode {
	if cmd.Level < 1 || cmd.Level > 3 {
		return ResultInvalidPosition
	}
	marker := strings.Repeat("#", cmd.Level) + " "
	return s.applyBlockElement(doc, cmd.Pos, marker)
}

// applyBlockElement implements the block-element rule shared by HEADING,
// BLOCKQUOTE, UNORDERED_LIST and HORIZONTAL_RULE: the marker occupies the
// start of a line, prefixed with "\n" unless pos is already at one.
func (s *Service) applyBlockElement(doc *document.Document, pos int, marker string) ResultCode {
	if r := s.checkPos(doc, pos); r != ResultSuccess {
		return r
	}
	text := marker
	if !atLineStart(doc, pos) {
		text = "\n" + marker
	}
	if err := doc.InsertText(pos, []byte(text)); err != nil {
		return resultFromErr(err)
	}
	return ResultSuccess
}

func atLineStart(doc *document.Document, pos int) bool {
	if pos == 0 {
		return true
	}
	visible := doc.VisibleText()
	if pos-1 >= len(visible) {
		return false
	}
	return visible[pos-1] == '\n'
}

// applyWrap implements BOLD/ITALIC/CODE: insert the closing marker at end
// first, then the opening marker at start — closing-first avoids end
// position drift, though in this coordinate system (PENDING_INSERT
// segments never count toward position) the order makes no functional
// difference; it is kept to mirror the documented algorithm.
func (s *Service) applyWrap(doc *document.Document, cmd Command, open, close string) ResultCode {
	if cmd.End <= cmd.Start {
		return ResultInvalidPosition
	}
	if r := s.checkPos(doc, cmd.Start); r != ResultSuccess {
		return r
	}
	if r := s.checkPos(doc, cmd.End); r != ResultSuccess {
		return r
	}
	if err := doc.InsertText(cmd.End, []byte(close)); err != nil {
		return resultFromErr(err)
	}
	if err := doc.InsertText(cmd.Start, []byte(open)); err != nil {
		return resultFromErr(err)
	}
	return ResultSuccess
}

func (s *Service) applyLink(doc *document.Document, cmd Command) ResultCode {
	if cmd.End <= cmd.Start {
		return ResultInvalidPosition
	}
	if r := s.checkPos(doc, cmd.Start); r != ResultSuccess {
		return r
	}
	if r := s.checkPos(doc, cmd.End); r != ResultSuccess {
		return r
	}
	closing := fmt.Sprintf("](%s)", cmd.URL)
	if err := doc.InsertText(cmd.End, []byte(closing)); err != nil {
		return resultFromErr(err)
	}
	if err := doc.InsertText(cmd.Start, []byte("[")); err != nil {
		return resultFromErr(err)
	}
	return ResultSuccess
}

// applyOrderedList implements ordered-list renumbering: find the previous
// item's number by scanning backward from pos, insert the next number at
// pos, then renumber the contiguous run of subsequent "digits. " lines.
// All positions are computed against one frozen snapshot of the visible
// text — the logical-position invariant guarantees every position in
// that snapshot still means the same thing in the live document after
// each step, since inserted text never counts toward position and a
// deleted-but-not-yet-committed prefix still does.
//
// Whatever previously sat at pos carries on immediately after the new
// marker in the flattened text, so if it itself begins a "digits. " run,
// that old content is the first line the forward renumbering pass must
// touch, not the one after it: the pass starts its scan at pos, and since
// that content used to share a line with the new marker, the new line
// break goes in as part of its replacement prefix.
func (s *Service) applyOrderedList(doc *document.Document, cmd Command) ResultCode {
	if r := s.checkPos(doc, cmd.Pos); r != ResultSuccess {
		return r
	}
	visible := doc.VisibleText()

	prev := previousListNumber(visible, cmd.Pos)
	marker := fmt.Sprintf("%d. ", prev+1)
	text := marker
	if !atLineStart(doc, cmd.Pos) {
		text = "\n" + marker
	}
	if err := doc.InsertText(cmd.Pos, []byte(text)); err != nil {
		return resultFromErr(err)
	}

	next := prev + 2
	pos := cmd.Pos
	splitFirstLine := true
	for pos >= 0 && pos < len(visible) {
		width, ok := listPrefixWidth(visible[pos:])
		if !ok {
			break
		}
		if err := doc.DeleteRange(pos, width); err != nil {
			break
		}
		replacement := fmt.Sprintf("%d. ", next)
		if splitFirstLine {
			replacement = "\n" + replacement
		}
		if err := doc.InsertText(pos, []byte(replacement)); err != nil {
			break
		}
		splitFirstLine = false
		next++
		pos = nextLineStart(visible, pos+width)
	}
	return ResultSuccess
}

// previousListNumber scans backward from pos to the start of the
// previous line and, if it begins with "digits. ", returns that number;
// otherwise 0.
func previousListNumber(text []byte, pos int) int {
	lineStart := pos
	for lineStart > 0 && text[lineStart-1] != '\n' {
		lineStart--
	}
	if lineStart == 0 {
		return 0
	}
	prevEnd := lineStart - 1 // index of the '\n' ending the previous line
	prevStart := prevEnd
	for prevStart > 0 && text[prevStart-1] != '\n' {
		prevStart--
	}
	value, _, ok := listPrefixValue(text[prevStart:prevEnd])
	if !ok {
		return 0
	}
	return value
}

// nextLineStart returns the index just past the next '\n' at or after
// from, or -1 if there is none.
func nextLineStart(text []byte, from int) int {
	for i := from; i < len(text); i++ {
		if text[i] == '\n' {
			return i + 1
		}
	}
	return -1
}

// listPrefixWidth reports the byte width of a leading "digits. " prefix.
func listPrefixWidth(line []byte) (int, bool) {
	_, width, ok := listPrefixValue(line)
	return width, ok
}

// listPrefixValue parses a leading "digits. " prefix, returning its
// numeric value and byte width.
func listPrefixValue(line []byte) (value int, width int, ok bool) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		value = value*10 + int(line[i]-'0')
		i++
	}
	if i == 0 {
		return 0, 0, false
	}
	if i+1 >= len(line) || line[i] != '.' || line[i+1] != ' ' {
		return 0, 0, false
	}
	return value, i + 2, true
}
