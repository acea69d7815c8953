// Package document implements the two-layer segment-list engine described
// in the versioned document engine specification: a committed sequence of
// segments holding the canonical text of the current version, and a
// working sequence used as scratch for the in-flight version's pending
// inserts and deletes.
package document

import "sync"

// Document holds the committed and working segment sequences for a single
// text document, plus its version counter. The zero value is an empty
// document at version 0, the same as New returns.
//
// Document embeds its own lock: callers acquire it explicitly (Lock/
// RLock) around a sequence of operations, matching the "single document
// lock" described for the concurrency model — the lock lives on the
// object it protects rather than in a separate server-level field.
type Document struct {
	mu sync.RWMutex

	committedHead *segment
	committedTail *segment

	workingHead *segment
	workingTail *segment
	seeded      bool

	version uint64
}

// New returns an empty document at version 0.
func New() *Document {
	return &Document{}
}

func (d *Document) Lock()    { d.mu.Lock() }
func (d *Document) Unlock()  { d.mu.Unlock() }
func (d *Document) RLock()   { d.mu.RLock() }
func (d *Document) RUnlock() { d.mu.RUnlock() }

// Version returns the current committed version. Callers should hold at
// least a read lock.
func (d *Document) Version() uint64 {
	return d.version
}

// Flatten concatenates the committed sequence's content in order. Safe to
// call while holding only a read lock.
func (d *Document) Flatten() []byte {
	var out []byte
	for n := d.committedHead; n != nil; n = n.next {
		out = append(out, n.content...)
	}
	return out
}

// VisibleLength returns the sum of lengths of all non-PENDING_INSERT
// segments in the working sequence (seeding it first if needed). This is
// the coordinate space edit commands address.
func (d *Document) VisibleLength() int {
	d.seedWorking()
	total := 0
	for n := d.workingHead; n != nil; n = n.next {
		if n.state != PendingInsert {
			total += n.length()
		}
	}
	return total
}

// seedWorking lazily clones the committed sequence into the working
// sequence the first time a version's working layer is touched.
func (d *Document) seedWorking() {
	if d.seeded {
		return
	}
	var head, tail *segment
	for n := d.committedHead; n != nil; n = n.next {
		c := n.clone()
		if tail == nil {
			head = c
		} else {
			tail.next = c
			c.prev = tail
		}
		tail = c
	}
	d.workingHead, d.workingTail = head, tail
	d.seeded = true
}

// insertNode splices newNode into the working list immediately before
// cursor (cursor == nil means append at the tail).
func (d *Document) insertNode(cursor, newNode *segment) {
	if cursor == nil {
		newNode.prev = d.workingTail
		if d.workingTail != nil {
			d.workingTail.next = newNode
		} else {
			d.workingHead = newNode
		}
		d.workingTail = newNode
		return
	}
	newNode.prev = cursor.prev
	newNode.next = cursor
	if cursor.prev != nil {
		cursor.prev.next = newNode
	} else {
		d.workingHead = newNode
	}
	cursor.prev = newNode
}

// splitAt splits node into a prefix (content[:offset]) kept in place and a
// newly linked suffix (content[offset:]) sharing node's state. Returns the
// suffix node. 0 < offset < node.length() must hold.
func (d *Document) splitAt(node *segment, offset int) *segment {
	suffix := newSegment(node.content[offset:], node.state)
	node.content = append([]byte(nil), node.content[:offset]...)

	suffix.prev = node
	suffix.next = node.next
	if node.next != nil {
		node.next.prev = suffix
	} else {
		d.workingTail = suffix
	}
	node.next = suffix
	return suffix
}

// locateBoundary walks the working sequence (seeding it first) to find the
// node immediately preceding the raw-list cursor for logical position pos.
// It splits a segment in place if pos falls strictly inside it. For pos 0
// the returned prev is nil, except in a document with visible text, where
// it is the last pending insert (if any) ahead of the first visible node.
func (d *Document) locateBoundary(pos int) (prev *segment, err error) {
	d.seedWorking()

	acc := 0
	var lastVisible *segment
	for n := d.workingHead; n != nil; n = n.next {
		if n.state == PendingInsert {
			continue
		}
		if acc == pos {
			// The boundary sits immediately before this visible node; the
			// node's own predecessor in the raw list (possibly a
			// PENDING_INSERT sibling, possibly nil) is the anchor.
			return n.prev, nil
		}
		segLen := n.length()
		if acc+segLen < pos {
			acc += segLen
			lastVisible = n
			continue
		}
		if acc+segLen == pos {
			return n, nil
		}
		offset := pos - acc
		d.splitAt(n, offset)
		return n, nil
	}
	if acc == pos {
		return lastVisible, nil
	}
	return nil, ErrInvalidPosition
}

// segmentAt returns the visible (non-PENDING_INSERT) segment that owns the
// byte at logical position pos, or nil if pos addresses the end of the
// document (no byte there yet). Used to detect DELETED_POSITION.
func (d *Document) segmentAt(pos int) *segment {
	d.seedWorking()
	acc := 0
	for n := d.workingHead; n != nil; n = n.next {
		if n.state == PendingInsert {
			continue
		}
		segLen := n.length()
		if acc+segLen <= pos {
			acc += segLen
			continue
		}
		return n
	}
	return nil
}

// IsDeletedPosition reports whether the byte at pos currently belongs to a
// segment tagged PENDING_DELETE in the working sequence.
func (d *Document) IsDeletedPosition(pos int) bool {
	n := d.segmentAt(pos)
	return n != nil && n.state == PendingDelete
}

// VisibleText concatenates every non-PENDING_INSERT segment of the
// working sequence (seeding it first). This is the coordinate space edit
// commands address: it equals the committed baseline at the start of the
// batch, plus whatever PENDING_DELETE markers earlier commands in the
// same batch have already applied (still counted, not yet removed).
func (d *Document) VisibleText() []byte {
	d.seedWorking()
	var out []byte
	for n := d.workingHead; n != nil; n = n.next {
		if n.state == PendingInsert {
			continue
		}
		out = append(out, n.content...)
	}
	return out
}

// cursorFor returns the raw-list node that follows the boundary described
// by prev, i.e. the node a new PENDING_INSERT segment would be spliced
// before when inserting immediately at that boundary.
func cursorFor(d *Document, prev *segment) *segment {
	if prev == nil {
		return d.workingHead
	}
	return prev.next
}

// InsertText splices s in as a PENDING_INSERT segment at logical position
// pos. When several inserts in one batch target the same logical
// position, their order depends on the boundary: at position 0 of a
// document with visible text the new segment goes after the pending
// inserts already there, so they keep call order; at any other boundary,
// and in a document with no visible text, it goes directly after the
// preceding visible segment, ahead of earlier pending inserts, so they
// commit in reverse call order ("World" then "Hello " inserted at 0 into
// an empty document commits as "Hello World").
func (d *Document) InsertText(pos int, s []byte) error {
	if len(s) == 0 {
		return nil
	}
	prev, err := d.locateBoundary(pos)
	if err != nil {
		return err
	}
	cursor := cursorFor(d, prev)
	d.insertNode(cursor, newSegment(s, PendingInsert))
	return nil
}

// DeleteRange marks len bytes starting at logical position pos as
// PENDING_DELETE. A len that runs past the visible end deletes to the end
// rather than failing.
func (d *Document) DeleteRange(pos, length int) error {
	if length <= 0 {
		return nil
	}
	prev, err := d.locateBoundary(pos)
	if err != nil {
		return err
	}
	node := cursorFor(d, prev)
	remaining := length
	for remaining > 0 && node != nil {
		next := node.next
		if node.state == PendingInsert {
			node = next
			continue
		}
		segLen := node.length()
		if segLen <= remaining {
			node.state = PendingDelete
			remaining -= segLen
			node = next
			continue
		}
		suffix := d.splitAt(node, remaining)
		node.state = PendingDelete
		_ = suffix
		remaining = 0
	}
	return nil
}

// Commit promotes the working sequence to the new committed sequence:
// PENDING_DELETE segments are dropped, PENDING_INSERT segments become
// COMMITTED, surviving COMMITTED segments carry over, and the version
// increments by one. It is the caller's responsibility (the batch loop)
// to call Commit only for ticks that processed at least one queue record;
// Commit itself always advances the version when invoked, even if the
// working sequence was never touched this tick (e.g. every record in the
// batch was rejected) — see DESIGN.md for why this takes precedence over
// the summary "no-op when empty" wording.
func (d *Document) Commit() {
	d.seedWorking()
	var head, tail *segment
	for n := d.workingHead; n != nil; n = n.next {
		if n.state == PendingDelete {
			continue
		}
		c := n.clone()
		c.state = Committed
		if tail == nil {
			head = c
		} else {
			tail.next = c
			c.prev = tail
		}
		tail = c
	}
	d.committedHead, d.committedTail = head, tail
	d.workingHead, d.workingTail = nil, nil
	d.seeded = false
	d.version++
}
