package writer

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/tsawler/pdfedit/core"
)

// ObjectEntry is one indirect object to serialize
type ObjectEntry struct {
	Ref    core.IndirectRef
	Object core.Object
}

// PrevSection describes the section an update links back to. XRefPos 0
// means there is none.
type PrevSection struct {
	XRefPos int64
	Size    int
}

// binaryComment follows the header so transfer tools treat the file as
// binary.
const binaryComment = "%\x81\x82\xFD\xFE\n"

// xrefRowFormat renders one in-use row: exactly 20 bytes.
const xrefRowFormat = "%010d %05d n \n"

// OldStyle writes objects and classical cross-reference tables. It
// remembers where each object body starts until WriteTrailer consumes the
// offsets. A section holds one row per object number, so offsets are keyed
// by number and the first generation written for a number wins.
type OldStyle struct {
	offsets map[int]recorded
	logger  *slog.Logger
}

type recorded struct {
	gen    int
	offset int64
}

// NewOldStyle creates a serializer. A nil logger uses slog.Default().
func NewOldStyle(logger *slog.Logger) *OldStyle {
	if logger == nil {
		logger = slog.Default()
	}
	return &OldStyle{offsets: make(map[int]recorded), logger: logger}
}

// WriteHeader writes "%PDF-<version>" and the binary comment line.
func WriteHeader(version string, s Stream) error {
	_, err := fmt.Fprintf(s, "%%PDF-%s\n%s", version, binaryComment)
	return err
}

// WriteContent writes each object as "N G obj ... endobj" starting at off,
// or at the current position when off is 0. Nil values are skipped, as is
// any object whose number was already written since the last trailer, even
// under another generation.
func (w *OldStyle) WriteContent(objs []ObjectEntry, s Stream, off int64) error {
	if off != 0 {
		if err := s.SetPos(off); err != nil {
			return fmt.Errorf("positioning content: %w", err)
		}
	}
	for _, e := range objs {
		if e.Object == nil {
			w.logger.Debug("skipping missing object", "ref", e.Ref.String())
			continue
		}
		if first, dup := w.offsets[e.Ref.Number]; dup {
			if first.gen != e.Ref.Generation {
				w.logger.Warn("skipping object whose number is already in this section",
					"ref", e.Ref.String(), "written_generation", first.gen)
			} else {
				w.logger.Debug("skipping duplicate object", "ref", e.Ref.String())
			}
			continue
		}
		start := s.Pos()
		if err := core.WriteIndirect(s, e.Ref, e.Object); err != nil {
			return fmt.Errorf("writing object %s: %w", e.Ref, err)
		}
		w.offsets[e.Ref.Number] = recorded{gen: e.Ref.Generation, offset: start}
	}
	return nil
}

// Pending returns how many objects await a trailer
func (w *OldStyle) Pending() int {
	return len(w.offsets)
}

// WriteTrailer writes the cross-reference table for all objects recorded
// since the last call, then the trailer, startxref and %%EOF. /Prev and
// /Size in trailer are replaced. Bytes past the new %%EOF line are cut off.
// It returns the offset just past that line, or 0 when no content was
// recorded and nothing was written.
func (w *OldStyle) WriteTrailer(trailer core.Dict, prev PrevSection, s Stream, off int64) (int64, error) {
	if len(w.offsets) == 0 {
		return 0, nil
	}
	if off != 0 {
		if err := s.SetPos(off); err != nil {
			return 0, fmt.Errorf("positioning trailer: %w", err)
		}
	}

	nums := make([]int, 0, len(w.offsets))
	for num := range w.offsets {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	xrefPos := s.Pos()
	if _, err := fmt.Fprint(s, "xref\n"); err != nil {
		return 0, err
	}
	for _, run := range subsections(nums) {
		if _, err := fmt.Fprintf(s, "%d %d\n", run[0], len(run)); err != nil {
			return 0, err
		}
		for _, num := range run {
			r := w.offsets[num]
			if _, err := fmt.Fprintf(s, xrefRowFormat, r.offset, r.gen); err != nil {
				return 0, err
			}
		}
	}

	t := core.CloneDict(trailer)
	if t == nil {
		t = core.Dict{}
	}
	if prev.XRefPos == 0 {
		t.Delete("Prev")
	} else {
		t["Prev"] = core.Int(prev.XRefPos)
	}
	size := nums[len(nums)-1] + 1
	if prev.Size > size {
		size = prev.Size
	}
	t["Size"] = core.Int(size)

	if _, err := fmt.Fprint(s, "trailer\n"); err != nil {
		return 0, err
	}
	if err := core.Write(s, t); err != nil {
		return 0, err
	}
	if _, err := fmt.Fprintf(s, "\nstartxref\n%d\n%%%%EOF\n", xrefPos); err != nil {
		return 0, err
	}

	end := s.Pos()
	if err := s.Flush(); err != nil {
		return 0, fmt.Errorf("flushing: %w", err)
	}
	if err := s.Truncate(end); err != nil {
		return 0, fmt.Errorf("truncating after %%%%EOF: %w", err)
	}
	w.offsets = make(map[int]recorded)
	w.logger.Debug("wrote xref section", "offset", xrefPos, "objects", len(nums), "size", size)
	return end, nil
}

// Reset drops offsets recorded since the last trailer
func (w *OldStyle) Reset() {
	w.offsets = make(map[int]recorded)
}

// subsections splits sorted numbers into runs of consecutive values.
func subsections(nums []int) [][]int {
	var out [][]int
	for _, num := range nums {
		if n := len(out); n > 0 && out[n-1][len(out[n-1])-1] == num-1 {
			out[n-1] = append(out[n-1], num)
			continue
		}
		out = append(out, []int{num})
	}
	return out
}
