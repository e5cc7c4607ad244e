package services

import (
	"fmt"
	"iter"
	"strconv"

	"github.com/kerbaras/mangadl/pkg/data"
)

// IterOptions selects which chapters of a list get downloaded. Nil bounds
// are open; both bounds are inclusive.
type IterOptions struct {
	Start      *float64
	End        *float64
	NoOneshot  bool
	Compressed bool
}

// ChapterItem is one chapter ready for download.
type ChapterItem struct {
	Volume  string
	Chapter string
	Ref     *data.ChapterRef
	Images  *ChapterImageSet
}

type ChapterIterator struct {
	source PageSource
	list   *data.ChapterList
	opts   IterOptions
}

func NewChapterIterator(source PageSource, list *data.ChapterList, opts IterOptions) (*ChapterIterator, error) {
	if list == nil {
		return nil, fmt.Errorf("chapter list cannot be nil")
	}
	if err := ValidateRange(opts.Start, opts.End); err != nil {
		return nil, err
	}
	return &ChapterIterator{source: source, list: list, opts: opts}, nil
}

// ValidateRange rejects a start bound greater than the end bound.
func ValidateRange(start, end *float64) error {
	if start != nil && end != nil && *start > *end {
		return &ConfigError{
			Field:  "chapter range",
			Reason: fmt.Sprintf("start chapter %g is greater than end chapter %g", *start, *end),
		}
	}
	return nil
}

// Match reports whether ref passes the filters. Chapters without a numeric
// label are never excluded by the bounds.
func (it *ChapterIterator) Match(ref *data.ChapterRef) bool {
	if it.opts.NoOneshot && IsOneshot(ref.Volume, ref.Number) {
		return false
	}

	n, err := strconv.ParseFloat(ref.Number, 64)
	if err != nil {
		return true
	}
	if it.opts.Start != nil && n < *it.opts.Start {
		return false
	}
	if it.opts.End != nil && n > *it.opts.End {
		return false
	}
	return true
}

// Chapters yields the matching chapters in list order. The image set of a
// chapter is created when it is yielded and holds no pages until fetched.
func (it *ChapterIterator) Chapters() iter.Seq[ChapterItem] {
	return func(yield func(ChapterItem) bool) {
		for _, ref := range it.list.All() {
			if !it.Match(ref) {
				continue
			}
			item := ChapterItem{
				Volume:  ref.Volume,
				Chapter: ref.Number,
				Ref:     ref,
				Images:  NewChapterImageSet(it.source, ref, it.opts.Compressed),
			}
			if !yield(item) {
				return
			}
		}
	}
}

// IsOneshot reports whether a volume/chapter pair denotes a oneshot.
func IsOneshot(volume, chapter string) bool {
	switch {
	case volume == "0" && chapter == data.None:
		return true
	case volume == data.None && chapter == data.None:
		return true
	case volume == data.None && chapter == "0":
		return true
	}
	return false
}

// ChapterFolder names the directory a chapter's pages are saved in.
func ChapterFolder(volume, chapter string) string {
	switch {
	case IsOneshot(volume, chapter):
		return "Oneshot"
	case volume != data.None:
		return fmt.Sprintf("Volume. %s Chapter. %s", volume, chapter)
	default:
		return fmt.Sprintf("Chapter. %s", chapter)
	}
}
