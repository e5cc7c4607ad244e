package data

import "fmt"

// None is the label MangaDex chapters carry when the volume or chapter
// number is null upstream.
const None = "none"

type Manga struct {
	ID          string
	Title       string
	AltTitles   []string
	Description string
	Authors     []string
	Artists     []string
	Tags        []string
	Status      string // "ongoing", "completed", "hiatus", "cancelled"
	Year        int

	// Cover art at the three resolutions MangaDex serves.
	CoverURL    string
	CoverURL512 string
	CoverURL256 string

	// Chapters is attached by the fetcher once the chapter feed is known.
	Chapters *ChapterList
}

// ChapterRef is a single entry of a manga's chapter feed.
type ChapterRef struct {
	ID       string
	Volume   string
	Number   string
	Title    string
	Language string
	Pages    int

	owner *ChapterList
}

// NewChapterRef normalises empty volume/chapter labels to None.
func NewChapterRef(id, volume, number, title, language string, pages int) *ChapterRef {
	if volume == "" {
		volume = None
	}
	if number == "" {
		number = None
	}
	return &ChapterRef{
		ID:       id,
		Volume:   volume,
		Number:   number,
		Title:    title,
		Language: language,
		Pages:    pages,
	}
}

// ChapterList keeps chapters in API response order, keyed by chapter id.
type ChapterList struct {
	Language string

	order []*ChapterRef
	byID  map[string]*ChapterRef
}

func NewChapterList(language string) *ChapterList {
	return &ChapterList{
		Language: language,
		byID:     make(map[string]*ChapterRef),
	}
}

// Add appends a chapter. A ref can belong to one list only and must be in
// the list's language.
func (l *ChapterList) Add(ref *ChapterRef) error {
	if ref == nil {
		return fmt.Errorf("chapter cannot be nil")
	}
	if ref.owner != nil {
		return fmt.Errorf("chapter %s already belongs to a chapter list", ref.ID)
	}
	if ref.Language != l.Language {
		return fmt.Errorf("chapter %s has language %q, list is %q", ref.ID, ref.Language, l.Language)
	}
	if _, ok := l.byID[ref.ID]; ok {
		return fmt.Errorf("duplicate chapter %s", ref.ID)
	}
	ref.owner = l
	l.order = append(l.order, ref)
	l.byID[ref.ID] = ref
	return nil
}

func (l *ChapterList) Get(id string) (*ChapterRef, bool) {
	ref, ok := l.byID[id]
	return ref, ok
}

func (l *ChapterList) Len() int {
	return len(l.order)
}

// All returns the chapters in stored order. The slice is a copy.
func (l *ChapterList) All() []*ChapterRef {
	out := make([]*ChapterRef, len(l.order))
	copy(out, l.order)
	return out
}

// LibraryManga is a manga row in the local library.
type LibraryManga struct {
	ID     string
	Title  string
	Path   string
	Source string
	Status string // "downloading", "completed", "partial"
}

// LibraryChapter is a chapter row in the local library.
type LibraryChapter struct {
	ID         string
	MangaID    string
	Title      string
	Language   string
	Volume     string
	Number     string
	Downloaded bool
	FilePath   string // Path to the chapter folder
	Archive    string // Path to the packaged file, if any
}
