package data

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS mangas (
	id     VARCHAR PRIMARY KEY,
	title  VARCHAR NOT NULL,
	path   VARCHAR,
	source VARCHAR,
	status VARCHAR
);
CREATE TABLE IF NOT EXISTS chapters (
	id         VARCHAR PRIMARY KEY,
	manga_id   VARCHAR NOT NULL,
	title      VARCHAR,
	language   VARCHAR,
	volume     VARCHAR,
	number     VARCHAR,
	downloaded BOOLEAN DEFAULT false,
	file_path  VARCHAR,
	archive    VARCHAR
);
`

// InitDuckDB opens the database at path, creating parent directories and
// the library schema when needed.
func InitDuckDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return db, nil
}

// Repository records downloaded manga and chapters.
type Repository struct {
	db *sql.DB
}

func OpenRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) SaveManga(manga *LibraryManga) error {
	if manga == nil {
		return fmt.Errorf("manga cannot be nil")
	}
	_, err := r.db.Exec(`
		INSERT INTO mangas (id, title, path, source, status) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			path = excluded.path,
			source = excluded.source,
			status = excluded.status`,
		manga.ID, manga.Title, manga.Path, manga.Source, manga.Status)
	if err != nil {
		return fmt.Errorf("failed to save manga: %w", err)
	}
	return nil
}

// GetManga returns nil, nil when the manga is not in the library.
func (r *Repository) GetManga(id string) (*LibraryManga, error) {
	row := r.db.QueryRow(`SELECT id, title, path, source, status FROM mangas WHERE id = ?`, id)

	var m LibraryManga
	var path, source, status sql.NullString
	if err := row.Scan(&m.ID, &m.Title, &path, &source, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get manga: %w", err)
	}
	m.Path, m.Source, m.Status = path.String, source.String, status.String
	return &m, nil
}

func (r *Repository) ListMangas() ([]*LibraryManga, error) {
	rows, err := r.db.Query(`SELECT id, title, path, source, status FROM mangas ORDER BY title`)
	if err != nil {
		return nil, fmt.Errorf("failed to list mangas: %w", err)
	}
	defer rows.Close()

	var out []*LibraryManga
	for rows.Next() {
		var m LibraryManga
		var path, source, status sql.NullString
		if err := rows.Scan(&m.ID, &m.Title, &path, &source, &status); err != nil {
			return nil, err
		}
		m.Path, m.Source, m.Status = path.String, source.String, status.String
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *Repository) SaveChapter(chapter *LibraryChapter) error {
	if chapter == nil {
		return fmt.Errorf("chapter cannot be nil")
	}
	_, err := r.db.Exec(`
		INSERT INTO chapters (id, manga_id, title, language, volume, number, downloaded, file_path, archive)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			manga_id = excluded.manga_id,
			title = excluded.title,
			language = excluded.language,
			volume = excluded.volume,
			number = excluded.number,
			downloaded = excluded.downloaded,
			file_path = excluded.file_path,
			archive = excluded.archive`,
		chapter.ID, chapter.MangaID, chapter.Title, chapter.Language, chapter.Volume,
		chapter.Number, chapter.Downloaded, chapter.FilePath, chapter.Archive)
	if err != nil {
		return fmt.Errorf("failed to save chapter: %w", err)
	}
	return nil
}

// GetChapters returns a manga's chapters ordered by volume, then number.
func (r *Repository) GetChapters(mangaID string) ([]*LibraryChapter, error) {
	rows, err := r.db.Query(`
		SELECT id, manga_id, title, language, volume, number, downloaded, file_path, archive
		FROM chapters
		WHERE manga_id = ?
		ORDER BY TRY_CAST(volume AS DOUBLE) NULLS LAST, TRY_CAST(number AS DOUBLE) NULLS LAST, number`,
		mangaID)
	if err != nil {
		return nil, fmt.Errorf("failed to get chapters: %w", err)
	}
	defer rows.Close()

	var out []*LibraryChapter
	for rows.Next() {
		var c LibraryChapter
		var title, language, volume, number, filePath, archive sql.NullString
		var downloaded sql.NullBool
		if err := rows.Scan(&c.ID, &c.MangaID, &title, &language, &volume, &number, &downloaded, &filePath, &archive); err != nil {
			return nil, err
		}
		c.Title, c.Language = title.String, language.String
		c.Volume, c.Number = volume.String, number.String
		c.Downloaded = downloaded.Bool
		c.FilePath, c.Archive = filePath.String, archive.String
		out = append(out, &c)
	}
	return out, rows.Err()
}

func (r *Repository) UpdateChapterStatus(chapterID string, downloaded bool, filePath string) error {
	res, err := r.db.Exec(`UPDATE chapters SET downloaded = ?, file_path = ? WHERE id = ?`, downloaded, filePath, chapterID)
	if err != nil {
		return fmt.Errorf("failed to update chapter status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("chapter %s not found", chapterID)
	}
	return nil
}

func (r *Repository) DeleteManga(mangaID string) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM chapters WHERE manga_id = ?`, mangaID); err != nil {
		return fmt.Errorf("failed to delete chapters: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM mangas WHERE id = ?`, mangaID); err != nil {
		return fmt.Errorf("failed to delete manga: %w", err)
	}
	return tx.Commit()
}

// GetMangaWithChapterCount returns the manga with its total and downloaded
// chapter counts.
func (r *Repository) GetMangaWithChapterCount(mangaID string) (*LibraryManga, int, int, error) {
	manga, err := r.GetManga(mangaID)
	if err != nil || manga == nil {
		return manga, 0, 0, err
	}

	var total, downloaded int
	err = r.db.QueryRow(`
		SELECT COUNT(*), COUNT(*) FILTER (WHERE downloaded)
		FROM chapters WHERE manga_id = ?`, mangaID).Scan(&total, &downloaded)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to count chapters: %w", err)
	}
	return manga, total, downloaded, nil
}
