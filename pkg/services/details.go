package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kerbaras/mangadl/pkg/data"
)

// Tachiyomi local source status codes.
var tachiyomiStatus = map[string]string{
	"unknown":   "0",
	"ongoing":   "1",
	"completed": "2",
	"licensed":  "3",
	"cancelled": "5",
	"hiatus":    "6",
}

var statusValues = []string{
	"0 = Unknown", "1 = Ongoing", "2 = Completed", "3 = Licensed",
	"4 = Publishing finished", "5 = Cancelled", "6 = On hiatus",
}

// Details is the details.json read by Tachiyomi for local manga.
type Details struct {
	Title        string   `json:"title"`
	Author       string   `json:"author"`
	Artist       string   `json:"artist"`
	Description  string   `json:"description"`
	Genre        []string `json:"genre"`
	Status       string   `json:"status"`
	StatusValues []string `json:"_status values"`
}

func NewDetails(manga *data.Manga) *Details {
	status, ok := tachiyomiStatus[manga.Status]
	if !ok {
		status = tachiyomiStatus["unknown"]
	}
	genre := manga.Tags
	if genre == nil {
		genre = []string{}
	}
	return &Details{
		Title:        manga.Title,
		Author:       strings.Join(manga.Authors, ", "),
		Artist:       strings.Join(manga.Artists, ", "),
		Description:  manga.Description,
		Genre:        genre,
		Status:       status,
		StatusValues: statusValues,
	}
}

// WriteDetails writes details.json into dir, replacing any previous copy.
func WriteDetails(manga *data.Manga, dir string) (string, error) {
	if manga == nil {
		return "", fmt.Errorf("manga cannot be nil")
	}
	b, err := json.MarshalIndent(NewDetails(manga), "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to encode details: %w", err)
	}

	dest := filepath.Join(dir, "details.json")
	if err := writeFileAtomic(dest, b); err != nil {
		return "", fmt.Errorf("failed to write details: %w", err)
	}
	return dest, nil
}

func writeFileAtomic(dest string, b []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), dest)
}
