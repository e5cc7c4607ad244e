package integrations

import (
	"fmt"
	"os"
	"path/filepath"
)

// outputPath is the archive written next to a chapter folder.
func outputPath(job ChapterJob, ext string) string {
	return filepath.Clean(job.Folder) + "." + ext
}

// writeAtomic creates dest through a temporary file in the same directory,
// so dest is either absent or complete.
func writeAtomic(dest string, write func(f *os.File) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if err := write(tmp); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move %s into place: %w", dest, err)
	}
	return nil
}

func validateJob(job ChapterJob) error {
	if job.Folder == "" {
		return fmt.Errorf("chapter folder cannot be empty")
	}
	if len(job.Pages) == 0 {
		return fmt.Errorf("chapter %s has no pages", filepath.Base(job.Folder))
	}
	return nil
}
