package service

import (
	"fmt"
	"os"
	"path/filepath"
)

// ============================================================
// File Storage
// ============================================================

// FileStorage раскладывает файлы анализа по каталогам: исходное
// изображение и экспортированные диаграммы.
type FileStorage struct {
	root string
}

func NewFileStorage(root string) *FileStorage {
	return &FileStorage{root: root}
}

func (s *FileStorage) AnalysisDir(analysisID string) string {
	return filepath.Join(s.root, analysisID)
}

func (s *FileStorage) ImagePath(analysisID, ext string) string {
	return filepath.Join(s.AnalysisDir(analysisID), "source"+ext)
}

func (s *FileStorage) DiagramSVGPath(analysisID string) string {
	return filepath.Join(s.AnalysisDir(analysisID), "diagram.svg")
}

func (s *FileStorage) DiagramPNGPath(analysisID string) string {
	return filepath.Join(s.AnalysisDir(analysisID), "diagram.png")
}

func (s *FileStorage) EnsureDir(analysisID string) error {
	if err := os.MkdirAll(s.AnalysisDir(analysisID), 0o755); err != nil {
		return fmt.Errorf("mkdir analysis dir: %w", err)
	}
	return nil
}

func (s *FileStorage) SaveFile(analysisID, target string, data []byte) error {
	if err := s.EnsureDir(analysisID); err != nil {
		return err
	}
	return os.WriteFile(target, data, 0o644)
}

// FindImage ищет сохранённое исходное изображение анализа.
func (s *FileStorage) FindImage(analysisID string) (string, bool) {
	for _, ext := range []string{".png", ".jpg", ".jpeg"} {
		path := s.ImagePath(analysisID, ext)
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

// RemoveAll удаляет каталог анализа целиком.
func (s *FileStorage) RemoveAll(analysisID string) error {
	return os.RemoveAll(s.AnalysisDir(analysisID))
}
