package overlay

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/satriahrh/moodcast/domain/repositories"
)

const (
	DefaultTextFile  = "current_mood.txt"
	DefaultImageFile = "current_mood.png"
	DefaultImageDir  = "mood_images"
)

// FileWriter publishes the mood as files a streaming tool (e.g. an OBS text
// and image source) watches. Files are replaced atomically so a reader never
// sees a partial write.
type FileWriter struct {
	textPath  string
	imagePath string
	logger    *zap.Logger
}

var _ repositories.OverlayWriter = (*FileWriter)(nil)

// NewFileWriter writes the label to textPath and the image to imagePath
func NewFileWriter(textPath, imagePath string, logger *zap.Logger) *FileWriter {
	if textPath == "" {
		textPath = DefaultTextFile
	}
	if imagePath == "" {
		imagePath = DefaultImageFile
	}
	return &FileWriter{
		textPath:  textPath,
		imagePath: imagePath,
		logger:    logger,
	}
}

func (w *FileWriter) WriteLabel(text string) error {
	if err := writeAtomic(w.textPath, func(f *os.File) error {
		_, err := f.WriteString(text)
		return err
	}); err != nil {
		return fmt.Errorf("failed to write overlay text: %w", err)
	}
	w.logger.Debug("Overlay text updated", zap.String("path", w.textPath), zap.String("text", text))
	return nil
}

// WriteImage copies src over the overlay image, or removes the overlay image
// when src is empty
func (w *FileWriter) WriteImage(src string) error {
	if src == "" {
		if err := os.Remove(w.imagePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to clear overlay image: %w", err)
		}
		w.logger.Debug("Overlay image cleared", zap.String("path", w.imagePath))
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open mood image: %w", err)
	}
	defer in.Close()

	if err := writeAtomic(w.imagePath, func(f *os.File) error {
		_, err := io.Copy(f, in)
		return err
	}); err != nil {
		return fmt.Errorf("failed to write overlay image: %w", err)
	}
	w.logger.Debug("Overlay image updated", zap.String("source", src), zap.String("path", w.imagePath))
	return nil
}

func writeAtomic(path string, fill func(f *os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := fill(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
