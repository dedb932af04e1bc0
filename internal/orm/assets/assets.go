// Package assets stores uploaded files and images under the media root.
// Writes are staged: a staged copy is rolled back unless the document write succeeds.
package assets

import (
	"errors"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/image/draw"

	// Additional decoders for uploaded images
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/conduit-lang/docmodel/internal/orm/schema"
)

var (
	// ErrSourceNotFound is returned when the file to stage does not exist
	ErrSourceNotFound = errors.New("source file not found")

	// ErrThumbnail is returned when an image cannot be decoded or a thumbnail cannot be written
	ErrThumbnail = errors.New("thumbnail generation failed")

	// ErrOutsideRoot is returned when a path to remove is not under the media root
	ErrOutsideRoot = errors.New("path is outside the media root")
)

// DefaultThumbnails are the breakpoints used when an image declares none
var DefaultThumbnails = []schema.Thumbnail{
	{Name: "xs", MaxSize: 150},
	{Name: "sm", MaxSize: 300},
	{Name: "md", MaxSize: 600},
	{Name: "lg", MaxSize: 1200},
}

// Store copies assets into per-upload directories under root
type Store struct {
	root    string
	baseURL string
	logger  *zap.Logger
}

// New creates an asset store rooted at root and served from baseURL
func New(root, baseURL string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		root:    filepath.Clean(root),
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Root returns the media root directory
func (s *Store) Root() string {
	return s.root
}

// Staged is an uncommitted copy of one upload
type Staged struct {
	File  *schema.FileData
	Image *schema.ImageData

	dir string
}

// Rollback removes the staged copy
func (st *Staged) Rollback() error {
	if st == nil || st.dir == "" {
		return nil
	}
	return os.RemoveAll(st.dir)
}

// StageFile copies src into a fresh directory under targetDir
func (s *Store) StageFile(src, targetDir string) (*Staged, error) {
	dir, dest, relURL, err := s.prepare(src, targetDir)
	if err != nil {
		return nil, err
	}

	size, err := copyFile(src, dest)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	return &Staged{
		File: &schema.FileData{
			Path: dest,
			URL:  relURL,
			Name: filepath.Base(dest),
			Size: size,
		},
		dir: dir,
	}, nil
}

// StageImage copies src and writes one thumbnail per breakpoint next to it.
// Quality selects CatmullRom resampling over the faster ApproxBiLinear.
func (s *Store) StageImage(src, targetDir string, thumbs []schema.Thumbnail, quality bool) (*Staged, error) {
	dir, dest, relURL, err := s.prepare(src, targetDir)
	if err != nil {
		return nil, err
	}

	staged, err := s.stageImage(src, dir, dest, relURL, thumbs, quality)
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}
	return staged, nil
}

func (s *Store) stageImage(src, dir, dest, relURL string, thumbs []schema.Thumbnail, quality bool) (*Staged, error) {
	size, err := copyFile(src, dest)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(dest)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrThumbnail, filepath.Base(src), err)
	}

	bounds := img.Bounds()
	data := &schema.ImageData{
		Path:       dest,
		URL:        relURL,
		Name:       filepath.Base(dest),
		Size:       size,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Thumbnails: make(map[string]string, len(thumbs)),
	}

	interpolator := draw.Interpolator(draw.ApproxBiLinear)
	if quality {
		interpolator = draw.CatmullRom
	}

	for _, thumb := range thumbs {
		name := thumb.Name + "_" + data.Name
		if err := writeThumbnail(img, format, filepath.Join(dir, name), thumb.MaxSize, interpolator, quality); err != nil {
			return nil, err
		}
		data.Thumbnails[thumb.Name] = path.Join(path.Dir(relURL), name)
	}

	return &Staged{Image: data, dir: dir}, nil
}

// Remove deletes a committed asset together with its upload directory
func (s *Store) Remove(assetPath string) error {
	if assetPath == "" {
		return nil
	}

	dir := filepath.Dir(filepath.Clean(assetPath))
	rel, err := filepath.Rel(s.root, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("%w: %s", ErrOutsideRoot, assetPath)
	}

	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove asset %s: %w", assetPath, err)
	}

	s.logger.Debug("asset removed", zap.String("path", assetPath))
	return nil
}

func (s *Store) prepare(src, targetDir string) (dir, dest, relURL string, err error) {
	info, err := os.Stat(src)
	if err != nil || info.IsDir() {
		return "", "", "", fmt.Errorf("%w: %s", ErrSourceNotFound, src)
	}

	id := uuid.NewString()
	name := sanitizeName(filepath.Base(src))

	dir = filepath.Join(s.root, filepath.Clean("/"+targetDir), id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", "", fmt.Errorf("failed to create asset directory: %w", err)
	}

	dest = filepath.Join(dir, name)
	relURL = s.baseURL + path.Join("/", filepath.ToSlash(targetDir), id, name)
	return dir, dest, relURL, nil
}

func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." {
		return "file"
	}
	return name
}

func copyFile(src, dest string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrSourceNotFound, src)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	n, err := io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return n, nil
}

func writeThumbnail(img image.Image, format, dest string, maxSize int, interpolator draw.Interpolator, quality bool) error {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxSize > 0 && (w > maxSize || h > maxSize) {
		if w >= h {
			h = max(1, h*maxSize/w)
			w = maxSize
		} else {
			w = max(1, w*maxSize/h)
			h = maxSize
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	interpolator.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrThumbnail, err)
	}

	switch format {
	case "jpeg":
		q := 80
		if quality {
			q = 95
		}
		err = jpeg.Encode(out, dst, &jpeg.Options{Quality: q})
	case "gif":
		err = gif.Encode(out, dst, nil)
	default:
		err = png.Encode(out, dst)
	}
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrThumbnail, err)
	}
	return nil
}
