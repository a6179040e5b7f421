package infra

import (
	"fmt"
	"hash/fnv"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

// IconMaker generates and caches placeholder icons for instruments.
// The simulated market has no icon CDN, so each symbol gets a
// deterministic two-tone tile derived from its name.
type IconMaker struct {
	basePath string
}

// NewIconMaker creates a new IconMaker rooted at dir.
func NewIconMaker(dir string) (*IconMaker, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create assets directory: %w", err)
	}
	return &IconMaker{basePath: dir}, nil
}

// MakeIcon generates the icon for a symbol if it doesn't exist.
// Returns the local file path on success.
// Images are rendered at 48x48 and resized to 24x24 for consistent UI display.
func (m *IconMaker) MakeIcon(symbol string) (string, error) {
	// Security: Sanitize symbol to prevent path traversal
	safeSymbol := sanitizeSymbol(symbol)
	if safeSymbol == "" {
		return "", fmt.Errorf("invalid symbol: %s", symbol)
	}

	fileName := strings.ToLower(safeSymbol) + ".png"
	filePath := filepath.Join(m.basePath, fileName)

	// Check if exists
	if _, err := os.Stat(filePath); err == nil {
		return filePath, nil // Already exists (Cache Hit)
	}

	base, accent := symbolColors(safeSymbol)

	tile := imaging.New(48, 48, base)
	inner := imaging.New(28, 28, accent)
	tile = imaging.Paste(tile, inner, image.Pt(10, 10))

	// Resize to 24x24 with high-quality Lanczos filter
	resized := imaging.Resize(tile, 24, 24, imaging.Lanczos)

	if err := imaging.Save(resized, filePath); err != nil {
		return "", fmt.Errorf("failed to save icon: %w", err)
	}

	return filePath, nil
}

// GetIconPath returns the local path for a symbol's icon
func (m *IconMaker) GetIconPath(symbol string) string {
	return filepath.Join(m.basePath, strings.ToLower(sanitizeSymbol(symbol))+".png")
}

// BasePath returns the icon directory, for static file serving.
func (m *IconMaker) BasePath() string {
	return m.basePath
}

// symbolColors derives a stable color pair from the symbol.
func symbolColors(symbol string) (color.NRGBA, color.NRGBA) {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	v := h.Sum32()

	base := color.NRGBA{
		R: uint8(v >> 16),
		G: uint8(v >> 8),
		B: uint8(v),
		A: 255,
	}
	accent := color.NRGBA{
		R: base.R/2 + 96,
		G: base.G/2 + 96,
		B: base.B/2 + 96,
		A: 255,
	}
	return base, accent
}

func sanitizeSymbol(symbol string) string {
	res := make([]rune, 0, len(symbol))
	for _, r := range symbol {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			res = append(res, r)
		}
	}
	return string(res)
}
