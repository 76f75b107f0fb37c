package imaging

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// Probe reads pixel dimensions from the image header at path. Both results
// are nil when the file cannot be decoded as a supported image.
func Probe(path string) (width, height *int) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil || cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, nil
	}
	w, h := cfg.Width, cfg.Height
	return &w, &h
}
