package driver

import "fmt"

// Image is a row-major 1-bit image. Row 0 is fed to the printer first.
type Image interface {
	Width() int
	Lines() int
	Row(y int) []bool
}

// StreamImage sends every row of img as one raster line and returns the
// number of lines written.
func StreamImage(s *RasterSession, img Image) (int, error) {
	if img.Width() > s.Width() {
		return 0, fmt.Errorf("%w: %d > %d pixels", ErrImageTooWide, img.Width(), s.Width())
	}

	lines := img.Lines()
	for y := 0; y < lines; y++ {
		s.Push(img.Row(y))
		if err := s.SendLine(); err != nil {
			return y, fmt.Errorf("raster line %d: %w", y, err)
		}
	}
	return lines, nil
}
