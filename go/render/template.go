package render

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"

	_ "golang.org/x/image/webp"
)

// templateCandidates are tried in order under the asset directory.
var templateCandidates = []string{"template.png", "template.jpg", "template.jpeg", "template.webp"}

// LoadTemplate resolves the template image under dir, trying each candidate
// filename in order and returning the first that exists. A missing template
// is not an error: the renderer starts degraded and reports it through
// Health. A present but undecodable template is a configuration error.
func LoadTemplate(dir string) (image.Image, string, error) {
	for _, name := range templateCandidates {
		path := filepath.Join(dir, name)
		file, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("opening template %s: %w", path, err)
		}
		img, _, err := image.Decode(file)
		file.Close()
		if err != nil {
			return nil, "", fmt.Errorf("decoding template %s: %w", path, err)
		}
		return img, name, nil
	}
	return nil, "", nil
}
