package camera

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
)

// FileDevice serves the same still image on every read. It stands in for a
// camera on bench setups.
type FileDevice struct {
	path string
	img  image.Image
}

func NewFileDevice(path string) *FileDevice {
	return &FileDevice{path: path}
}

func (d *FileDevice) Open(context.Context) error {
	f, err := os.Open(d.path)
	if err != nil {
		return err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode %s: %w", d.path, err)
	}
	d.img = img
	return nil
}

func (d *FileDevice) ReadFrame(context.Context) (image.Image, error) {
	if d.img == nil {
		return nil, fmt.Errorf("file device %s not open", d.path)
	}
	return d.img, nil
}

func (d *FileDevice) Close() error {
	d.img = nil
	return nil
}
