package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"os/exec"
)

// FFmpegDevice grabs single frames from a V4L2 node by running ffmpeg once
// per read. Each read is bounded by the caller's context.
type FFmpegDevice struct {
	devicePath string
	width      int
	height     int
	binary     string
}

func NewFFmpegDevice(devicePath string, width, height int) *FFmpegDevice {
	return &FFmpegDevice{
		devicePath: devicePath,
		width:      width,
		height:     height,
		binary:     "ffmpeg",
	}
}

// Open checks that the device node and the ffmpeg binary exist.
func (d *FFmpegDevice) Open(context.Context) error {
	if _, err := os.Stat(d.devicePath); err != nil {
		return fmt.Errorf("device %s: %w", d.devicePath, err)
	}
	if _, err := exec.LookPath(d.binary); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}
	return nil
}

func (d *FFmpegDevice) ReadFrame(ctx context.Context) (image.Image, error) {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", "v4l2"}
	if d.width > 0 && d.height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", d.width, d.height))
	}
	args = append(args,
		"-i", d.devicePath,
		"-vframes", "1",
		"-f", "image2",
		"-c:v", "mjpeg",
		"-q:v", "2",
		"-",
	)

	cmd := exec.CommandContext(ctx, d.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg capture: %w (stderr: %s)", err, bytes.TrimSpace(stderr.Bytes()))
	}

	img, err := jpeg.Decode(&stdout)
	if err != nil {
		return nil, fmt.Errorf("decode captured frame: %w", err)
	}
	return img, nil
}

func (d *FFmpegDevice) Close() error { return nil }
