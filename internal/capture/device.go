package capture

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
)

var (
	// ErrDeviceBusy is returned when another process holds the capture device.
	ErrDeviceBusy = errors.New("capture device busy")
	// ErrNoDevice is returned when no capture device is configured.
	ErrNoDevice = errors.New("no capture device configured")
)

// Frame is one still image taken from a device.
type Frame struct {
	MIME string
	Data []byte
}

// DataURI encodes the frame the way the analysis service expects it on the wire.
func (f Frame) DataURI() string {
	return "data:" + f.MIME + ";base64," + base64.StdEncoding.EncodeToString(f.Data)
}

// Device is a scoped capture resource. Open may fail (permission denied,
// device busy); Frame may return an empty frame when the device has nothing
// to give this tick.
type Device interface {
	Open() error
	Frame() (Frame, error)
	Close() error
}

const lockName = ".capture.lock"

// DirDevice replays the images in a directory in name order. An exclusive
// lock file inside the directory keeps two sessions from sharing it.
type DirDevice struct {
	dir   string
	lock  *flock.Flock
	files []string
	next  int
}

func NewDirDevice(dir string) *DirDevice {
	return &DirDevice{dir: dir}
}

func (d *DirDevice) Open() error {
	if d.lock != nil {
		return nil
	}
	info, err := os.Stat(d.dir)
	if err != nil {
		return fmt.Errorf("open capture device: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("open capture device: %s is not a directory", d.dir)
	}

	lock := flock.New(filepath.Join(d.dir, lockName))
	ok, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock capture device: %w", err)
	}
	if !ok {
		return ErrDeviceBusy
	}

	files, err := listImages(d.dir)
	if err != nil {
		_ = lock.Unlock()
		return fmt.Errorf("list capture frames: %w", err)
	}
	d.lock = lock
	d.files = files
	d.next = 0
	return nil
}

func (d *DirDevice) Frame() (Frame, error) {
	if d.lock == nil {
		return Frame{}, ErrNoDevice
	}
	if len(d.files) == 0 {
		return Frame{}, nil
	}
	path := d.files[d.next%len(d.files)]
	d.next++
	data, err := os.ReadFile(path)
	if err != nil {
		return Frame{}, err
	}
	return Frame{MIME: mimeFor(path), Data: data}, nil
}

func (d *DirDevice) Close() error {
	if d.lock == nil {
		return nil
	}
	err := d.lock.Unlock()
	d.lock = nil
	d.files = nil
	return err
}

func listImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func mimeFor(path string) string {
	if t := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); t != "" {
		return t
	}
	return "image/jpeg"
}
