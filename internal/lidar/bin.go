package lidar

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/banshee-data/kitti.review/internal/fsutil"
	"github.com/banshee-data/kitti.review/internal/kitti"
)

// BinRecordSize is the size of one velodyne record: four little-endian float32.
const BinRecordSize = 16

// ErrTruncated is returned when a stream ends inside a record.
var ErrTruncated = kitti.ErrTruncated

// DecodeBin reads (x, y, z, intensity) records until EOF. A stream ending on
// a record boundary succeeds; 1..15 leftover bytes give ErrTruncated.
func DecodeBin(r io.Reader) ([]Point, error) {
	br := bufio.NewReader(r)
	var (
		points []Point
		rec    [BinRecordSize]byte
	)
	for {
		n, err := io.ReadFull(br, rec[:])
		switch {
		case err == io.EOF:
			return points, nil
		case errors.Is(err, io.ErrUnexpectedEOF):
			return nil, fmt.Errorf("%w: %d trailing bytes after %d points", ErrTruncated, n, len(points))
		case err != nil:
			return nil, fmt.Errorf("failed to read point %d: %w", len(points), err)
		}
		points = append(points, Point{
			X:         math.Float32frombits(binary.LittleEndian.Uint32(rec[0:4])),
			Y:         math.Float32frombits(binary.LittleEndian.Uint32(rec[4:8])),
			Z:         math.Float32frombits(binary.LittleEndian.Uint32(rec[8:12])),
			Intensity: math.Float32frombits(binary.LittleEndian.Uint32(rec[12:16])),
		})
	}
}

// LoadBin decodes the velodyne file at path.
func LoadBin(fsys fsutil.FileSystem, path string) ([]Point, error) {
	f, err := kitti.Open(fsys, path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	points, err := DecodeBin(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return points, nil
}
