package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

var (
	errNoFrames     = errors.New("no mpeg audio frames found")
	errNoMovieBox   = errors.New("mp4 moov/mvhd box not found")
	errUnsupported  = errors.New("unsupported audio container")
	errZeroDuration = errors.New("zero playback length")
)

// ProbeDuration reads the playback length from MP3 or MP4/M4A bytes.
func ProbeDuration(data []byte) (time.Duration, error) {
	format, fileType, err := tag.Identify(bytes.NewReader(data))
	switch {
	case err != nil && !errors.Is(err, tag.ErrNoTagsFound):
		return 0, fmt.Errorf("identify container: %w", err)
	case format == tag.MP4:
		return mp4Duration(data)
	case fileType == tag.MP3, errors.Is(err, tag.ErrNoTagsFound):
		// Untagged MP3 streams start directly with a frame sync.
		return mp3Duration(data)
	default:
		return 0, fmt.Errorf("%w: %s", errUnsupported, fileType)
	}
}

func mp3Duration(data []byte) (time.Duration, error) {
	decoder := mp3.NewDecoder(bytes.NewReader(data))
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
		frames  int
	)

	for {
		err := decoder.Decode(&frame, &skipped)
		if err != nil {
			if errors.Is(err, io.EOF) || (frames > 0 && errors.Is(err, io.ErrUnexpectedEOF)) {
				break
			}
			return 0, err
		}
		total += frame.Duration()
		frames++
	}

	if frames == 0 {
		return 0, errNoFrames
	}
	return total, nil
}

// mp4Duration walks the ISO BMFF box tree to moov/mvhd and returns duration/timescale.
func mp4Duration(data []byte) (time.Duration, error) {
	moov, ok := findBox(data, "moov")
	if !ok {
		return 0, errNoMovieBox
	}
	mvhd, ok := findBox(moov, "mvhd")
	if !ok || len(mvhd) < 4 {
		return 0, errNoMovieBox
	}

	var timescale uint32
	var duration uint64
	switch version := mvhd[0]; version {
	case 0:
		// version/flags(4) creation(4) modification(4) timescale(4) duration(4)
		if len(mvhd) < 20 {
			return 0, io.ErrUnexpectedEOF
		}
		timescale = binary.BigEndian.Uint32(mvhd[12:16])
		duration = uint64(binary.BigEndian.Uint32(mvhd[16:20]))
	case 1:
		// version/flags(4) creation(8) modification(8) timescale(4) duration(8)
		if len(mvhd) < 32 {
			return 0, io.ErrUnexpectedEOF
		}
		timescale = binary.BigEndian.Uint32(mvhd[20:24])
		duration = binary.BigEndian.Uint64(mvhd[24:32])
	default:
		return 0, fmt.Errorf("unknown mvhd version %d", version)
	}

	if timescale == 0 {
		return 0, errors.New("mvhd timescale is zero")
	}
	ts := uint64(timescale)
	ms := (duration/ts)*1000 + (duration%ts)*1000/ts
	return time.Duration(ms) * time.Millisecond, nil
}

// findBox returns the payload of the first box of the given type at this level.
func findBox(data []byte, boxType string) ([]byte, bool) {
	for len(data) >= 8 {
		size := uint64(binary.BigEndian.Uint32(data[0:4]))
		typ := string(data[4:8])
		header := uint64(8)

		switch size {
		case 0:
			size = uint64(len(data))
		case 1:
			if len(data) < 16 {
				return nil, false
			}
			size = binary.BigEndian.Uint64(data[8:16])
			header = 16
		}
		if size < header || size > uint64(len(data)) {
			return nil, false
		}
		if typ == boxType {
			return data[header:size], true
		}
		data = data[size:]
	}
	return nil, false
}
