// Package media covers the audio and video edges of the pipeline: WAV
// duration probing, background clip selection, and the mux boundary.
package media

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// WAVDuration reads the RIFF header of a WAV file and returns its play time
// in seconds. It walks the chunk list, so extra chunks between fmt and data
// are fine.
func WAVDuration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open wav: %w", err)
	}
	defer f.Close()
	return wavDuration(f)
}

func wavDuration(r io.ReadSeeker) (float64, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return 0, fmt.Errorf("read riff header: %w", err)
	}
	if string(riff[0:4]) != "RIFF" || string(riff[8:12]) != "WAVE" {
		return 0, fmt.Errorf("not a wav file")
	}

	var byteRate uint32
	var dataSize uint32
	haveFmt, haveData := false, false

	for !(haveFmt && haveData) {
		var chunk [8]byte
		if _, err := io.ReadFull(r, chunk[:]); err != nil {
			if err == io.EOF || err == io.ErrUnexpectedEOF {
				break
			}
			return 0, fmt.Errorf("read chunk header: %w", err)
		}
		id := string(chunk[0:4])
		size := binary.LittleEndian.Uint32(chunk[4:8])

		switch id {
		case "fmt ":
			var format [16]byte
			if _, err := io.ReadFull(r, format[:]); err != nil {
				return 0, fmt.Errorf("read fmt chunk: %w", err)
			}
			byteRate = binary.LittleEndian.Uint32(format[8:12])
			haveFmt = true
			if size > 16 {
				if _, err := r.Seek(int64(size-16), io.SeekCurrent); err != nil {
					return 0, fmt.Errorf("skip fmt extension: %w", err)
				}
			}
		case "data":
			dataSize = size
			haveData = true
			if _, err := r.Seek(int64(size), io.SeekCurrent); err != nil {
				return 0, fmt.Errorf("skip data chunk: %w", err)
			}
		default:
			// Chunks are word-aligned; odd sizes carry a pad byte.
			skip := int64(size)
			if size%2 == 1 {
				skip++
			}
			if _, err := r.Seek(skip, io.SeekCurrent); err != nil {
				return 0, fmt.Errorf("skip %q chunk: %w", id, err)
			}
		}
	}

	if !haveFmt || !haveData {
		return 0, fmt.Errorf("wav missing fmt or data chunk")
	}
	if byteRate == 0 {
		return 0, fmt.Errorf("wav has zero byte rate")
	}
	return float64(dataSize) / float64(byteRate), nil
}
