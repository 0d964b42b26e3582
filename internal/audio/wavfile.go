package audio

import (
	"errors"
	"io/fs"
	"os"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
)

// WriteWAV writes w as 16-bit mono PCM, replacing any existing file.
func WriteWAV(path string, w *Waveform) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	format := beep.Format{
		SampleRate:  beep.SampleRate(w.SampleRate),
		NumChannels: 1,
		Precision:   2,
	}
	return wav.Encode(f, w.streamer(), format)
}

// RemoveIfExists deletes path and reports whether there was something to delete.
func RemoveIfExists(path string) (bool, error) {
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
