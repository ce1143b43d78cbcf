package audio

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

var (
	ErrNotWav         = errors.New("not a valid WAV file")
	ErrNotMono        = errors.New("WAV file is not mono")
	ErrUnsupportedPCM = errors.New("unsupported WAV encoding")
)

// WavInfo is the header of a WAV file.
type WavInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// ProbeWav reads only the header of the WAV file at path.
func ProbeWav(path string) (WavInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return WavInfo{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return WavInfo{}, fmt.Errorf("%s: %w", path, ErrNotWav)
	}
	return WavInfo{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}, nil
}

// ReadWav decodes the mono PCM WAV file at path into a signal normalized to
// [-1, 1].
func ReadWav(path string) (fingerprint.Signal, error) {
	f, err := os.Open(path)
	if err != nil {
		return fingerprint.Signal{}, err
	}
	defer f.Close()

	sig, err := DecodeWav(f)
	if err != nil {
		return fingerprint.Signal{}, fmt.Errorf("%s: %w", path, err)
	}
	return sig, nil
}

// DecodeWav decodes a mono PCM WAV stream.
func DecodeWav(r io.ReadSeeker) (fingerprint.Signal, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return fingerprint.Signal{}, ErrNotWav
	}
	if dec.NumChans != 1 {
		return fingerprint.Signal{}, fmt.Errorf("%w: %d channels", ErrNotMono, dec.NumChans)
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return fingerprint.Signal{}, fmt.Errorf("%w: format tag %d", ErrUnsupportedPCM, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return fingerprint.Signal{}, fmt.Errorf("reading PCM data: %w", err)
	}

	samples, err := normalize(buf.Data, int(dec.BitDepth))
	if err != nil {
		return fingerprint.Signal{}, err
	}
	return fingerprint.Signal{SampleRate: int(dec.SampleRate), Samples: samples}, nil
}

func normalize(data []int, bitDepth int) ([]float64, error) {
	var offset int
	switch bitDepth {
	case 8:
		// 8-bit PCM is unsigned
		offset = 128
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit samples", ErrUnsupportedPCM, bitDepth)
	}

	scale := float64(int64(1) << (bitDepth - 1))
	out := make([]float64, len(data))
	for i, v := range data {
		out[i] = float64(v-offset) / scale
	}
	return out, nil
}

// WriteWav writes sig as a 16-bit mono PCM WAV file. Samples outside [-1, 1]
// are clipped.
func WriteWav(path string, sig fingerprint.Signal) error {
	if sig.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", sig.SampleRate)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	data := make([]int, len(sig.Samples))
	for i, s := range sig.Samples {
		s = math.Max(-1, math.Min(1, s))
		data[i] = int(math.Round(s * math.MaxInt16))
	}

	enc := wav.NewEncoder(f, sig.SampleRate, 16, 1, wavFormatPCM)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: sig.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finalizing %s: %w", path, err)
	}
	return f.Close()
}
