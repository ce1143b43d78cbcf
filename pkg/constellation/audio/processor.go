// Package audio decodes audio files into mono signals for fingerprinting.
// WAV is read natively; anything else goes through ffmpeg.
package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
	"github.com/himanishpuri/constellation/pkg/utils"
)

// DefaultSampleRate is the rate ffmpeg resamples to when none is requested.
const DefaultSampleRate = 11025

const convertTimeout = 30 * time.Second

type ConvertWAVConfig struct {
	SampleRate int
}

// ConvertToMonoWAV transcodes inputPath into a 16-bit mono WAV under
// outputDir and returns its path. Without a deadline on ctx the conversion is
// bounded by a default timeout.
func ConvertToMonoWAV(
	ctx context.Context,
	inputPath string,
	outputDir string,
	cfg ConvertWAVConfig,
) (string, error) {

	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, convertTimeout)
		defer cancel()
	}

	if err := utils.MakeDir(outputDir); err != nil {
		return "", err
	}

	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	outputPath := filepath.Join(outputDir, base+".wav")

	tmpPath := outputPath + ".tmp.wav"
	defer os.Remove(tmpPath)

	cmd := exec.CommandContext(
		ctx,
		"ffmpeg",
		"-y",
		"-v", "quiet",
		"-i", inputPath,
		"-ac", "1",
		"-ar", strconv.Itoa(cfg.SampleRate),
		"-c:a", "pcm_s16le",
		tmpPath,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("ffmpeg failed: %v (%s)", err, out)
	}

	if err := utils.MoveFile(tmpPath, outputPath); err != nil {
		return "", err
	}

	return outputPath, nil
}

// LoadConfig controls how Load turns a file into a signal.
type LoadConfig struct {
	// SampleRate is the rate non-conforming input is resampled to. Zero
	// accepts any mono WAV as is and uses DefaultSampleRate for conversions.
	SampleRate int
	// TempDir receives intermediate conversions. Defaults to os.TempDir().
	TempDir string
}

// Load returns the audio at path as a mono signal. A mono WAV already at the
// requested rate is decoded directly, everything else is converted first.
func Load(ctx context.Context, path string, cfg LoadConfig) (fingerprint.Signal, error) {
	if _, err := os.Stat(path); err != nil {
		return fingerprint.Signal{}, err
	}

	if isWav(path) {
		info, err := ProbeWav(path)
		if err == nil && info.Channels == 1 && (cfg.SampleRate == 0 || cfg.SampleRate == info.SampleRate) {
			return ReadWav(path)
		}
	}

	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	workDir, err := os.MkdirTemp(tempDir, "constellation-")
	if err != nil {
		return fingerprint.Signal{}, fmt.Errorf("creating work dir: %w", err)
	}
	defer utils.DeleteDir(workDir)

	converted, err := ConvertToMonoWAV(ctx, path, workDir, ConvertWAVConfig{SampleRate: cfg.SampleRate})
	if err != nil {
		return fingerprint.Signal{}, fmt.Errorf("converting %s: %w", filepath.Base(path), err)
	}
	return ReadWav(converted)
}

func isWav(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".wav" || ext == ".wave"
}
