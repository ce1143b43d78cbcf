package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/himanishpuri/constellation/pkg/constellation"
	"github.com/himanishpuri/constellation/pkg/constellation/audio"
	"github.com/himanishpuri/constellation/pkg/constellation/fingerprint"
)

const fixtureRate = 8000

// burstSong plays each frequency in turn as a quarter-second burst, cycling
// for seconds. Each burst decays and starts a little quieter than the last so
// no two spectrogram frames tie.
func burstSong(freqs []float64, seconds float64) fingerprint.Signal {
	n := int(seconds * fixtureRate)
	burst := fixtureRate / 4
	samples := make([]float64, n)
	for i := range samples {
		k := i / burst
		f := freqs[k%len(freqs)]
		t := float64(i%burst) / fixtureRate
		amp := 0.5 * math.Exp(-3*t) * (1 - 0.02*float64(k))
		samples[i] = amp * math.Sin(2*math.Pi*f*float64(i)/fixtureRate)
	}
	return fingerprint.Signal{SampleRate: fixtureRate, Samples: samples}
}

type cliEnv struct {
	dir    string
	config string
	music  string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("CONSTELLATION_DB_PATH", "")
	t.Setenv("CONSTELLATION_TEMP_DIR", "")
	t.Setenv("LOG_LEVEL", "")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "constellation.toml")
	body := "[pipeline]\nmin_distance = 5\n" +
		"[storage]\npath = \"" + filepath.ToSlash(filepath.Join(dir, "index.sqlite3")) + "\"\n" +
		"[audio]\nsample_rate = 0\n" +
		"[log]\nlevel = \"error\"\ncolor = \"never\"\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o644))

	music := filepath.Join(dir, "music")
	require.NoError(t, os.MkdirAll(music, 0o755))
	require.NoError(t, audio.WriteWav(filepath.Join(music, "low.wav"), burstSong([]float64{500, 1000, 1500, 2000}, 4)))
	require.NoError(t, audio.WriteWav(filepath.Join(music, "high.wav"), burstSong([]float64{2500, 3000, 3500, 3750}, 4)))

	return cliEnv{dir: dir, config: cfgPath, music: music}
}

func (e cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config", e.config}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAddListMatchDelete(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "The index is empty.")

	out, err = env.run(t, "add", env.music, "--no-progress")
	require.NoError(t, err, out)
	assert.Contains(t, out, "low.wav")
	assert.Contains(t, out, "high.wav")

	out, err = env.run(t, "list", "--json")
	require.NoError(t, err)
	var songs []constellation.Song
	require.NoError(t, json.Unmarshal([]byte(out), &songs))
	require.Len(t, songs, 2)
	assert.Equal(t, "high", songs[0].Title, "tagless files are titled by file name")
	assert.Equal(t, "Unknown Artist", songs[0].Artist)
	assert.Equal(t, 4000, songs[0].DurationMs)
	assert.Positive(t, songs[0].Records)

	out, err = env.run(t, "match", filepath.Join(env.music, "low.wav"), "--json")
	require.NoError(t, err)
	var matches []constellation.MatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &matches))
	require.NotEmpty(t, matches)
	assert.Equal(t, "low", matches[0].Title)

	out, err = env.run(t, "delete", songs[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted high")

	_, err = env.run(t, "delete", songs[0].ID)
	assert.ErrorIs(t, err, constellation.ErrSongNotFound)

	_, err = env.run(t, "delete", "not-an-id")
	assert.ErrorContains(t, err, "invalid song id")
}

func TestAddRejectsTitleForMany(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "add", env.music, "--title", "x")
	assert.ErrorContains(t, err, "single file")
}

func TestAddSingleFileWithTitle(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "add", filepath.Join(env.music, "low.wav"), "--title", "Low Tones", "--artist", "Fixture")
	require.NoError(t, err)

	out, err := env.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Low Tones")
	assert.Contains(t, out, "Fixture")
	assert.Contains(t, out, "0:04")
}

func TestCompareJSON(t *testing.T) {
	env := newCLIEnv(t)
	low := filepath.Join(env.music, "low.wav")

	out, err := env.run(t, "compare", low, low, "--json")
	require.NoError(t, err)

	var cmp constellation.Comparison
	require.NoError(t, json.Unmarshal([]byte(out), &cmp))
	require.NotNil(t, cmp.Reference)
	require.NotNil(t, cmp.Reference.Spectrogram)
	assert.NotEmpty(t, cmp.Reference.Spectrogram.Times)
	assert.Nil(t, cmp.Reference.Spectrogram.Power)
	assert.NotEmpty(t, cmp.Result.Pairs)
	for _, off := range cmp.Result.Offsets {
		assert.GreaterOrEqual(t, off, 0.0, "first-match pairing never pairs a record with a later copy")
	}

	out, err = env.run(t, "compare", low, low, "--json", "--with-power")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &cmp))
	assert.NotEmpty(t, cmp.Reference.Spectrogram.Power)

	out, err = env.run(t, "compare", low, filepath.Join(env.music, "high.wav"))
	require.NoError(t, err)
	assert.Contains(t, out, "Matched pairs")
	assert.Contains(t, out, "Score")
}

func TestSpectrogramCommand(t *testing.T) {
	env := newCLIEnv(t)
	png := filepath.Join(env.dir, "low.png")

	out, err := env.run(t, "spectrogram", filepath.Join(env.music, "low.wav"), "-o", png, "--landmarks", "--start", "1", "--duration", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+png)

	info, err := os.Stat(png)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestDemoCommand(t *testing.T) {
	env := newCLIEnv(t)

	out, err := env.run(t, "demo", env.music, "--seed", "7", "--excerpt", "2", "--min-start", "0.5", "--max-start", "1.5", "--max-shift", "1", "--search")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Seed: 7")
	for _, name := range []string{"self", "shifted", "unrelated"} {
		assert.Contains(t, out, name)
	}
	assert.Contains(t, out, "Search over 2 songs")
	assert.Contains(t, out, "correct")

	again, err := env.run(t, "demo", env.music, "--seed", "7", "--excerpt", "2", "--min-start", "0.5", "--max-start", "1.5", "--max-shift", "1", "--search")
	require.NoError(t, err)
	assert.Equal(t, out, again, "a fixed seed replays the same demo")
}

func TestDemoNeedsTwoSongs(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.Remove(filepath.Join(env.music, "high.wav")))
	_, err := env.run(t, "demo", env.music)
	assert.ErrorContains(t, err, "at least two")
}

func TestConfigInit(t *testing.T) {
	env := newCLIEnv(t)
	target := filepath.Join(env.dir, "nested", "config.toml")

	out, err := env.run(t, "config", "init", "--path", target)
	require.NoError(t, err)
	assert.Contains(t, out, target)

	_, err = env.run(t, "config", "init", "--path", target)
	assert.ErrorContains(t, err, "already exists")

	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--config", target, "config", "validate"})
	require.NoError(t, cmd.Execute())
	assert.True(t, strings.HasPrefix(buf.String(), "Configuration "+target+" is valid"))
}

func TestPickSongsDistinct(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 200; i++ {
		a, b := pickSongs(r, 3)
		assert.NotEqual(t, a, b)
		assert.True(t, a >= 0 && a < 3 && b >= 0 && b < 3)
	}
}

func TestPickStart(t *testing.T) {
	opts := defaultDemoOptions()
	r := rand.New(rand.NewPCG(3, 4))

	for i := 0; i < 200; i++ {
		s := pickStart(r, 300, opts)
		assert.GreaterOrEqual(t, s, 20.0)
		assert.Less(t, s, 90.0)

		s = pickStart(r, 50, opts)
		assert.GreaterOrEqual(t, s, 20.0)
		assert.LessOrEqual(t, s, 40.0, "the excerpt has to fit")

		s = pickStart(r, 25, opts)
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 15.0)
	}
	assert.Zero(t, pickStart(r, 5, opts))
}

func TestPickShift(t *testing.T) {
	r := rand.New(rand.NewPCG(5, 6))
	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		s := pickShift(r, 5)
		assert.GreaterOrEqual(t, s, -5)
		assert.Less(t, s, 5)
		seen[s] = true
	}
	assert.Len(t, seen, 10)
}

func TestDemoOptionsValidate(t *testing.T) {
	assert.NoError(t, defaultDemoOptions().validate())

	o := defaultDemoOptions()
	o.MaxStart = 10
	assert.Error(t, o.validate())

	o = defaultDemoOptions()
	o.MaxShift = 0
	assert.Error(t, o.validate())
}
