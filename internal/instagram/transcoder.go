package instagram

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"strings"
)

// AudioExtractor converts a staged video into an audio file.
type AudioExtractor interface {
	ToAudio(ctx context.Context, videoPath string) (string, error)
}

// Transcoder extracts a mono 16 kHz WAV track with ffmpeg.
type Transcoder struct {
	FFmpegPath string
	TempDir    string
}

// NewTranscoder uses ffmpeg from PATH.
func NewTranscoder() *Transcoder {
	return &Transcoder{FFmpegPath: "ffmpeg"}
}

// ToAudio writes the audio of videoPath to a new temporary WAV file and
// returns its path. The caller owns the file on success.
func (t *Transcoder) ToAudio(ctx context.Context, videoPath string) (string, error) {
	out, err := os.CreateTemp(t.TempDir, "persona-audio-*.wav")
	if err != nil {
		return "", &TranscodeError{Input: videoPath, Cause: err}
	}
	outPath := out.Name()
	_ = out.Close()

	bin := t.FFmpegPath
	if bin == "" {
		bin = "ffmpeg"
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin,
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", videoPath,
		"-vn", "-ac", "1", "-ar", "16000", "-f", "wav",
		outPath,
	)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		_ = os.Remove(outPath)
		return "", &TranscodeError{Input: videoPath, Output: strings.TrimSpace(stderr.String()), Cause: err}
	}
	return outPath, nil
}
