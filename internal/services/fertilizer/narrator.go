package fertilizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/LeonardoBeccarini/harvestify/internal/model/entities"
	"github.com/LeonardoBeccarini/harvestify/pkg/dedup"
	"github.com/LeonardoBeccarini/harvestify/pkg/upstream"
)

// MaxChunk is the longest text the TTS endpoint accepts per request.
const MaxChunk = 100

// Synthesizer turns text into MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, lang string) ([]byte, error)
}

// GoogleTTS speaks the translate_tts query protocol.
type GoogleTTS struct {
	up *upstream.Upstream
}

func NewGoogleTTS(up *upstream.Upstream) *GoogleTTS { return &GoogleTTS{up: up} }

func (g *GoogleTTS) Synthesize(ctx context.Context, text, lang string) ([]byte, error) {
	chunks := Chunks(text, MaxChunk)
	if len(chunks) == 0 {
		return nil, errors.New("tts: nothing to say")
	}
	var buf bytes.Buffer
	for i, c := range chunks {
		res, err := g.up.Get(ctx, "", map[string]string{
			"ie":      "UTF-8",
			"client":  "tw-ob",
			"tl":      lang,
			"q":       c,
			"total":   strconv.Itoa(len(chunks)),
			"idx":     strconv.Itoa(i),
			"textlen": strconv.Itoa(utf8.RuneCountInString(c)),
		})
		if err != nil {
			return nil, fmt.Errorf("tts chunk %d: %w", i, err)
		}
		if res.Status != http.StatusOK || len(res.Body) == 0 {
			return nil, fmt.Errorf("tts chunk %d: status %d, %d bytes", i, res.Status, len(res.Body))
		}
		buf.Write(res.Body)
	}
	return buf.Bytes(), nil
}

// Chunks splits text on word boundaries into pieces of at most max runes.
// Words longer than max are cut.
func Chunks(text string, max int) []string {
	var out []string
	var cur strings.Builder
	n := 0
	flush := func() {
		if n > 0 {
			out = append(out, cur.String())
			cur.Reset()
			n = 0
		}
	}
	for _, w := range strings.Fields(text) {
		for utf8.RuneCountInString(w) > max {
			flush()
			r := []rune(w)
			out = append(out, string(r[:max]))
			w = string(r[max:])
		}
		wl := utf8.RuneCountInString(w)
		if n > 0 && n+1+wl > max {
			flush()
		}
		if n > 0 {
			cur.WriteByte(' ')
			n++
		}
		cur.WriteString(w)
		n += wl
	}
	flush()
	return out
}

// Narrator stores one MP3 per advisory key under {static}/audio.
type Narrator struct {
	synth  Synthesizer
	lang   string
	dir    string
	prefix string
	recent *dedup.Deduper
}

// NewNarrator serves files from staticDir under the /static URL prefix.
func NewNarrator(synth Synthesizer, lang, staticDir string, ttl time.Duration) *Narrator {
	if lang == "" {
		lang = "hi"
	}
	return &Narrator{
		synth:  synth,
		lang:   lang,
		dir:    filepath.Join(staticDir, "audio"),
		prefix: "/static/audio/",
		recent: dedup.New(ttl, len(entities.AdvisoryKeys)*4),
	}
}

// Narrate returns the web path of the audio for key, synthesising it unless
// a file was produced within the TTL.
func (n *Narrator) Narrate(ctx context.Context, key entities.AdvisoryKey, text string) (string, error) {
	if !slices.Contains(entities.AdvisoryKeys, key) {
		return "", fmt.Errorf("%w: %q", ErrAdvisoryNotFound, key)
	}
	name := "fertilizer_" + string(key) + ".mp3"
	path := filepath.Join(n.dir, name)

	if !n.recent.ShouldProcess(string(key)) {
		if _, err := os.Stat(path); err == nil {
			return n.prefix + name, nil
		}
	}

	audio, err := n.synth.Synthesize(ctx, text, n.lang)
	if err != nil {
		n.recent.Forget(string(key))
		return "", fmt.Errorf("narrate %s: %w", key, err)
	}
	if err := writeAtomic(n.dir, name, audio); err != nil {
		n.recent.Forget(string(key))
		return "", fmt.Errorf("narrate %s: %w", key, err)
	}
	return n.prefix + name, nil
}

// writeAtomic writes to a temp file in dir and renames it over name.
func writeAtomic(dir, name string, data []byte) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, name))
}
