package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"journey-pipeline/audio"
	"journey-pipeline/config"
	"journey-pipeline/types"
)

const defaultBaseURL = "https://api.elevenlabs.io"

// DecodeFunc turns a compressed MPEG stream into PCM at the mix format.
// Injected so tests never shell out to the media engine.
type DecodeFunc func(ctx context.Context, data []byte) (*audio.Buffer, error)

// SleepFunc is the backoff clock, injected for tests.
type SleepFunc func(d time.Duration)

// Generator synthesizes the finalized script into one stereo PCM buffer.
// Chunks are synthesized strictly in order: the inter-chunk gaps carry the
// pause semantics, so no reordering is permitted.
type Generator struct {
	cfg        *config.Config
	baseURL    string
	httpClient *http.Client
	decode     DecodeFunc
	sleep      SleepFunc
}

// New creates a Generator backed by the media engine for stream decoding.
func New(cfg *config.Config, engine *audio.Engine) *Generator {
	return &Generator{
		cfg:        cfg,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{},
		decode: func(ctx context.Context, data []byte) (*audio.Buffer, error) {
			return engine.DecodeBytes(ctx, data, audio.MixRate, audio.MixChannels)
		},
		sleep: time.Sleep,
	}
}

// SetBaseURL overrides the TTS endpoint.
func (g *Generator) SetBaseURL(u string) { g.baseURL = strings.TrimRight(u, "/") }

// SetDecode replaces the stream decoder.
func (g *Generator) SetDecode(fn DecodeFunc) { g.decode = fn }

// SetSleep replaces the backoff clock.
func (g *Generator) SetSleep(fn SleepFunc) { g.sleep = fn }

type synthRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
}

// Run synthesizes the whole script with the given voice. Blocks are joined
// with the long pause gap, chunks within a block with the short gap. An
// empty script yields one second of silence.
func (g *Generator) Run(ctx context.Context, script, voiceID string) (*audio.Buffer, error) {
	blocks := Blocks(script, g.cfg.TTS.ChunkCap)
	if len(blocks) == 0 {
		return audio.Silence(1000, audio.MixRate, audio.MixChannels), nil
	}

	total := 0
	for _, b := range blocks {
		total += len(b)
	}
	log.Printf("[tts] Synthesizing %d blocks, %d chunks", len(blocks), total)

	out := &audio.Buffer{SampleRate: audio.MixRate, Channels: audio.MixChannels}
	done := 0
	for bi, block := range blocks {
		if bi > 0 {
			out.Append(audio.Silence(g.cfg.TTS.BlockGapMs, audio.MixRate, audio.MixChannels))
		}
		for ci, chunk := range block {
			if ci > 0 {
				out.Append(audio.Silence(g.cfg.TTS.ChunkGapMs, audio.MixRate, audio.MixChannels))
			}
			buf, err := g.synthChunk(ctx, chunk, voiceID)
			if err != nil {
				return nil, err
			}
			out.Append(buf)
			done++
			log.Printf("[tts] Chunk %d/%d done (%s)", done, total, buf.Duration())
		}
	}
	return out, nil
}

// synthChunk sends one chunk with retry. Transient HTTP statuses and
// transport errors back off exponentially; the exhausted budget surfaces as
// a permanent error.
func (g *Generator) synthChunk(ctx context.Context, text, voiceID string) (*audio.Buffer, error) {
	var lastErr error
	for attempt := 1; attempt <= g.cfg.TTS.Retries; attempt++ {
		buf, err := g.synthOnce(ctx, text, voiceID)
		if err == nil {
			return buf, nil
		}
		if !types.IsTransient(err) {
			return nil, err
		}
		lastErr = err
		if attempt < g.cfg.TTS.Retries {
			backoff := time.Duration(math.Pow(g.cfg.TTS.BackoffBase, float64(attempt)) * float64(time.Second))
			log.Printf("[tts] ⚠️ Attempt %d failed: %v — retrying in %s", attempt, err, backoff)
			g.sleep(backoff)
		}
	}
	return nil, types.Ef(types.ErrPermanentRemote, "tts", "retry budget exhausted: %v", lastErr)
}

func (g *Generator) synthOnce(ctx context.Context, text, voiceID string) (*audio.Buffer, error) {
	callCtx, cancel := context.WithTimeout(ctx, time.Duration(g.cfg.TTS.TimeoutSec)*time.Second)
	defer cancel()

	body, err := json.Marshal(synthRequest{
		Text:    text,
		ModelID: g.cfg.TTS.ModelID,
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.7,
			Style:           0.3,
			UseSpeakerBoost: true,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tts request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s/stream", g.baseURL, voiceID)
	req, err := http.NewRequestWithContext(callCtx, "POST", url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", g.cfg.TTS.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, types.E(types.ErrTransientNetwork, "tts", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// fall through to stream consumption
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		io.Copy(io.Discard, resp.Body)
		return nil, types.Ef(types.ErrTransientNetwork, "tts", "status %d", resp.StatusCode)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, types.Ef(types.ErrPermanentRemote, "tts", "status %d: %s", resp.StatusCode, msg)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.E(types.ErrTransientNetwork, "tts", err)
	}
	buf, err := g.decode(ctx, data)
	if err != nil {
		return nil, types.E(types.ErrDecode, "tts", err)
	}
	return buf, nil
}
