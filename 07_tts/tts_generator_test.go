package tts

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"journey-pipeline/audio"
	"journey-pipeline/config"
	"journey-pipeline/types"
)

func testConfig() *config.Config {
	cfg := config.Defaults()
	cfg.TTS.APIKey = "el-test"
	return cfg
}

// stubGenerator wires a Generator to srv with a decoder that turns any
// response body into a fixed-length tone, so no media engine is needed.
func stubGenerator(cfg *config.Config, srv *httptest.Server, chunkMs int) *Generator {
	g := New(cfg, nil)
	g.SetBaseURL(srv.URL)
	g.SetDecode(func(ctx context.Context, data []byte) (*audio.Buffer, error) {
		buf := audio.Silence(chunkMs, audio.MixRate, audio.MixChannels)
		for i := range buf.Samples {
			buf.Samples[i] = 1000
		}
		return buf, nil
	})
	g.SetSleep(func(d time.Duration) {})
	return g
}

func TestRunRetriesTransientStatuses(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "el-test" {
			t.Errorf("missing api key header")
		}
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			w.Write([]byte("mpeg"))
		}
	}))
	defer srv.Close()

	g := stubGenerator(testConfig(), srv, 100)
	var slept []time.Duration
	g.SetSleep(func(d time.Duration) { slept = append(slept, d) })

	buf, err := g.Run(context.Background(), "One line.", "voice-a")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
	if buf.DurationMs() != 100 {
		t.Fatalf("expected the decoded chunk, got %dms", buf.DurationMs())
	}

	// Backoff is base^attempt seconds: 1.5s then 2.25s at the default base.
	if len(slept) != 2 {
		t.Fatalf("expected 2 backoff sleeps, got %d", len(slept))
	}
	if slept[0] != 1500*time.Millisecond || slept[1] != 2250*time.Millisecond {
		t.Fatalf("backoff sequence wrong: %v", slept)
	}
}

func TestRunExhaustsRetryBudget(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	g := stubGenerator(testConfig(), srv, 100)
	_, err := g.Run(context.Background(), "One line.", "voice-a")
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if types.KindOf(err) != types.ErrPermanentRemote {
		t.Fatalf("exhausted budget must surface as permanent, got %v", err)
	}
}

func TestRunPermanentStatusFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	g := stubGenerator(testConfig(), srv, 100)
	_, err := g.Run(context.Background(), "One line.", "voice-a")
	if err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("permanent status must not retry, got %d calls", calls.Load())
	}
	if types.KindOf(err) != types.ErrPermanentRemote {
		t.Fatalf("expected permanent remote error, got %v", err)
	}
}

func TestRunInsertsGaps(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mpeg"))
	}))
	defer srv.Close()

	cfg := testConfig()
	g := stubGenerator(cfg, srv, 100)

	// Two blocks of one chunk each: chunk + block gap + chunk.
	buf, err := g.Run(context.Background(), "First line. [pause] Second line.", "voice-a")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := 100 + cfg.TTS.BlockGapMs + 100
	if buf.DurationMs() != want {
		t.Fatalf("expected %dms with a block gap, got %dms", want, buf.DurationMs())
	}

	// The gap must actually be silent.
	gapStart := audio.MixRate * 150 / 1000 * audio.MixChannels
	gapEnd := audio.MixRate * (100 + cfg.TTS.BlockGapMs) / 1000 * audio.MixChannels
	if rms := buf.RMSDB(gapStart, gapEnd); rms != -120 {
		t.Fatalf("block gap is not silent: %f dB", rms)
	}
}

func TestRunEmptyScriptYieldsSilence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for an empty script")
	}))
	defer srv.Close()

	g := stubGenerator(testConfig(), srv, 100)
	buf, err := g.Run(context.Background(), "  [pause]  ", "voice-a")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if buf.DurationMs() != 1000 {
		t.Fatalf("expected 1000ms of silence, got %dms", buf.DurationMs())
	}
	if rms := buf.RMSDB(0, len(buf.Samples)); rms != -120 {
		t.Fatalf("expected silence, got %f dB", rms)
	}
}
