// Package deepgram recognizes speech in recorded narration through
// Deepgram's live transcription websocket.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"reviewcap/internal/domain"
	"reviewcap/internal/ports"
)

const (
	sampleRate = 16000
	channels   = 1
	chunkSize  = 8192
)

// Config controls Deepgram websocket settings.
type Config struct {
	APIKey      string
	APIBaseURL  string
	Model       string
	Language    string
	SmartFormat bool
}

// Recognizer implements ports.SpeechRecognizer by streaming decoded PCM.
type Recognizer struct {
	cfg     Config
	decoder ports.PCMDecoder
	dialer  *websocket.Dialer
}

func NewRecognizer(cfg Config, decoder ports.PCMDecoder) *Recognizer {
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://api.deepgram.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "nova-2"
	}
	return &Recognizer{cfg: cfg, decoder: decoder, dialer: websocket.DefaultDialer}
}

// Recognize returns the final results for audioPath, with times in seconds
// from the start of the file.
func (r *Recognizer) Recognize(ctx context.Context, audioPath string) ([]domain.SpeechSegment, error) {
	if strings.TrimSpace(r.cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: DEEPGRAM_API_KEY is not configured", domain.ErrAuthorizationDenied)
	}

	wsURL, err := buildListenURL(r.cfg)
	if err != nil {
		return nil, err
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+r.cfg.APIKey)

	conn, resp, err := r.dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return nil, fmt.Errorf("%w: deepgram rejected credentials (HTTP %d)", domain.ErrAuthorizationDenied, resp.StatusCode)
		}
		return nil, fmt.Errorf("failed to connect to Deepgram websocket: %w", err)
	}
	defer conn.Close()

	pcm, err := r.decoder.Decode(ctx, audioPath, sampleRate, channels)
	if err != nil {
		return nil, err
	}
	defer pcm.Close()

	g, gctx := errgroup.WithContext(ctx)
	stop := context.AfterFunc(gctx, func() { _ = conn.Close() })
	defer stop()

	var segments []domain.SpeechSegment
	g.Go(func() error { return send(conn, pcm) })
	g.Go(func() error {
		var err error
		segments, err = receive(conn)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return segments, nil
}

// send streams pcm as binary frames and then asks the server to flush.
func send(conn *websocket.Conn, pcm io.Reader) error {
	buf := make([]byte, chunkSize)
	for {
		n, err := pcm.Read(buf)
		if n > 0 {
			if werr := conn.WriteMessage(websocket.BinaryMessage, buf[:n]); werr != nil {
				return fmt.Errorf("failed to send audio: %w", werr)
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`)); err != nil {
		return fmt.Errorf("failed to close stream: %w", err)
	}
	return nil
}

// receive collects final results until the server closes the stream.
func receive(conn *websocket.Conn) ([]domain.SpeechSegment, error) {
	var segments []domain.SpeechSegment
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseNoStatusReceived,
			) {
				return segments, nil
			}
			return nil, fmt.Errorf("failed to read provider event: %w", err)
		}

		var response liveResponse
		if err := json.Unmarshal(payload, &response); err != nil {
			continue
		}

		if strings.EqualFold(response.Type, "Error") {
			return nil, errors.New(response.errorMessage())
		}
		if !response.IsFinal {
			continue
		}
		text := response.transcript()
		if text == "" {
			continue
		}
		segments = append(segments, domain.SpeechSegment{
			Start: response.Start,
			End:   response.Start + response.Duration,
			Text:  text,
		})
	}
}

type liveResponse struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Description string  `json:"description"`
	IsFinal     bool    `json:"is_final"`
	Start       float64 `json:"start"`
	Duration    float64 `json:"duration"`

	Channel struct {
		Alternatives []struct {
			Transcript string `json:"transcript"`
		} `json:"alternatives"`
	} `json:"channel"`
}

func (r liveResponse) transcript() string {
	if len(r.Channel.Alternatives) == 0 {
		return ""
	}
	return strings.TrimSpace(r.Channel.Alternatives[0].Transcript)
}

func (r liveResponse) errorMessage() string {
	for _, msg := range []string{r.Description, r.Message} {
		if msg = strings.TrimSpace(msg); msg != "" {
			return "deepgram: " + msg
		}
	}
	return "deepgram returned an unknown error"
}

func buildListenURL(cfg Config) (string, error) {
	base := strings.TrimSpace(cfg.APIBaseURL)
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	base = strings.TrimRight(base, "/")

	listenURL, err := url.Parse(base + "/listen")
	if err != nil {
		return "", fmt.Errorf("invalid Deepgram API base URL: %w", err)
	}

	query := listenURL.Query()
	query.Set("model", cfg.Model)
	query.Set("encoding", "linear16")
	query.Set("sample_rate", fmt.Sprintf("%d", sampleRate))
	query.Set("channels", fmt.Sprintf("%d", channels))
	query.Set("interim_results", "false")
	query.Set("punctuate", "true")
	query.Set("smart_format", fmt.Sprintf("%t", cfg.SmartFormat))
	if cfg.Language != "" {
		query.Set("language", cfg.Language)
	}
	listenURL.RawQuery = query.Encode()
	return listenURL.String(), nil
}
