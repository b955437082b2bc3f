// Package media writes remote tracks to disk.
package media

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/BioHazard786/rtcstreamer/internal/utils"
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/h264writer"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

// ErrUnsupportedCodec is returned for tracks no writer handles.
var ErrUnsupportedCodec = errors.New("unsupported codec")

type rtpSource interface {
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// Recorder saves VP8 to IVF, H264 to Annex-B and Opus to Ogg. Other tracks
// are read and discarded so their receivers don't stall.
type Recorder struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	files   []string
	writers []media.Writer
	wg      sync.WaitGroup
}

func NewRecorder(dir string, logger *slog.Logger) (*Recorder, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create record dir: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{dir: dir, logger: logger}, nil
}

// HandleTrack matches the streamer client's OnTrack signature.
func (r *Recorder) HandleTrack(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
	mime := track.Codec().MimeType
	name := fmt.Sprintf("%s-%s", track.Kind().String(), sanitize(track.ID()))

	w, path, err := r.open(mime, name)
	if err != nil {
		r.logger.Warn("not recording track", "kind", track.Kind().String(), "codec", mime, "err", err)
		r.start(track, nil)
		return
	}
	r.logger.Info("recording track", "codec", mime, "file", path)
	r.start(track, w)
}

func (r *Recorder) open(mime, name string) (media.Writer, string, error) {
	var (
		w    media.Writer
		path string
		err  error
	)
	switch {
	case strings.EqualFold(mime, webrtc.MimeTypeVP8):
		path = utils.GetUniqueFilename(filepath.Join(r.dir, name+".ivf"))
		w, err = ivfwriter.New(path)
	case strings.EqualFold(mime, webrtc.MimeTypeH264):
		path = utils.GetUniqueFilename(filepath.Join(r.dir, name+".h264"))
		w, err = h264writer.New(path)
	case strings.EqualFold(mime, webrtc.MimeTypeOpus):
		path = utils.GetUniqueFilename(filepath.Join(r.dir, name+".ogg"))
		w, err = oggwriter.New(path, 48000, 2)
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedCodec, mime)
	}
	if err != nil {
		return nil, "", err
	}

	r.mu.Lock()
	r.files = append(r.files, path)
	r.writers = append(r.writers, w)
	r.mu.Unlock()
	return w, path, nil
}

// start copies packets from src into w until src ends. A nil w discards.
func (r *Recorder) start(src rtpSource, w media.Writer) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for {
			pkt, _, err := src.ReadRTP()
			if err != nil {
				if !errors.Is(err, io.EOF) {
					r.logger.Debug("track read ended", "err", err)
				}
				return
			}
			if w == nil {
				continue
			}
			if err := w.WriteRTP(pkt); err != nil {
				r.logger.Warn("write RTP failed", "err", err)
				return
			}
		}
	}()
}

// Files lists the paths being written.
func (r *Recorder) Files() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.files...)
}

// Close waits for every track to end, then closes the writers. Close the
// peer connection first so reads return.
func (r *Recorder) Close() error {
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, w := range r.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.writers = nil
	return errors.Join(errs...)
}

func sanitize(s string) string {
	if s == "" {
		return "track"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
