// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package peer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"github.com/pion/webrtc/v4/pkg/media/oggreader"

	"github.com/acasochat/acaso/pkg/commons"
)

type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

const (
	opusSampleRate    = 48000
	oggPageDuration   = 20 * time.Millisecond
	opusTagsSignature = "OpusTags"
)

// MediaOptions points the local tracks at IVF (VP8) and Ogg (Opus) files.
// Either may be empty to leave that kind out.
type MediaOptions struct {
	VideoFile string
	AudioFile string
	Loop      bool
}

type sampleWriter interface {
	WriteSample(media.Sample) error
}

// LocalMedia publishes the local camera and microphone. Here the capture
// devices are files played back in real time.
type LocalMedia struct {
	logger commons.Logger
	opts   MediaOptions
	video  *webrtc.TrackLocalStaticSample
	audio  *webrtc.TrackLocalStaticSample

	mu      sync.Mutex
	enabled map[MediaKind]bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewLocalMedia validates the sources and creates the tracks.
func NewLocalMedia(logger commons.Logger, opts MediaOptions) (*LocalMedia, error) {
	m := &LocalMedia{
		logger:  logger,
		opts:    opts,
		enabled: map[MediaKind]bool{KindAudio: true, KindVideo: true},
	}

	if opts.VideoFile != "" {
		if err := checkIVF(opts.VideoFile); err != nil {
			return nil, err
		}
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8}, "video", "acaso")
		if err != nil {
			return nil, fmt.Errorf("failed to create video track: %w", err)
		}
		m.video = track
	}

	if opts.AudioFile != "" {
		if err := checkOgg(opts.AudioFile); err != nil {
			return nil, err
		}
		track, err := webrtc.NewTrackLocalStaticSample(
			webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: opusSampleRate, Channels: 2},
			"audio", "acaso")
		if err != nil {
			return nil, fmt.Errorf("failed to create audio track: %w", err)
		}
		m.audio = track
	}

	if m.video == nil && m.audio == nil {
		return nil, errors.New("no media source configured")
	}
	return m, nil
}

func (m *LocalMedia) Tracks() []webrtc.TrackLocal {
	var tracks []webrtc.TrackLocal
	if m.video != nil {
		tracks = append(tracks, m.video)
	}
	if m.audio != nil {
		tracks = append(tracks, m.audio)
	}
	return tracks
}

// Start begins pacing samples into the tracks until Stop or ctx ends.
func (m *LocalMedia) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel

	if m.video != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.play(ctx, KindVideo, m.video, playIVF)
		}()
	}
	if m.audio != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.play(ctx, KindAudio, m.audio, playOgg)
		}()
	}
}

// Stop halts playback and waits for the pumps to exit.
func (m *LocalMedia) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	m.wg.Wait()
}

// SetEnabled mutes or unmutes a kind. A disabled kind sends no samples.
func (m *LocalMedia) SetEnabled(kind MediaKind, enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.enabled[kind] = enabled
}

func (m *LocalMedia) Enabled(kind MediaKind) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.enabled[kind]
}

type playFunc func(ctx context.Context, r io.Reader, out sampleWriter, enabled func() bool) error

func (m *LocalMedia) play(ctx context.Context, kind MediaKind, out sampleWriter, fn playFunc) {
	path := m.opts.VideoFile
	if kind == KindAudio {
		path = m.opts.AudioFile
	}
	enabled := func() bool { return m.Enabled(kind) }

	for {
		data, err := os.ReadFile(path)
		if err != nil {
			m.logger.Errorw("failed to read media source", "kind", kind, "path", path, "error", err)
			return
		}
		err = fn(ctx, bytes.NewReader(data), out, enabled)
		switch {
		case ctx.Err() != nil:
			return
		case errors.Is(err, io.EOF) && m.opts.Loop:
			continue
		case errors.Is(err, io.EOF):
			m.logger.Debugw("media source finished", "kind", kind)
			return
		default:
			m.logger.Errorw("media playback stopped", "kind", kind, "error", err)
			return
		}
	}
}

// playIVF paces VP8 frames at the file's timebase. It returns io.EOF at the
// end of the stream.
func playIVF(ctx context.Context, r io.Reader, out sampleWriter, enabled func() bool) error {
	reader, header, err := ivfreader.NewWith(r)
	if err != nil {
		return fmt.Errorf("invalid ivf stream: %w", err)
	}
	frameDuration := time.Duration(float64(header.TimebaseNumerator) / float64(header.TimebaseDenominator) * float64(time.Second))
	if frameDuration <= 0 {
		frameDuration = time.Second / 30
	}

	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		frame, _, err := reader.ParseNextFrame()
		if err != nil {
			return normalizeEOF(err)
		}
		if !enabled() {
			continue
		}
		if err := out.WriteSample(media.Sample{Data: frame, Duration: frameDuration}); err != nil {
			return fmt.Errorf("failed to write video sample: %w", err)
		}
	}
}

// playOgg paces Opus pages using their granule positions.
func playOgg(ctx context.Context, r io.Reader, out sampleWriter, enabled func() bool) error {
	reader, _, err := oggreader.NewWith(r)
	if err != nil {
		return fmt.Errorf("invalid ogg stream: %w", err)
	}

	ticker := time.NewTicker(oggPageDuration)
	defer ticker.Stop()
	var lastGranule uint64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		page, header, err := reader.ParseNextPage()
		if err != nil {
			return normalizeEOF(err)
		}
		if bytes.HasPrefix(page, []byte(opusTagsSignature)) {
			continue
		}

		duration := oggPageDuration
		if header.GranulePosition > lastGranule {
			duration = time.Duration(header.GranulePosition-lastGranule) * time.Second / opusSampleRate
		}
		lastGranule = header.GranulePosition

		if !enabled() {
			continue
		}
		if err := out.WriteSample(media.Sample{Data: page, Duration: duration}); err != nil {
			return fmt.Errorf("failed to write audio sample: %w", err)
		}
	}
}

func normalizeEOF(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}

func checkIVF(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open video source: %w", err)
	}
	defer f.Close()
	_, header, err := ivfreader.NewWith(f)
	if err != nil {
		return fmt.Errorf("invalid video source %s: %w", path, err)
	}
	if header.FourCC != "VP80" {
		return fmt.Errorf("video source %s is %s, only VP8 is supported", path, header.FourCC)
	}
	return nil
}

func checkOgg(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open audio source: %w", err)
	}
	defer f.Close()
	if _, _, err := oggreader.NewWith(f); err != nil {
		return fmt.Errorf("invalid audio source %s: %w", path, err)
	}
	return nil
}
