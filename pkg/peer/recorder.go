// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package peer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media/ivfwriter"
	"github.com/pion/webrtc/v4/pkg/media/oggwriter"
)

type rtpRecorder interface {
	WriteRTP(*rtp.Packet) error
	Close() error
}

// openRecorder returns a writer for the codec, or nil when the codec cannot
// be stored.
func openRecorder(dir, name, mimeType string) (rtpRecorder, string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create record dir: %w", err)
	}

	switch {
	case strings.EqualFold(mimeType, webrtc.MimeTypeVP8):
		path := filepath.Join(dir, name+".ivf")
		w, err := ivfwriter.New(path, ivfwriter.WithCodec(webrtc.MimeTypeVP8))
		if err != nil {
			return nil, "", fmt.Errorf("failed to open %s: %w", path, err)
		}
		return w, path, nil
	case strings.EqualFold(mimeType, webrtc.MimeTypeOpus):
		path := filepath.Join(dir, name+".ogg")
		w, err := oggwriter.New(path, opusSampleRate, 2)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open %s: %w", path, err)
		}
		return w, path, nil
	}
	return nil, "", nil
}

// consume reads a remote track until it ends, writing it to RecordDir when
// recording is on.
func (p *Peer) consume(c *Call, track *webrtc.TrackRemote) {
	var recorder rtpRecorder
	if p.cfg.RecordDir != "" {
		name := fmt.Sprintf("%s-%s-%s", c.remoteID, c.id, track.Kind().String())
		rec, path, err := openRecorder(p.cfg.RecordDir, name, track.Codec().MimeType)
		if err != nil {
			p.logger.Warnw("recording disabled for track", "call", c.id, "error", err)
		} else if rec != nil {
			recorder = rec
			p.logger.Infow("recording remote track", "call", c.id, "path", path)
			defer func() {
				if err := recorder.Close(); err != nil {
					p.logger.Warnw("failed to finalize recording", "path", path, "error", err)
				}
			}()
		}
	}

	buf := make([]byte, rtpBufferSize)
	for {
		n, _, err := track.Read(buf)
		if err != nil {
			p.logger.Debugw("remote track ended", "call", c.id, "kind", track.Kind().String(), "error", err)
			return
		}
		if recorder == nil {
			continue
		}
		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			continue
		}
		if err := recorder.WriteRTP(pkt); err != nil {
			p.logger.Debugw("failed to record packet", "call", c.id, "error", err)
		}
	}
}
