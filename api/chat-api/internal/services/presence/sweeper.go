// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package internal_presence_service

import (
	"context"
	"time"

	internal_services "github.com/acasochat/acaso/api/chat-api/internal/services"
	"github.com/acasochat/acaso/pkg/commons"
)

// RunSweeper deletes stale waiting rows every interval until ctx is done.
func RunSweeper(ctx context.Context, logger commons.Logger, presence internal_services.PresenceService, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := presence.Sweep(ctx)
			if err != nil {
				logger.Warnw("presence sweep failed", "error", err)
				continue
			}
			if removed > 0 {
				logger.Infow("stale presence rows removed", "count", removed)
			}
		}
	}
}
