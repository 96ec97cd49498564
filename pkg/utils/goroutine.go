// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package utils

import (
	"context"
	"runtime/debug"

	"github.com/acasochat/acaso/pkg/commons"
)

// Go runs fn in a goroutine unless ctx is already done. A panic in fn is
// recovered and logged.
func Go(ctx context.Context, logger commons.Logger, fn func()) {
	if ctx.Err() != nil {
		return
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Errorw("recovered goroutine panic", "panic", r, "stack", string(debug.Stack()))
			}
		}()
		fn()
	}()
}
