// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package utils

const (
	HEADER_AUTH_KEY = "Authorization"
	// browsers cannot set headers on a websocket upgrade, the signaling
	// endpoint reads the token from the query instead
	QUERY_TOKEN_KEY   = "token"
	HEADER_REQUEST_ID = "X-Request-Id"
	BEARER_PREFIX     = "Bearer "
)
