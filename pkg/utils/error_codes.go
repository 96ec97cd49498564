// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package utils

// Error codes carried in ErrorBody.Code. Clients branch on these, never on
// the message.
const (
	CODE_BAD_REQUEST           = "bad_request"
	CODE_UNAUTHENTICATED       = "unauthenticated"
	CODE_INVALID_CREDENTIALS   = "invalid_credentials"
	CODE_EMAIL_NOT_CONFIRMED   = "email_not_confirmed"
	CODE_CONFIRMATION_REQUIRED = "confirmation_required"
	CODE_WEAK_PASSWORD         = "weak_password"
	CODE_INVALID_STATUS        = "invalid_status"
	CODE_REGISTRY_UNAVAILABLE  = "registry_unavailable"
	CODE_INVALID_REASON        = "invalid_reason"
	CODE_UNKNOWN_PEER          = "unknown_peer"
	CODE_SELF_REPORT           = "self_report"
	CODE_INTERNAL              = "internal"
)
