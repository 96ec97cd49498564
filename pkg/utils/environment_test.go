package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvironmentStr_GinModeSelection(t *testing.T) {
	for name, tc := range map[string]struct {
		env  string
		want Environment
	}{
		"lower case production": {env: "production", want: PRODUCTION},
		"mixed case production": {env: "Production", want: PRODUCTION},
		"staging falls back":    {env: "staging", want: DEVELOPMENT},
		"unset falls back":      {env: "", want: DEVELOPMENT},
	} {
		t.Run(name, func(t *testing.T) {
			got := FromEnvironmentStr(tc.env)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, string(tc.want), got.Get())
		})
	}
}
