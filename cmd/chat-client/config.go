// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/acasochat/acaso/pkg/peer"
)

type ClientConfig struct {
	Server    string        `mapstructure:"server" validate:"required,url"`
	Timeout   time.Duration `mapstructure:"timeout" validate:"required"`
	TokenFile string        `mapstructure:"token_file"`
	LogLevel  string        `mapstructure:"log_level" validate:"required"`
	LogPath   string        `mapstructure:"log_path"`

	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	Username string `mapstructure:"username"`
	Signup   bool   `mapstructure:"signup"`

	Video     string `mapstructure:"video"`
	Audio     string `mapstructure:"audio"`
	Loop      bool   `mapstructure:"loop"`
	RecordDir string `mapstructure:"record_dir"`
	Grid      bool   `mapstructure:"grid"`

	ICEServers     []string `mapstructure:"ice_servers"`
	ICEPolicy      string   `mapstructure:"ice_policy" validate:"oneof=all relay"`
	TurnUsername   string   `mapstructure:"turn_username"`
	TurnCredential string   `mapstructure:"turn_credential"`
}

// flag name to config key
var flagKeys = map[string]string{
	"server":          "server",
	"timeout":         "timeout",
	"token-file":      "token_file",
	"log-level":       "log_level",
	"log-path":        "log_path",
	"email":           "email",
	"password":        "password",
	"username":        "username",
	"signup":          "signup",
	"video":           "video",
	"audio":           "audio",
	"loop":            "loop",
	"record-dir":      "record_dir",
	"grid":            "grid",
	"ice-server":      "ice_servers",
	"ice-policy":      "ice_policy",
	"turn-username":   "turn_username",
	"turn-credential": "turn_credential",
}

func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("chat-client", pflag.ContinueOnError)
	fs.String("server", "http://localhost:9090", "chat-api base url")
	fs.Duration("timeout", 10*time.Second, "http request timeout")
	fs.String("token-file", defaultTokenFile(), "where the session token is kept between runs")
	fs.String("log-level", "info", "log level")
	fs.String("log-path", "", "log file, stdout when empty")

	fs.String("email", "", "account email, needed when there is no stored session")
	fs.String("password", "", "account password")
	fs.String("username", "", "display name used on signup")
	fs.Bool("signup", false, "create the account instead of logging in")

	fs.String("video", "", "IVF (VP8) file used as the camera")
	fs.String("audio", "", "Ogg (Opus) file used as the microphone")
	fs.Bool("loop", true, "restart media files when they end")
	fs.String("record-dir", "", "record partners' media into this directory")
	fs.Bool("grid", false, "start in the four-way grid layout")

	defaults := make([]string, 0, 5)
	for _, srv := range peer.DefaultICEServers() {
		defaults = append(defaults, srv.URLs...)
	}
	fs.StringSlice("ice-server", defaults, "STUN/TURN server urls")
	fs.String("ice-policy", "all", "ICE transport policy: all or relay")
	fs.String("turn-username", "", "username for turn: servers")
	fs.String("turn-credential", "", "credential for turn: servers")
	return fs
}

// loadConfig reads flags, then ACASO_* environment variables for anything
// not given on the command line.
func loadConfig(args []string) (*ClientConfig, error) {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.NewWithOptions(viper.KeyDelimiter("__"))
	v.SetEnvPrefix("acaso")
	v.AutomaticEnv()
	for name, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(name)); err != nil {
			return nil, fmt.Errorf("failed to bind flag %s: %w", name, err)
		}
	}

	var cfg ClientConfig
	err := v.Unmarshal(&cfg, viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)))
	if err != nil {
		return nil, err
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *ClientConfig) peerConfig(token string) peer.Config {
	pc := peer.DefaultConfig()
	pc.ServerURL = cfg.Server
	pc.Token = token
	pc.ICETransportPolicy = cfg.ICEPolicy
	pc.RecordDir = cfg.RecordDir
	pc.ICEServers = make([]peer.ICEServer, 0, len(cfg.ICEServers))
	for _, u := range cfg.ICEServers {
		srv := peer.ICEServer{URLs: []string{u}}
		if strings.HasPrefix(u, "turn") {
			srv.Username = cfg.TurnUsername
			srv.Credential = cfg.TurnCredential
		}
		pc.ICEServers = append(pc.ICEServers, srv)
	}
	return pc
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".acaso-token"
	}
	return filepath.Join(dir, "acaso", "token")
}
