// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	chat_client "github.com/acasochat/acaso/pkg/clients/chat"
	"github.com/acasochat/acaso/pkg/commons"
	"github.com/acasochat/acaso/pkg/peer"
	"github.com/acasochat/acaso/pkg/session"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	opts := []commons.Option{commons.Level(cfg.LogLevel), commons.Name("chat-client")}
	if cfg.LogPath != "" {
		opts = append(opts, commons.EnableFile(cfg.LogPath))
	}
	logger, err := commons.NewApplicationLogger(opts...)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	out := &console{w: os.Stdout}
	if err := run(ctx, cfg, logger, os.Stdin, out); err != nil {
		out.printf("erro: %v\n", err)
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *ClientConfig, logger commons.Logger, in io.Reader, out *console) error {
	var tokens chat_client.TokenStore
	if cfg.TokenFile != "" {
		tokens = chat_client.NewFileTokenStore(cfg.TokenFile)
	}
	client := chat_client.NewChatClient(logger, cfg.Server, cfg.Timeout, tokens)

	user, err := signIn(ctx, cfg, client)
	if err != nil {
		return err
	}
	out.printf("conectado como %s (%s)\n", user.Username, user.Email)

	var local *peer.LocalMedia
	sess := session.New(logger, session.Dependencies{
		Matchmaker: client,
		Reporter:   client,
		Auth:       client,
		OpenMedia: func(ctx context.Context) (session.Media, error) {
			m, err := peer.NewLocalMedia(logger, peer.MediaOptions{
				VideoFile: cfg.Video,
				AudioFile: cfg.Audio,
				Loop:      cfg.Loop,
			})
			if err != nil {
				return nil, err
			}
			m.Start(ctx)
			local = m
			return m, nil
		},
		NewEngine: func() (session.Engine, error) {
			p, err := peer.New(cfg.peerConfig(client.Token()), logger, local)
			if err != nil {
				return nil, err
			}
			return session.NewPeerEngine(p), nil
		},
	}, session.DefaultOptions())

	sess.OnChange(out.state)
	if cfg.Grid {
		sess.ToggleGrid()
	}
	defer sess.Shutdown(context.Background())

	if err := sess.Start(ctx); err != nil {
		return err
	}
	return repl(ctx, sess, in, out)
}

// signIn restores the stored session or logs in with the configured
// credentials.
func signIn(ctx context.Context, cfg *ClientConfig, client chat_client.ChatClient) (*chat_client.User, error) {
	user, err := client.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return user, nil
	}
	if cfg.Email == "" || cfg.Password == "" {
		return nil, errors.New("no stored session, pass --email and --password")
	}

	var s *chat_client.Session
	if cfg.Signup {
		s, err = client.Signup(ctx, cfg.Email, cfg.Password, cfg.Username)
	} else {
		s, err = client.Login(ctx, cfg.Email, cfg.Password)
	}
	if err != nil {
		return nil, err
	}
	return s.User, nil
}

// controller is what the prompt drives.
type controller interface {
	Skip()
	ToggleGrid()
	ToggleTrack(kind peer.MediaKind)
	SetFilter(id string) error
	SetAudioFilter(id string) error
	Report(ctx context.Context, reason, peerID string) error
	Logout(ctx context.Context) error
	State() session.ChatState
}

func repl(ctx context.Context, c controller, in io.Reader, out *console) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	out.printf("comandos: skip, grid, audio, video, filter <id>, afilter <id>, report <motivo>, status, logout, quit\n")
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := execute(ctx, c, line, out)
			if err != nil {
				out.printf("erro: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func execute(ctx context.Context, c controller, line string, out *console) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	arg := func(i int) string {
		if len(fields) > i {
			return fields[i]
		}
		return ""
	}

	switch strings.ToLower(fields[0]) {
	case "skip", "next":
		c.Skip()
	case "grid":
		c.ToggleGrid()
	case "audio":
		c.ToggleTrack(peer.KindAudio)
	case "video":
		c.ToggleTrack(peer.KindVideo)
	case "filter":
		return false, c.SetFilter(arg(1))
	case "afilter":
		return false, c.SetAudioFilter(arg(1))
	case "report":
		return false, c.Report(ctx, arg(1), arg(2))
	case "status":
		out.state(c.State())
	case "logout":
		return true, c.Logout(ctx)
	case "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("comando desconhecido: %s", fields[0])
	}
	return false, nil
}

type console struct {
	mu sync.Mutex
	w  io.Writer
}

func (c *console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.w, format, args...)
}

func (c *console) state(st session.ChatState) {
	line := fmt.Sprintf("[%s]", st.Status)
	if len(st.Partners) > 0 {
		line += " parceiros: " + strings.Join(st.Partners, ", ")
	}
	if st.PartnerLocation != "" {
		line += " (" + st.PartnerLocation + ")"
	}
	if st.ErrorMessage != "" {
		line += " " + st.ErrorMessage
	}
	line += fmt.Sprintf(" audio=%t video=%t filtro=%s/%s grade=%t",
		st.IsAudioEnabled, st.IsVideoEnabled, st.ActiveFilter, st.ActiveAudioFilter, st.Grid4x)
	c.printf("%s\n", line)
}
