// Command chat is a terminal client for one Genesis conversation. It polls for new messages,
// refreshes immediately when resumed from the background, and sends each line typed on stdin.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/urfave/cli/v2"

	"github.com/samrogers05/genesis/internal/chat"
	"github.com/samrogers05/genesis/internal/client"
	"github.com/samrogers05/genesis/internal/config"
	"github.com/samrogers05/genesis/internal/logger"
)

func main() {
	app := &cli.App{
		Name:      "chat",
		Usage:     "chat with another researcher",
		ArgsUsage: "OTHER_USER_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Usage: "API base URL (overrides GENESIS_URL)"},
			&cli.DurationFlag{Name: "interval", Usage: "poll interval (overrides CHAT_POLL_INTERVAL)"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	otherUserID := strings.TrimSpace(c.Args().First())
	if otherUserID == "" {
		return cli.Exit("usage: chat OTHER_USER_ID", 2)
	}

	cfg, err := config.LoadClientConfig()
	if err != nil {
		return err
	}
	if c.IsSet("url") {
		cfg.BaseURL = strings.TrimRight(c.String("url"), "/")
	}
	if c.IsSet("interval") {
		cfg.PollInterval = c.Duration("interval")
	}
	slog.SetDefault(logger.New(os.Stderr, cfg))

	userID, err := tokenSubject(cfg.Token)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	apiClient := client.New(cfg.BaseURL, cfg.Token)
	otherName := "User"
	var otherAvatar *string
	if p, err := apiClient.Profile(ctx, otherUserID); err == nil {
		otherName = p.Summary().DisplayName()
		otherAvatar = p.AvatarURL
	} else {
		slog.WarnContext(ctx, "could not load profile", "other_user_id", otherUserID, "error", err)
	}

	out := newTranscript(os.Stdout, userID, otherName, time.Local)
	poller := chat.NewPoller(apiClient, userID, otherUserID,
		chat.WithInterval(cfg.PollInterval),
		chat.WithOtherUser(otherName, otherAvatar),
		chat.OnMessages(out.print),
	)

	// SIGCONT means the process was brought back to the foreground.
	cont := make(chan os.Signal, 1)
	signal.Notify(cont, syscall.SIGCONT)
	defer signal.Stop(cont)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-cont:
				poller.Foreground()
			}
		}
	}()

	go poller.Run(ctx)
	fmt.Fprintf(os.Stderr, "Chatting with %s. Type a message and press enter, /quit to leave.\n", otherName)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok || strings.TrimSpace(line) == "/quit" {
				return nil
			}
			if _, err := poller.Send(ctx, line); err != nil && !errors.Is(err, chat.ErrEmptyMessage) {
				fmt.Fprintf(os.Stderr, "Failed to send message: %v\n", err)
			}
		}
	}
}

// tokenSubject reads the user id from the access token. The server verifies the signature.
func tokenSubject(token string) (string, error) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return "", fmt.Errorf("read GENESIS_TOKEN: %w", err)
	}
	if claims.Subject == "" {
		return "", errors.New("GENESIS_TOKEN has no subject")
	}
	return claims.Subject, nil
}
