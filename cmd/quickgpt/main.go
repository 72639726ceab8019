// Command quickgpt is a terminal client for the QuickGPT API.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"

	"quickgpt/backend/internal/client"
	"quickgpt/backend/internal/model"
	"quickgpt/backend/internal/session"
)

const help = `Commands:
  <text>            send a text prompt to the active chat
  /image <prompt>   generate an image in the active chat
  /new              create a chat and select it
  /list             list chats
  /select <n>       select chat n from /list
  /delete <n>       delete chat n from /list
  /search <query>   list chats whose first message matches
  /show             print the active chat
  /logout           sign out and exit
  /help             show this help`

var (
	info    = color.New(color.FgCyan)
	success = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	fail    = color.New(color.FgRed)
	you     = color.New(color.FgBlue, color.Bold)
	bot     = color.New(color.FgMagenta, color.Bold)
)

func main() {
	addr := flag.String("addr", "http://localhost:5000", "QuickGPT server address")
	email := flag.String("email", "", "account email")
	password := flag.String("password", "", "account password")
	name := flag.String("name", "", "display name, required with -register")
	register := flag.Bool("register", false, "create the account before signing in")
	timeout := flag.Duration("timeout", 2*time.Minute, "per-request timeout")
	flag.Parse()

	if *email == "" || *password == "" {
		fail.Fprintln(os.Stderr, "-email and -password are required")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s := session.New(client.New(*addr, &http.Client{Timeout: *timeout}))
	if err := signIn(ctx, s, *register, *name, *email, *password); err != nil {
		fail.Printf("Sign in failed: %v\n", err)
		os.Exit(1)
	}
	if err := s.Bootstrap(ctx); err != nil {
		fail.Printf("Could not load chats: %v\n", err)
		os.Exit(1)
	}
	success.Printf("Signed in as %s. Type /help for commands.\n", s.User().Name)
	printChats(s.Chats(), s.Active())

	scanner := bufio.NewScanner(os.Stdin)
	for {
		you.Print("> ")
		if !scanner.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if quit := run(ctx, s, line); quit {
			return
		}
	}
}

func signIn(ctx context.Context, s *session.Session, register bool, name, email, password string) error {
	if register {
		if err := s.Register(ctx, name, email, password); err != nil {
			return err
		}
	} else if err := s.Login(ctx, email, password); err != nil {
		return err
	}
	_, err := s.LoadUser(ctx)
	return err
}

// run executes one input line and reports whether the client should exit.
func run(ctx context.Context, s *session.Session, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/help":
		fmt.Println(help)
	case "/new":
		report(s.NewChat(ctx))
		printChats(s.Chats(), s.Active())
	case "/list":
		printChats(s.Chats(), s.Active())
	case "/search":
		printChats(s.Filter(arg), s.Active())
	case "/select", "/delete":
		chat, ok := pick(s.Chats(), arg)
		if !ok {
			warn.Println("Unknown chat number, see /list")
			return false
		}
		if cmd == "/select" {
			report(s.Select(chat.ID))
			printMessages(s.Active())
		} else {
			report(s.DeleteChat(ctx, chat.ID))
			printChats(s.Chats(), s.Active())
		}
	case "/show":
		printMessages(s.Active())
	case "/image":
		send(ctx, s, model.ModeImage, arg)
	case "/logout":
		s.Logout()
		success.Println("Signed out.")
		return true
	default:
		if strings.HasPrefix(cmd, "/") {
			warn.Printf("Unknown command %s, see /help\n", cmd)
			return false
		}
		send(ctx, s, model.ModeText, line)
	}
	return false
}

func send(ctx context.Context, s *session.Session, mode model.Mode, prompt string) {
	if prompt == "" {
		warn.Println("Prompt is empty")
		return
	}
	reply, err := s.Send(ctx, mode, prompt)
	if errors.Is(err, session.ErrNoActiveChat) {
		warn.Println("No chat selected, use /new or /select")
		return
	}
	if err != nil {
		fail.Printf("%v\n", err)
		return
	}
	printMessage(*reply)
}

func pick(chats []*model.Chat, arg string) (*model.Chat, bool) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 || n > len(chats) {
		return nil, false
	}
	return chats[n-1], true
}

func report(err error) {
	if err != nil {
		fail.Printf("%v\n", err)
	}
}

func printChats(chats []*model.Chat, active *model.Chat) {
	if len(chats) == 0 {
		info.Println("No chats.")
		return
	}
	for i, c := range chats {
		marker := " "
		if active != nil && c.ID == active.ID {
			marker = "*"
		}
		title := c.Name
		if len(c.Messages) > 0 {
			title = c.Messages[0].Content
		}
		if len(title) > 40 {
			title = title[:40] + "..."
		}
		info.Printf("%s %2d. %s  (%s)\n", marker, i+1, title, c.UpdatedAt.Local().Format(time.DateTime))
	}
}

func printMessages(chat *model.Chat) {
	if chat == nil {
		warn.Println("No chat selected")
		return
	}
	for _, m := range chat.Messages {
		printMessage(m)
	}
}

func printMessage(m model.Message) {
	label := you
	if m.Role == model.RoleAssistant {
		label = bot
	}
	label.Printf("%s: ", m.Role)
	if m.IsImage {
		fmt.Printf("[image] %s\n", m.Content)
		return
	}
	fmt.Println(m.Content)
}
