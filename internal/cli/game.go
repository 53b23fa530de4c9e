package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/mcoot/numerus/internal/model"
	"github.com/mcoot/numerus/internal/services/numeral"
	"github.com/mcoot/numerus/internal/services/session"
)

// logLines is how many log entries a frame shows
const logLines = 8

const helpText = `Type a letter (I V X L C D M) to play it on your turn.
  /bot      add a bot
  /restart  start a new round
  /exit     leave the game and forget it
  /quit     stop playing, keep the game
  /help     show this help`

// Game is the interactive terminal view of a session
type Game struct {
	sess *session.Session
	in   *bufio.Reader
	out  io.Writer
	now  func() time.Time

	last string
}

// NewGame creates a Game reading commands from in and drawing to out
func NewGame(sess *session.Session, in *bufio.Reader, out io.Writer) *Game {
	return &Game{sess: sess, in: in, out: out, now: time.Now}
}

// Run draws the game and handles input until the user quits, input ends or ctx is done
func (g *Game) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	lines := g.readLines(done)

	interval := g.sess.RedrawInterval()
	if interval <= 0 {
		interval = 150 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	_, _ = fmt.Fprintln(g.out, "Type /help for commands.")
	g.render()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-g.sess.Updates():
			g.render()
		case <-ticker.C:
			if g.sess.NeedsRedraw() {
				g.render()
			}
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := g.handle(ctx, line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
			g.render()
		}
	}
}

func (g *Game) readLines(done <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		for {
			line, err := g.in.ReadString('\n')
			if line != "" {
				select {
				case lines <- line:
				case <-done:
					return
				}
			}
			if err != nil {
				return
			}
		}
	}()
	return lines
}

// handle runs one line of input and reports whether the game view should close
func (g *Game) handle(ctx context.Context, line string) (bool, error) {
	input := strings.TrimSpace(line)
	switch input {
	case "":
		return false, nil
	case "/quit":
		return true, nil
	case "/exit":
		if err := g.sess.Exit(ctx); err != nil {
			return true, err
		}
		g.say("You left the game.")
		return true, nil
	case "/help":
		g.say(helpText)
		return false, nil
	case "/bot":
		bot, err := g.sess.AddBot(ctx)
		switch {
		case err != nil:
			g.say(err.Error())
		case bot == nil:
			g.say("No more bots can join.")
		}
		return false, nil
	case "/restart":
		if err := g.sess.Restart(ctx); err != nil {
			g.say(err.Error())
		}
		return false, nil
	}

	if strings.HasPrefix(input, "/") || utf8.RuneCountInString(input) != 1 {
		g.say(fmt.Sprintf("Unknown command %q. Type /help.", input))
		return false, nil
	}

	played, err := g.sess.SubmitLetter(ctx, input)
	switch {
	case errors.Is(err, model.ErrInvalidLetter):
		g.say(fmt.Sprintf("%s is not a Roman numeral letter.", strings.ToUpper(input)))
	case errors.Is(err, model.ErrNotEnoughPlayers):
		g.say("Waiting for another player to join.")
	case err != nil:
		g.say(err.Error())
	case !played:
		g.say("Not your turn.")
	}
	return false, nil
}

func (g *Game) say(msg string) {
	_, _ = fmt.Fprintln(g.out, msg)
	g.last = ""
}

// render draws the frame when it differs from the last one drawn
func (g *Game) render() {
	frame := g.frame()
	if frame == g.last {
		return
	}
	g.last = frame
	_, _ = fmt.Fprint(g.out, frame)
}

func (g *Game) frame() string {
	var b strings.Builder

	switch g.sess.Screen() {
	case session.ScreenReconnecting:
		return "Reconnecting...\n"
	case session.ScreenHome:
		return "You are not in a game.\n"
	}

	state := g.sess.State()
	fmt.Fprintf(&b, "\n== Room %s (%s) ==\n", state.Code, state.Difficulty)
	fmt.Fprintf(&b, "Number: %d", state.CurrentNumber)
	if state.ShowHints {
		fmt.Fprintf(&b, "  Hint: %s", numeral.ToRoman(state.CurrentNumber))
	}
	fmt.Fprintf(&b, "\nSo far: %s\n", orDash(state.Partial))

	current := state.CurrentPlayer()
	b.WriteString("Players:\n")
	for _, p := range state.Players {
		marker := " "
		if current != nil && current.ID == p.ID {
			marker = ">"
		}
		tags := ""
		if p.IsLocalUser {
			tags += " (you)"
		}
		if p.IsBot {
			tags += " (bot)"
		}
		fmt.Fprintf(&b, " %s %s%s: %d\n", marker, p.Name, tags, p.Score)
	}

	msgs := g.sess.VisibleMessages(g.now())
	if len(msgs) > logLines {
		msgs = msgs[len(msgs)-logLines:]
	}
	if len(msgs) > 0 {
		b.WriteString("Log:\n")
	}
	for _, m := range msgs {
		prefix := "  "
		if m.Vanishing {
			prefix = "~ "
		}
		fmt.Fprintf(&b, "%s%s\n", prefix, formatMessage(m.Message))
	}

	switch {
	case state.IsOver():
		b.WriteString("Round over. Type /restart to play again.\n")
	case current == nil:
		b.WriteString("Waiting for players.\n")
	case current.IsLocalUser:
		b.WriteString("Your turn. Type a letter.\n")
	default:
		fmt.Fprintf(&b, "Waiting for %s.\n", current.Name)
	}
	return b.String()
}

func formatMessage(m model.Message) string {
	switch m.Kind {
	case model.MessageKindPlay:
		return fmt.Sprintf("%s: %s", m.PlayerName, m.Text)
	case model.MessageKindError:
		return "! " + m.Text
	default:
		return m.Text
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
