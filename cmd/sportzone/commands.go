// ABOUTME: Command table shared by one-shot invocations and the shell
// ABOUTME: Each command parses its own arguments and prints to the cli writer

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/2389/sportzone/internal/ai"
	"github.com/2389/sportzone/internal/app"
	"github.com/2389/sportzone/internal/conversation"
	"github.com/2389/sportzone/internal/facility"
	"github.com/2389/sportzone/internal/userstate"
)

// cli carries the app and the terminal streams commands use.
type cli struct {
	app *app.App
	in  *bufio.Reader
	out io.Writer

	// waitForReplies makes send block until the simulated answer arrives,
	// since a one-shot process would otherwise exit first.
	waitForReplies bool
}

func newCLI(a *app.App, in io.Reader, out io.Writer) *cli {
	return &cli{app: a, in: bufio.NewReader(in), out: out}
}

type command struct {
	usage   string
	help    string
	minArgs int
	run     func(ctx context.Context, c *cli, args []string) error
}

var (
	tableOnce sync.Once
	table     map[string]command
)

func commandTable() map[string]command {
	tableOnce.Do(func() {
		table = map[string]command{
			"register":      {"register ID", "Create an account and log in", 1, runRegister},
			"login":         {"login ID", "Log in", 1, runLogin},
			"logout":        {"logout", "Log out", 0, runLogout},
			"whoami":        {"whoami", "Show the current user", 0, runWhoami},
			"friends":       {"friends [add|accept ID]", "List or manage friends", 0, runFriends},
			"send":          {"send PEER TEXT", "Send a direct message", 2, runSend},
			"messages":      {"messages PEER", "Show a conversation and mark it read", 1, runMessages},
			"conversations": {"conversations", "List conversations with accepted friends", 0, runConversations},
			"react":         {"react PEER MSGID EMOJI", "Toggle a reaction (emoji or 1-6)", 3, runReact},
			"edit":          {"edit PEER MSGID TEXT", "Edit a recent message you sent", 3, runEdit},
			"read":          {"read PEER", "Mark a conversation read", 1, runRead},
			"favorite":      {"favorite ID", "Toggle a favorite complex", 1, runFavorite},
			"complexes":     {"complexes [--sport S] [--q Q]", "List sport complexes", 0, runComplexes},
			"book":          {"book ID TIME", "Book a time slot", 2, runBook},
			"review":        {"review ID RATING COMMENT", "Review a complex", 3, runReview},
			"summary":       {"summary ID [--html]", "Summarize the reviews of a complex", 1, runSummary},
			"chat":          {"chat ID [post TEXT|edit MSGID TEXT|delete MSGID]", "Use a complex chat room", 1, runChat},
			"ticket":        {"ticket ID", "Send a support ticket", 1, runTicket},
			"suggest":       {"suggest", "Personalized complex suggestions", 0, runSuggest},
			"team":          {"team [--html] SPORT TIME MESSAGE", "Write a find-teammates post", 3, runTeam},
		}
	})
	return table
}

func commandNames() []string {
	names := make([]string, 0, len(commandTable()))
	for name := range commandTable() {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// run dispatches args[0] with the remaining arguments.
func (c *cli) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return nil
	}
	cmd, ok := commandTable()[args[0]]
	if !ok {
		return fmt.Errorf("unknown command %q, type 'help' for a list", args[0])
	}
	if len(args)-1 < cmd.minArgs {
		return fmt.Errorf("usage: %s", cmd.usage)
	}
	return cmd.run(ctx, c, args[1:])
}

func (c *cli) printf(format string, a ...any) {
	fmt.Fprintf(c.out, format, a...)
}

// ask prompts for one line of input.
func (c *cli) ask(question string) string {
	c.printf("%s: ", question)
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

// secret returns SPORTZONE_SECRET or prompts for it.
func (c *cli) secret() string {
	if s := os.Getenv("SPORTZONE_SECRET"); s != "" {
		return s
	}
	return c.ask("Password")
}

func (c *cli) identity() (string, error) {
	identity, ok := c.app.Identity()
	if !ok {
		return "", conversation.ErrNotAuthenticated
	}
	return identity, nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func parseMessageID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid message id %q", s)
	}
	return id, nil
}

func ago(ms int64) string {
	return humanize.Time(time.UnixMilli(ms))
}

func runRegister(ctx context.Context, c *cli, args []string) error {
	if err := c.app.Users.Register(ctx, args[0], c.secret()); err != nil {
		return err
	}
	c.printf("%s Registered and logged in as %s\n", color.GreenString("✓"), args[0])
	return nil
}

func runLogin(ctx context.Context, c *cli, args []string) error {
	if err := c.app.Users.Login(ctx, args[0], c.secret()); err != nil {
		return err
	}
	c.printf("%s Logged in as %s\n", color.GreenString("✓"), args[0])
	if n := c.app.Messenger.TotalUnread(); n > 0 {
		c.printf("  %s unread %s\n", humanize.Comma(int64(n)), plural(n, "message", "messages"))
	}
	return nil
}

func runLogout(ctx context.Context, c *cli, args []string) error {
	c.app.Users.Logout(ctx)
	c.printf("Logged out\n")
	return nil
}

func runWhoami(ctx context.Context, c *cli, args []string) error {
	identity, ok := c.app.Identity()
	if !ok {
		c.printf("guest\n")
		return nil
	}
	c.printf("%s (%d unread)\n", identity, c.app.Messenger.TotalUnread())
	return nil
}

func runFriends(ctx context.Context, c *cli, args []string) error {
	identity, err := c.identity()
	if err != nil {
		return err
	}

	if len(args) >= 2 {
		switch args[0] {
		case "add":
			if err := c.app.Friends.AddFriend(ctx, identity, args[1]); err != nil {
				return err
			}
			c.printf("Friend request sent to %s\n", args[1])
			return nil
		case "accept":
			if err := c.app.Friends.Accept(ctx, args[1]); err != nil {
				return err
			}
			c.printf("%s is now a friend\n", args[1])
			return nil
		}
	}
	if len(args) > 0 {
		return fmt.Errorf("usage: %s", commandTable()["friends"].usage)
	}

	relations := c.app.Friends.List()
	if len(relations) == 0 {
		c.printf("No friends yet\n")
		return nil
	}
	for _, rel := range relations {
		status := color.GreenString(string(rel.Status))
		if rel.Status == userstate.StatusPending {
			status = color.YellowString(string(rel.Status))
		}
		c.printf("  %-24s %s\n", rel.ID, status)
	}
	return nil
}

func runSend(ctx context.Context, c *cli, args []string) error {
	identity, err := c.identity()
	if err != nil {
		return err
	}
	peer := args[0]
	text := strings.Join(args[1:], " ")

	var events <-chan conversation.Event
	if c.waitForReplies {
		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		events, _ = c.app.Messenger.Events().Subscribe(subCtx, identity)
	}

	msg, _, err := c.app.Send(ctx, peer, text)
	if err != nil {
		return err
	}
	c.printf("%s sent [%d]\n", color.GreenString("✓"), msg.ID)

	if events == nil {
		return nil
	}
	timeout := time.After(c.app.Config.Messenger.ReplyDelay + 5*time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Kind == conversation.EventMessage && ev.Message.Sender == peer {
				printMessage(c, ev.Message, identity)
				return nil
			}
		case <-timeout:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func printMessage(c *cli, m userstate.Message, identity string) {
	who := color.CyanString(m.Sender)
	if m.Sender == identity {
		who = color.GreenString("you")
	}
	line := fmt.Sprintf("  [%d] %s: %s %s", m.ID, who, m.Text, color.HiBlackString("("+ago(m.Timestamp)+")"))
	if c.app.Editable(m) {
		line += color.HiBlackString(" editable")
	}
	if len(m.Reactions) > 0 {
		var parts []string
		for _, emoji := range conversation.Reactions {
			if reactors := m.Reactions[emoji]; len(reactors) > 0 {
				parts = append(parts, fmt.Sprintf("%s%d", emoji, len(reactors)))
			}
		}
		line += "  " + strings.Join(parts, " ")
	}
	c.printf("%s\n", line)
}

func runMessages(ctx context.Context, c *cli, args []string) error {
	identity, err := c.identity()
	if err != nil {
		return err
	}
	msgs, err := c.app.OpenConversation(ctx, args[0])
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		c.printf("No messages with %s yet\n", args[0])
		return nil
	}
	for _, m := range msgs {
		printMessage(c, m, identity)
	}
	return nil
}

func runConversations(ctx context.Context, c *cli, args []string) error {
	identity, err := c.identity()
	if err != nil {
		return err
	}
	list := c.app.Messenger.ListConversationsFor(identity)
	if len(list) == 0 {
		c.printf("No conversations. Accepted friends show up here.\n")
		return nil
	}
	for _, s := range list {
		badge := ""
		if s.Unread > 0 {
			badge = color.New(color.FgRed, color.Bold).Sprintf(" (%d)", s.Unread)
		}
		last := color.HiBlackString("no messages yet")
		if s.LastMessage != nil {
			last = fmt.Sprintf("%s %s", truncate(s.LastMessage.Text, 40), color.HiBlackString(ago(s.LastMessage.Timestamp)))
		}
		c.printf("  %-20s%s  %s\n", s.Peer, badge, last)
	}
	return nil
}

// emojiArg accepts an emoji or its 1-based position in the palette.
func emojiArg(s string) string {
	if n, err := strconv.Atoi(s); err == nil && n >= 1 && n <= len(conversation.Reactions) {
		return conversation.Reactions[n-1]
	}
	return s
}

func runReact(ctx context.Context, c *cli, args []string) error {
	identity, err := c.identity()
	if err != nil {
		return err
	}
	msgID, err := parseMessageID(args[1])
	if err != nil {
		return err
	}
	if !c.app.Messenger.ToggleReaction(ctx, conversation.ID(identity, args[0]), msgID, emojiArg(args[2])) {
		return fmt.Errorf("message %d not found", msgID)
	}
	return nil
}

func runEdit(ctx context.Context, c *cli, args []string) error {
	identity, err := c.identity()
	if err != nil {
		return err
	}
	msgID, err := parseMessageID(args[1])
	if err != nil {
		return err
	}
	convID := conversation.ID(identity, args[0])

	msgs := c.app.Messenger.MessagesIn(convID)
	i := slices.IndexFunc(msgs, func(m userstate.Message) bool { return m.ID == msgID })
	if i < 0 {
		return fmt.Errorf("message %d not found", msgID)
	}
	if !c.app.Editable(msgs[i]) {
		return errors.New("only your own messages from the last minute can be edited")
	}
	c.app.Messenger.EditMessage(ctx, convID, msgID, strings.Join(args[2:], " "))
	return nil
}

func runRead(ctx context.Context, c *cli, args []string) error {
	identity, err := c.identity()
	if err != nil {
		return err
	}
	c.app.Messenger.MarkRead(ctx, identity, args[0])
	return nil
}

func runFavorite(ctx context.Context, c *cli, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if c.app.State.ToggleFavorite(ctx, id) {
		c.printf("★ Added %d to favorites\n", id)
	} else {
		c.printf("Removed %d from favorites\n", id)
	}
	return nil
}

// parseComplexFlags supports "--sport S", "--sport=S", "--q Q" and "--q=Q".
func parseComplexFlags(args []string) (sport, query string, err error) {
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--sport" || arg == "--q":
			if i+1 >= len(args) {
				return "", "", fmt.Errorf("%s requires a value", arg)
			}
			if arg == "--sport" {
				sport = args[i+1]
			} else {
				query = args[i+1]
			}
			i++
		case strings.HasPrefix(arg, "--sport="):
			sport = strings.TrimPrefix(arg, "--sport=")
		case strings.HasPrefix(arg, "--q="):
			query = strings.TrimPrefix(arg, "--q=")
		case strings.HasPrefix(arg, "-"):
			return "", "", fmt.Errorf("unknown flag: %s", arg)
		default:
			return "", "", fmt.Errorf("unexpected argument: %s", arg)
		}
	}
	return sport, query, nil
}

func runComplexes(ctx context.Context, c *cli, args []string) error {
	sport, query, err := parseComplexFlags(args)
	if err != nil {
		return err
	}
	if err := c.app.Catalog.Load(ctx); err != nil {
		return fmt.Errorf("could not fetch sports complex data: %w", err)
	}

	all := c.app.Catalog.Complexes()
	shown := facility.Filter(all, sport, query)
	c.printf("Sports: %s\n", strings.Join(facility.Sports(all), ", "))
	if len(shown) == 0 {
		c.printf("No complexes match\n")
		return nil
	}
	for _, cx := range shown {
		star := " "
		if c.app.State.IsFavorite(cx.ID) {
			star = color.YellowString("★")
		}
		avg, _ := c.app.Catalog.AverageRating(cx.ID)
		free := 0
		for _, s := range cx.Slots {
			if !s.IsBooked {
				free++
			}
		}
		c.printf("%s %3d  %-32s %.1f  %s\n", star, cx.ID, cx.Name, avg, color.HiBlackString(strings.Join(cx.Sports, ", ")))
		c.printf("       %s, %d of %d slots free\n", cx.Address, free, len(cx.Slots))
	}
	return nil
}

func runBook(ctx context.Context, c *cli, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := c.app.Catalog.Load(ctx); err != nil {
		return err
	}
	if err := c.app.Catalog.Book(id, strings.Join(args[1:], " ")); err != nil {
		return err
	}
	c.printf("%s Booking confirmed!\n", color.GreenString("✓"))
	return nil
}

func runReview(ctx context.Context, c *cli, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	rating, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid rating %q", args[1])
	}
	if err := c.app.Catalog.Load(ctx); err != nil {
		return err
	}
	if err := c.app.Catalog.AddReview(id, rating, strings.Join(args[2:], " ")); err != nil {
		return err
	}
	avg, _ := c.app.Catalog.AverageRating(id)
	c.printf("Thanks! Average rating is now %.1f (%d ratings)\n", avg, len(c.app.Catalog.Reviews(id))+1)
	return nil
}

func runSummary(ctx context.Context, c *cli, args []string) error {
	args, html := htmlFlag(args)
	if len(args) != 1 {
		return fmt.Errorf("usage: %s", commandTable()["summary"].usage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	return c.printGenerated(c.app.ReviewSummary(ctx, id), html)
}

func runChat(ctx context.Context, c *cli, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := c.app.Catalog.Load(ctx); err != nil {
		return err
	}
	room, err := c.app.Catalog.Room(id)
	if err != nil {
		return err
	}
	user, ok := c.app.Identity()
	if !ok {
		user = "You"
	}

	rest := args[1:]
	switch {
	case len(rest) >= 2 && rest[0] == "post":
		_, err = room.Post(user, strings.Join(rest[1:], " "))
	case len(rest) >= 3 && rest[0] == "edit":
		var msgID int64
		if msgID, err = parseMessageID(rest[1]); err == nil && !room.Edit(msgID, strings.Join(rest[2:], " ")) {
			err = fmt.Errorf("message %d not found", msgID)
		}
	case len(rest) == 2 && rest[0] == "delete":
		var msgID int64
		if msgID, err = parseMessageID(rest[1]); err == nil && !room.Delete(msgID) {
			err = fmt.Errorf("message %d not found", msgID)
		}
	case len(rest) > 0:
		err = fmt.Errorf("usage: %s", commandTable()["chat"].usage)
	}
	if err != nil {
		return err
	}

	for _, m := range room.Messages() {
		c.printf("  [%d] %s: %s %s\n", m.ID, color.CyanString(m.User), m.Message, color.HiBlackString(ago(m.Timestamp)))
	}
	return nil
}

func runTicket(ctx context.Context, c *cli, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	if err := c.app.Catalog.Load(ctx); err != nil {
		return err
	}
	ticket := facility.SupportTicket{
		Name:    c.ask("Name"),
		Contact: c.ask("Email or phone"),
		Subject: c.ask("Subject"),
		Message: c.ask("Message"),
		Method:  facility.ContactMethod(c.ask("Reply by (Email/SMS)")),
	}
	sent, err := c.app.Catalog.SubmitTicket(id, ticket)
	if err != nil {
		return err
	}
	c.printf("%s Ticket sent via %s!\n", color.GreenString("✓"), sent.Method)
	return nil
}

func runSuggest(ctx context.Context, c *cli, args []string) error {
	suggestions := c.app.Suggestions(ctx)
	if len(suggestions) == 0 {
		c.printf("No suggestions right now\n")
		return nil
	}
	for i, s := range suggestions {
		c.printf("%d. %s\n   %s\n", i+1, color.CyanString(s.Name), s.Reason)
	}
	return nil
}

func runTeam(ctx context.Context, c *cli, args []string) error {
	args, html := htmlFlag(args)
	if len(args) < 3 {
		return fmt.Errorf("usage: %s", commandTable()["team"].usage)
	}
	return c.printGenerated(c.app.TeamPost(ctx, args[0], args[1], strings.Join(args[2:], " ")), html)
}

// htmlFlag removes every --html from args and reports whether one was there.
func htmlFlag(args []string) ([]string, bool) {
	rest := make([]string, 0, len(args))
	found := false
	for _, arg := range args {
		if arg == "--html" {
			found = true
			continue
		}
		rest = append(rest, arg)
	}
	return rest, found
}

// printGenerated prints model output as-is, or rendered from markdown to HTML.
func (c *cli) printGenerated(text string, html bool) error {
	if !html {
		c.printf("%s\n", text)
		return nil
	}
	rendered, err := ai.RenderHTML(text)
	if err != nil {
		return err
	}
	c.printf("%s", rendered)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
