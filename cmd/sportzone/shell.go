// ABOUTME: Interactive shell built on go-prompt
// ABOUTME: Prints incoming replies for whoever is logged in while the prompt runs

package main

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/c-bata/go-prompt"
	"github.com/fatih/color"

	"github.com/2389/sportzone/internal/conversation"
)

// inbox follows the events of the current identity across logins.
type inbox struct {
	mu     sync.Mutex
	c      *cli
	cancel context.CancelFunc
	closed bool
}

// follow swaps the subscription over to identity. Empty means none.
func (ib *inbox) follow(ctx context.Context, identity string) {
	ib.mu.Lock()
	defer ib.mu.Unlock()

	if ib.cancel != nil {
		ib.cancel()
		ib.cancel = nil
	}
	if identity == "" || ib.closed {
		return
	}

	subCtx, cancel := context.WithCancel(ctx)
	ib.cancel = cancel
	events, _ := ib.c.app.Messenger.Events().Subscribe(subCtx, identity)
	go func() {
		for ev := range events {
			if ev.Kind == conversation.EventMessage && ev.Message.Sender != identity {
				ib.c.printf("\n%s ", color.New(color.FgMagenta, color.Bold).Sprint("✉"))
				printMessage(ib.c, ev.Message, identity)
			}
		}
	}()
}

// stop drops the subscription; later follow calls do nothing.
func (ib *inbox) stop() {
	ib.follow(context.Background(), "")
	ib.mu.Lock()
	ib.closed = true
	ib.mu.Unlock()
}

func shellSuggestions() []prompt.Suggest {
	out := []prompt.Suggest{}
	for _, name := range commandNames() {
		out = append(out, prompt.Suggest{Text: name, Description: commandTable()[name].help})
	}
	return append(out,
		prompt.Suggest{Text: "help", Description: "Show commands"},
		prompt.Suggest{Text: "exit", Description: "Leave the shell"},
	)
}

func runShell(ctx context.Context, c *cli) error {
	printBanner()

	box := &inbox{c: c}
	if identity, ok := c.app.Identity(); ok {
		box.follow(ctx, identity)
		c.printf("Logged in as %s\n", identity)
	}
	unsubscribe := c.app.Session.Subscribe(func(prev, next string) {
		box.follow(ctx, next)
	})
	defer func() {
		unsubscribe()
		box.stop()
	}()
	c.printf("Type 'help' to see available commands\n")

	suggestions := shellSuggestions()
	completer := func(d prompt.Document) []prompt.Suggest {
		if strings.Contains(d.TextBeforeCursor(), " ") {
			return []prompt.Suggest{}
		}
		return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
	}

	executor := func(input string) {
		args := strings.Fields(input)
		if len(args) == 0 {
			return
		}
		switch args[0] {
		case "exit", "quit":
			return
		case "help":
			for _, name := range commandNames() {
				cmd := commandTable()[name]
				c.printf("  %-48s %s\n", cmd.usage, cmd.help)
			}
			return
		}
		if err := c.run(ctx, args); err != nil {
			c.printf("%s %v\n", color.RedString("✗"), err)
		}
	}

	p := prompt.New(
		executor,
		completer,
		prompt.OptionPrefix("sportzone> "),
		prompt.OptionTitle("SportZone"),
		prompt.OptionHistory([]string{}),
		prompt.OptionLivePrefix(func() (string, bool) {
			identity, ok := c.app.Identity()
			if !ok {
				return "guest> ", true
			}
			if n := c.app.Messenger.TotalUnread(); n > 0 {
				return fmt.Sprintf("%s (%d)> ", identity, n), true
			}
			return identity + "> ", true
		}),
		prompt.OptionSetExitCheckerOnInput(func(in string, breakline bool) bool {
			word := strings.TrimSpace(in)
			return breakline && (word == "exit" || word == "quit")
		}),
	)
	p.Run()
	return nil
}
