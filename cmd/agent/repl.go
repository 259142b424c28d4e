package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/petasbytes/paper-agent/internal/session"
	"github.com/petasbytes/paper-agent/memory"
)

const noDocumentsPrompt = "Please upload PDF files to proceed."

func repl(ctx context.Context, a *app) error {
	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("Ask about your papers. Commands: /upload <file.pdf>..., /docs, /quit")
	for _, t := range a.sess.Conversation() {
		printTurn(t)
	}
	if len(a.sess.Documents()) == 0 {
		fmt.Println(noDocumentsPrompt)
	}

	// stdin reader goroutine -> lines into channel
	inputCh := make(chan string)
	go func() {
		for scanner.Scan() {
			inputCh <- scanner.Text()
		}
		close(inputCh)
	}()

	for {
		fmt.Printf("\u001b[94m%s\u001b[0m: ", memory.User.Label())
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Println("\nExiting...")
			return nil
		case line, ok = <-inputCh:
			if !ok {
				return scanner.Err()
			}
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cmd, rest, _ := strings.Cut(line, " ")
		switch cmd {
		case "/quit", "/exit":
			return nil
		case "/docs":
			docs := a.sess.Documents()
			if len(docs) == 0 {
				fmt.Println(noDocumentsPrompt)
				continue
			}
			fmt.Println(strings.Join(docs, "\n"))
		case "/upload":
			files, err := readFiles(strings.Fields(rest))
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				continue
			}
			report, err := a.sess.Upload(ctx, files)
			printReport(report)
			if err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
			}
		default:
			ask(ctx, a, line)
		}
	}
}

func ask(ctx context.Context, a *app, query string) {
	answer, err := a.sess.Ask(ctx, query)
	switch {
	case errors.Is(err, session.ErrNoDocuments):
		fmt.Println(noDocumentsPrompt)
		return
	case err != nil:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return
	}
	printTurn(memory.Turn{Speaker: memory.Agent, Text: answer})

	if a.transcript != "" {
		if err := memory.SaveTranscript(a.transcript, a.sess.Conversation()); err != nil {
			a.log.Warn("save transcript", zap.Error(err))
		}
	}
}

func printTurn(t memory.Turn) {
	color := "94"
	if t.Speaker == memory.Agent {
		color = "93"
	}
	fmt.Printf("\u001b[%sm%s\u001b[0m: %s\n", color, t.Speaker.Label(), t.Text)
}
