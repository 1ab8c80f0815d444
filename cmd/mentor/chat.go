package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-mentor/internal/assistant"
	"github.com/ahrav/go-mentor/internal/domain"
)

const consoleSender = "console"

func newChatCmd(opts *rootOptions) *cobra.Command {
	var sender string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant on the console",
		Long: "Reads one message per line. A line starting with @ sends a file as a submission,\n" +
			"e.g. \"@answer.pdf 15 marker\". Slash commands such as /start work as in chat apps.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(a *app) error {
				a.startLimiter()
				return runChat(cmd.Context(), a.service, sender, cmd.InOrStdin(), cmd.OutOrStdout(),
					a.cfg.Dispatcher.Workers, a.cfg.Segment.Limit)
			})
		},
	}
	cmd.Flags().StringVar(&sender, "sender", consoleSender, "sender identity for rate limiting and submission history")
	return cmd
}

func runChat(ctx context.Context, h assistant.Handler, sender string, in io.Reader, out io.Writer, workers, chunkLimit int) error {
	var mu sync.Mutex
	replier := assistant.ReplierFunc(func(_ context.Context, _ string, text string) error {
		mu.Lock()
		defer mu.Unlock()
		_, err := fmt.Fprintf(out, "%s\n\n", text)
		return err
	})

	events := make(chan assistant.Event)
	dispatcher := assistant.NewDispatcher(h, replier, workers, chunkLimit)

	readErr := make(chan error, 1)
	go func() {
		defer close(events)
		readErr <- readEvents(ctx, sender, in, events, out, &mu)
	}()

	if err := dispatcher.Run(ctx, events); err != nil && ctx.Err() == nil {
		return err
	}
	if ctx.Err() != nil {
		return nil
	}
	return <-readErr
}

func readEvents(ctx context.Context, sender string, in io.Reader, events chan<- assistant.Event, out io.Writer, mu *sync.Mutex) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1<<20)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		ev, err := lineEvent(sender, line)
		if err != nil {
			mu.Lock()
			fmt.Fprintf(out, "cannot read file: %v\n\n", err)
			mu.Unlock()
			continue
		}
		select {
		case events <- ev:
		case <-ctx.Done():
			return nil
		}
	}
	return scanner.Err()
}

// lineEvent turns a console line into an event. "@path caption" sends a file.
func lineEvent(sender, line string) (assistant.Event, error) {
	if !strings.HasPrefix(line, "@") {
		return assistant.Event{Sender: sender, Kind: assistant.KindText, Text: line}, nil
	}
	path, caption, _ := strings.Cut(strings.TrimPrefix(line, "@"), " ")
	return fileEvent(sender, path, strings.TrimSpace(caption))
}

// fileEvent reads path into a document or photo event.
func fileEvent(sender, path, caption string) (assistant.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return assistant.Event{}, err
	}
	name := filepath.Base(path)
	file := &assistant.Attachment{
		FileName: name,
		MIMEType: mime.TypeByExtension(filepath.Ext(name)),
		Data:     data,
	}
	kind := assistant.KindDocument
	if domain.KindFromFileName(file.FileName, file.MIMEType) == domain.KindImage {
		kind = assistant.KindPhoto
	}
	return assistant.Event{Sender: sender, Kind: kind, Caption: caption, File: file}, nil
}
