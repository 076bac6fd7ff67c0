package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/franz/tutorial-bot/internal/render"
)

// prompter reads answers line by line. Reads stop when ctx is cancelled.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

func (p *prompter) printf(format string, args ...interface{}) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *prompter) println(s string) {
	fmt.Fprintln(p.out, s)
}

type answer struct {
	text string
	err  error
}

// ask prints label and returns the trimmed reply.
func (p *prompter) ask(ctx context.Context, label string) (string, error) {
	fmt.Fprint(p.out, label)

	ch := make(chan answer, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		if err == io.EOF && line != "" {
			err = nil
		}
		ch <- answer{strings.TrimSpace(line), err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case a := <-ch:
		if a.err == io.EOF {
			return "", fmt.Errorf("no input")
		}
		return a.text, a.err
	}
}

// askInt parses the reply as an integer; an empty reply yields def.
func (p *prompter) askInt(ctx context.Context, label string, def int) (int, error) {
	s, err := p.ask(ctx, label)
	if err != nil {
		return 0, err
	}
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid choice %q", s)
	}
	return n, nil
}

func (p *prompter) confirm(ctx context.Context, label string) (bool, error) {
	s, err := p.ask(ctx, label)
	if err != nil {
		return false, err
	}
	return strings.EqualFold(s, "y") || strings.EqualFold(s, "yes"), nil
}

// askCustom collects a custom request.
func (p *prompter) askCustom(ctx context.Context) (render.TestCase, error) {
	topic, err := p.ask(ctx, "Topic: ")
	if err != nil {
		return render.TestCase{}, err
	}
	if topic == "" {
		return render.TestCase{}, fmt.Errorf("topic is required")
	}
	style, err := p.ask(ctx, fmt.Sprintf("Style (default: %s): ", render.DefaultStyle))
	if err != nil {
		return render.TestCase{}, err
	}
	duration, err := p.askInt(ctx, fmt.Sprintf("Duration in seconds (default: %d): ", render.DefaultDuration), render.DefaultDuration)
	if err != nil {
		return render.TestCase{}, err
	}

	req := render.Request{Topic: topic, Style: style, Duration: duration}.WithDefaults()
	if err := req.Validate(); err != nil {
		return render.TestCase{}, err
	}
	return render.TestCase{Name: render.CustomName, Request: req}, nil
}
