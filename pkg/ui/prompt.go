package ui

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// ErrCancelled is returned when input ends before an answer was given.
var ErrCancelled = errors.New("input cancelled")

// MaxListed caps how many options are printed before a selection prompt.
const MaxListed = 20

// MatchResult is the outcome of matching free-form input against options.
type MatchResult struct {
	Value     string   // the matched option, "" when none or ambiguous
	Ambiguous []string // substring hits when more than one option matched
}

// Match resolves input against options: a 1-based index, an exact value, or a
// unique case-insensitive substring, in that order.
func Match(input string, options []string) MatchResult {
	input = strings.TrimSpace(input)
	if input == "" {
		return MatchResult{}
	}

	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(options) {
		return MatchResult{Value: options[n-1]}
	}

	for _, o := range options {
		if o == input {
			return MatchResult{Value: o}
		}
	}

	needle := strings.ToLower(input)
	var hits []string
	for _, o := range options {
		if strings.Contains(strings.ToLower(o), needle) {
			hits = append(hits, o)
		}
	}
	switch len(hits) {
	case 0:
		return MatchResult{}
	case 1:
		return MatchResult{Value: hits[0]}
	default:
		return MatchResult{Ambiguous: hits}
	}
}

// Prompter asks questions on a line-oriented terminal.
type Prompter struct {
	in      *bufio.Reader
	console *Console
}

// NewPrompter creates a Prompter reading answers from in and writing prompts
// through console.
func NewPrompter(in io.Reader, console *Console) *Prompter {
	return &Prompter{in: bufio.NewReader(in), console: console}
}

type lineResult struct {
	line string
	err  error
}

// readLine reads one trimmed line. Blocking reads are abandoned when ctx is
// cancelled.
func (p *Prompter) readLine(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	ch := make(chan lineResult, 1)
	go func() {
		line, err := p.in.ReadString('\n')
		ch <- lineResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-ch:
		if r.err != nil {
			if errors.Is(r.err, io.EOF) && strings.TrimSpace(r.line) != "" {
				return strings.TrimSpace(r.line), nil
			}
			if errors.Is(r.err, io.EOF) {
				return "", ErrCancelled
			}
			return "", errors.Wrap(r.err, "failed to read input")
		}
		return strings.TrimSpace(r.line), nil
	}
}

func (p *Prompter) listOptions(options []string) {
	for i, o := range options {
		if i >= MaxListed {
			p.console.Dimf("... and %d more.", len(options)-MaxListed)
			break
		}
		p.console.Printf("[%d] %s\n", i+1, o)
	}
}

// Choose implements strategy.Chooser. With no options it falls back to free
// text entry.
func (p *Prompter) Choose(ctx context.Context, prompt string, options []string) (string, error) {
	return p.ChooseDefault(ctx, prompt, options, "")
}

// ChooseDefault is Choose where an empty answer selects def. An empty def
// makes empty answers re-prompt.
func (p *Prompter) ChooseDefault(ctx context.Context, prompt string, options []string, def string) (string, error) {
	p.console.Section("%s", prompt)

	if len(options) == 0 {
		for {
			p.console.Printf("Type name: ")
			input, err := p.readLine(ctx)
			if err != nil {
				return "", err
			}
			if input != "" {
				return input, nil
			}
			if def != "" {
				return def, nil
			}
		}
	}

	p.listOptions(options)
	if def != "" {
		p.console.Dimf("(Enter for %s)", def)
	}

	for {
		p.console.Printf("Select number or type name: ")
		input, err := p.readLine(ctx)
		if err != nil {
			return "", err
		}
		if input == "" {
			if def != "" {
				return def, nil
			}
			continue
		}

		m := Match(input, options)
		switch {
		case m.Value != "":
			return m.Value, nil
		case len(m.Ambiguous) > 0:
			p.console.Warnf("Ambiguous match: %s", summarize(m.Ambiguous, 5))
		default:
			p.console.Errorf("Invalid selection. Try again.")
		}
	}
}

// Line asks for a single line. An empty answer returns def.
func (p *Prompter) Line(ctx context.Context, prompt, def string) (string, error) {
	if def != "" {
		p.console.Printf("%s (default: %s): ", prompt, def)
	} else {
		p.console.Printf("%s: ", prompt)
	}

	input, err := p.readLine(ctx)
	if err != nil {
		return "", err
	}
	if input == "" {
		return def, nil
	}
	return input, nil
}

// Multiline collects lines until an empty one.
func (p *Prompter) Multiline(ctx context.Context, prompt string) ([]string, error) {
	p.console.Section("%s", prompt)
	p.console.Dimf("(Enter multiple lines, press Enter on an empty line to finish)")

	var result []string
	for {
		p.console.Printf("> ")
		input, err := p.readLine(ctx)
		if errors.Is(err, ErrCancelled) {
			return result, nil
		}
		if err != nil {
			return nil, err
		}
		if input == "" {
			return result, nil
		}
		result = append(result, input)
	}
}

// Confirm asks a yes/no question.
func (p *Prompter) Confirm(ctx context.Context, label string, def bool) (bool, error) {
	suffix := "[y/N]"
	if def {
		suffix = "[Y/n]"
	}
	p.console.Printf("%s %s ", label, suffix)

	input, err := p.readLine(ctx)
	if err != nil {
		return false, err
	}
	input = strings.ToLower(input)
	if input == "" {
		return def, nil
	}
	return strings.HasPrefix(input, "y"), nil
}

func summarize(items []string, limit int) string {
	if len(items) <= limit {
		return strings.Join(items, ", ")
	}
	return strings.Join(items[:limit], ", ") + ", ..."
}
