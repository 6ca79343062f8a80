package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/ports"
)

type lineResult struct {
	line string
	err  error
}

// Prompter implements ports.Confirmer using stdin/stdout.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
	// BeforePrompt runs before the confirmation is rendered.
	BeforePrompt func()

	once  sync.Once
	lines chan lineResult
}

// NewPrompter constructs a prompter referencing stdio.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stdout
	}
	return &Prompter{
		in:  bufio.NewReader(in),
		out: out,
	}
}

// Confirm shows the validated request and asks to proceed, decline or edit parameters.
func (p *Prompter) Confirm(ctx context.Context, req domain.ConfirmationRequest) (domain.ConfirmationDecision, error) {
	if p.BeforePrompt != nil {
		p.BeforePrompt()
	}
	RenderConfirmation(p.out, req)

	for {
		fmt.Fprint(p.out, "Proceed? [y/N/e(dit)]: ")
		line, err := p.readLine(ctx)
		if err != nil {
			return domain.ConfirmationDecision{}, err
		}
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			if req.Validation.Confirmable() {
				return domain.ConfirmationDecision{Confirmed: true}, nil
			}
			fmt.Fprintln(p.out, warnStyle.Render("The parameters are not valid yet. Edit them or decline."))
		case "e", "edit":
			params, err := p.edit(ctx, req.Validation.Parameters.Plain())
			if err != nil {
				return domain.ConfirmationDecision{}, err
			}
			return domain.ConfirmationDecision{Confirmed: true, Parameters: params}, nil
		default:
			return domain.ConfirmationDecision{Confirmed: false}, nil
		}
	}
}

func (p *Prompter) edit(ctx context.Context, params map[string]interface{}) (map[string]interface{}, error) {
	fmt.Fprintln(p.out, mutedStyle.Render("Enter KEY=VALUE, one per line. An empty line finishes editing."))
	for {
		fmt.Fprint(p.out, "> ")
		line, err := p.readLine(ctx)
		if err != nil {
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return params, nil
		}
		key, value, err := parseAssignment(line)
		if err != nil {
			fmt.Fprintln(p.out, errorStyle.Render(err.Error()))
			continue
		}
		params[key] = value
	}
}

// readLine reads through a single background reader so a cancelled prompt does not lose input.
func (p *Prompter) readLine(ctx context.Context) (string, error) {
	p.once.Do(func() {
		p.lines = make(chan lineResult)
		go func() {
			for {
				line, err := p.in.ReadString('\n')
				p.lines <- lineResult{line: line, err: err}
				if err != nil {
					return
				}
			}
		}()
	})
	select {
	case res := <-p.lines:
		if res.err != nil && res.line == "" {
			return "", res.err
		}
		return res.line, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

var _ ports.Confirmer = (*Prompter)(nil)
