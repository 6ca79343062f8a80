package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/geogenie-go/internal/domain"
	"github.com/doeshing/geogenie-go/internal/ports"
)

type runFlags struct {
	yes     bool
	timeout time.Duration
}

func newRunCommand(s *session) *cobra.Command {
	var flags runFlags
	cmd := &cobra.Command{
		Use:   "run [natural language request]",
		Short: "Extract, confirm and execute a geoprocessing request",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRequest(cmd, s, strings.Join(args, " "), flags)
		},
	}
	cmd.Flags().BoolVarP(&flags.yes, "yes", "y", false, "Confirm dispatchable parameters without prompting")
	cmd.Flags().DurationVar(&flags.timeout, "timeout", 0, "Abort the whole request after this long (0 = no limit)")
	return cmd
}

func runRequest(cmd *cobra.Command, s *session, prompt string, flags runFlags) error {
	container, err := s.mustContainer()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	ctx := cmd.Context()
	if flags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, flags.timeout)
		defer cancel()
	}

	spinner := NewSpinner(cmd.ErrOrStderr())
	defer spinner.Stop()

	var confirmer ports.Confirmer
	if flags.yes {
		confirmer = autoConfirmer{out: out}
	} else {
		prompter := NewPrompter(cmd.InOrStdin(), out)
		prompter.BeforePrompt = spinner.Stop
		confirmer = prompter
	}

	coord, err := container.NewCoordinator(confirmer)
	if err != nil {
		return err
	}
	requestID, err := coord.Start(ctx, prompt)
	if err != nil {
		return err
	}

	done := ctx.Done()
	for {
		select {
		case <-done:
			coord.Cancel()
			done = nil
		case ev := <-coord.Events():
			if ev.RequestID != requestID {
				continue
			}
			switch ev.Kind {
			case domain.EventStateChanged:
				switch ev.State {
				case domain.StateBuildingContext, domain.StateExtracting, domain.StateValidating:
					spinner.Start(stateLabel(ev.State))
				case domain.StateDispatched:
					spinner.Stop()
				}
			case domain.EventProgress:
				RenderProgress(out, ev)
			case domain.EventCompleted:
				spinner.Stop()
				RenderResult(out, ev.Envelope)
				return nil
			case domain.EventCancelled:
				spinner.Stop()
				RenderCancelled(out, ev.Message)
				return nil
			case domain.EventFailed:
				spinner.Stop()
				RenderFailure(out, ev)
				return errors.New(ev.Error)
			}
		}
	}
}

func stateLabel(state domain.State) string {
	switch state {
	case domain.StateBuildingContext:
		return "Reading workspace"
	case domain.StateExtracting:
		return "Asking the model"
	case domain.StateValidating:
		return "Validating parameters"
	default:
		return string(state)
	}
}

// autoConfirmer accepts dispatchable parameters and declines everything else.
type autoConfirmer struct {
	out io.Writer
}

func (a autoConfirmer) Confirm(_ context.Context, req domain.ConfirmationRequest) (domain.ConfirmationDecision, error) {
	RenderConfirmation(a.out, req)
	if !req.Validation.Confirmable() {
		fmt.Fprintln(a.out, warnStyle.Render("Parameters need editing; run without --yes to fix them."))
		return domain.ConfirmationDecision{Confirmed: false}, nil
	}
	return domain.ConfirmationDecision{Confirmed: true}, nil
}
