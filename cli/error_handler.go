package cli

import (
	"fmt"
	"io"

	"github.com/grovetools/overlay/errors"
	"github.com/grovetools/overlay/logging"
	"github.com/grovetools/overlay/tui/theme"
)

// ErrorHandler prints user-friendly messages for structured errors
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to out
func NewErrorHandler(verbose bool, out io.Writer) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     out,
	}
}

// Handle prints a message for err and returns it unchanged
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	t := theme.DefaultTheme
	mark := t.Error.Render("✗")

	switch errors.GetCode(err) {
	case errors.ErrCodeConfigNotFound:
		fmt.Fprintf(h.Out, "%s Configuration not found. Run 'overlayctl config init' to write one.\n", mark)

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fmt.Fprintf(h.Out, "%s %v\n", mark, err)
		fmt.Fprintln(h.Out, t.Muted.Render("Run 'overlayctl schema' to see the accepted fields."))

	case errors.ErrCodeInvalidInput:
		fmt.Fprintf(h.Out, "%s %v\n", mark, err)

	default:
		logging.NewPrettyLogger().WithWriter(h.Out).ErrorPretty("Error", err)
	}

	if h.Verbose {
		if oe, ok := err.(*errors.OverlayError); ok {
			fmt.Fprintf(h.Out, "\nError details:\n%s\n", oe.ToJSON())
		}
	}
	return err
}
