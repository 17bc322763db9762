package dialog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/huh"
)

// Terminal prompts on the controlling terminal. Prompts are serialized since
// there is only one terminal.
type Terminal struct {
	mu sync.Mutex
}

// NewTerminal creates a terminal prompt service.
func NewTerminal() *Terminal {
	return &Terminal{}
}

func (t *Terminal) PromptChoice(ctx context.Context, opts Options) (Result, error) {
	if len(opts.Buttons) == 0 {
		return Result{}, fmt.Errorf("prompt has no buttons")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	response := 0
	checked := false

	fields := []huh.Field{
		huh.NewNote().
			Title(opts.Message).
			Description(opts.Detail),
		huh.NewSelect[int]().
			Title(opts.Title).
			Options(buttonOptions(opts.Buttons)...).
			Value(&response),
	}
	if opts.CheckboxLabel != "" {
		fields = append(fields, huh.NewConfirm().
			Title(opts.CheckboxLabel).
			Affirmative("Yes").
			Negative("No").
			Value(&checked))
	}

	form := huh.NewForm(huh.NewGroup(fields...))
	if !IsInteractive() {
		form = form.WithAccessible(true)
	}

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return Result{Response: opts.CancelID}, nil
		}
		return Result{}, fmt.Errorf("prompt failed: %w", err)
	}
	return Result{Response: response, CheckboxChecked: checked}, nil
}

func buttonOptions(buttons []string) []huh.Option[int] {
	opts := make([]huh.Option[int], 0, len(buttons))
	for i, label := range buttons {
		opts = append(opts, huh.NewOption(label, i))
	}
	return opts
}
