package dialog

import (
	"context"
	"log/slog"
	"testing"
)

func TestAuto_AnswersFixedResponse(t *testing.T) {
	a := NewAuto(1, true, slog.New(slog.DiscardHandler))
	res, err := a.PromptChoice(context.Background(), Options{
		Buttons:       []string{"Reopen", "Close", "Keep Waiting"},
		CancelID:      2,
		CheckboxLabel: "Don't restore editors",
	})
	if err != nil {
		t.Fatalf("PromptChoice() error: %v", err)
	}
	if res.Response != 1 || !res.CheckboxChecked {
		t.Fatalf("PromptChoice() = %+v, want response 1 with checkbox", res)
	}
	if got := len(a.Prompts()); got != 1 {
		t.Fatalf("Prompts() len = %d, want 1", got)
	}
}

func TestAuto_OutOfRangeUsesCancel(t *testing.T) {
	a := NewAuto(5, true, slog.New(slog.DiscardHandler))
	res, err := a.PromptChoice(context.Background(), Options{
		Buttons:  []string{"Reopen", "Close"},
		CancelID: 1,
	})
	if err != nil {
		t.Fatalf("PromptChoice() error: %v", err)
	}
	if res.Response != 1 {
		t.Fatalf("Response = %d, want cancel id 1", res.Response)
	}
	if res.CheckboxChecked {
		t.Fatal("checkbox reported without a checkbox label")
	}
}

func TestAuto_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewAuto(0, false, nil).PromptChoice(ctx, Options{Buttons: []string{"OK"}}); err == nil {
		t.Fatal("PromptChoice() expected error for canceled context")
	}
}

func TestNew_Modes(t *testing.T) {
	if _, err := New("carrier-pigeon", 0, nil); err == nil {
		t.Fatal("New() expected error for unknown mode")
	}
	svc, err := New(ModeAuto, 0, nil)
	if err != nil {
		t.Fatalf("New(auto) error: %v", err)
	}
	if _, ok := svc.(*Auto); !ok {
		t.Fatalf("New(auto) = %T, want *Auto", svc)
	}
	svc, err = New(ModeTerminal, 0, nil)
	if err != nil {
		t.Fatalf("New(terminal) error: %v", err)
	}
	if _, ok := svc.(*Terminal); !ok {
		t.Fatalf("New(terminal) = %T, want *Terminal", svc)
	}
}

func TestTerminal_RequiresButtons(t *testing.T) {
	if _, err := NewTerminal().PromptChoice(context.Background(), Options{}); err == nil {
		t.Fatal("PromptChoice() expected error without buttons")
	}
}
