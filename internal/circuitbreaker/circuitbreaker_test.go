package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/stablearb/internal/apperror"
)

var errBoom = errors.New("boom")

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	cfg := DefaultConfig("exchange")
	cfg.FailureThreshold = 2
	cfg.Timeout = time.Hour

	var transitions []gobreaker.State
	cfg.OnStateChange = func(_ string, _, to gobreaker.State) {
		transitions = append(transitions, to)
	}

	b := New[int](cfg)
	fail := func() (int, error) { return 0, errBoom }

	for i := 0; i < 2; i++ {
		if _, err := b.Execute(fail); !errors.Is(err, errBoom) {
			t.Fatalf("attempt %d: expected errBoom, got %v", i, err)
		}
	}

	if b.State() != gobreaker.StateOpen {
		t.Fatalf("expected open state, got %s", b.State())
	}

	_, err := b.Execute(func() (int, error) { return 1, nil })
	if !apperror.HasCode(err, apperror.CodeCircuitOpen) {
		t.Errorf("expected CIRCUIT_OPEN, got %v", err)
	}
	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Errorf("expected single transition to open, got %v", transitions)
	}
}

func TestBreaker_IsSuccessfulKeepsClosed(t *testing.T) {
	cfg := DefaultConfig("exchange")
	cfg.FailureThreshold = 1
	cfg.IsSuccessful = func(err error) bool { return errors.Is(err, errBoom) }

	b := New[string](cfg)
	for i := 0; i < 3; i++ {
		if _, err := b.Execute(func() (string, error) { return "", errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("expected errBoom to pass through, got %v", err)
		}
	}
	if b.State() != gobreaker.StateClosed {
		t.Errorf("expected closed state, got %s", b.State())
	}

	got, err := b.Execute(func() (string, error) { return "ok", nil })
	if err != nil || got != "ok" {
		t.Errorf("expected ok, got %q, %v", got, err)
	}
	if b.Name() != "exchange" {
		t.Errorf("expected name exchange, got %s", b.Name())
	}
}
