package di

import "testing"

type greeter struct{ name string }

func TestContainer_LazySingleton(t *testing.T) {
	c := NewContainer()
	c.Register("name", "arb")

	calls := 0
	tok := NewToken[*greeter]("greeter")
	RegisterToken(c, tok, func(sr ServiceRegistry) *greeter {
		calls++
		return &greeter{name: sr.Get("name").(string)}
	})

	if calls != 0 {
		t.Fatalf("factory should not run before first Get, ran %d times", calls)
	}

	first := GetToken(c, tok)
	second := GetToken(c, tok)

	if calls != 1 {
		t.Errorf("expected factory to run once, ran %d times", calls)
	}
	if first != second {
		t.Error("expected the same instance on repeated Get")
	}
	if first.name != "arb" {
		t.Errorf("expected dependency to be injected, got %q", first.name)
	}
}

func TestContainer_Has(t *testing.T) {
	c := NewContainer()
	c.Register("config", 1)
	if !c.Has("config") {
		t.Error("expected config to be registered")
	}
	if c.Has("missing") {
		t.Error("did not expect missing to be registered")
	}
}

func TestContainer_GetUnknownPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown service")
		}
	}()
	NewContainer().Get("nope")
}
