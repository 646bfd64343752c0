package secret

import "testing"

func TestEnvSourceGetReturnsValue(t *testing.T) {
	t.Setenv("RELAY_TEST_KEY", "shh")
	s := EnvSource{Prefix: "RELAY_"}
	val, err := s.Get("TEST_KEY")
	if err != nil {
		t.Fatal(err)
	}
	if val != "shh" {
		t.Fatalf("val = %q", val)
	}
}

func TestEnvSourceGetErrorsOnUnset(t *testing.T) {
	s := EnvSource{Prefix: "RELAY_"}
	if _, err := s.Get("DEFINITELY_NOT_SET_XYZ"); err == nil {
		t.Fatal("expected an error for an unset variable")
	}
}

func TestEnvSourceGetErrorsOnEmpty(t *testing.T) {
	t.Setenv("RELAY_EMPTY_KEY", "")
	s := EnvSource{Prefix: "RELAY_"}
	if _, err := s.Get("EMPTY_KEY"); err == nil {
		t.Fatal("expected an error for an empty variable")
	}
}
