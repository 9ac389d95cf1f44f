package main

import (
	"strings"
	"testing"

	"simboard-go/vhw"
)

func mustExec(t *testing.T, b *vhw.Board, line string) string {
	t.Helper()
	out, err := execLine(b, line)
	if err != nil {
		t.Fatalf("%q: %v", line, err)
	}
	return out
}

func TestShellPinFlow(t *testing.T) {
	b := vhw.NewBoard(vhw.Config{})

	mustExec(t, b, "pin 3 dir out")
	mustExec(t, b, "pin 3 set 1")
	if got := mustExec(t, b, "pin 3 get"); got != "true" {
		t.Fatalf("pin get = %q", got)
	}

	mustExec(t, b, "pin 4 dir in")
	mustExec(t, b, "pin 4 pull up")
	if got := mustExec(t, b, "pin 4 get"); got != "true" {
		t.Fatalf("pulled-up input = %q", got)
	}
	mustExec(t, b, "pin 4 inject 0")
	if got := mustExec(t, b, "pin 4 get"); got != "false" {
		t.Fatalf("injected input = %q", got)
	}
}

func TestShellI2CFlow(t *testing.T) {
	b := vhw.NewBoard(vhw.Config{})

	if got := mustExec(t, b, "i2c claim 0 1"); got != "bus 0" {
		t.Fatalf("claim = %q", got)
	}
	mustExec(t, b, "i2c 0 add 42")
	if got := mustExec(t, b, "i2c 0 probe 42"); got != "true" {
		t.Fatalf("probe = %q", got)
	}
	mustExec(t, b, "i2c 0 write 42 00aabb")
	if got := mustExec(t, b, "i2c 0 read 42 2"); got != "aabb" {
		t.Fatalf("read = %q", got)
	}
}

func TestShellUARTAndClock(t *testing.T) {
	b := vhw.NewBoard(vhw.Config{})

	mustExec(t, b, "uart claim 0 1 115200")
	if got := mustExec(t, b, "uart 0 inject hi"); got != "2 bytes" {
		t.Fatalf("inject = %q", got)
	}

	mustExec(t, b, "clock mode manual")
	mustExec(t, b, "clock advance 250")
	if got := mustExec(t, b, "clock now"); !strings.Contains(got, "250.000 ms") {
		t.Fatalf("clock now = %q", got)
	}
}

func TestShellErrors(t *testing.T) {
	b := vhw.NewBoard(vhw.Config{})
	if _, err := execLine(b, "frobnicate"); err == nil {
		t.Fatal("unknown command must error")
	}
	if _, err := execLine(b, "pin 99 dir out"); err == nil {
		t.Fatal("out-of-range pin must error, not panic")
	}
	if out, err := execLine(b, ""); err != nil || out != "" {
		t.Fatalf("empty line: %q %v", out, err)
	}
}
