// cmd/vhwtool/shell.go
package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"

	"simboard-go/types"
	"simboard-go/vhw"
)

const shellHelp = `commands:
  pin <n> dir in|out        set direction
  pin <n> set 0|1           write output level
  pin <n> get               read the pin
  pin <n> pull up|down|none set pull
  pin <n> inject 0|1        drive an input externally
  adc <n> init|read         analog input
  adc <n> inject <v>        set analog level
  i2c claim <scl> <sda>     claim a bus
  i2c <b> add <addr>        add a register device
  i2c <b> probe <addr>
  i2c <b> write <addr> <hex>
  i2c <b> read <addr> <n>
  uart claim <tx> <rx> <baud>
  uart <p> inject <text>    host -> guest bytes
  uart <p> drain            guest -> host bytes
  enc claim <a> <b>         claim a decoder
  enc <i> pos               read position
  clock now|mode <m>|advance <ms>
  reset                     soft reset
  stats                     bridge queue counters
  help`

// execLine parses and runs one shell line against the board.
func execLine(b *vhw.Board, line string) (string, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return "", errors.Wrap(err, "parsing command")
	}
	if len(args) == 0 {
		return "", nil
	}

	switch args[0] {
	case "help":
		return shellHelp, nil
	case "reset":
		b.Reset()
		return "reset", nil
	case "stats":
		return fmt.Sprintf("%+v", b.Queue.Stats()), nil
	case "clock":
		return clockCmd(b, args[1:])
	case "pin":
		return pinCmd(b, args[1:])
	case "adc":
		return adcCmd(b, args[1:])
	case "i2c":
		return i2cCmd(b, args[1:])
	case "uart":
		return uartCmd(b, args[1:])
	case "enc":
		return encCmd(b, args[1:])
	}
	return "", errors.Errorf("unknown command %q (try help)", args[0])
}

func atoi(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Wrapf(err, "number %q", s)
	}
	return n, nil
}

func level(s string) (bool, error) {
	switch s {
	case "0", "low", "false":
		return false, nil
	case "1", "high", "true":
		return true, nil
	}
	return false, errors.Errorf("level %q must be 0 or 1", s)
}

func clockCmd(b *vhw.Board, args []string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("usage: clock now|mode <m>|advance <ms>")
	}
	switch args[0] {
	case "now":
		return fmt.Sprintf("%.3f ms (%d ticks, %s)",
			b.Clock.NowMS(), b.Clock.NowTicks(), b.Clock.Mode()), nil
	case "mode":
		if len(args) < 2 {
			return "", errors.New("usage: clock mode realtime|manual|fast-forward")
		}
		switch args[1] {
		case "realtime":
			b.Clock.SetMode(types.Realtime)
		case "manual":
			b.Clock.SetMode(types.Manual)
		case "fast-forward":
			b.Clock.SetMode(types.FastForward)
		default:
			return "", errors.Errorf("unknown clock mode %q", args[1])
		}
		return args[1], nil
	case "advance":
		if len(args) < 2 {
			return "", errors.New("usage: clock advance <ms>")
		}
		ms, err := atoi(args[1])
		if err != nil || ms < 0 {
			return "", errors.Errorf("bad millisecond count %q", args[1])
		}
		b.Clock.AdvanceToMS(uint64(b.Clock.NowMS()) + uint64(ms))
		return fmt.Sprintf("%.3f ms", b.Clock.NowMS()), nil
	}
	return "", errors.Errorf("unknown clock subcommand %q", args[0])
}

func pinCmd(b *vhw.Board, args []string) (string, error) {
	if len(args) < 2 {
		return "", errors.New("usage: pin <n> <op> ...")
	}
	pin, err := atoi(args[0])
	if err != nil {
		return "", err
	}
	if pin < 0 || pin >= vhw.NumPins {
		return "", errors.Errorf("pin %d out of range", pin)
	}
	switch args[1] {
	case "dir":
		if len(args) < 3 {
			return "", errors.New("usage: pin <n> dir in|out")
		}
		if args[2] == "out" {
			b.Pins.SetDirection(pin, types.Output)
		} else {
			b.Pins.SetDirection(pin, types.Input)
		}
		return "", nil
	case "set":
		if len(args) < 3 {
			return "", errors.New("usage: pin <n> set 0|1")
		}
		v, err := level(args[2])
		if err != nil {
			return "", err
		}
		b.Pins.SetValue(pin, v)
		return "", nil
	case "get":
		return fmt.Sprintf("%v", b.Pins.Value(pin)), nil
	case "pull":
		if len(args) < 3 {
			return "", errors.New("usage: pin <n> pull up|down|none")
		}
		switch args[2] {
		case "up":
			b.Pins.SetPull(pin, types.PullUp)
		case "down":
			b.Pins.SetPull(pin, types.PullDown)
		case "none":
			b.Pins.SetPull(pin, types.PullNone)
		default:
			return "", errors.Errorf("unknown pull %q", args[2])
		}
		return "", nil
	case "inject":
		if len(args) < 3 {
			return "", errors.New("usage: pin <n> inject 0|1")
		}
		v, err := level(args[2])
		if err != nil {
			return "", err
		}
		return "", b.Pins.InjectInput(pin, v)
	}
	return "", errors.Errorf("unknown pin op %q", args[1])
}

func adcCmd(b *vhw.Board, args []string) (string, error) {
	if len(args) < 2 {
		return "", errors.New("usage: adc <n> init|read|inject <v>")
	}
	pin, err := atoi(args[0])
	if err != nil {
		return "", err
	}
	switch args[1] {
	case "init":
		b.Analog.InitADC(pin)
		return "", nil
	case "read":
		return strconv.Itoa(int(b.Analog.Read(pin))), nil
	case "inject":
		if len(args) < 3 {
			return "", errors.New("usage: adc <n> inject <v>")
		}
		v, err := atoi(args[2])
		if err != nil || v < 0 || v > 0xFFFF {
			return "", errors.Errorf("bad analog level %q", args[2])
		}
		return "", b.Analog.InjectInput(pin, uint16(v))
	}
	return "", errors.Errorf("unknown adc op %q", args[1])
}

func i2cCmd(b *vhw.Board, args []string) (string, error) {
	if len(args) < 2 {
		return "", errors.New("usage: i2c claim <scl> <sda> | i2c <bus> <op> ...")
	}
	if args[0] == "claim" {
		if len(args) < 3 {
			return "", errors.New("usage: i2c claim <scl> <sda>")
		}
		scl, err := atoi(args[1])
		if err != nil {
			return "", err
		}
		sda, err := atoi(args[2])
		if err != nil {
			return "", err
		}
		bus, err := b.I2C.Claim(scl, sda, 100_000)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("bus %d", bus.Index()), nil
	}

	idx, err := atoi(args[0])
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= vhw.NumI2CBuses {
		return "", errors.Errorf("i2c bus %d out of range", idx)
	}
	bus := b.I2C.Bus(idx)

	parseAddr := func(s string) (uint8, error) {
		a, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 8)
		if err != nil {
			return 0, errors.Wrapf(err, "address %q", s)
		}
		return uint8(a), nil
	}

	if len(args) < 3 {
		return "", errors.New("usage: i2c <bus> <op> <addr> ...")
	}
	switch args[1] {
	case "add":
		addr, err := parseAddr(args[2])
		if err != nil {
			return "", err
		}
		return "", bus.AddDevice(addr)
	case "probe":
		addr, err := parseAddr(args[2])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%v", bus.Probe(addr)), nil
	case "write":
		if len(args) < 4 {
			return "", errors.New("usage: i2c <bus> write <addr> <hex>")
		}
		addr, err := parseAddr(args[2])
		if err != nil {
			return "", err
		}
		data, err := hex.DecodeString(args[3])
		if err != nil {
			return "", errors.Wrap(err, "payload hex")
		}
		return "", bus.Write(addr, data)
	case "read":
		if len(args) < 4 {
			return "", errors.New("usage: i2c <bus> read <addr> <n>")
		}
		addr, err := parseAddr(args[2])
		if err != nil {
			return "", err
		}
		n, err := atoi(args[3])
		if err != nil || n <= 0 || n > vhw.ObsBufSize {
			return "", errors.Errorf("bad read length %q", args[3])
		}
		buf := make([]byte, n)
		if err := bus.Read(addr, buf); err != nil {
			return "", err
		}
		return hex.EncodeToString(buf), nil
	}
	return "", errors.Errorf("unknown i2c op %q", args[1])
}

func uartCmd(b *vhw.Board, args []string) (string, error) {
	if len(args) < 2 {
		return "", errors.New("usage: uart claim <tx> <rx> <baud> | uart <port> <op> ...")
	}
	if args[0] == "claim" {
		if len(args) < 4 {
			return "", errors.New("usage: uart claim <tx> <rx> <baud>")
		}
		tx, err := atoi(args[1])
		if err != nil {
			return "", err
		}
		rx, err := atoi(args[2])
		if err != nil {
			return "", err
		}
		baud, err := atoi(args[3])
		if err != nil {
			return "", err
		}
		p, err := b.UART.Claim(tx, rx, uint32(baud))
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("port %d", p.Index()), nil
	}

	idx, err := atoi(args[0])
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= vhw.NumUARTPorts {
		return "", errors.Errorf("uart port %d out of range", idx)
	}
	port := b.UART.Port(idx)

	switch args[1] {
	case "inject":
		if len(args) < 3 {
			return "", errors.New("usage: uart <port> inject <text>")
		}
		n := port.InjectRX([]byte(strings.Join(args[2:], " ")))
		return fmt.Sprintf("%d bytes", n), nil
	case "drain":
		buf := make([]byte, vhw.UARTRingSize)
		n := port.DrainTX(buf)
		return strconv.Quote(string(buf[:n])), nil
	}
	return "", errors.Errorf("unknown uart op %q", args[1])
}

func encCmd(b *vhw.Board, args []string) (string, error) {
	if len(args) < 2 {
		return "", errors.New("usage: enc claim <a> <b> | enc <i> pos")
	}
	if args[0] == "claim" {
		if len(args) < 3 {
			return "", errors.New("usage: enc claim <a> <b>")
		}
		pa, err := atoi(args[1])
		if err != nil {
			return "", err
		}
		pb, err := atoi(args[2])
		if err != nil {
			return "", err
		}
		e, err := b.Encoders.Claim(pa, pb)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("encoder %d", e.Index()), nil
	}

	idx, err := atoi(args[0])
	if err != nil {
		return "", err
	}
	if idx < 0 || idx >= vhw.NumEncoders {
		return "", errors.Errorf("encoder %d out of range", idx)
	}
	if args[1] == "pos" {
		return strconv.Itoa(int(b.Encoders.Encoder(idx).Position())), nil
	}
	return "", errors.Errorf("unknown enc op %q", args[1])
}
