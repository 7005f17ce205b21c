// litegpio-host is an interactive tool for poking a LiteX GPIO bank:
// raw register peek/poke, pin get/set, interrupt configuration and a
// watch mode for dispatched pin interrupts. It talks to a live target
// over a serial or TCP bridge, or runs against the built-in simulator.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"litegpio/csr"
	"litegpio/gpio"
	"litegpio/host/remote"
	"litegpio/irq"
	"litegpio/sim"
)

var (
	device    = flag.String("device", "", "Serial bridge device path (e.g. /dev/ttyUSB0)")
	baud      = flag.Int("baud", remote.DefaultBaud, "Serial baud rate")
	addr      = flag.String("addr", "", "TCP bridge address (e.g. 192.168.1.50:1234)")
	simulate  = flag.Bool("sim", false, "Run against the built-in simulated bank")
	base      = flag.Uint("base", 0, "Bus address of the bank's VALUE register")
	pins      = flag.Int("pins", 8, "Bank width in pins (1..32)")
	direction = flag.String("direction", "in", "Bank direction: in or out")
)

// parentLine is the shared line the host tool binds the bank to.
const parentLine irq.Line = 1

type session struct {
	bus    csr.Bus
	rbus   *remote.Bus // nil in sim mode
	ctrl   *gpio.Controller
	parent *sim.Parent
	dev    *sim.Device // nil unless sim mode
}

func main() {
	flag.Parse()

	fmt.Println("litegpio-host - LiteX GPIO bank console")

	dir, err := parseDirection(*direction)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	s, err := connect(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if s.rbus != nil {
		defer s.rbus.Close()
	}

	fmt.Printf("Attached: %d-pin %s bank at 0x%08x\n", s.ctrl.Pins(), s.ctrl.Direction(), uint32(*base))
	fmt.Println("Enter commands (type 'help' for available commands, 'quit' to exit):")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		args, err := shlex.Split(line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			continue
		}
		if len(args) == 0 {
			continue
		}
		if args[0] == "quit" || args[0] == "exit" || args[0] == "q" {
			return
		}
		if err := s.run(args[0], args[1:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error reading input: %v\n", err)
		os.Exit(1)
	}
}

func parseDirection(s string) (gpio.Direction, error) {
	switch s {
	case "in", "input":
		return gpio.Input, nil
	case "out", "output":
		return gpio.Output, nil
	default:
		return 0, fmt.Errorf("bad -direction %q (want in or out)", s)
	}
}

// connect builds the register bus and attaches the controller. The
// parent domain lives host-side in all modes; in bridge modes the
// target's event frames assert it.
func connect(dir gpio.Direction) (*session, error) {
	s := &session{parent: sim.NewParent()}

	switch {
	case *simulate:
		s.dev = sim.NewDevice(*pins)
		s.bus = s.dev
		sim.Chain(s.dev, s.parent, parentLine)

	case *device != "":
		fmt.Printf("Connecting to serial bridge on %s...\n", *device)
		rbus, err := remote.OpenSerial(*device, *baud)
		if err != nil {
			return nil, err
		}
		s.rbus = rbus
		s.bus = rbus

	case *addr != "":
		fmt.Printf("Connecting to TCP bridge at %s...\n", *addr)
		rbus, err := remote.Dial(*addr)
		if err != nil {
			return nil, err
		}
		s.rbus = rbus
		s.bus = rbus

	default:
		return nil, fmt.Errorf("pick a target: -device, -addr or -sim")
	}

	if s.rbus != nil {
		s.rbus.OnEvent(func(line uint32) {
			s.parent.Assert(irq.Line(line))
		})
	}

	cfg := gpio.Config{
		Bus:       s.bus,
		Base:      uint32(*base),
		Pins:      *pins,
		Direction: dir,
	}
	if dir == gpio.Input {
		cfg.Parent = s.parent
		cfg.ParentLine = parentLine
	}

	ctrl, err := gpio.New(cfg)
	if err != nil {
		return nil, err
	}
	s.ctrl = ctrl
	return s, nil
}

func (s *session) run(cmd string, args []string) error {
	switch cmd {
	case "help", "?":
		printHelp()
		return nil

	case "peek":
		off, err := argU32(args, 0)
		if err != nil {
			return err
		}
		v, err := s.bus.Read32(uint32(*base) + off)
		if err != nil {
			return err
		}
		fmt.Printf("[0x%08x] = 0x%08x\n", uint32(*base)+off, v)
		return nil

	case "poke":
		off, err := argU32(args, 0)
		if err != nil {
			return err
		}
		val, err := argU32(args, 1)
		if err != nil {
			return err
		}
		return s.bus.Write32(uint32(*base)+off, val)

	case "get":
		pin, err := argPin(args, 0)
		if err != nil {
			return err
		}
		v, err := s.ctrl.Value(pin)
		if err != nil {
			return err
		}
		fmt.Printf("pin %d = %s\n", pin, level(v))
		return nil

	case "getall":
		mask := uint32(1)<<uint(s.ctrl.Pins()) - 1
		v, err := s.ctrl.Multiple(mask)
		if err != nil {
			return err
		}
		fmt.Printf("pins = %0*b\n", s.ctrl.Pins(), v)
		return nil

	case "set":
		pin, err := argPin(args, 0)
		if err != nil {
			return err
		}
		on, err := argBool(args, 1)
		if err != nil {
			return err
		}
		return s.ctrl.SetValue(pin, on)

	case "setm":
		mask, err := argU32(args, 0)
		if err != nil {
			return err
		}
		bits, err := argU32(args, 1)
		if err != nil {
			return err
		}
		return s.ctrl.SetMultiple(mask, bits)

	case "dir":
		fmt.Printf("bank direction: %s\n", s.ctrl.Direction())
		return nil

	case "type":
		pin, err := argPin(args, 0)
		if err != nil {
			return err
		}
		sense, err := argSense(args, 1)
		if err != nil {
			return err
		}
		chip, err := s.ctrl.IRQ()
		if err != nil {
			return err
		}
		return chip.SetType(pin, sense)

	case "mask", "unmask", "ack":
		pin, err := argPin(args, 0)
		if err != nil {
			return err
		}
		chip, err := s.ctrl.IRQ()
		if err != nil {
			return err
		}
		switch cmd {
		case "mask":
			return chip.Mask(pin)
		case "unmask":
			return chip.Unmask(pin)
		default:
			return chip.Ack(pin)
		}

	case "affinity":
		pin, err := argPin(args, 0)
		if err != nil {
			return err
		}
		cpus, err := argU32(args, 1)
		if err != nil {
			return err
		}
		chip, err := s.ctrl.IRQ()
		if err != nil {
			return err
		}
		return chip.SetAffinity(pin, irq.Affinity(cpus))

	case "request":
		pin, err := argPin(args, 0)
		if err != nil {
			return err
		}
		sense, err := argSense(args, 1)
		if err != nil {
			return err
		}
		line, err := s.ctrl.RequestIRQ(pin, sense, func() {
			fmt.Printf("\n*** interrupt: pin %d ***\n> ", pin)
			if chip, err := s.ctrl.IRQ(); err == nil {
				if err := chip.Ack(pin); err != nil {
					fmt.Fprintf(os.Stderr, "Error: ack pin %d: %v\n", pin, err)
				}
			}
		})
		if err != nil {
			return err
		}
		fmt.Printf("pin %d mapped to irq line %d (%s edges)\n", pin, line, sense)
		return nil

	case "free":
		pin, err := argPin(args, 0)
		if err != nil {
			return err
		}
		return s.ctrl.FreeIRQ(pin)

	case "watch":
		return s.watch(args)

	case "edge":
		if s.dev == nil {
			return fmt.Errorf("edge injection needs -sim")
		}
		pin, err := argPin(args, 0)
		if err != nil {
			return err
		}
		on, err := argBool(args, 1)
		if err != nil {
			return err
		}
		s.dev.SetInput(pin, on)
		return nil

	case "regs":
		if s.dev == nil {
			return fmt.Errorf("register dump needs -sim")
		}
		value, mode, edge, pending, enable := s.dev.Registers()
		fmt.Printf("VALUE   = 0x%08x\nMODE    = 0x%08x\nEDGE    = 0x%08x\nPENDING = 0x%08x\nENABLE  = 0x%08x\n",
			value, mode, edge, pending, enable)
		return nil

	default:
		return fmt.Errorf("unknown command: %s (type 'help' for available commands)", cmd)
	}
}

// watch polls the bridge for event frames so pin handlers installed
// with 'request' get to run. In sim mode dispatch is synchronous with
// edge injection and there is nothing to poll.
func (s *session) watch(args []string) error {
	if s.rbus == nil {
		return fmt.Errorf("watch needs a bridge target; sim dispatch is synchronous")
	}
	secs := 5
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("bad watch duration %q", args[0])
		}
		secs = n
	}
	fmt.Printf("watching for %d seconds...\n", secs)
	deadline := time.Now().Add(time.Duration(secs) * time.Second)
	for time.Now().Before(deadline) {
		if err := s.rbus.Poll(); err != nil {
			return err
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil
}

func printHelp() {
	fmt.Println("\nAvailable commands:")
	fmt.Println("  peek <off>            - Read the register at base+off")
	fmt.Println("  poke <off> <val>      - Write the register at base+off")
	fmt.Println("  get <pin>             - Read one pin level")
	fmt.Println("  getall                - Read all pin levels")
	fmt.Println("  set <pin> <0|1>       - Drive one pin")
	fmt.Println("  setm <mask> <bits>    - Drive several pins at once")
	fmt.Println("  dir                   - Show the bank direction")
	fmt.Println("  type <pin> <sense>    - Program edge sensing (rising|falling|both|none)")
	fmt.Println("  mask <pin>            - Mask a pin interrupt")
	fmt.Println("  unmask <pin>          - Unmask a pin interrupt")
	fmt.Println("  ack <pin>             - Acknowledge a pin interrupt")
	fmt.Println("  affinity <pin> <cpus> - Forward an affinity mask upstream")
	fmt.Println("  request <pin> <sense> - Claim a pin irq with a printing handler")
	fmt.Println("  free <pin>            - Release a claimed pin irq")
	fmt.Println("  watch [secs]          - Poll the bridge for interrupt events")
	fmt.Println("  edge <pin> <0|1>      - Drive a simulated input pin (sim only)")
	fmt.Println("  regs                  - Dump simulated registers (sim only)")
	fmt.Println("  quit/exit/q           - Exit the program")
	fmt.Println()
}

func argU32(args []string, i int) (uint32, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d", i+1)
	}
	v, err := strconv.ParseUint(args[i], 0, 32)
	if err != nil {
		return 0, fmt.Errorf("bad number %q", args[i])
	}
	return uint32(v), nil
}

func argPin(args []string, i int) (int, error) {
	v, err := argU32(args, i)
	return int(v), err
}

func argBool(args []string, i int) (bool, error) {
	if i >= len(args) {
		return false, fmt.Errorf("missing argument %d", i+1)
	}
	switch args[i] {
	case "0", "low", "off":
		return false, nil
	case "1", "high", "on":
		return true, nil
	default:
		return false, fmt.Errorf("bad level %q (want 0 or 1)", args[i])
	}
}

func argSense(args []string, i int) (gpio.Sense, error) {
	if i >= len(args) {
		return 0, fmt.Errorf("missing argument %d", i+1)
	}
	switch args[i] {
	case "rising":
		return gpio.RisingEdge, nil
	case "falling":
		return gpio.FallingEdge, nil
	case "both":
		return gpio.BothEdges, nil
	case "none":
		return gpio.SenseNone, nil
	default:
		return 0, fmt.Errorf("bad sense %q (want rising, falling, both or none)", args[i])
	}
}

func level(on bool) string {
	if on {
		return "high"
	}
	return "low"
}
