package main

import (
	"bytes"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/abiosoft/ishell"
	"github.com/pkg/errors"

	"github.com/itohio/sbpedals/pkg/config"
	"github.com/itohio/sbpedals/pkg/controller"
	"github.com/itohio/sbpedals/pkg/keys"
	"github.com/itohio/sbpedals/pkg/link"
	"github.com/itohio/sbpedals/pkg/observe"
	"github.com/itohio/sbpedals/pkg/pedal"
)

var errUsage = errors.New("usage")

// console holds the command implementations; shell wires them into ishell.
type console struct {
	ctl    *controller.Controller
	serial config.SerialConfig
	ports  func() ([]link.PortInfo, error)
	queues []*observe.Latest
}

func (c *console) bind(args []string) (string, error) {
	if len(args) != 2 {
		return "", errors.Wrap(errUsage, "bind PEDAL KEY")
	}
	ch, err := pedal.ParseChannel(args[0])
	if err != nil {
		return "", err
	}
	if err := c.ctl.RebindSymbol(ch, args[1]); err != nil {
		return "", err
	}
	code, _ := keys.Lookup(args[1])
	return fmt.Sprintf("%s bound to %s", ch, code), nil
}

func (c *console) threshold(args []string) (string, error) {
	if len(args) != 2 {
		return "", errors.Wrap(errUsage, "threshold PEDAL VALUE")
	}
	ch, err := pedal.ParseChannel(args[0])
	if err != nil {
		return "", err
	}
	v, err := strconv.Atoi(args[1])
	if err != nil {
		return "", errors.Wrapf(err, "invalid threshold %q", args[1])
	}
	if err := c.ctl.SetThreshold(ch, v); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s threshold %d", ch, v), nil
}

func (c *console) port(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.Wrap(errUsage, "port NAME")
	}
	c.serial.Port = args[0]
	if err := c.ctl.SwitchPort(linkConfig(c.serial)); err != nil {
		return "", err
	}
	return "listening on " + c.serial.Port, nil
}

func (c *console) listPorts() (string, error) {
	ports, err := c.ports()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "No serial ports found", nil
	}
	var buf bytes.Buffer
	for _, p := range ports {
		fmt.Fprintf(&buf, "%s\t%s\n", p.Name, p.Description)
	}
	return buf.String(), nil
}

func (c *console) start() (string, error) {
	if err := c.ctl.Start(linkConfig(c.serial)); err != nil {
		return "", err
	}
	return "listening on " + c.serial.Port, nil
}

func (c *console) stop() (string, error) {
	if err := c.ctl.Stop(); err != nil {
		return "", err
	}
	return "stopped", nil
}

func (c *console) status() string {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)

	state := c.ctl.State().String()
	if port := c.ctl.Port(); port != "" {
		state += " on " + port
	}
	fmt.Fprintf(w, "state\t%s\n", state)
	if s, ok := c.ctl.Stats(); ok {
		fmt.Fprintf(w, "frames\t%d (incomplete %d, errors %d, timeouts %d)\n",
			s.Frames, s.Incomplete, s.Errors, s.Timeouts)
	}
	for _, st := range c.ctl.Snapshot() {
		pressed := ""
		if st.Pressed {
			pressed = "pressed"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", st.Channel, st.Key, st.Threshold, pressed)
	}
	for _, q := range c.queues {
		fmt.Fprintf(w, "%s\tdropped %d\n", q.Name(), q.Dropped())
	}
	w.Flush()
	return buf.String()
}

// newShell creates the interactive console.
func newShell(ctl *controller.Controller, serial config.SerialConfig, queues []*observe.Latest) *ishell.Shell {
	c := &console{ctl: ctl, serial: serial, ports: link.Ports, queues: queues}

	sh := ishell.New()
	sh.SetPrompt("pedals > ")

	reply := func(fn func(args []string) (string, error)) func(*ishell.Context) {
		return func(ctx *ishell.Context) {
			out, err := fn(ctx.Args)
			if err != nil {
				ctx.Err(err)
				return
			}
			ctx.Println(out)
		}
	}
	noArgs := func(fn func() (string, error)) func([]string) (string, error) {
		return func([]string) (string, error) { return fn() }
	}

	sh.AddCmd(&ishell.Cmd{
		Name: "bind",
		Help: "PEDAL KEY: bind a pedal (gas, brake, clutch) to a key, e.g. bind gas D",
		Func: reply(c.bind),
	})
	sh.AddCmd(&ishell.Cmd{
		Name:    "threshold",
		Aliases: []string{"t"},
		Help:    "PEDAL VALUE: set the reading at which a pedal presses its key",
		Func:    reply(c.threshold),
	})
	sh.AddCmd(&ishell.Cmd{
		Name: "port",
		Help: "NAME: switch to another serial port",
		Func: reply(c.port),
	})
	sh.AddCmd(&ishell.Cmd{
		Name:    "ports",
		Aliases: []string{"list", "l"},
		Help:    "list serial ports",
		Func:    reply(noArgs(c.listPorts)),
	})
	sh.AddCmd(&ishell.Cmd{
		Name: "start",
		Help: "start listening",
		Func: reply(noArgs(c.start)),
	})
	sh.AddCmd(&ishell.Cmd{
		Name: "stop",
		Help: "stop listening and release all keys",
		Func: reply(noArgs(c.stop)),
	})
	sh.AddCmd(&ishell.Cmd{
		Name:    "status",
		Aliases: []string{"s"},
		Help:    "show pedal bindings, state and dropped telemetry",
		Func: func(ctx *ishell.Context) {
			ctx.Print(c.status())
		},
	})
	return sh
}
