// Package svcclient implements the control-socket client runtime:
// connect, send one request, receive one reply, and render a LIST
// reply either as column-aligned text or NUL-delimited records.
package svcclient

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"golang.org/x/term"

	"svcd/transport"
	"svcd/wire"
)

// Client wraps one connected control-socket endpoint.
type Client struct {
	ep *transport.Endpoint
}

// Dial connects to the daemon's control socket at path.
func Dial(path string) (*Client, error) {
	ep, err := transport.NewClient(path)
	if err != nil {
		return nil, fmt.Errorf("svcclient: %w", err)
	}
	return &Client{ep: ep}, nil
}

// Close releases the underlying socket.
func (c *Client) Close() error {
	return c.ep.Close()
}

// roundTrip sends fields and blocks for exactly one reply.
func (c *Client) roundTrip(fields ...string) (wire.Reply, error) {
	buf, err := wire.EncodeStrings(fields...)
	if err != nil {
		return wire.Reply{}, fmt.Errorf("svcclient: encode: %w", err)
	}
	if _, err := c.ep.Send(buf, nil, nil, false); err != nil {
		return wire.Reply{}, fmt.Errorf("svcclient: send: %w", err)
	}

	recvBuf := make([]byte, wire.MaxMessageSize)
	n, _, _, _, err := c.ep.Recv(recvBuf, nil, false)
	if err != nil {
		return wire.Reply{}, fmt.Errorf("svcclient: recv: %w", err)
	}

	decoded, err := wire.Decode(recvBuf[:n])
	if err != nil {
		return wire.Reply{}, fmt.Errorf("svcclient: %w", err)
	}
	return wire.ReplyFromFields(decoded), nil
}

// Ping sends PING, optionally with one echoed token.
func (c *Client) Ping(token string) (wire.Reply, error) {
	if token == "" {
		return c.roundTrip("PING")
	}
	return c.roundTrip("PING", token)
}

// Spawn runs an action against a program via RUN.
func (c *Client) Spawn(program, action string, args ...string) (wire.Reply, error) {
	fields := append([]string{"RUN", program, action}, args...)
	return c.roundTrip(fields...)
}

// Reload asks the daemon to re-read its configuration.
func (c *Client) Reload() (wire.Reply, error) {
	return c.roundTrip("SIGNAL", "reload")
}

// Stop asks the daemon to shut down.
func (c *Client) Stop() (wire.Reply, error) {
	return c.roundTrip("SIGNAL", "shutdown")
}

// List requests the program listing.
func (c *Client) List() (wire.Reply, error) {
	return c.roundTrip("LIST")
}

// ExitCode translates an "OK <n>" reply into its return code, clamped
// to [-255, 255], or returns an error describing an error reply.
func ExitCode(reply wire.Reply) (int, error) {
	fields := reply.Fields()
	if reply.IsError() {
		code, desc := "", ""
		if len(fields) > 1 {
			code = string(fields[1])
		}
		if len(fields) > 2 {
			desc = string(fields[2])
		}
		return 0, fmt.Errorf("(%s) %s", code, desc)
	}
	if len(fields) < 2 || string(fields[0]) != "OK" {
		return 0, nil
	}
	n, err := strconv.Atoi(string(fields[1]))
	if err != nil {
		return 0, fmt.Errorf("svcclient: malformed OK reply: %w", err)
	}
	if n <= -256 {
		n = -255
	}
	if n >= 256 {
		n = 255
	}
	return n, nil
}

// PrintError renders an error reply to w as "ERROR: (<code>) <desc>".
func PrintError(w io.Writer, reply wire.Reply) {
	fields := reply.Fields()
	code, desc := "", ""
	if len(fields) > 1 {
		code = string(fields[1])
	}
	if len(fields) > 2 {
		desc = string(fields[2])
	}
	fmt.Fprintf(w, "ERROR: (%s) %s\n", code, desc)
}

// PrintListing renders a LISTING reply's name/state pairs to w, either
// column-aligned (human terminal) or NUL-delimited (scriptable),
// selected by null; see DefaultNull for the flag's default.
func PrintListing(w io.Writer, reply wire.Reply, null bool) {
	fields := reply.Fields()
	if len(fields) == 0 {
		return
	}
	pairs := fields[1:] // fields[0] is the "LISTING" marker

	if null {
		for i := 0; i+1 < len(pairs); i += 2 {
			fmt.Fprintf(w, "%s\x00%s\x00", pairs[i], pairs[i+1])
		}
		return
	}

	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSTATE")
	for i := 0; i+1 < len(pairs); i += 2 {
		fmt.Fprintf(tw, "%s\t%s\n", pairs[i], pairs[i+1])
	}
	tw.Flush()
}

// DefaultNull reports whether NUL-delimited output should be the
// default for w, absent an explicit --null/-0 flag: true when w is not
// an interactive terminal.
func DefaultNull(w *os.File) bool {
	return !term.IsTerminal(int(w.Fd()))
}
