package traci

import (
	"fmt"
	"net"

	"github.com/sirupsen/logrus"
)

// Client is a TraCI connection to a running SUMO instance. It is not safe
// for concurrent use; the protocol is a strict request/response sequence on
// a single TCP stream.
type Client struct {
	conn   net.Conn
	closed bool
}

// Dial connects to the TraCI server at addr (host:port).
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("traci: dial %s: %w", addr, err)
	}
	logrus.Debugf("traci: connected to %s", addr)
	return &Client{conn: conn}, nil
}

// NewClient wraps an existing connection. Used by tests with in-memory pipes.
func NewClient(conn net.Conn) *Client {
	return &Client{conn: conn}
}

// roundTrip sends a single command and returns a reader positioned at the
// start of the response body (before the status result for cmdID).
func (c *Client) roundTrip(cmdID byte, payload []byte) (*reader, error) {
	if c.closed {
		return nil, &ProtocolError{Op: "send", Detail: "connection closed"}
	}
	msg := encodeMessage(encodeCommand(cmdID, payload))
	if _, err := c.conn.Write(msg); err != nil {
		return nil, fmt.Errorf("traci: write command 0x%02x: %w", cmdID, err)
	}
	body, err := readMessage(c.conn)
	if err != nil {
		return nil, err
	}
	r := newReader(body)
	if err := consumeStatus(r, cmdID); err != nil {
		return nil, err
	}
	return r, nil
}

// consumeStatus reads and verifies the status result for cmdID.
func consumeStatus(r *reader, cmdID byte) error {
	id, _ := r.readCommandHeader()
	result := r.readByte()
	desc := r.readString()
	if err := r.err(); err != nil {
		return err
	}
	if id != cmdID {
		return &ProtocolError{Op: "status", Detail: fmt.Sprintf("status for command 0x%02x, expected 0x%02x", id, cmdID)}
	}
	if result != statusOK {
		return &CommandError{Command: cmdID, Result: result, Description: desc}
	}
	return nil
}

// getResponse validates the result command header for a get command and
// leaves the reader positioned at the typed return value.
func (c *Client) getResponse(cmd, variable byte, objectID string) (*reader, error) {
	w := &writer{}
	w.writeByte(variable)
	w.writeString(objectID)
	r, err := c.roundTrip(cmd, w.bytes())
	if err != nil {
		return nil, err
	}
	id, _ := r.readCommandHeader()
	gotVar := r.readByte()
	gotID := r.readString()
	if err := r.err(); err != nil {
		return nil, err
	}
	if id != cmd+responseOffset {
		return nil, &ProtocolError{Op: "response", Detail: fmt.Sprintf("response id 0x%02x, expected 0x%02x", id, cmd+responseOffset)}
	}
	if gotVar != variable || gotID != objectID {
		return nil, &ProtocolError{Op: "response", Detail: fmt.Sprintf("response for variable 0x%02x of %q, expected 0x%02x of %q", gotVar, gotID, variable, objectID)}
	}
	return r, nil
}

func (c *Client) getDouble(cmd, variable byte, objectID string) (float64, error) {
	r, err := c.getResponse(cmd, variable, objectID)
	if err != nil {
		return 0, err
	}
	r.expectType(typeDouble)
	v := r.readDouble()
	return v, r.err()
}

func (c *Client) getInt(cmd, variable byte, objectID string) (int32, error) {
	r, err := c.getResponse(cmd, variable, objectID)
	if err != nil {
		return 0, err
	}
	r.expectType(typeInteger)
	v := r.readInt()
	return v, r.err()
}

func (c *Client) getString(cmd, variable byte, objectID string) (string, error) {
	r, err := c.getResponse(cmd, variable, objectID)
	if err != nil {
		return "", err
	}
	r.expectType(typeString)
	v := r.readString()
	return v, r.err()
}

func (c *Client) getStringList(cmd, variable byte, objectID string) ([]string, error) {
	r, err := c.getResponse(cmd, variable, objectID)
	if err != nil {
		return nil, err
	}
	r.expectType(typeStringList)
	v := r.readStringList()
	return v, r.err()
}

func (c *Client) getPosition(cmd, variable byte, objectID string) (Position, error) {
	r, err := c.getResponse(cmd, variable, objectID)
	if err != nil {
		return Position{}, err
	}
	r.expectType(typePosition2D)
	p := Position{X: r.readDouble(), Y: r.readDouble()}
	return p, r.err()
}

// set sends a change-state command (no return value beyond the status).
func (c *Client) set(cmd, variable byte, objectID string, value func(*writer)) error {
	w := &writer{}
	w.writeByte(variable)
	w.writeString(objectID)
	value(w)
	_, err := c.roundTrip(cmd, w.bytes())
	return err
}

// GetVersion returns the TraCI API version and the server version string.
func (c *Client) GetVersion() (int, string, error) {
	r, err := c.roundTrip(cmdGetVersion, nil)
	if err != nil {
		return 0, "", err
	}
	id, _ := r.readCommandHeader()
	if id != cmdGetVersion {
		return 0, "", &ProtocolError{Op: "version", Detail: fmt.Sprintf("unexpected response id 0x%02x", id)}
	}
	api := r.readInt()
	version := r.readString()
	return int(api), version, r.err()
}

// SetOrder declares this client's execution order among multiple TraCI
// clients. Must be sent before the first simulation step.
func (c *Client) SetOrder(order int) error {
	w := &writer{}
	w.writeInt(int32(order))
	_, err := c.roundTrip(cmdSetOrder, w.bytes())
	return err
}

// SimulationStep advances the simulation by one step. Subscription results
// in the response are discarded; this client polls state explicitly.
func (c *Client) SimulationStep() error {
	w := &writer{}
	w.writeDouble(0) // 0 = advance one step
	_, err := c.roundTrip(cmdSimStep, w.bytes())
	return err
}

// Close sends the close command and shuts the connection down. Idempotent.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	var handshakeErr error
	msg := encodeMessage(encodeCommand(cmdClose, nil))
	if _, err := c.conn.Write(msg); err != nil {
		handshakeErr = fmt.Errorf("traci: write close: %w", err)
	} else if body, err := readMessage(c.conn); err != nil {
		handshakeErr = err
	} else {
		handshakeErr = consumeStatus(newReader(body), cmdClose)
	}
	c.closed = true
	closeErr := c.conn.Close()
	if handshakeErr != nil {
		return handshakeErr
	}
	return closeErr
}
