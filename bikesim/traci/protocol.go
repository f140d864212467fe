package traci

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

// Command identifiers for the subset of the protocol this client speaks.
const (
	cmdGetVersion     = 0x00
	cmdSimStep        = 0x02
	cmdSetOrder       = 0x03
	cmdClose          = 0x7F
	cmdGetLaneVar     = 0xa3
	cmdGetVehicleVar  = 0xa4
	cmdGetRouteVar    = 0xa6
	cmdGetSimVar      = 0xab
	cmdSetVehicleVar  = 0xc4
	cmdSetRouteVar    = 0xc6
	responseOffset    = 0x10 // response id = command id + offset
	statusOK          = 0x00
)

// Variable identifiers shared across domains.
const (
	varIDList       = 0x00
	laneVarEdgeID   = 0x31
	laneVarAllowed  = 0x34
	varSpeed        = 0x40
	varMaxSpeed     = 0x41
	varPosition     = 0x42
	varLength       = 0x44
	varShape        = 0x4e
	varRouteID      = 0x53
	varRouteEdges   = 0x54
	varLanePosition = 0x56
	varSignals      = 0x5b
	varTime         = 0x66
	varParameter    = 0x7e
	varDeltaT       = 0x7b
)

// Change-state sub-commands (sent as the "variable" of a set command).
const (
	cmdSlowDown      = 0x14
	cmdRouteAdd      = 0x80
	cmdVehicleRemove = 0x81
	cmdVehicleAdd    = 0x85 // "addFull"
)

// Atomic type codes.
const (
	typePosition2D = 0x01
	typePolygon    = 0x06
	typeUByte      = 0x07
	typeByte       = 0x08
	typeInteger    = 0x09
	typeDouble     = 0x0B
	typeString     = 0x0C
	typeStringList = 0x0E
	typeCompound   = 0x0F
)

// Vehicle removal reasons, as passed to Client.RemoveVehicle.
const (
	RemoveTeleport        = 0x00
	RemoveParking         = 0x01
	RemoveArrived         = 0x02
	RemoveVaporized       = 0x03
	RemoveTeleportArrived = 0x04
)

// Position is a 2D cartesian position in SUMO network coordinates.
type Position struct {
	X float64
	Y float64
}

// ProtocolError indicates a malformed or unexpected server response.
type ProtocolError struct {
	Op     string
	Detail string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("traci: %s: %s", e.Op, e.Detail)
}

// CommandError is returned when the server answers a command with a non-OK
// status result. Description carries the server's error text verbatim.
type CommandError struct {
	Command     byte
	Result      byte
	Description string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("traci: command 0x%02x failed (result 0x%02x): %s", e.Command, e.Result, e.Description)
}

// === writer ===

// writer accumulates the payload of a single command. All multi-byte values
// are big-endian per the TraCI specification.
type writer struct {
	buf bytes.Buffer
}

func (w *writer) writeByte(b byte) {
	w.buf.WriteByte(b)
}

func (w *writer) writeInt(v int32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	w.buf.Write(b[:])
}

func (w *writer) writeDouble(v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	w.buf.Write(b[:])
}

func (w *writer) writeString(s string) {
	w.writeInt(int32(len(s)))
	w.buf.WriteString(s)
}

func (w *writer) writeStringList(ss []string) {
	w.writeInt(int32(len(ss)))
	for _, s := range ss {
		w.writeString(s)
	}
}

// typed variants prepend the TraCI type code.

func (w *writer) writeTypedByte(b byte) {
	w.writeByte(typeByte)
	w.writeByte(b)
}

func (w *writer) writeTypedInt(v int32) {
	w.writeByte(typeInteger)
	w.writeInt(v)
}

func (w *writer) writeTypedDouble(v float64) {
	w.writeByte(typeDouble)
	w.writeDouble(v)
}

func (w *writer) writeTypedString(s string) {
	w.writeByte(typeString)
	w.writeString(s)
}

func (w *writer) writeTypedStringList(ss []string) {
	w.writeByte(typeStringList)
	w.writeStringList(ss)
}

func (w *writer) writeCompound(n int32) {
	w.writeByte(typeCompound)
	w.writeInt(n)
}

func (w *writer) bytes() []byte {
	return w.buf.Bytes()
}

// encodeCommand frames a payload with the command length and identifier.
// Payloads whose framed size exceeds one byte use the extended length form.
func encodeCommand(id byte, payload []byte) []byte {
	short := len(payload) + 2
	if short <= 0xFF {
		out := make([]byte, 0, short)
		out = append(out, byte(short), id)
		return append(out, payload...)
	}
	ext := len(payload) + 6
	out := make([]byte, 0, ext)
	out = append(out, 0)
	var lb [4]byte
	binary.BigEndian.PutUint32(lb[:], uint32(ext))
	out = append(out, lb[:]...)
	out = append(out, id)
	return append(out, payload...)
}

// encodeMessage wraps already-framed commands with the 4-byte message length.
func encodeMessage(commands ...[]byte) []byte {
	total := 4
	for _, c := range commands {
		total += len(c)
	}
	out := make([]byte, 4, total)
	binary.BigEndian.PutUint32(out, uint32(total))
	for _, c := range commands {
		out = append(out, c...)
	}
	return out
}

// === reader ===

// reader decodes a received message. Errors are sticky: after the first
// failure every subsequent read returns the zero value and err() reports
// the original cause.
type reader struct {
	data []byte
	pos  int
	fail error
}

func newReader(data []byte) *reader {
	return &reader{data: data}
}

func (r *reader) err() error {
	return r.fail
}

func (r *reader) remaining() int {
	return len(r.data) - r.pos
}

func (r *reader) setErr(op, detail string) {
	if r.fail == nil {
		r.fail = &ProtocolError{Op: op, Detail: detail}
	}
}

func (r *reader) take(n int) []byte {
	if r.fail != nil {
		return nil
	}
	if r.remaining() < n {
		r.setErr("read", fmt.Sprintf("need %d bytes, have %d", n, r.remaining()))
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) readByte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) readInt() int32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return int32(binary.BigEndian.Uint32(b))
}

func (r *reader) readDouble() float64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return math.Float64frombits(binary.BigEndian.Uint64(b))
}

func (r *reader) readString() string {
	n := r.readInt()
	if r.fail != nil {
		return ""
	}
	if n < 0 {
		r.setErr("readString", fmt.Sprintf("negative length %d", n))
		return ""
	}
	b := r.take(int(n))
	return string(b)
}

func (r *reader) readStringList() []string {
	n := r.readInt()
	if r.fail != nil {
		return nil
	}
	out := make([]string, 0, n)
	for i := int32(0); i < n; i++ {
		out = append(out, r.readString())
	}
	return out
}

// expectType consumes a type code and fails unless it matches.
func (r *reader) expectType(want byte) {
	got := r.readByte()
	if r.fail == nil && got != want {
		r.setErr("type", fmt.Sprintf("got 0x%02x, want 0x%02x", got, want))
	}
}

// readCommandHeader consumes a command length (short or extended form) and
// identifier, returning the identifier and the payload length in bytes.
func (r *reader) readCommandHeader() (id byte, payloadLen int) {
	start := r.pos
	n := int(r.readByte())
	headerLen := 2
	if n == 0 {
		n = int(r.readInt())
		headerLen = 6
	}
	id = r.readByte()
	if r.fail != nil {
		return 0, 0
	}
	payloadLen = n - headerLen
	if payloadLen < 0 || payloadLen > len(r.data)-start-headerLen {
		r.setErr("command", fmt.Sprintf("invalid command length %d", n))
		return 0, 0
	}
	return id, payloadLen
}

// readMessage reads one length-prefixed TraCI message from the stream and
// returns its body (everything after the length field).
func readMessage(conn io.Reader) ([]byte, error) {
	var lb [4]byte
	if _, err := io.ReadFull(conn, lb[:]); err != nil {
		return nil, fmt.Errorf("traci: read message length: %w", err)
	}
	total := binary.BigEndian.Uint32(lb[:])
	if total < 4 {
		return nil, &ProtocolError{Op: "message", Detail: fmt.Sprintf("length %d too small", total)}
	}
	body := make([]byte, total-4)
	if _, err := io.ReadFull(conn, body); err != nil {
		return nil, fmt.Errorf("traci: read message body: %w", err)
	}
	return body, nil
}
