package enrich

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/rawblock/algostream/pkg/models"
)

type selectorEntry struct {
	groupName string
	signature string
	schema    models.EventSchema
}

// EventDecoder identifies and decodes application logs that match a declared
// event schema. The selector table is built once per subscription.
type EventDecoder struct {
	selectors map[[4]byte]selectorEntry
}

// NewEventDecoder builds the selector table. When two schemas collide on a
// selector, the first declared wins.
func NewEventDecoder(schemas []models.EventSchema) *EventDecoder {
	d := &EventDecoder{selectors: make(map[[4]byte]selectorEntry, len(schemas))}
	for _, schema := range schemas {
		sel := schema.Selector()
		if _, exists := d.selectors[sel]; exists {
			log.Printf("[Arc28] Selector collision for %q; keeping first declaration", schema.Signature())
			continue
		}
		d.selectors[sel] = selectorEntry{
			groupName: schema.GroupName,
			signature: schema.Signature(),
			schema:    schema,
		}
	}
	return d
}

// Empty reports whether no schemas are declared.
func (d *EventDecoder) Empty() bool {
	return d == nil || len(d.selectors) == 0
}

// ApplyEvents decodes the logs of tx and every inner transaction, attaching
// the resulting events to the transaction the logs belong to.
func (d *EventDecoder) ApplyEvents(tx *models.Transaction) {
	if d.Empty() {
		return
	}
	tx.Arc28Events = d.DecodeLogs(tx.Logs)
	for i := range tx.InnerTxns {
		d.ApplyEvents(&tx.InnerTxns[i])
	}
}

// DecodeLogs returns one decoded event per log whose leading 4 bytes match a
// declared selector. Logs shorter than 4 bytes and logs with no matching
// selector are skipped silently; logs whose argument tail cannot be decoded
// are skipped with a diagnostic and produce no entry.
func (d *EventDecoder) DecodeLogs(logs [][]byte) []models.Arc28Event {
	if d.Empty() {
		return nil
	}
	var events []models.Arc28Event
	for _, raw := range logs {
		if len(raw) < 4 {
			continue
		}
		var sel [4]byte
		copy(sel[:], raw[:4])
		entry, ok := d.selectors[sel]
		if !ok {
			continue
		}
		args, err := decodeArgs(entry.schema, raw[4:])
		if err != nil {
			log.Printf("[Arc28] Failed to decode %q log: %v", entry.signature, err)
			continue
		}
		events = append(events, models.Arc28Event{
			GroupName: entry.groupName,
			EventName: entry.schema.Name,
			Signature: entry.signature,
			Args:      args,
		})
	}
	return events
}

func decodeArgs(schema models.EventSchema, data []byte) (map[string]any, error) {
	args := make(map[string]any, len(schema.Args))
	offset := 0
	for _, arg := range schema.Args {
		value, consumed, err := decodeValue(arg.Type, data[offset:])
		if err != nil {
			return nil, fmt.Errorf("argument %q: %w", arg.Name, err)
		}
		args[arg.Name] = value
		offset += consumed
	}
	return args, nil
}

// decodeValue decodes one ABI-typed value from the head of data, returning
// the value and the number of bytes consumed. Opaque blob types (address,
// byte[N]) are surfaced base64-encoded.
func decodeValue(abiType string, data []byte) (any, int, error) {
	switch {
	case abiType == "uint64":
		if len(data) < 8 {
			return nil, 0, fmt.Errorf("uint64 needs 8 bytes, have %d", len(data))
		}
		return binary.BigEndian.Uint64(data[:8]), 8, nil

	case abiType == "uint32":
		if len(data) < 4 {
			return nil, 0, fmt.Errorf("uint32 needs 4 bytes, have %d", len(data))
		}
		return binary.BigEndian.Uint32(data[:4]), 4, nil

	case abiType == "byte":
		if len(data) < 1 {
			return nil, 0, fmt.Errorf("byte needs 1 byte, have 0")
		}
		return data[0], 1, nil

	case abiType == "address":
		if len(data) < 32 {
			return nil, 0, fmt.Errorf("address needs 32 bytes, have %d", len(data))
		}
		return base64.StdEncoding.EncodeToString(data[:32]), 32, nil

	case abiType == "string":
		if len(data) < 2 {
			return nil, 0, fmt.Errorf("string length prefix needs 2 bytes, have %d", len(data))
		}
		length := int(binary.BigEndian.Uint16(data[:2]))
		if len(data) < 2+length {
			return nil, 0, fmt.Errorf("string of length %d runs past end of data", length)
		}
		return string(data[2 : 2+length]), 2 + length, nil

	case strings.HasPrefix(abiType, "byte[") && strings.HasSuffix(abiType, "]"):
		n, err := strconv.Atoi(abiType[5 : len(abiType)-1])
		if err != nil || n <= 0 {
			return nil, 0, fmt.Errorf("unsupported type %q", abiType)
		}
		if len(data) < n {
			return nil, 0, fmt.Errorf("%s needs %d bytes, have %d", abiType, n, len(data))
		}
		return base64.StdEncoding.EncodeToString(data[:n]), n, nil

	default:
		return nil, 0, fmt.Errorf("unsupported type %q", abiType)
	}
}
