package eventcodec

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ABIDecoder is the production Decoder promised by this package's doc
// comment. One instance can hold event definitions merged from several
// contracts' ABI fragments, since unpacking only depends on an event's
// signature, not which address emitted it — the emitting contract is
// already pinned by a family Decoder's Addresses()/Topics() filter at the
// scanner layer (C4), so this type never needs to know it.
type ABIDecoder struct {
	abi abi.ABI
}

// NewABIDecoder parses one contract's ABI JSON into a decode table keyed by
// event name. Call MergeABI to add more contracts' event fragments into the
// same decoder.
func NewABIDecoder(abiJSON string) (*ABIDecoder, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("eventcodec: parse ABI: %w", err)
	}
	return &ABIDecoder{abi: parsed}, nil
}

// MergeABI adds another contract's event definitions into this decoder,
// letting one family's EventCodec adapter decode logs from several distinct
// contracts (e.g. gardening's reward contract and quest contract) through a
// single ABIDecoder.
func (d *ABIDecoder) MergeABI(abiJSON string) error {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return fmt.Errorf("eventcodec: merge ABI: %w", err)
	}
	for name, ev := range parsed.Events {
		d.abi.Events[name] = ev
	}
	return nil
}

// EventTopic implements Decoder.
func (d *ABIDecoder) EventTopic(eventName string) (common.Hash, error) {
	ev, ok := d.abi.Events[eventName]
	if !ok {
		return common.Hash{}, fmt.Errorf("eventcodec: unknown event %q", eventName)
	}
	return ev.ID, nil
}

// EventName looks up the event name for a log's topic0, the complement of
// EventTopic; families use this to dispatch on log.Topics[0] by name rather
// than re-deriving the hash at every call site.
func (d *ABIDecoder) EventName(log types.Log) string {
	if len(log.Topics) == 0 {
		return ""
	}
	for name, ev := range d.abi.Events {
		if ev.ID == log.Topics[0] {
			return name
		}
	}
	return ""
}

// DecodeEvent implements Decoder: unpacks non-indexed data via the ABI's
// standard unpacker, then indexed topics via abi.ParseTopics. Per §9's note
// on ABI field-name instability, callers that can't trust Solidity's
// declared field order should decode into an unexported positional struct
// and remap manually rather than relying on this method's name-based
// unpacking.
func (d *ABIDecoder) DecodeEvent(eventName string, log types.Log, out interface{}) error {
	ev, ok := d.abi.Events[eventName]
	if !ok {
		return fmt.Errorf("eventcodec: unknown event %q", eventName)
	}

	if len(log.Data) > 0 {
		if err := d.abi.UnpackIntoInterface(out, eventName, log.Data); err != nil {
			return fmt.Errorf("eventcodec: unpack %q data: %w", eventName, err)
		}
	}

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if len(indexed) == 0 {
		return nil
	}
	if len(log.Topics) < len(indexed)+1 {
		return fmt.Errorf("eventcodec: %q: expected %d indexed topics, got %d", eventName, len(indexed), len(log.Topics)-1)
	}
	if err := abi.ParseTopics(out, indexed, log.Topics[1:]); err != nil {
		return fmt.Errorf("eventcodec: parse topics for %q: %w", eventName, err)
	}
	return nil
}
