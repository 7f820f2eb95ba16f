// Package eventcodec defines the ABI decode boundary collaborator. EVM ABI
// decoding primitives (tuple unpacking, dynamic type handling) are out of
// scope for this fleet per the specification; families call into a Decoder
// implementation instead of hand-rolling unpack logic themselves. The
// production implementation wraps github.com/ethereum/go-ethereum/accounts/abi;
// this package only names the interface families are written against.
package eventcodec

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Decoder unpacks a matched log into named fields. Implementations are
// expected to know the ABI for the event named by log.Topics[0] and to
// unpack positionally where field names are not trustworthy (§9's note on
// HuntCompleted's swapped tuple field names).
type Decoder interface {
	// DecodeEvent unpacks log's non-indexed data plus indexed topics into
	// out, which must be a pointer to a struct tagged the way
	// accounts/abi.Unpack expects.
	DecodeEvent(eventName string, log types.Log, out interface{}) error

	// EventTopic returns the keccak256 topic hash for a named event, used
	// to build getLogs topic filters.
	EventTopic(eventName string) (common.Hash, error)
}
