package codecs

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// buildLog packs indexed/non-indexed args for eventName out of abiJSON into
// a types.Log, mirroring how an archive node would return the log. Indexed
// args support common.Address and *big.Int; non-indexed args are packed via
// the standard ABI packer.
func buildLog(t *testing.T, abiJSON, eventName string, indexed []interface{}, nonIndexed []interface{}) types.Log {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		t.Fatalf("parse abi: %v", err)
	}
	ev, ok := parsed.Events[eventName]
	if !ok {
		t.Fatalf("event %q not in abi", eventName)
	}

	var indexedArgs, nonIndexedArgs abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexedArgs = append(indexedArgs, arg)
		} else {
			nonIndexedArgs = append(nonIndexedArgs, arg)
		}
	}
	if len(indexedArgs) != len(indexed) {
		t.Fatalf("%s: expected %d indexed args, got %d", eventName, len(indexedArgs), len(indexed))
	}

	topics := make([]common.Hash, 0, len(indexed)+1)
	topics = append(topics, ev.ID)
	for _, v := range indexed {
		switch val := v.(type) {
		case common.Address:
			topics = append(topics, common.BytesToHash(val.Bytes()))
		case *big.Int:
			topics = append(topics, common.BigToHash(val))
		default:
			t.Fatalf("%s: unsupported indexed value type %T", eventName, v)
		}
	}

	data, err := nonIndexedArgs.Pack(nonIndexed...)
	if err != nil {
		t.Fatalf("%s: pack data: %v", eventName, err)
	}

	return types.Log{Topics: topics, Data: data}
}
