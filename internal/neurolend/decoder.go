package neurolend

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"

	"loanScope/internal/model"
)

var (
	// ErrNoTopics is returned for logs without a topic0.
	ErrNoTopics = errors.New("log has no topics")
	// ErrUnknownSignature is returned for a topic0 absent from the table
	// when unknown events are dropped.
	ErrUnknownSignature = errors.New("unknown event signature")
)

// UnknownPolicy controls what happens to logs with an unknown topic0.
type UnknownPolicy string

const (
	UnknownDrop   UnknownPolicy = "drop"
	UnknownRetain UnknownPolicy = "retain"
)

// ParseUnknownPolicy validates a policy name. Empty means drop.
func ParseUnknownPolicy(value string) (UnknownPolicy, error) {
	switch UnknownPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", UnknownDrop:
		return UnknownDrop, nil
	case UnknownRetain:
		return UnknownRetain, nil
	default:
		return "", fmt.Errorf("unsupported unknown-events policy: %s", value)
	}
}

// Decoder turns raw contract logs into Events.
type Decoder struct {
	table   *SignatureTable
	unknown UnknownPolicy
}

// NewDecoder builds a decoder over the signature table.
func NewDecoder(table *SignatureTable, unknown UnknownPolicy) (*Decoder, error) {
	if table == nil {
		return nil, fmt.Errorf("signature table is nil")
	}
	if unknown == "" {
		unknown = UnknownDrop
	}
	return &Decoder{table: table, unknown: unknown}, nil
}

// Decode converts a log into an Event stamped with blockTimestamp.
//
// It returns ErrNoTopics for logs without topics, ErrUnknownSignature for
// unknown topic0 under the drop policy, and a *model.DecodeError when a
// known event's topics or data do not match its ABI.
func (d *Decoder) Decode(log types.Log, blockTimestamp uint64) (model.Event, error) {
	if len(log.Topics) == 0 {
		return model.Event{}, ErrNoTopics
	}

	ev := baseEvent(log, blockTimestamp)

	event, ok := d.table.event(log.Topics[0])
	if !ok {
		if d.unknown == UnknownRetain {
			ev.Name = model.UnknownEventName
			return ev, nil
		}
		return model.Event{}, fmt.Errorf("%w: %s", ErrUnknownSignature, log.Topics[0].Hex())
	}
	ev.Name = event.RawName

	fields, err := decodeFields(event, log.Topics[1:], log.Data)
	if err != nil {
		return model.Event{}, &model.DecodeError{
			BlockNumber: log.BlockNumber,
			TxHash:      ev.TxHash,
			LogIndex:    ev.LogIndex,
			Address:     ev.ContractAddress,
			Topic0:      log.Topics[0].Hex(),
			EventName:   event.RawName,
			Reason:      err.Error(),
		}
	}
	ev.Fields = fields
	return ev, nil
}

func baseEvent(log types.Log, blockTimestamp uint64) model.Event {
	topics := make([]string, 0, len(log.Topics))
	for _, topic := range log.Topics {
		topics = append(topics, topic.Hex())
	}
	return model.Event{
		TxHash:          log.TxHash.Hex(),
		BlockNumber:     log.BlockNumber,
		BlockTimestamp:  blockTimestamp,
		LogIndex:        uint64(log.Index),
		ContractAddress: strings.ToLower(log.Address.Hex()),
		Topics:          topics,
		Data:            hexutil.Encode(log.Data),
	}
}

func decodeFields(event abi.Event, topics []common.Hash, data []byte) (model.Fields, error) {
	indexed, nonIndexed, err := splitArguments(event.Inputs, len(topics))
	if err != nil {
		return nil, err
	}

	out := make(model.Fields, len(event.Inputs))

	if len(indexed) > 0 {
		values := make(map[string]interface{}, len(indexed))
		if err := abi.ParseTopicsIntoMap(values, indexed, topics); err != nil {
			return nil, fmt.Errorf("parse topics: %w", err)
		}
		for name, value := range values {
			out[name] = renderValue(value)
		}
	}

	if len(nonIndexed) > 0 {
		values := make(map[string]interface{}, len(nonIndexed))
		if err := nonIndexed.UnpackIntoMap(values, data); err != nil {
			return nil, fmt.Errorf("unpack %s: %w", event.RawName, err)
		}
		for name, value := range values {
			out[name] = renderValue(value)
		}
	}

	return out, nil
}

// splitArguments partitions event inputs into the arguments carried by
// topics and those carried by data. When the log carries a different number
// of topics than the ABI declares, the leading parameters are treated as
// the indexed ones.
func splitArguments(inputs abi.Arguments, topicCount int) (abi.Arguments, abi.Arguments, error) {
	declared := 0
	for _, arg := range inputs {
		if arg.Indexed {
			declared++
		}
	}
	if topicCount > len(inputs) {
		return nil, nil, fmt.Errorf("expected at most %d topics, got %d", len(inputs)+1, topicCount+1)
	}

	indexed := make(abi.Arguments, 0, topicCount)
	nonIndexed := make(abi.Arguments, 0, len(inputs)-topicCount)
	if topicCount == declared {
		for _, arg := range inputs {
			if arg.Indexed {
				indexed = append(indexed, arg)
			} else {
				nonIndexed = append(nonIndexed, arg)
			}
		}
		return indexed, nonIndexed, nil
	}

	for i, arg := range inputs {
		arg.Indexed = i < topicCount
		if arg.Indexed {
			indexed = append(indexed, arg)
		} else {
			nonIndexed = append(nonIndexed, arg)
		}
	}
	return indexed, nonIndexed, nil
}

func renderValue(value interface{}) string {
	switch v := value.(type) {
	case *big.Int:
		if v == nil {
			return "0"
		}
		return v.String()
	case common.Address:
		return strings.ToLower(v.Hex())
	case common.Hash:
		return v.Hex()
	case [32]byte:
		return hexutil.Encode(v[:])
	case []byte:
		return hexutil.Encode(v)
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprint(v)
	}
}
