package neurolend

import (
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// SignatureTable maps topic0 hashes to contract event names. It is built
// once from the ABI and is read-only afterwards.
type SignatureTable struct {
	byTopic map[common.Hash]abi.Event
}

// Signature pairs an event name with its canonical signature and topic0.
type Signature struct {
	Name      string
	Canonical string
	Topic0    common.Hash
}

// NewSignatureTable builds the table from the contract ABI.
func NewSignatureTable() (*SignatureTable, error) {
	contract, err := ContractABI()
	if err != nil {
		return nil, err
	}
	byTopic := make(map[common.Hash]abi.Event, len(contract.Events))
	for _, event := range contract.Events {
		byTopic[event.ID] = event
	}
	return &SignatureTable{byTopic: byTopic}, nil
}

// Lookup returns the event name for a topic0 hash.
func (t *SignatureTable) Lookup(topic0 common.Hash) (string, bool) {
	event, ok := t.byTopic[topic0]
	if !ok {
		return "", false
	}
	return event.RawName, true
}

func (t *SignatureTable) event(topic0 common.Hash) (abi.Event, bool) {
	event, ok := t.byTopic[topic0]
	return event, ok
}

// Len returns the number of known signatures.
func (t *SignatureTable) Len() int {
	return len(t.byTopic)
}

// Signatures returns every entry sorted by event name.
func (t *SignatureTable) Signatures() []Signature {
	out := make([]Signature, 0, len(t.byTopic))
	for topic, event := range t.byTopic {
		out = append(out, Signature{Name: event.RawName, Canonical: event.Sig, Topic0: topic})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
