package entities

import (
	"time"
)

// ActionType defines what an action did to its chain.
type ActionType string

const (
	ActionCreate ActionType = "create"
	ActionUpdate ActionType = "update"
	ActionDelete ActionType = "delete"
)

// Action is the metadata envelope of a write.
type Action struct {
	Hash      Hash       `json:"hash"`
	Type      ActionType `json:"type"`
	Author    Hash       `json:"author"`
	Timestamp time.Time  `json:"timestamp"`
	EntryHash Hash       `json:"entry_hash,omitempty"`
	Original  Hash       `json:"original,omitempty"`
	Previous  Hash       `json:"previous,omitempty"`
	// Nonce distinguishes logical writes whose content is otherwise identical.
	Nonce     string     `json:"nonce,omitempty"`
}

// NewAction builds an action and computes its hash.
// The timestamp does not contribute to the hash: re-issuing a write with the
// same nonce yields the same identifier, and a fresh nonce yields a new one.
func NewAction(typ ActionType, author, entryHash, original, previous Hash, nonce string, ts time.Time) Action {
	return Action{
		Hash:      ActionHash(typ, author, entryHash, original, previous, nonce),
		Type:      typ,
		Author:    author,
		Timestamp: ts.UTC(),
		EntryHash: entryHash,
		Original:  original,
		Previous:  previous,
		Nonce:     nonce,
	}
}

// ActionHash computes the identifier of an action.
// A nonce takes the place of previous, so a retried update keeps its
// identifier after the chain has moved on to its own first attempt.
func ActionHash(typ ActionType, author, entryHash, original, previous Hash, nonce string) Hash {
	if nonce != "" {
		return NewHash(HashAction,
			[]byte(typ),
			author.Bytes(),
			entryHash.Bytes(),
			original.Bytes(),
			nil,
			[]byte(nonce),
		)
	}
	return NewHash(HashAction,
		[]byte(typ),
		author.Bytes(),
		entryHash.Bytes(),
		original.Bytes(),
		previous.Bytes(),
	)
}

// Root returns the original action hash of the chain this action belongs to.
func (a Action) Root() Hash {
	if a.Type == ActionCreate {
		return a.Hash
	}
	return a.Original
}

// Record is an action together with the entry it wrote.
// Entry is nil for delete actions.
type Record struct {
	Action Action `json:"action"`
	Entry  *Entry `json:"entry,omitempty"`
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := &Record{Action: r.Action}
	if r.Entry != nil {
		e := *r.Entry
		e.Body = append([]byte(nil), r.Entry.Body...)
		out.Entry = &e
	}
	return out
}
