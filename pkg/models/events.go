package models

import (
	"crypto/sha512"
	"strings"
)

// EventArg is one named, typed argument of a declared event.
type EventArg struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// EventSchema declares one application event: its group, its name, and its
// ordered argument list over the supported ABI type set.
type EventSchema struct {
	GroupName string     `json:"group-name"`
	Name      string     `json:"name"`
	Args      []EventArg `json:"args"`
}

// Signature returns the canonical signature string, EventName(type1,type2,...).
func (s EventSchema) Signature() string {
	types := make([]string, len(s.Args))
	for i, a := range s.Args {
		types[i] = a.Type
	}
	return s.Name + "(" + strings.Join(types, ",") + ")"
}

// Selector returns the first 4 bytes of the SHA-512/256 digest of the
// canonical signature. It depends only on the signature string.
func (s EventSchema) Selector() [4]byte {
	return SignatureSelector(s.Signature())
}

// SignatureSelector derives the 4-byte selector for an arbitrary canonical
// signature string, such as a method signature used in filtering.
func SignatureSelector(signature string) [4]byte {
	digest := sha512.Sum512_256([]byte(signature))
	var sel [4]byte
	copy(sel[:], digest[:4])
	return sel
}
