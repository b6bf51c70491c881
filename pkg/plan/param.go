package plan

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
)

// Key names a key held by the engine together with the signature algorithm
// it belongs to. Construct one with Ed25519 or Secp256r1.
type Key struct {
	algorithm string
	material  string
}

// Ed25519 names a key on the ed25519 curve.
func Ed25519(material string) Key {
	return Key{algorithm: "ed25519", material: material}
}

// Secp256r1 names a key on the secp256r1 curve.
func Secp256r1(material string) Key {
	return Key{algorithm: "secp256r1", material: material}
}

// Algorithm returns the wire tag of the key's algorithm.
func (k Key) Algorithm() string { return k.algorithm }

// Material returns the raw key material.
func (k Key) Material() string { return k.material }

type paramKind int

const (
	kindNone paramKind = iota
	kindU64
	kindText
	kindStepRef
	kindKey
)

// Param is one step argument. The set of variants is closed: unsigned
// integers, text, references to earlier steps, and named keys. The zero
// value is not a valid parameter; use the constructors.
type Param struct {
	kind paramKind
	num  uint64
	text string
	ref  ID
	key  Key
}

// U64 builds an unsigned integer parameter.
func U64(v uint64) Param { return Param{kind: kindU64, num: v} }

// Text builds a text parameter.
func Text(s string) Param { return Param{kind: kindText, text: s} }

// StepRef builds a parameter referencing the result of an earlier step.
func StepRef(id ID) Param { return Param{kind: kindStepRef, ref: id} }

// KeyRef builds a parameter naming a key.
func KeyRef(k Key) Param { return Param{kind: kindKey, key: k} }

// wireParam is the engine's parameter envelope: a type tag plus the
// base64 encoding of the value's canonical bytes.
type wireParam struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// MarshalJSON encodes the parameter in the engine's wire form. Unsigned
// integers canonicalize to eight little-endian bytes; every other variant
// canonicalizes to the UTF-8 bytes of its text rendering.
func (p Param) MarshalJSON() ([]byte, error) {
	var w wireParam
	switch p.kind {
	case kindU64:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], p.num)
		w = wireParam{Type: "u64", Value: base64.StdEncoding.EncodeToString(buf[:])}
	case kindText:
		w = wireParam{Type: "string", Value: base64.StdEncoding.EncodeToString([]byte(p.text))}
	case kindStepRef:
		w = wireParam{Type: "id", Value: base64.StdEncoding.EncodeToString([]byte(p.ref.String()))}
	case kindKey:
		w = wireParam{Type: p.key.algorithm, Value: base64.StdEncoding.EncodeToString([]byte(p.key.material))}
	default:
		return nil, errors.New("plan: parameter holds no variant")
	}
	return json.Marshal(w)
}
