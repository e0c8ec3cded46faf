package fscache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// argConfig renders arguments deterministically: map keys are sorted and
// pointer addresses, capacities and Stringer output are left out.
var argConfig = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	DisableMethods:          true,
}

// Field tags written ahead of each section of a key.
const (
	tagFunc byte = iota + 1
	tagPath
	tagArgs
	tagFingerprint
	tagTokens
)

// KeyBuilder provides a fluent API for building cache keys.
// Validation errors are accumulated and surfaced by Key.Err.
type KeyBuilder struct {
	hashFunc    HashFunc
	fn          string
	path        string
	args        []string
	fingerprint []string
	tokens      []string
	errors      []error
}

// Key represents an opaque cache key.
// Build one with a KeyBuilder.
type Key struct {
	hashFunc    HashFunc
	fn          string
	path        string
	args        []string
	fingerprint []string
	tokens      []string
	errors      []error
}

// NewKeyBuilder returns a KeyBuilder hashing with xxHash64.
func NewKeyBuilder() *KeyBuilder {
	return &KeyBuilder{hashFunc: defaultHashFunc}
}

// Func sets the identity of the cached function. It is required.
func (kb *KeyBuilder) Func(name string) *KeyBuilder {
	if name == "" {
		kb.errors = append(kb.errors, errors.New("function name is empty"))
	}
	kb.fn = name
	return kb
}

// Path sets the canonical path the result depends on.
func (kb *KeyBuilder) Path(path string) *KeyBuilder {
	kb.path = path
	return kb
}

// Arg adds an argument of the cached call. Values are rendered with
// go-spew, so two arguments with equal contents produce equal keys.
func (kb *KeyBuilder) Arg(v any) *KeyBuilder {
	kb.args = append(kb.args, argConfig.Sdump(v))
	return kb
}

// Fingerprint sets the fingerprint tuple of the path.
func (kb *KeyBuilder) Fingerprint(tuple []string) *KeyBuilder {
	kb.fingerprint = append([]string(nil), tuple...)
	return kb
}

// Token adds caller-supplied tokens such as component versions.
func (kb *KeyBuilder) Token(tokens ...string) *KeyBuilder {
	kb.tokens = append(kb.tokens, tokens...)
	return kb
}

// Build finalizes the key builder and returns an opaque Key.
// Validation errors are not returned here but are surfaced by Key.Err.
func (kb *KeyBuilder) Build() Key {
	if kb.fn == "" && len(kb.errors) == 0 {
		kb.errors = append(kb.errors, errors.New("function name is empty"))
	}
	return Key{
		hashFunc:    kb.hashFunc,
		fn:          kb.fn,
		path:        kb.path,
		args:        kb.args,
		fingerprint: kb.fingerprint,
		tokens:      kb.tokens,
		errors:      kb.errors,
	}
}

// Err returns the validation errors collected while building the key.
func (k Key) Err() error {
	return newValidationError(k.errors)
}

// Hash returns the hash of this key as a hex string.
// Returns empty string if there are validation errors.
func (k Key) Hash() string {
	hash, err := k.computeHash()
	if err != nil {
		return ""
	}
	return hash
}

// String renders the key fields for logging.
func (k Key) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "func=%s", k.fn)
	if k.path != "" {
		fmt.Fprintf(&b, " path=%s", k.path)
	}
	if len(k.args) > 0 {
		fmt.Fprintf(&b, " args=%d", len(k.args))
	}
	if len(k.fingerprint) > 0 {
		fmt.Fprintf(&b, " fingerprint=%s", strings.Join(k.fingerprint, ","))
	}
	if len(k.tokens) > 0 {
		fmt.Fprintf(&b, " tokens=%s", strings.Join(k.tokens, ","))
	}
	return b.String()
}

// computeHash hashes every field, length prefixed, in a fixed order so
// that no two distinct keys share an encoding.
func (k Key) computeHash() (string, error) {
	if len(k.errors) > 0 {
		return "", newValidationError(k.errors)
	}

	hashFunc := k.hashFunc
	if hashFunc == nil {
		hashFunc = defaultHashFunc
	}

	bufPtr := bufferPool.Get().(*[]byte)
	buf := (*bufPtr)[:0]
	buf = appendSection(buf, tagFunc, k.fn)
	buf = appendSection(buf, tagPath, k.path)
	buf = appendSection(buf, tagArgs, k.args...)
	buf = appendSection(buf, tagFingerprint, k.fingerprint...)
	buf = appendSection(buf, tagTokens, k.tokens...)

	h := hashFunc()
	_, err := h.Write(buf)
	*bufPtr = buf[:0]
	bufferPool.Put(bufPtr)
	if err != nil {
		return "", fmt.Errorf("failed to hash key: %w", err)
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func appendSection(buf []byte, tag byte, fields ...string) []byte {
	buf = append(buf, tag)
	buf = binary.AppendUvarint(buf, uint64(len(fields)))
	for _, f := range fields {
		buf = binary.AppendUvarint(buf, uint64(len(f)))
		buf = append(buf, f...)
	}
	return buf
}
