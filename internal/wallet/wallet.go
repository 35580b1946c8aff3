// Package wallet models the connected browser wallet: the active address,
// account-change notifications and approval of signing requests.
package wallet

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/sha3"
)

// ErrUserRejected is returned when the wallet owner declines a signing request.
var ErrUserRejected = errors.New("user rejected transaction")

// IsUserRejected also recognises rejections that only survive as message text,
// as relayed by JSON-RPC providers.
func IsUserRejected(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrUserRejected) || strings.Contains(err.Error(), ErrUserRejected.Error())
}

// Signer approves or declines a write before it is sent to the store.
type Signer interface {
	Approve(ctx context.Context, key string, value []byte) error
}

// SignerFunc adapts a function to Signer.
type SignerFunc func(ctx context.Context, key string, value []byte) error

func (f SignerFunc) Approve(ctx context.Context, key string, value []byte) error {
	return f(ctx, key, value)
}

// AutoApprove signs every request.
var AutoApprove Signer = SignerFunc(func(context.Context, string, []byte) error { return nil })

// RejectAll declines every request.
var RejectAll Signer = SignerFunc(func(context.Context, string, []byte) error { return ErrUserRejected })

// Session is one wallet connection. It is discarded on disconnect.
type Session struct {
	id     string
	signer Signer

	mu      sync.RWMutex
	address string
	subs    map[int]func(string)
	nextSub int
}

// Connect opens a session for address. A nil signer approves everything.
func Connect(address string, signer Signer) *Session {
	if signer == nil {
		signer = AutoApprove
	}
	return &Session{
		id:      uuid.NewString(),
		signer:  signer,
		address: address,
		subs:    make(map[int]func(string)),
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) Signer() Signer { return s.signer }

func (s *Session) Address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.address
}

// Checksum returns the EIP-55 display form of the current address.
func (s *Session) Checksum() string { return ChecksumAddress(s.Address()) }

// Subscribe registers fn for account changes and returns its unsubscribe func.
func (s *Session) Subscribe(fn func(address string)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// SwitchAccount simulates the wallet's accountsChanged event.
func (s *Session) SwitchAccount(address string) {
	s.mu.Lock()
	s.address = address
	fns := make([]func(string), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(address)
	}
}

// ChecksumAddress applies EIP-55 mixed-case encoding. Input that is not a
// 20-byte hex address is returned unchanged; addresses are never rejected.
func ChecksumAddress(addr string) string {
	body := strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X")
	if len(body) != 40 {
		return addr
	}
	lower := strings.ToLower(body)
	if _, err := hex.DecodeString(lower); err != nil {
		return addr
	}

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	hash := h.Sum(nil)

	out := []byte(lower)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := hash[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 32
		}
	}
	return "0x" + string(out)
}
