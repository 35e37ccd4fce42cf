package game

import (
	"fmt"
	"sort"
	"strings"
)

// MaxKeyLen bounds the number of actions a key can hold. Euchre needs the
// most: 20 deals, a face-up card, two bidding rounds, a discard and 20 plays.
const MaxKeyLen = 64

// Key is a fixed-capacity action sequence used both for full game histories
// and per-player information states. It is a value type: copying a Key copies
// its contents, which keeps traversal code allocation free.
type Key struct {
	n       int
	actions [MaxKeyLen]Action
}

// KeyFromActions builds a key from a slice of actions.
func KeyFromActions(actions ...Action) Key {
	var k Key
	for _, a := range actions {
		k.Push(a)
	}
	return k
}

func (k *Key) Push(a Action) {
	if k.n >= MaxKeyLen {
		panic("game: key overflow")
	}
	k.actions[k.n] = a
	k.n++
}

// Pop removes and returns the last action.
func (k *Key) Pop() Action {
	if k.n == 0 {
		panic("game: pop of empty key")
	}
	k.n--
	return k.actions[k.n]
}

func (k Key) Len() int {
	return k.n
}

// At returns the action at position i.
func (k Key) At(i int) Action {
	if i < 0 || i >= k.n {
		panic(fmt.Sprintf("game: key index %d out of range [0,%d)", i, k.n))
	}
	return k.actions[i]
}

// Last returns the final action and whether the key is non-empty.
func (k Key) Last() (Action, bool) {
	if k.n == 0 {
		return 0, false
	}
	return k.actions[k.n-1], true
}

func (k *Key) Swap(i, j int) {
	k.actions[i], k.actions[j] = k.actions[j], k.actions[i]
}

// SortRange sorts n actions ascending starting at offset start. Used to put
// hand slots in canonical order.
func (k *Key) SortRange(start, n int) {
	if start+n > k.n {
		panic("game: sort range out of bounds")
	}
	s := k.actions[start : start+n]
	sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
}

// Actions returns the populated portion of the key. The slice aliases the
// key's backing array; callers must not retain it across mutations.
func (k *Key) Actions() []Action {
	return k.actions[:k.n]
}

// Bytes returns the key contents as a byte slice suitable for hashing or use
// as a map key via string conversion.
func (k *Key) Bytes() []byte {
	b := make([]byte, k.n)
	for i := 0; i < k.n; i++ {
		b[i] = byte(k.actions[i])
	}
	return b
}

func (k Key) Equal(other Key) bool {
	if k.n != other.n {
		return false
	}
	for i := 0; i < k.n; i++ {
		if k.actions[i] != other.actions[i] {
			return false
		}
	}
	return true
}

func (k Key) String() string {
	var sb strings.Builder
	for i := 0; i < k.n; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%d", k.actions[i])
	}
	return sb.String()
}
