package nonce

import (
	"strconv"
	"sync"
	"time"
)

// Nonce issues strictly increasing values for request replay protection.
// Values are sourced from the wall clock at microsecond resolution and
// clamped to last+1 if the clock appears to go backwards within the process.
type Nonce struct {
	n int64
	m sync.Mutex
}

// GetValue returns the next nonce value
func (n *Nonce) GetValue() Value {
	n.m.Lock()
	defer n.m.Unlock()
	v := time.Now().UnixMicro()
	if v <= n.n {
		v = n.n + 1
	}
	n.n = v
	return Value(v)
}

// Get retrieves the last issued nonce value
func (n *Nonce) Get() Value {
	n.m.Lock()
	defer n.m.Unlock()
	return Value(n.n)
}

// Set sets the nonce value, subsequent values issued by GetValue are
// guaranteed to exceed it
func (n *Nonce) Set(val int64) {
	n.m.Lock()
	n.n = val
	n.m.Unlock()
}

// String returns a string version of the last issued nonce
func (n *Nonce) String() string {
	return n.Get().String()
}

// Value is an individual nonce
type Value int64

// String is a Value method that changes format to a string
func (v Value) String() string {
	return strconv.FormatInt(int64(v), 10)
}
