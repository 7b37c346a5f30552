package test

import (
	"math/rand"
	"sync"
	"time"
)

const codeAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var (
	rngMu sync.Mutex
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func randomIntn(n int) int {
	rngMu.Lock()
	defer rngMu.Unlock()
	return rng.Intn(n)
}

// RandomASCIIString generates a random alphanumeric string whose length
// falls in [minLen, maxLen]. Used for merchant codes and secrets so
// fixtures don't accidentally depend on literal values.
func RandomASCIIString(minLen, maxLen int) string {
	if minLen <= 0 {
		minLen = 1
	}
	if maxLen < minLen {
		maxLen = minLen
	}
	n := minLen
	if span := maxLen - minLen; span > 0 {
		n += randomIntn(span + 1)
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = codeAlphabet[randomIntn(len(codeAlphabet))]
	}
	return string(out)
}
