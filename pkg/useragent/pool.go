package useragent

import (
	"crypto/rand"
	"math/big"
	"strings"
	"sync/atomic"
)

// DefaultPool is a set of current desktop browser User-Agents. Pages that
// sniff for bots tend to serve a stripped or challenge page to anything else.
var DefaultPool = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:129.0) Gecko/20100101 Firefox/129.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14.6; rv:129.0) Gecko/20100101 Firefox/129.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36 Edg/128.0.0.0",
}

// Mode selects how a Pool hands out User-Agents.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeRandom     Mode = "random"
)

// Pool is a fixed collection of User-Agents. It is safe for concurrent use.
type Pool struct {
	uas     []string
	mode    Mode
	counter atomic.Uint64
}

// NewPool creates a new User-Agent pool. If the provided slice is empty,
// it falls back to DefaultPool. Blank entries are dropped.
func NewPool(uas []string, mode Mode) *Pool {
	copied := make([]string, 0, len(uas))
	for _, ua := range uas {
		if ua = strings.TrimSpace(ua); ua != "" {
			copied = append(copied, ua)
		}
	}
	if len(copied) == 0 {
		copied = append(copied, DefaultPool...)
	}
	if mode == "" {
		mode = ModeSequential
	}
	return &Pool{uas: copied, mode: mode}
}

// Fixed returns a pool that always yields ua.
func Fixed(ua string) *Pool {
	return NewPool([]string{ua}, ModeSequential)
}

// Next returns a User-Agent according to the pool's mode.
func (p *Pool) Next() string {
	if p.mode == ModeRandom {
		return p.random()
	}
	return p.sequential()
}

func (p *Pool) sequential() string {
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

func (p *Pool) random() string {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.uas))))
	if err != nil {
		return p.sequential()
	}
	return p.uas[n.Int64()]
}

// All returns a copy of the pool's User-Agents.
func (p *Pool) All() []string {
	copied := make([]string, len(p.uas))
	copy(copied, p.uas)
	return copied
}
