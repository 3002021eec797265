// Package keygen produces license key strings. It holds no state; uniqueness
// across the inventory is enforced by the store.
package keygen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

const (
	DefaultPattern = "XXXX-XXXX-XXXX-XXXX"

	// AlphanumericCharset is A-Z followed by 0-9.
	AlphanumericCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	// ReadableCharset drops look-alikes: 0/O, 1/I/L, 2/Z, 5/S, 8/B.
	ReadableCharset = "ACDEFGHJKLMNPQRTUVWXY34679"

	placeholder = 'X'
)

// ErrBatchExhausted is returned when a generator keeps repeating values.
var ErrBatchExhausted = errors.New("keygen: could not produce enough unique keys")

type Generator interface {
	Generate() (string, error)
}

// Pattern replaces every X in Format with a random character from Charset and
// copies every other character verbatim.
type Pattern struct {
	Format  string
	Charset string
}

func NewPattern(format string) *Pattern {
	if format == "" {
		format = DefaultPattern
	}
	return &Pattern{Format: format, Charset: AlphanumericCharset}
}

func (p *Pattern) Generate() (string, error) {
	var b strings.Builder
	b.Grow(len(p.Format))
	for _, c := range p.Format {
		if c != placeholder {
			b.WriteRune(c)
			continue
		}
		ch, err := randomChar(p.Charset)
		if err != nil {
			return "", err
		}
		b.WriteByte(ch)
	}
	return b.String(), nil
}

// Validate reports whether key matches the pattern.
func (p *Pattern) Validate(key string) bool {
	if len(key) != len(p.Format) {
		return false
	}
	for i := 0; i < len(p.Format); i++ {
		if p.Format[i] == placeholder {
			if strings.IndexByte(p.Charset, key[i]) < 0 {
				return false
			}
			continue
		}
		if key[i] != p.Format[i] {
			return false
		}
	}
	return true
}

// Readable draws Length characters from ReadableCharset and joins them in
// groups of GroupSize with Separator.
type Readable struct {
	Length    int
	GroupSize int
	Separator string
}

func NewReadable() *Readable {
	return &Readable{Length: 16, GroupSize: 4, Separator: "-"}
}

func (r *Readable) Generate() (string, error) {
	raw := make([]byte, 0, r.Length)
	for i := 0; i < r.Length; i++ {
		ch, err := randomChar(ReadableCharset)
		if err != nil {
			return "", err
		}
		raw = append(raw, ch)
	}
	if r.Separator == "" || r.GroupSize <= 0 {
		return string(raw), nil
	}

	groups := make([]string, 0, (len(raw)+r.GroupSize-1)/r.GroupSize)
	for i := 0; i < len(raw); i += r.GroupSize {
		end := min(i+r.GroupSize, len(raw))
		groups = append(groups, string(raw[i:end]))
	}
	return strings.Join(groups, r.Separator), nil
}

// UUID produces upper-case random UUIDs, or their first 16 hex digits when
// Short is set.
type UUID struct {
	Short bool
}

func (u UUID) Generate() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("keygen: %w", err)
	}
	s := strings.ToUpper(id.String())
	if u.Short {
		s = strings.ReplaceAll(s, "-", "")[:16]
	}
	return s, nil
}

// Lookup resolves a generator by name: "pattern" (default), "readable",
// "uuid" or "uuid-short".
func Lookup(name string) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "pattern":
		return NewPattern(DefaultPattern), nil
	case "readable":
		return NewReadable(), nil
	case "uuid":
		return UUID{}, nil
	case "uuid-short":
		return UUID{Short: true}, nil
	}
	return nil, fmt.Errorf("keygen: unknown format %q", name)
}

// Batch returns count distinct values from g.
func Batch(g Generator, count int) ([]string, error) {
	seen := make(map[string]struct{}, count)
	out := make([]string, 0, count)
	maxAttempts := count * 10
	for attempts := 0; len(out) < count; attempts++ {
		if attempts >= maxAttempts {
			return out, ErrBatchExhausted
		}
		v, err := g.Generate()
		if err != nil {
			return out, err
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, nil
}

func randomChar(charset string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
	if err != nil {
		return 0, fmt.Errorf("keygen: %w", err)
	}
	return charset[n.Int64()], nil
}
