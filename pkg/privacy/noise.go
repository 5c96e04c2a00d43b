package privacy

import (
	"bufio"
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	mathrand "math/rand"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Source supplies the uniform randomness a mechanism draws its noise from.
// Sources are created by the caller and injected, never reached through a
// hidden package-level singleton, so that budget accounting stays attributable
// and tests can seed their own randomness.
type Source interface {
	// Uniform returns a float64 drawn uniformly from the open interval (0, 1).
	Uniform() float64
}

// seededSource is a deterministic source for tests and reproducible runs.
// It is not safe for concurrent use.
type seededSource struct {
	rng *mathrand.Rand
}

// NewSeededSource creates a deterministic source from the given seed
func NewSeededSource(seed int64) Source {
	return &seededSource{rng: mathrand.New(mathrand.NewSource(seed))}
}

func (s *seededSource) Uniform() float64 {
	// Float64 returns [0, 1); both endpoints are rejected because the
	// inverse-CDF transform takes a logarithm of 2u and 2(1-u).
	for {
		u := s.rng.Float64()
		if u > 0 && u < 1 {
			return u
		}
	}
}

// cryptoSource draws from crypto/rand through a buffered reader. It is safe
// for concurrent use and is the production default.
type cryptoSource struct {
	mu     sync.Mutex
	reader io.Reader
}

// NewCryptoSource creates a cryptographically secure source
func NewCryptoSource() Source {
	return &cryptoSource{reader: bufio.NewReaderSize(cryptorand.Reader, 4096)}
}

func (s *cryptoSource) Uniform() float64 {
	var buf [8]byte
	s.mu.Lock()
	_, err := io.ReadFull(s.reader, buf[:])
	s.mu.Unlock()
	if err != nil {
		// crypto/rand never runs dry on supported platforms
		log.WithError(err).Fatal("out of randomness")
	}
	// Use the top 53 bits and center within the bucket, which keeps the
	// result strictly inside (0, 1).
	i := binary.LittleEndian.Uint64(buf[:]) >> 11
	return (float64(i) + 0.5) / (1 << 53)
}
