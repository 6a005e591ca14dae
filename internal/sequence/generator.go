package sequence

import (
	"context"
	"fmt"
	"strings"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const (
	// OrderNumberKey names the counter backing order numbers.
	OrderNumberKey = "orderNumber"
	// DefaultPrefix is prepended to every formatted order number.
	DefaultPrefix = "ORD"

	orderNumberWidth = 6
)

// Generator issues unique, strictly increasing order numbers. Failures are
// surfaced as SEQUENCE_UNAVAILABLE; there is no fallback numbering scheme.
type Generator struct {
	counter Counter
	key     string
	prefix  string
	logg    *logger.Logger
}

func NewGenerator(counter Counter, prefix string, logg *logger.Logger) (*Generator, error) {
	if counter == nil {
		return nil, fmt.Errorf("sequence counter required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Generator{counter: counter, key: OrderNumberKey, prefix: prefix, logg: logg}, nil
}

// Next returns the next value of the order number counter.
func (g *Generator) Next(ctx context.Context) (int64, error) {
	seq, err := g.counter.Increment(ctx, g.key)
	if err != nil {
		if g.logg != nil {
			g.logg.Error(g.logg.WithField(ctx, "counter", g.key), "sequence.increment_failed", err)
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeSequenceUnavailable, err, "order number counter unavailable")
	}
	return seq, nil
}

// NextOrderNumber returns the next formatted order number.
func (g *Generator) NextOrderNumber(ctx context.Context) (string, error) {
	seq, err := g.Next(ctx)
	if err != nil {
		return "", err
	}
	return FormatWithPrefix(g.prefix, seq), nil
}

// Format renders seq as "ORD" followed by a six digit zero-padded number.
func Format(seq int64) string {
	return FormatWithPrefix(DefaultPrefix, seq)
}

// FormatWithPrefix pads seq to six digits. Values past 999999 widen rather
// than wrap.
func FormatWithPrefix(prefix string, seq int64) string {
	return fmt.Sprintf("%s%0*d", prefix, orderNumberWidth, seq)
}
