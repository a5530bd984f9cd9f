package timeseries

import (
	"errors"
	"fmt"
	"slices"
)

// ErrUnknownChannel is returned when a channel has no segment in a Layout.
var ErrUnknownChannel = errors.New("unknown channel")

// Layout maps each fitted channel to a contiguous index range of the
// flattened sample axis. Segments appear in ascending channel order and
// never change once the layout is built.
type Layout struct {
	channels []int
	offsets  []int
	lengths  []int
}

// NewLayout builds a layout from the fitted channels and the number of
// integrations in each channel, both given in the same order.
func NewLayout(channels []int, nints []int) (Layout, error) {
	if len(channels) != len(nints) {
		return Layout{}, fmt.Errorf("layout: %d channels but %d segment lengths", len(channels), len(nints))
	}
	if len(channels) == 0 {
		return Layout{}, errors.New("layout: no channels")
	}
	type seg struct{ ch, n int }
	segs := make([]seg, len(channels))
	for i := range channels {
		if nints[i] < 0 {
			return Layout{}, fmt.Errorf("layout: channel %d has negative length %d", channels[i], nints[i])
		}
		segs[i] = seg{channels[i], nints[i]}
	}
	slices.SortStableFunc(segs, func(a, b seg) int { return a.ch - b.ch })

	l := Layout{
		channels: make([]int, len(segs)),
		offsets:  make([]int, len(segs)),
		lengths:  make([]int, len(segs)),
	}
	off := 0
	for i, s := range segs {
		if i > 0 && s.ch == segs[i-1].ch {
			return Layout{}, fmt.Errorf("layout: duplicate channel %d", s.ch)
		}
		l.channels[i] = s.ch
		l.offsets[i] = off
		l.lengths[i] = s.n
		off += s.n
	}
	return l, nil
}

// Channels returns the fitted channels in ascending order.
func (l Layout) Channels() []int { return slices.Clone(l.channels) }

// NChannels returns the number of segments.
func (l Layout) NChannels() int { return len(l.channels) }

// Total returns the flattened length.
func (l Layout) Total() int {
	if len(l.channels) == 0 {
		return 0
	}
	last := len(l.channels) - 1
	return l.offsets[last] + l.lengths[last]
}

// Index returns the position of ch within the layout.
func (l Layout) Index(ch int) (int, error) {
	i, ok := slices.BinarySearch(l.channels, ch)
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownChannel, ch)
	}
	return i, nil
}

// Range returns the half-open index range [start, end) of channel ch.
func (l Layout) Range(ch int) (start, end int, err error) {
	i, err := l.Index(ch)
	if err != nil {
		return 0, 0, err
	}
	return l.offsets[i], l.offsets[i] + l.lengths[i], nil
}

// Len returns the number of samples in channel ch.
func (l Layout) Len(ch int) (int, error) {
	i, err := l.Index(ch)
	if err != nil {
		return 0, err
	}
	return l.lengths[i], nil
}

// Split returns channel ch's segment of a.
func (l Layout) Split(a Masked, ch int) (Masked, error) {
	start, end, err := l.Range(ch)
	if err != nil {
		return Masked{}, err
	}
	if end > a.Len() {
		return Masked{}, fmt.Errorf("split channel %d: segment [%d,%d) exceeds length %d", ch, start, end, a.Len())
	}
	return a.Slice(start, end), nil
}

// Merge concatenates per-channel segments in layout order. Every channel
// must be present and have its layout length.
func (l Layout) Merge(parts map[int]Masked) (Masked, error) {
	ordered := make([]Masked, len(l.channels))
	for i, ch := range l.channels {
		p, ok := parts[ch]
		if !ok {
			return Masked{}, fmt.Errorf("merge: %w: %d missing", ErrUnknownChannel, ch)
		}
		if p.Len() != l.lengths[i] {
			return Masked{}, fmt.Errorf("merge: channel %d has %d samples, want %d", ch, p.Len(), l.lengths[i])
		}
		ordered[i] = p
	}
	return Concat(ordered...), nil
}
