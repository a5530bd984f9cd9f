package params

import (
	"fmt"
	"math"
	"sort"
)

// Store holds parameters keyed by their fully qualified name. Titles keeps
// the order in which base parameters were added; channel replicas are
// tracked separately so that FreeNames is deterministic.
type Store struct {
	params map[string]*Parameter
	titles []string
	// replicas maps a base title to its per-channel keys in channel order.
	replicas map[string][]string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		params:   make(map[string]*Parameter),
		replicas: make(map[string][]string),
	}
}

// Set adds or replaces a base parameter after validating it.
func (s *Store) Set(p Parameter) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, ok := s.params[p.Name]; !ok {
		s.titles = append(s.titles, p.Name)
	}
	cp := p
	if p.Prior != nil {
		pr := *p.Prior
		cp.Prior = &pr
	}
	s.params[p.Name] = &cp
	return nil
}

// SetFixed is a convenience for adding a fixed numeric parameter.
func (s *Store) SetFixed(name string, value float64) {
	s.params[name] = &Parameter{Name: name, Value: value, Status: Fixed}
	if !s.contains(name) {
		s.titles = append(s.titles, name)
	}
}

// SetText is a convenience for adding a fixed string-valued setting.
func (s *Store) SetText(name, text string) {
	s.params[name] = &Parameter{Name: name, Text: text, Status: Fixed}
	if !s.contains(name) {
		s.titles = append(s.titles, name)
	}
}

func (s *Store) contains(title string) bool {
	for _, t := range s.titles {
		if t == title {
			return true
		}
	}
	return false
}

// Get returns a copy of the parameter stored under key.
func (s *Store) Get(key string) (Parameter, bool) {
	p, ok := s.params[key]
	if !ok {
		return Parameter{}, false
	}
	return *p, true
}

// Has reports whether key is defined.
func (s *Store) Has(key string) bool {
	_, ok := s.params[key]
	return ok
}

// Value returns the numeric value stored under key.
func (s *Store) Value(key string) (float64, bool) {
	p, ok := s.params[key]
	if !ok || p.IsText() {
		return 0, false
	}
	return p.Value, true
}

// Text returns the string value stored under key.
func (s *Store) Text(key string) (string, bool) {
	p, ok := s.params[key]
	if !ok || !p.IsText() {
		return "", false
	}
	return p.Text, true
}

// SetValue updates the value of an existing numeric parameter.
func (s *Store) SetValue(key string, v float64) error {
	p, ok := s.params[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, key)
	}
	p.Value = v
	return nil
}

// RecenterPrior moves the centre of a normal prior to v. Other prior kinds
// are left untouched.
func (s *Store) RecenterPrior(key string, v float64) error {
	p, ok := s.params[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownParameter, key)
	}
	if p.Prior != nil && p.Prior.Kind == Normal {
		p.Prior.P1 = v
	}
	return nil
}

// Titles returns the base parameter names in insertion order.
func (s *Store) Titles() []string {
	out := make([]string, len(s.titles))
	copy(out, s.titles)
	return out
}

// Lookup resolves base for planet pid and channel ch. A free parameter
// resolves to its channel replica when one exists; otherwise, and for every
// other status, the planet-level value is shared by all channels.
func (s *Store) Lookup(base string, pid, ch int) (float64, bool) {
	key := base + PlanetSuffix(pid)
	p, ok := s.params[key]
	if !ok || p.IsText() {
		return 0, false
	}
	if p.Status == Free && ch != 0 {
		if pc, ok := s.params[key+ChannelSuffix(ch)]; ok {
			return pc.Value, true
		}
	}
	return p.Value, true
}

// LongName maps a base title to the key holding its value in channel ch.
func (s *Store) LongName(ch int, title string) string {
	if ch == 0 {
		return title
	}
	if p, ok := s.params[title]; ok && p.Status == Free {
		return title + ChannelSuffix(ch)
	}
	return title
}

// LongParamList returns, for each channel, the long names of every title.
func (s *Store) LongParamList(channels []int) [][]string {
	out := make([][]string, len(channels))
	for i, ch := range channels {
		row := make([]string, len(s.titles))
		for j, title := range s.titles {
			row[j] = s.LongName(ch, title)
		}
		out[i] = row
	}
	return out
}

// ExpandChannels creates a replica of every free parameter for each
// non-zero fitted channel. Existing replicas keep their values. A
// single-channel fit reads the base keys whatever its channel number, so
// it gets no replicas.
func (s *Store) ExpandChannels(channels []int) {
	if len(channels) < 2 {
		return
	}
	for _, title := range s.titles {
		p := s.params[title]
		if p.Status != Free {
			continue
		}
		for _, ch := range channels {
			if ch == 0 {
				continue
			}
			key := title + ChannelSuffix(ch)
			if _, ok := s.params[key]; ok {
				if !s.hasReplica(title, key) {
					s.replicas[title] = append(s.replicas[title], key)
				}
				continue
			}
			cp := *p
			cp.Name = key
			cp.Base = title
			cp.Channel = ch
			if p.Prior != nil {
				pr := *p.Prior
				cp.Prior = &pr
			}
			s.params[key] = &cp
			s.replicas[title] = append(s.replicas[title], key)
		}
		sort.SliceStable(s.replicas[title], func(i, j int) bool {
			return s.params[s.replicas[title][i]].Channel < s.params[s.replicas[title][j]].Channel
		})
	}
}

func (s *Store) hasReplica(title, key string) bool {
	for _, k := range s.replicas[title] {
		if k == key {
			return true
		}
	}
	return false
}

// FreeNames returns the keys the optimizer varies: every fitted title
// followed by its channel replicas.
func (s *Store) FreeNames() []string {
	var out []string
	for _, title := range s.titles {
		p := s.params[title]
		if !p.Status.Fitted() {
			continue
		}
		out = append(out, title)
		out = append(out, s.replicas[title]...)
	}
	return out
}

// FreeValues returns the current values of FreeNames in the same order.
func (s *Store) FreeValues() []float64 {
	names := s.FreeNames()
	out := make([]float64, len(names))
	for i, n := range names {
		out[i] = s.params[n].Value
	}
	return out
}

// Update writes a new free-parameter vector into the store.
func (s *Store) Update(values []float64) error {
	names := s.FreeNames()
	if len(values) != len(names) {
		return fmt.Errorf("%w: got %d, want %d", ErrLengthMismatch, len(values), len(names))
	}
	for i, n := range names {
		s.params[n].Value = values[i]
	}
	return nil
}

// LogPrior sums the log prior densities of every fitted parameter. It
// returns -Inf as soon as one value leaves its prior support.
func (s *Store) LogPrior() float64 {
	var lp float64
	for _, n := range s.FreeNames() {
		p := s.params[n]
		v := p.Prior.LogProb(p.Value)
		if math.IsInf(v, -1) {
			return v
		}
		lp += v
	}
	return lp
}

// Clone returns a deep copy that can be mutated independently.
func (s *Store) Clone() *Store {
	out := &Store{
		params:   make(map[string]*Parameter, len(s.params)),
		titles:   make([]string, len(s.titles)),
		replicas: make(map[string][]string, len(s.replicas)),
	}
	copy(out.titles, s.titles)
	for k, p := range s.params {
		cp := *p
		if p.Prior != nil {
			pr := *p.Prior
			cp.Prior = &pr
		}
		out.params[k] = &cp
	}
	for k, v := range s.replicas {
		out.replicas[k] = append([]string(nil), v...)
	}
	return out
}

// Values returns a flat name to value map of every numeric parameter.
func (s *Store) Values() map[string]float64 {
	out := make(map[string]float64, len(s.params))
	for k, p := range s.params {
		if !p.IsText() {
			out[k] = p.Value
		}
	}
	return out
}
