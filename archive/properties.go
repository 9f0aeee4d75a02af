// Properties-file accessors with create-on-miss semantics.

package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"slices"
	"strconv"
	"time"

	"github.com/magiconair/properties"
)

// Properties loads a resource as flat text key/value pairs. Every key
// present in defaults but absent from the loaded set is inserted, and the
// resource is rewritten if anything was added. If the resource does not
// exist and defaults are supplied, a new resource holding exactly the
// defaults is written (with a creation timestamp comment) and a copy of
// the defaults is returned. Absent resource and nil defaults yields
// (nil, nil).
func (s *Store) Properties(locator string, defaults map[string]string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return nil, err
	}
	rel, err := cleanLocator(locator)
	if err != nil {
		return nil, err
	}
	p, exists, err := s.loadProps(rel, locator)
	if err != nil {
		return nil, err
	}
	if !exists && defaults == nil {
		return nil, nil
	}
	dirty := !exists
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if _, ok := p.Get(k); !ok {
			if _, _, err := p.Set(k, defaults[k]); err != nil {
				return nil, fmt.Errorf("properties %q: %w", locator, err)
			}
			dirty = true
		}
	}
	if dirty {
		if err := s.storeProps(rel, locator, p, !exists); err != nil {
			return nil, err
		}
	}
	return p.Map(), nil
}

// Property returns the named value from a properties resource. When the
// property is absent the default is stored (creating the resource if
// needed) and returned, so repeated reads observe a stable value.
func (s *Store) Property(locator, name, defaultValue string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return "", err
	}
	rel, err := cleanLocator(locator)
	if err != nil {
		return "", err
	}
	return s.property(rel, locator, name, defaultValue)
}

// SetProperty sets the named value in a properties resource, creating the
// resource if needed.
func (s *Store) SetProperty(locator, name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	rel, err := cleanLocator(locator)
	if err != nil {
		return err
	}
	return s.setProperty(rel, locator, name, value)
}

// HasProperty reports whether the named property has been set to some
// value. A missing resource reads as no properties set.
func (s *Store) HasProperty(locator, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return false, err
	}
	rel, err := cleanLocator(locator)
	if err != nil {
		return false, err
	}
	p, exists, err := s.loadProps(rel, locator)
	if err != nil || !exists {
		return false, err
	}
	_, ok := p.Get(name)
	return ok, nil
}

// Number is Property with automatic numeric parsing. The spellings "inf",
// "-inf", "nan" and "NaN" are accepted for the non-finite values, which
// decimal text cannot express.
func (s *Store) Number(locator, name string, defaultValue float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return 0, err
	}
	rel, err := cleanLocator(locator)
	if err != nil {
		return 0, err
	}
	text, err := s.property(rel, locator, name, formatNumber(defaultValue))
	if err != nil {
		return 0, err
	}
	v, err := parseNumber(text)
	if err != nil {
		return 0, fmt.Errorf("property %q in %q is not a number: %w", name, locator, err)
	}
	return v, nil
}

// SetNumber stores a numeric property using the same spellings Number
// accepts.
func (s *Store) SetNumber(locator, name string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return err
	}
	rel, err := cleanLocator(locator)
	if err != nil {
		return err
	}
	return s.setProperty(rel, locator, name, formatNumber(value))
}

// Int is Property with integer parsing.
func (s *Store) Int(locator, name string, defaultValue int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guard(); err != nil {
		return 0, err
	}
	rel, err := cleanLocator(locator)
	if err != nil {
		return 0, err
	}
	text, err := s.property(rel, locator, name, strconv.FormatInt(defaultValue, 10))
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("property %q in %q is not an integer: %w", name, locator, err)
	}
	return v, nil
}

// SetInt stores an integer property.
func (s *Store) SetInt(locator, name string, value int64) error {
	return s.SetProperty(locator, name, strconv.FormatInt(value, 10))
}

// property implements get-with-default-on-miss. Callers hold s.mu.
func (s *Store) property(rel, locator, name, defaultValue string) (string, error) {
	p, exists, err := s.loadProps(rel, locator)
	if err != nil {
		return "", err
	}
	if v, ok := p.Get(name); ok {
		return v, nil
	}
	if _, _, err := p.Set(name, defaultValue); err != nil {
		return "", fmt.Errorf("properties %q: %w", locator, err)
	}
	if err := s.storeProps(rel, locator, p, !exists); err != nil {
		return "", err
	}
	return defaultValue, nil
}

// setProperty implements set-and-persist. Callers hold s.mu.
func (s *Store) setProperty(rel, locator, name, value string) error {
	p, exists, err := s.loadProps(rel, locator)
	if err != nil {
		return err
	}
	if _, _, err := p.Set(name, value); err != nil {
		return fmt.Errorf("properties %q: %w", locator, err)
	}
	return s.storeProps(rel, locator, p, !exists)
}

// loadProps reads a properties resource, returning a fresh empty set (and
// exists=false) when the resource is absent. Callers hold s.mu.
func (s *Store) loadProps(rel, locator string) (*properties.Properties, bool, error) {
	data, err := s.backend.ReadFile(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return properties.NewProperties(), false, nil
		}
		return nil, false, fmt.Errorf("failed to read properties %q: %w", locator, err)
	}
	p, err := properties.Load(data, properties.UTF8)
	if err != nil {
		return nil, false, fmt.Errorf("failed to parse properties %q: %w", locator, err)
	}
	return p, true, nil
}

// storeProps rewrites a properties resource, adding a creation timestamp
// comment for resources written for the first time. Callers hold s.mu.
func (s *Store) storeProps(rel, locator string, p *properties.Properties, created bool) error {
	var buf bytes.Buffer
	if created {
		fmt.Fprintf(&buf, "# created %s\n", time.Now().UTC().Format(time.RFC3339))
	}
	if _, err := p.Write(&buf, properties.UTF8); err != nil {
		return fmt.Errorf("failed to encode properties %q: %w", locator, err)
	}
	return s.backend.WriteFile(rel, buf.Bytes())
}

func parseNumber(text string) (float64, error) {
	switch text {
	case "inf":
		return math.Inf(1), nil
	case "-inf":
		return math.Inf(-1), nil
	case "nan", "NaN":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(text, 64)
}

func formatNumber(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	case math.IsNaN(v):
		return "nan"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
