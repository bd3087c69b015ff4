package loader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ajitpratap0/txprofile/pkg/columnar"
	"github.com/ajitpratap0/txprofile/pkg/config"
)

// columnLoader coerces the raw cells of one column
type columnLoader interface {
	append(raw string, missing bool) error
	finish() columnar.Column
}

func newColumnLoader(rule config.ParseRule, layout string, capacity int) columnLoader {
	switch rule {
	case config.ParseCurrency:
		return &currencyLoader{b: columnar.NewFloatBuilder(capacity)}
	case config.ParseDatetime:
		return &datetimeLoader{b: columnar.NewTimestampBuilder(capacity), layout: layout}
	case config.ParseNumeric:
		return &numericLoader{b: columnar.NewFloatBuilder(capacity)}
	default:
		return &inferLoader{b: columnar.NewInferBuilder(capacity)}
	}
}

// ParseCurrency strips every "$" and parses the rest as a float
func ParseCurrency(raw string) (float64, error) {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "$", ""))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("not a currency amount: %q", raw)
	}
	return v, nil
}

// ParseDatetime parses raw with layout as a UTC instant
func ParseDatetime(raw, layout string) (time.Time, error) {
	t, err := time.ParseInLocation(layout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("does not match layout %q: %q", layout, raw)
	}
	return t, nil
}

type currencyLoader struct {
	b *columnar.FloatBuilder
}

func (c *currencyLoader) append(raw string, missing bool) error {
	if missing {
		c.b.AppendNull()
		return nil
	}
	v, err := ParseCurrency(raw)
	if err != nil {
		return err
	}
	c.b.Append(v)
	return nil
}

func (c *currencyLoader) finish() columnar.Column { return c.b.Finish() }

type datetimeLoader struct {
	b      *columnar.TimestampBuilder
	layout string
}

func (d *datetimeLoader) append(raw string, missing bool) error {
	if missing {
		d.b.AppendNull()
		return nil
	}
	t, err := ParseDatetime(raw, d.layout)
	if err != nil {
		return err
	}
	d.b.Append(t.UnixNano())
	return nil
}

func (d *datetimeLoader) finish() columnar.Column { return d.b.Finish() }

// numericLoader never fails; anything unparseable is missing
type numericLoader struct {
	b *columnar.FloatBuilder
}

func (n *numericLoader) append(raw string, missing bool) error {
	if missing {
		n.b.AppendNull()
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		n.b.AppendNull()
		return nil
	}
	n.b.Append(v)
	return nil
}

func (n *numericLoader) finish() columnar.Column { return n.b.Finish() }

type inferLoader struct {
	b *columnar.InferBuilder
}

func (i *inferLoader) append(raw string, missing bool) error {
	if missing {
		i.b.AppendNull()
		return nil
	}
	i.b.Append(raw)
	return nil
}

func (i *inferLoader) finish() columnar.Column { return i.b.Finish() }
