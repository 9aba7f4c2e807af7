// Package prom writes metrics in the Prometheus text exposition format.
//
// An Emitter is bound to one output stream and remembers which metric names already had their
// HELP and TYPE lines written to it. It is not safe for concurrent use.
package prom

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// Mask keeps the integer bits a float64 sample can hold exactly.
const Mask = 1<<52 - 1

// Meta describes a metric name. A nil *Meta emits no header.
type Meta struct {
	Help string
	Type dto.MetricType
}

func Counter(help string) *Meta   { return &Meta{Help: help, Type: dto.MetricType_COUNTER} }
func Gauge(help string) *Meta     { return &Meta{Help: help, Type: dto.MetricType_GAUGE} }
func Histogram(help string) *Meta { return &Meta{Help: help, Type: dto.MetricType_HISTOGRAM} }

func typeName(t dto.MetricType) string {
	if n, ok := dto.MetricType_name[int32(t)]; ok {
		return strings.ToLower(n)
	}
	return "untyped"
}

type Emitter struct {
	w    io.Writer
	seen map[string]struct{}
	buf  []byte
	err  error
}

func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{
		w:    w,
		seen: make(map[string]struct{}),
		buf:  make([]byte, 0, 4096),
	}
}

// Err returns the first write error. Once set, every later call is a no-op.
func (e *Emitter) Err() error {
	return e.err
}

// Seen reports whether the header for name was written.
func (e *Emitter) Seen(name string) bool {
	_, ok := e.seen[name]
	return ok
}

func (e *Emitter) flush() {
	if e.err == nil && len(e.buf) > 0 {
		_, e.err = e.w.Write(e.buf)
	}
	e.buf = e.buf[:0]
}

// describe appends the HELP and TYPE lines for name unless they were written before.
func (e *Emitter) describe(name string, meta *Meta) {
	if meta == nil {
		return
	}
	if _, ok := e.seen[name]; ok {
		return
	}
	if meta.Help != "" {
		e.buf = append(e.buf, "# HELP "...)
		e.buf = append(e.buf, name...)
		e.buf = append(e.buf, ' ')
		e.buf = append(e.buf, escapeHelp(meta.Help)...)
		e.buf = append(e.buf, '\n')
	}
	e.buf = append(e.buf, "# TYPE "...)
	e.buf = append(e.buf, name...)
	e.buf = append(e.buf, ' ')
	e.buf = append(e.buf, typeName(meta.Type)...)
	e.buf = append(e.buf, '\n')
	e.seen[name] = struct{}{}
}

func (e *Emitter) appendSample(name, labels string, value []byte) {
	e.buf = append(e.buf, name...)
	if labels != "" {
		e.buf = append(e.buf, '{')
		e.buf = append(e.buf, labels...)
		e.buf = append(e.buf, '}')
	}
	e.buf = append(e.buf, ' ')
	e.buf = append(e.buf, value...)
	e.buf = append(e.buf, '\n')
}

// Comment writes a "### text" line. Parsers treat it as a comment.
func (e *Emitter) Comment(text string) {
	if e.err != nil {
		return
	}
	e.buf = append(e.buf, "### "...)
	e.buf = append(e.buf, strings.ReplaceAll(text, "\n", " ")...)
	e.buf = append(e.buf, '\n')
	e.flush()
}

// U64 writes prefix_suffix{labels} with v truncated to its low 52 bits.
func (e *Emitter) U64(prefix, suffix, labels string, v uint64, meta *Meta) {
	if e.err != nil {
		return
	}
	name := prefix + "_" + suffix
	e.describe(name, meta)
	var num [20]byte
	e.appendSample(name, labels, strconv.AppendUint(num[:0], v&Mask, 10))
	e.flush()
}

// F64 writes prefix_suffix{labels} as a float. NaN and infinities are written as such.
func (e *Emitter) F64(prefix, suffix, labels string, v float64, meta *Meta) {
	if e.err != nil {
		return
	}
	name := prefix + "_" + suffix
	e.describe(name, meta)
	var num [32]byte
	e.appendSample(name, labels, appendFloat(num[:0], v))
	e.flush()
}

// Families writes gathered metric families, such as those of a client_golang registry.
// Families whose name already had a header written are skipped.
func (e *Emitter) Families(mfs []*dto.MetricFamily) error {
	for _, mf := range mfs {
		if e.err != nil {
			return e.err
		}
		if e.Seen(mf.GetName()) {
			continue
		}
		var b bytes.Buffer
		if _, err := expfmt.MetricFamilyToText(&b, mf); err != nil {
			return fmt.Errorf("rendering %s: %w", mf.GetName(), err)
		}
		e.seen[mf.GetName()] = struct{}{}
		e.buf = append(e.buf, b.Bytes()...)
		e.flush()
	}
	return e.err
}

func appendFloat(b []byte, v float64) []byte {
	switch {
	case math.IsInf(v, 1):
		return append(b, "+Inf"...)
	case math.IsInf(v, -1):
		return append(b, "-Inf"...)
	}
	return strconv.AppendFloat(b, v, 'f', -1, 64)
}

var helpEscaper = strings.NewReplacer(`\`, `\\`, "\n", `\n`)

func escapeHelp(s string) string {
	return helpEscaper.Replace(s)
}
