package prom

import (
	"errors"
	"math"
	"strconv"
)

var ErrEmptyHistogram = errors.New("histogram has no buckets")

// BucketBound renders the upper bound of bucket j.
type BucketBound func(j int) string

// LatencyBucket is the bound of a nanosecond power-of-two bucket, in seconds.
func LatencyBucket(j int) string {
	return strconv.FormatFloat(math.Ldexp(1, j)/1e9, 'g', -1, 64)
}

// SizeBucket is the bound of a byte power-of-two bucket.
func SizeBucket(j int) string {
	if j >= 0 && j < 64 {
		return strconv.FormatUint(1<<uint(j), 10)
	}
	return strconv.FormatFloat(math.Ldexp(1, j), 'g', -1, 64)
}

// Histogram writes the buckets of a power-of-two histogram as a cumulative histogram named
// name. Bucket lines below minIndex are left out but still count towards +Inf and _count.
// Upstream has no sum of observed values, so _sum is always 0.
func (e *Emitter) Histogram(name, labels string, buckets []uint64, minIndex int, bound BucketBound, meta *Meta) error {
	if len(buckets) == 0 {
		return ErrEmptyHistogram
	}
	if e.err != nil {
		return e.err
	}
	e.describe(name, meta)

	sep := ""
	if labels != "" {
		sep = ","
	}
	bucketName := name + "_bucket"

	var sum uint64
	var num [20]byte
	last := len(buckets) - 1
	for j, c := range buckets {
		sum += c
		if j >= minIndex && j < last {
			e.appendSample(bucketName, labels+sep+`le="`+bound(j)+`"`, strconv.AppendUint(num[:0], sum&Mask, 10))
		}
	}
	e.appendSample(bucketName, labels+sep+`le="+Inf"`, strconv.AppendUint(num[:0], sum&Mask, 10))
	e.appendSample(name+"_sum", labels, []byte{'0'})
	e.appendSample(name+"_count", labels, strconv.AppendUint(num[:0], sum&Mask, 10))
	e.flush()
	return e.err
}
