// Package bib turns raw text detections into runner bib numbers.
//
// Every filter is a hard reject, applied in a fixed order: detection type,
// digit extraction, numeric range, confidence, watermark region.
package bib

import (
	"strconv"
	"strings"
)

// Detection types accepted by the extractor.
const (
	TypeLine = "LINE"
	TypeWord = "WORD"
)

// Watermark region boundaries in normalized image coordinates.
const (
	watermarkBottom = 0.75
	watermarkLeft   = 0.3
	watermarkRight  = 0.7
)

// BoundingBox is a normalized box, every field in [0,1].
type BoundingBox struct {
	Top    float64
	Left   float64
	Width  float64
	Height float64
}

// Detection is one text-detection result.
type Detection struct {
	Text       string
	Confidence float64
	Type       string
	// Box is nil when the vision service returned no geometry.
	Box *BoundingBox
}

// Config controls the extraction filters.
type Config struct {
	Min                    int
	Max                    int
	MinConfidence          float64
	WatermarkFilterEnabled bool
	// WatermarkAreaThreshold is accepted for configuration compatibility.
	// IsWatermarkArea uses fixed corner boundaries and ignores it.
	WatermarkAreaThreshold float64
}

// DefaultConfig returns the stock filter settings.
func DefaultConfig() Config {
	return Config{
		Min:                    1,
		Max:                    99999,
		MinConfidence:          90,
		WatermarkFilterEnabled: true,
		WatermarkAreaThreshold: 0.35,
	}
}

// Reason names the filter that rejected a detection.
type Reason string

const (
	Accepted      Reason = ""
	RejectType    Reason = "type"
	RejectDigits  Reason = "no-digits"
	RejectRange   Reason = "out-of-range"
	RejectLowConf Reason = "low-confidence"
	RejectMark    Reason = "watermark"
)

// Verdict is the outcome of running one detection through the filters.
type Verdict struct {
	Detection Detection
	// Bib is the canonical bib number, set only when Reason is Accepted.
	Bib    string
	Reason Reason
}

// Extract returns the deduplicated bib numbers found in detections, in order
// of first appearance. Bibs are in canonical form ("007" becomes "7").
func Extract(detections []Detection, cfg Config) []string {
	seen := make(map[string]struct{})
	bibs := make([]string, 0)
	for _, d := range detections {
		bib, reason := evaluate(d, cfg)
		if reason != Accepted {
			continue
		}
		if _, ok := seen[bib]; ok {
			continue
		}
		seen[bib] = struct{}{}
		bibs = append(bibs, bib)
	}
	return bibs
}

// Explain reports the verdict for every detection.
func Explain(detections []Detection, cfg Config) []Verdict {
	verdicts := make([]Verdict, 0, len(detections))
	for _, d := range detections {
		bib, reason := evaluate(d, cfg)
		verdicts = append(verdicts, Verdict{Detection: d, Bib: bib, Reason: reason})
	}
	return verdicts
}

func evaluate(d Detection, cfg Config) (string, Reason) {
	if d.Type != TypeLine && d.Type != TypeWord {
		return "", RejectType
	}

	digits := digitsOnly(d.Text)
	if digits == "" {
		return "", RejectDigits
	}

	n, err := strconv.Atoi(digits)
	if err != nil || n < cfg.Min || n > cfg.Max {
		return "", RejectRange
	}

	if d.Confidence < cfg.MinConfidence {
		return "", RejectLowConf
	}

	if cfg.WatermarkFilterEnabled && d.Box != nil && IsWatermarkArea(*d.Box) {
		return "", RejectMark
	}

	return strconv.Itoa(n), Accepted
}

// IsWatermarkArea reports whether the box sits in the bottom-left or
// bottom-right corner where photographers put their credit text: its bottom
// edge is below 75% of the height and it starts left of 30% or ends right of
// 70% of the width.
func IsWatermarkArea(box BoundingBox) bool {
	bottom := box.Top + box.Height
	if bottom <= watermarkBottom {
		return false
	}
	return box.Left < watermarkLeft || box.Left+box.Width > watermarkRight
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
