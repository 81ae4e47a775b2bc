package utils

import (
	"fmt"
	"time"
)

const (
	sizeUnitBase    = 1024
	timestampLayout = "2006-01-02 15:04:05"
)

var sizeUnits = []string{"KB", "MB", "GB", "TB", "PB"}

// FormatFileSize renders byteCount with binary units, such as "512 B" or "1.5 KB".
// Negative counts render as zero.
func FormatFileSize(byteCount int64) string {
	if byteCount < sizeUnitBase {
		if byteCount < 0 {
			byteCount = 0
		}
		return fmt.Sprintf("%d B", byteCount)
	}
	divisor := int64(sizeUnitBase)
	unitIndex := 0
	for quotient := byteCount / sizeUnitBase; quotient >= sizeUnitBase && unitIndex < len(sizeUnits)-1; quotient /= sizeUnitBase {
		divisor *= sizeUnitBase
		unitIndex++
	}
	return fmt.Sprintf("%.1f %s", float64(byteCount)/float64(divisor), sizeUnits[unitIndex])
}

// FormatTimestamp renders a bundle or file time in local time. The zero time renders empty.
func FormatTimestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.Local().Format(timestampLayout)
}
