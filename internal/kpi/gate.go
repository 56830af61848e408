package kpi

import (
	"errors"
	"fmt"
	"strings"
)

// ErrStaleWorkbook is matched by every QualityError.
var ErrStaleWorkbook = errors.New("kpi: workbook values could not be read")

// StaleWorkbookMessage is the user-facing guidance shown when the gate trips.
const StaleWorkbookMessage = "エクセルファイルから数値を読み取ることができませんでした。" +
	"システムからダウンロードした直後のファイルは計算結果が保持されていない場合があります。" +
	"一度「上書き保存」してから、再度ファイルを選択してください。"

// QualityError lists the essential fields that were missing.
type QualityError struct {
	Missing   []Field
	Threshold int
}

func (e *QualityError) Error() string {
	names := make([]string, len(e.Missing))
	for i, f := range e.Missing {
		names[i] = string(f)
	}
	return fmt.Sprintf("%v (missing %s): open the file, save it once, and load it again",
		ErrStaleWorkbook, strings.Join(names, ", "))
}

func (e *QualityError) Is(target error) bool { return target == ErrStaleWorkbook }

// DefaultThreshold is how many essentials may be missing before a record is
// rejected.
const DefaultThreshold = 2

// Gate rejects records that are too empty to summarise.
type Gate struct {
	Essentials []Field
	Threshold  int
}

// DefaultGate checks achievement, total conversions and CPA.
func DefaultGate() Gate {
	return Gate{
		Essentials: []Field{Achievement, TotalConversions, CostPerAcquisition},
		Threshold:  DefaultThreshold,
	}
}

// Check returns a *QualityError when at least Threshold essentials are
// empty, "0" or "0%". A non-positive threshold means DefaultThreshold.
func (g Gate) Check(r Record) error {
	threshold := g.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	var missing []Field
	for _, f := range g.Essentials {
		if untrusted(r.Get(f)) {
			missing = append(missing, f)
		}
	}
	if len(missing) >= threshold {
		return &QualityError{Missing: missing, Threshold: threshold}
	}
	return nil
}
