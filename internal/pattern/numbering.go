package pattern

import (
	"fmt"
	"strconv"

	"github.com/raulshma/devbox-sub000/internal/types"
)

// ValidateNumbering checks that every number a batch of total files would get
// stays within [Start, End]. It runs before any file is renamed.
func ValidateNumbering(f types.NumberingFormat, total int) error {
	if f.Step <= 0 {
		return fmt.Errorf("%w: step must be positive, got %d", ErrNumberingRange, f.Step)
	}
	if f.End < f.Start {
		return fmt.Errorf("%w: end %d is below start %d", ErrNumberingRange, f.End, f.Start)
	}
	if total == 0 {
		return nil
	}
	return checkNumber(f, f.Start+(total-1)*f.Step)
}

func checkNumber(f types.NumberingFormat, n int) error {
	if n < f.Start || n > f.End {
		return fmt.Errorf("%w: %d is outside [%d, %d]", ErrNumberingRange, n, f.Start, f.End)
	}
	return nil
}

// NumberAt is the number assigned to the index-th file
func NumberAt(f types.NumberingFormat, index int) int {
	return f.Start + index*f.Step
}

func numberedName(f types.NumberingFormat, original string, index int) string {
	_, ext := splitName(original)
	padding := f.Padding
	if padding <= 0 {
		padding = len(strconv.Itoa(f.End))
	}
	return fmt.Sprintf("%s%0*d%s", f.Prefix, padding, NumberAt(f, index), ext)
}
