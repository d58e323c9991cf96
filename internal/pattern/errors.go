package pattern

import (
	"fmt"

	"github.com/raulshma/devbox-sub000/internal/types"
)

var (
	// ErrInvalidSpec is returned for a missing or unknown mode.
	ErrInvalidSpec = fmt.Errorf("%w: invalid rename spec", types.ErrValidation)
	// ErrInvalidPattern is returned for a regex that does not compile or bad flags.
	ErrInvalidPattern = fmt.Errorf("%w: invalid regex", types.ErrValidation)
	// ErrInvalidTemplate is returned for unbalanced braces or illegal placeholders.
	ErrInvalidTemplate = fmt.Errorf("%w: invalid template", types.ErrValidation)
	// ErrNumberingRange is returned when numbering would leave [start, end].
	ErrNumberingRange = fmt.Errorf("%w: numbering out of range", types.ErrValidation)
	// ErrUnknownCase is returned for an unrecognised case style.
	ErrUnknownCase = fmt.Errorf("%w: unknown case style", types.ErrValidation)
)
