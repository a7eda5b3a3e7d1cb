package schedule

import (
	"context"

	"github.com/dshills/spelld/internal/resolve"
)

// Rule identifiers attached to issues.
const (
	// RuleUnknownWord marks a word absent from every active dictionary.
	RuleUnknownWord = "unknown-word"
	// RuleFlaggedWord marks a word listed in flagWords. Flagged words are
	// reported even when a dictionary knows them.
	RuleFlaggedWord = "flagged-word"
)

// Issue is a single finding in a document. Start and End are byte
// offsets into the validated text; transports convert them to their own
// position encoding.
type Issue struct {
	Word   string
	Start  int
	End    int
	RuleID string
}

// Validator checks document text against effective settings. The
// scheduler handles gating and debounce; Validate is only called for
// documents that should be checked. Implementations must honor ctx
// cancellation and may return a partial result when cancelled.
type Validator interface {
	Validate(ctx context.Context, text, languageID string, eff *resolve.Effective) []Issue
}
