package llm

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"

	"github.com/qda-labs/funnel/internal/domain"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec
)

// EstimateTokens returns a tiktoken-based token estimate for the flattened
// prompt. The estimate is advisory (logged and traced); 0 means the
// tokenizer was unavailable.
func EstimateTokens(sections []domain.PromptSection) int {
	codecOnce.Do(func() {
		c, err := tokenizer.Get(tokenizer.O200kBase)
		if err != nil {
			return
		}
		codec = c
	})
	if codec == nil {
		return 0
	}
	ids, _, err := codec.Encode(FlattenSections(sections))
	if err != nil {
		return 0
	}
	return len(ids)
}
