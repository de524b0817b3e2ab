package anthropic

// CachedSystemBlocks wraps text in a single system block with an ephemeral
// cache breakpoint. Every chunk of a page shares the same system prompt, so
// calls after the first read it from the prompt cache.
func CachedSystemBlocks(text string) []SystemBlock {
	return []SystemBlock{
		{
			Text:         text,
			CacheControl: &CacheControl{TTL: "5m"},
		},
	}
}
