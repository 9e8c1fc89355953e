// Package tags derives category and coin tags from article text via
// keyword matching. Extraction is deterministic and side-effect free.
package tags

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/samber/lo"
)

// categoryKeywords maps a category tag to the keyword variants that imply it.
var categoryKeywords = map[string][]string{
	"listing":     {"listing", "listed", "launch", "launches", "debut"},
	"hack":        {"hack", "hacked", "security", "breach", "exploit", "vulnerability", "stolen", "theft"},
	"regulation":  {"regulation", "regulations", "regulatory", "sec", "lawsuit", "compliance", "ban", "banned", "crackdown"},
	"partnership": {"partnership", "partners", "collaboration", "integration"},
	"funding":     {"funding", "raise", "raised", "investment", "venture", "valuation"},
	"airdrop":     {"airdrop", "airdrops"},
	"nft":         {"nft", "nfts", "collectible", "collectibles"},
	"defi":        {"defi", "staking", "yield", "liquidity"},
	"stablecoin":  {"stablecoin", "stablecoins", "usdt", "usdc", "tether"},
	"metaverse":   {"metaverse", "decentraland"},
	"etf":         {"etf", "etfs"},
	"mining":      {"mining", "miner", "miners", "halving"},
}

// coinKeywords maps a coin tag to its ticker and name variants.
var coinKeywords = map[string][]string{
	"BTC":   {"btc", "bitcoin"},
	"ETH":   {"eth", "ethereum"},
	"XRP":   {"xrp", "ripple"},
	"SOL":   {"sol", "solana"},
	"ADA":   {"ada", "cardano"},
	"DOT":   {"dot", "polkadot"},
	"DOGE":  {"doge", "dogecoin"},
	"SHIB":  {"shib", "shiba"},
	"BNB":   {"bnb", "binance"},
	"LTC":   {"ltc", "litecoin"},
	"LINK":  {"link", "chainlink"},
	"MATIC": {"matic", "polygon"},
	"AVAX":  {"avax", "avalanche"},
}

// Inverted lookups, keyword -> tag, built once at init.
var (
	keywordToCategory = invert(categoryKeywords)
	keywordToCoin     = invert(coinKeywords)
)

func invert(m map[string][]string) map[string]string {
	out := make(map[string]string)
	for tag, words := range m {
		for _, w := range words {
			out[w] = tag
		}
	}
	return out
}

var stopWords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "from": true,
	"that": true, "this": true, "are": true, "was": true, "has": true,
	"have": true, "will": true, "its": true, "after": true, "over": true,
	"into": true, "amid": true, "new": true, "more": true, "how": true,
	"why": true, "what": true, "about": true, "their": true, "could": true,
}

// Keywords runs the extraction pass: lowercase, strip punctuation, drop
// stopwords and short tokens, dedupe. Order follows first occurrence.
func Keywords(text string) []string {
	norm := normalize(text)
	words := strings.Fields(norm)

	kept := make([]string, 0, len(words))
	for _, w := range words {
		if len(w) <= 2 || stopWords[w] {
			continue
		}
		kept = append(kept, w)
	}
	return lo.Uniq(kept)
}

// normalize lowercases and replaces everything but letters and digits with
// spaces, Unicode-aware.
func normalize(s string) string {
	s = strings.ToLower(s)
	b := make([]rune, 0, len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b = append(b, r)
		} else {
			b = append(b, ' ')
		}
	}
	return strings.Join(strings.Fields(string(b)), " ")
}

// Extract returns the set of category and coin tags for text, sorted for
// stable output. An empty result is a valid outcome, not an error.
func Extract(text string) []string {
	set := map[string]struct{}{}

	for _, kw := range Keywords(text) {
		if tag, ok := keywordToCategory[kw]; ok {
			set[tag] = struct{}{}
		}
		if tag, ok := keywordToCoin[kw]; ok {
			set[tag] = struct{}{}
		}
	}

	// Fallback: only when the keyword pass found nothing, re-scan the raw
	// lowercased text with containment matching to catch phrasings the
	// tokenizer missed.
	if len(set) == 0 {
		raw := strings.ToLower(text)
		for tag, words := range categoryKeywords {
			if containsAny(raw, words) {
				set[tag] = struct{}{}
			}
		}
		for tag, words := range coinKeywords {
			if containsAny(raw, words) {
				set[tag] = struct{}{}
			}
		}
	}

	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// containsAny distinguishes phrases and short words (avoids "sec" matching
// "security" by requiring word boundaries for short tokens).
func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}

		if strings.Contains(k, " ") {
			if strings.Contains(text, k) {
				return true
			}
			continue
		}

		if len(k) <= 3 {
			re := regexp.MustCompile(`\b` + regexp.QuoteMeta(k) + `\b`)
			if re.MatchString(text) {
				return true
			}
			continue
		}

		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
