package notify

import "fmt"

// DefaultChunkBytes are the spec's stated per-channel defaults (§4.10,
// §9 open question 1), overridden per-channel by
// config.Config.NotifyChunkBytesOverrides.
const (
	DefaultEmailChunkBytes = 20 * 1024
	DefaultIMChunkBytes    = 4096
)

// chunkSections packs sections into byte-bounded pages, splitting on
// section boundaries so a page never cuts a heading from its body
// unless the section alone exceeds maxBytes, in which case it is cut
// on a byte offset as a last resort. Page breaks are deterministic:
// the same sections and maxBytes always produce the same pages.
func chunkSections(secs []section, maxBytes int) []string {
	if maxBytes <= 0 {
		return []string{renderSections(secs)}
	}

	var pages []string
	var cur string
	flush := func() {
		if cur != "" {
			pages = append(pages, cur)
			cur = ""
		}
	}

	for _, s := range secs {
		block := s.heading + "\n" + s.body
		for len(block) > maxBytes {
			// Section alone exceeds the page budget: hard-split it.
			flush()
			pages = append(pages, block[:maxBytes])
			block = block[maxBytes:]
		}
		candidate := block
		if cur != "" {
			candidate = cur + "\n\n" + block
		}
		if len(candidate) > maxBytes {
			flush()
			cur = block
		} else {
			cur = candidate
		}
	}
	flush()

	if len(pages) == 0 {
		return []string{""}
	}
	return pages
}

func renderSections(secs []section) string {
	var out string
	for i, s := range secs {
		if i > 0 {
			out += "\n\n"
		}
		out += s.heading + "\n" + s.body
	}
	return out
}

// paginate prefixes each page with a "i/N" marker, per §4.10's
// requirement that chunked channels include page markers.
func paginate(pages []string) []string {
	if len(pages) <= 1 {
		return pages
	}
	out := make([]string, len(pages))
	for i, p := range pages {
		out[i] = fmt.Sprintf("(%d/%d)\n%s", i+1, len(pages), p)
	}
	return out
}
