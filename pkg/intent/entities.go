package intent

import (
	"regexp"
	"strings"
)

// extractSlots pulls named capture groups out of a match and runs the
// entity-specific cleanup for each.
func extractSlots(rule compiledRule, norm string, m []int) map[string]Slot {
	slots := map[string]Slot{}
	for i, name := range rule.re.SubexpNames() {
		if name == "" || i == 0 {
			continue
		}
		lo, hi := m[2*i], m[2*i+1]
		if lo < 0 || hi <= lo {
			continue
		}
		raw := norm[lo:hi]
		value := cleanEntity(name, raw)
		if value == "" {
			continue
		}
		conf := 0.9
		if value != raw {
			// Cleanup changed the text; keep a little uncertainty.
			conf = 0.8
		}
		slots[name] = Slot{Value: value, Confidence: conf, Raw: raw}
	}
	return slots
}

// cleanEntity dispatches to the extractor for a known entity name.
// Unknown names just get trimmed.
func cleanEntity(name, raw string) string {
	switch name {
	case "contact":
		return cleanContact(raw)
	case "message":
		return cleanMessage(raw)
	case "time":
		return cleanTimePhrase(raw)
	case "location":
		return cleanLocation(raw)
	default:
		return strings.TrimSpace(raw)
	}
}

// cleanContact strips address forms and honorifics so "联系人张三" and
// "张三" resolve to the same directory query.
func cleanContact(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "联系人")
	s = stripTrailingPunct(s)
	return s
}

// messageLeads are command keywords that bleed into the captured message
// body ("给张三发消息说…" captures "说…" with some grammars).
var messageLeads = []string{"说", "讲", "内容是", "内容:", ":", "，", ","}

// cleanMessage strips leading command keywords and surrounding punctuation
// from the free-text message body.
func cleanMessage(raw string) string {
	s := strings.TrimSpace(raw)
	for changed := true; changed; {
		changed = false
		for _, lead := range messageLeads {
			if strings.HasPrefix(s, lead) {
				s = strings.TrimSpace(strings.TrimPrefix(s, lead))
				changed = true
			}
		}
	}
	return stripTrailingPunct(s)
}

// timePhraseRe recognizes common relative and clock-time phrases. The
// phrase is kept raw; downstream executors interpret it.
var timePhraseRe = regexp.MustCompile(
	`(今天|明天|后天|今晚|早上|上午|中午|下午|晚上|凌晨)?([一二三四五六七八九十0-9]{1,2})?点(钟|半|[一二三四五六七八九十0-9]{1,2}分?)?|` +
		`(today|tomorrow|tonight|this (?:morning|afternoon|evening))|at \d{1,2}(?::\d{2})?\s?(?:am|pm)?`)

// cleanTimePhrase trims the captured group down to the recognizable time
// phrase within it.
func cleanTimePhrase(raw string) string {
	s := strings.TrimSpace(raw)
	if m := timePhraseRe.FindString(s); m != "" {
		return m
	}
	return s
}

// cleanLocation strips locative particles around a place phrase.
func cleanLocation(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "在")
	s = strings.TrimSuffix(s, "那里")
	s = strings.TrimSuffix(s, "这里")
	return stripTrailingPunct(s)
}

// FindTimePhrase scans free text for a time phrase; used by the pipeline
// to derive a time entity when the grammar did not capture one.
func FindTimePhrase(text string) (string, bool) {
	m := timePhraseRe.FindString(Normalize(text))
	return m, m != ""
}
