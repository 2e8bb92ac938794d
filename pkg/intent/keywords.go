package intent

import "strings"

// keywordEntry maps a single keyword to an intent label. The fallback only
// fires when no grammar pattern accepts the utterance, so these can be
// loose.
type keywordEntry struct {
	keyword string
	label   Label
}

// defaultKeywords returns the fallback table. Order matters only for exact
// score ties; longer keywords naturally score higher on short utterances.
func defaultKeywords() []keywordEntry {
	return []keywordEntry{
		{"紧急求助", LabelEmergencyAlert},
		{"救命", LabelEmergencyAlert},
		{"emergency", LabelEmergencyAlert},
		{"发消息", LabelSendMessage},
		{"发短信", LabelSendMessage},
		{"消息", LabelSendMessage},
		{"短信", LabelSendMessage},
		{"message", LabelSendMessage},
		{"打电话", LabelMakeCall},
		{"电话", LabelMakeCall},
		{"呼叫", LabelMakeCall},
		{"call", LabelMakeCall},
		{"联系人", LabelSearchContact},
		{"查找", LabelSearchContact},
		{"contact", LabelSearchContact},
		{"取消", LabelCancel},
		{"cancel", LabelCancel},
	}
}

// matchKeywords scores each table entry contained in the utterance by
// keyword.length/text.length and returns the best.
func (r *Recognizer) matchKeywords(norm string) (Intent, bool) {
	textLen := len([]rune(norm))
	if textLen == 0 {
		return Intent{}, false
	}

	var (
		best  Intent
		found bool
	)
	for _, kw := range r.keywords {
		if !strings.Contains(norm, kw.keyword) {
			continue
		}
		conf := float64(len([]rune(kw.keyword))) / float64(textLen)
		if conf > 1.0 {
			conf = 1.0
		}
		if !found || conf > best.Confidence {
			best = Intent{
				Label:      kw.label,
				Confidence: conf,
				Entities:   map[string]string{},
				Slots:      map[string]Slot{},
			}
			found = true
		}
	}
	return best, found
}
