package device

import "strings"

// typeWords maps each device type to the lowercase words a person might use
// to refer to it in free-text search. Lookups are built once at startup.
var typeWords = map[DeviceType][]string{
	DeviceTypeLightbulb: {"lightbulb", "bulb", "lamp", "light"},
	DeviceTypeTv:        {"tv", "television", "telly"},
	DeviceTypeSocket:    {"socket", "plug", "outlet"},
	DeviceTypeOther:     {"device"},
	DeviceTypeUnknown:   {"device"},
}

var wordTypes map[string][]DeviceType

func init() {
	wordTypes = make(map[string][]DeviceType)
	for t, words := range typeWords {
		for _, w := range words {
			wordTypes[w] = append(wordTypes[w], t)
		}
	}
}

// TypeWords returns the search vocabulary for a device type.
func TypeWords(t DeviceType) []string {
	words := typeWords[t]
	out := make([]string, len(words))
	copy(out, words)
	return out
}

// TypesForWord returns the device types a free-text word refers to,
// or nil when the word is not part of the vocabulary. Matching is
// case-insensitive.
func TypesForWord(word string) []DeviceType {
	return wordTypes[strings.ToLower(strings.TrimSpace(word))]
}
