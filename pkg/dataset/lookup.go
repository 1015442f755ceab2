package dataset

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

var (
	// ErrCollectionNotFound indicates the snapshot has no usable value for a
	// collection.
	ErrCollectionNotFound = errors.New("data not found")

	// ErrEntryNotFound indicates no entry of the collection has the requested id.
	ErrEntryNotFound = errors.New("entry not found")
)

// EntryNotFoundMessage returns the client-facing message for a missing entry,
// e.g. "car not found".
func EntryNotFoundMessage(c Collection) string {
	return c.Noun() + " not found"
}

// CollectionValue returns the raw JSON stored under the collection's key.
// Missing or falsy values yield ErrCollectionNotFound.
func CollectionValue(snapshot []byte, c Collection) ([]byte, error) {
	res := gjson.GetBytes(snapshot, c.Key())
	if !resultTruthy(res) {
		return nil, ErrCollectionNotFound
	}
	return []byte(res.Raw), nil
}

// FindByID scans the collection for the first entry whose numeric "id" equals
// id and returns its raw JSON. The collection must be an array.
func FindByID(snapshot []byte, c Collection, id int64) ([]byte, error) {
	res := gjson.GetBytes(snapshot, c.Key())
	if !resultTruthy(res) || !res.IsArray() {
		return nil, ErrCollectionNotFound
	}

	var found *gjson.Result
	res.ForEach(func(_, entry gjson.Result) bool {
		entryID := entry.Get("id")
		if entryID.Type == gjson.Number && entryID.Num == float64(id) {
			found = &entry
			return false
		}
		return true
	})

	if found == nil {
		return nil, fmt.Errorf("%w: %s %d", ErrEntryNotFound, c.Noun(), id)
	}
	return []byte(found.Raw), nil
}

// ParseID parses an id path segment the way JavaScript parseInt does for
// base 10: optional surrounding whitespace and sign, then the longest run of
// leading digits. ok is false when there are no leading digits, which matches
// no entry.
func ParseID(s string) (id int64, ok bool) {
	i := 0
	for i < len(s) && isSpace(s[i]) {
		i++
	}

	neg := false
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		neg = s[i] == '-'
		i++
	}

	start := i
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		if id > (1<<53)/10 {
			// Past float64 integer precision; nothing stored can match.
			return 0, false
		}
		id = id*10 + int64(s[i]-'0')
		i++
	}
	if i == start {
		return 0, false
	}

	if neg {
		id = -id
	}
	return id, true
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\v' || b == '\f'
}

func resultTruthy(res gjson.Result) bool {
	if !res.Exists() {
		return false
	}
	switch res.Type {
	case gjson.Null, gjson.False:
		return false
	case gjson.Number:
		return res.Num != 0
	case gjson.String:
		return res.Str != ""
	default:
		return true
	}
}
