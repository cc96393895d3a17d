package redis

const keyPrefix = "outreach:"

// EntryKey returns the Redis key for a single ledger entry.
func EntryKey(targetID string) string {
	return keyPrefix + "entry:" + targetID
}

// EntriesByTimeKey returns the key of the sorted set indexing all entries
// by SentAt (score = unix milliseconds).
func EntriesByTimeKey() string {
	return keyPrefix + "entries_by_time"
}

// SuccessesByTimeKey returns the key of the sorted set indexing only
// success entries by SentAt. Quota windows are answered from this index.
func SuccessesByTimeKey() string {
	return keyPrefix + "successes_by_time"
}
