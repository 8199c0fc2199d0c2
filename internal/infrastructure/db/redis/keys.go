package redis

import "fmt"

const keyPrefix = "userapi"

// userKey holds the JSON-encoded user record, watch list included.
func userKey(id string) string {
	return fmt.Sprintf("%s:user:%s", keyPrefix, id)
}

// usernameIndexKey maps a username to its user id.
func usernameIndexKey(username string) string {
	return fmt.Sprintf("%s:idx:username:%s", keyPrefix, username)
}

// usersIndexKey is the sorted set of user ids, scored by id.
func usersIndexKey() string {
	return fmt.Sprintf("%s:idx:users", keyPrefix)
}

// userSeqKey is the counter user ids are drawn from.
func userSeqKey() string {
	return fmt.Sprintf("%s:seq:user", keyPrefix)
}
