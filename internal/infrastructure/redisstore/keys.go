package redisstore

const (
	userKeyPrefix         = "user:id:"
	userEmailKeyPrefix    = "user:email:"
	sessionTokenKeyPrefix = "session:token:"
	sessionIDKeyPrefix    = "session:id:"
	userSessionsKeyPrefix = "user:sessions:"

	scanCount = 200
)

func userKey(id string) string            { return userKeyPrefix + id }
func userEmailKey(email string) string    { return userEmailKeyPrefix + email }
func sessionTokenKey(token string) string { return sessionTokenKeyPrefix + token }
func sessionIDKey(id string) string       { return sessionIDKeyPrefix + id }
func userSessionsKey(uid string) string   { return userSessionsKeyPrefix + uid }
