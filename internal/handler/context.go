package handler

import "net/http"

type ContextKey string

var (
	RoleCtxKey ContextKey = "role"
	SubCtxKey  ContextKey = "sub"
)

// actor 返回发起请求的用户，即令牌中的 sub
func actor(r *http.Request) string {
	sub, _ := r.Context().Value(SubCtxKey).(string)
	return sub
}
