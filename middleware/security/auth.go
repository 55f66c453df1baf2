package security

import (
	"net/http"
	"strings"

	errs "TripBoard/tools/errs"
	security "TripBoard/tools/security"

	"github.com/gin-gonic/gin"
)

// —— context key ——
// 后续 handler 统一用这几个 key 读取身份
const (
	CtxUserIDKey      = "authUserId"
	CtxDisplayNameKey = "authDisplayName"
	CtxAvatarKey      = "authAvatarRef"
)

type Options struct {
	Secret []byte
	// 读取哪个请求头；默认 Authorization: Bearer xxx
	HeaderToken string
}

func DefaultOptions(secret []byte) *Options {
	return &Options{Secret: secret, HeaderToken: "Authorization"}
}

// Middleware 校验 JWT 并把身份写入 gin context；失败直接 401。
func Middleware(opts *Options) gin.HandlerFunc {
	jwtOpts := security.DefaultOptions(opts.Secret)
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader(opts.HeaderToken))
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[len("bearer "):])
		}
		if token == "" {
			token = strings.TrimSpace(c.Query("token"))
		}

		identity, err := security.Verify(jwtOpts, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errs.ErrUnauthenticated)
			return
		}

		c.Set(CtxUserIDKey, identity.UserID)
		c.Set(CtxDisplayNameKey, identity.DisplayName)
		c.Set(CtxAvatarKey, identity.AvatarRef)
		c.Next()
	}
}
