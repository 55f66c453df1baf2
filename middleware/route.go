package middleware

import (
	midsec "TripBoard/middleware/security"

	"github.com/gin-gonic/gin"
)

// RouteOpt 配置选项
type RouteOpt struct {
	IsAuth bool
	Secret []byte
}

// POST 封装：按需挂鉴权中间件
func POST(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.POST(path, midsec.Middleware(midsec.DefaultOptions(opt.Secret)), handler)
	} else {
		r.POST(path, handler)
	}
}

// GET 封装
func GET(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.GET(path, midsec.Middleware(midsec.DefaultOptions(opt.Secret)), handler)
	} else {
		r.GET(path, handler)
	}
}

// PUT 封装
func PUT(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.PUT(path, midsec.Middleware(midsec.DefaultOptions(opt.Secret)), handler)
	} else {
		r.PUT(path, handler)
	}
}

// DELETE 封装
func DELETE(r gin.IRoutes, path string, handler gin.HandlerFunc, opt RouteOpt) {
	if opt.IsAuth {
		r.DELETE(path, midsec.Middleware(midsec.DefaultOptions(opt.Secret)), handler)
	} else {
		r.DELETE(path, handler)
	}
}
